/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package overlay implements the visual transform affordance for a selected
// element: drag-move and bottom-right resize gestures with pointer-offset
// anchoring. Every reported rectangle is snapped to the grid; OnUpdate fires
// per pointer move for live feedback and OnFinish exactly once at release,
// the commit signal.
package overlay

import (
	"appstudio/internal/domain"
	"appstudio/internal/vector"
)

// GridUnit is the snap grid in host-page pixels. Widths and heights floor at
// one unit so a resize can never produce a degenerate rectangle.
const GridUnit = 8

// Gesture is the overlay's active pointer gesture.
type Gesture uint8

const (
	GestureNone Gesture = iota
	GestureMove
	GestureResize
)

// Overlay tracks one selected element's on-screen footprint. The host feeds
// it raw pointer events; the overlay owns offset anchoring, snapping and the
// update/finish callback contract.
type Overlay struct {
	elementID string
	rect      domain.RectPx
	gesture   Gesture

	// pointer-to-rect offset recorded at move start
	offX, offY float32
	// pointer origin and starting size recorded at resize start
	startX, startY float32
	startW, startH float32

	// OnUpdate streams intermediate rects, one per pointer move.
	OnUpdate func(domain.RectPx)
	// OnFinish delivers the final rect once per gesture at release.
	OnFinish func(domain.RectPx)

	// Acquire and Release model the host's global listener scope: Acquire
	// runs once when a gesture starts, Release once when it ends, through
	// the same path for normal release and cancellation.
	Acquire func()
	Release func()
}

// New seeds an overlay from a clicked element's reference. The rect is in
// host-page coordinates, already translated out of sandbox space.
func New(el domain.UIElementRef) *Overlay {
	return &Overlay{elementID: el.ID, rect: el.Rect}
}

// ElementID identifies the element this overlay edits.
func (o *Overlay) ElementID() string { return o.elementID }

// Rect returns the current (snapped) rectangle.
func (o *Overlay) Rect() domain.RectPx { return snap(o.rect) }

// Active reports whether a gesture is in progress.
func (o *Overlay) Active() bool { return o.gesture != GestureNone }

// BeginMove starts a drag gesture, anchoring the pointer-to-rect offset so
// the rect does not jump to the cursor.
func (o *Overlay) BeginMove(px, py float32) {
	if o.gesture != GestureNone {
		return
	}
	o.gesture = GestureMove
	o.offX = px - o.rect.Left
	o.offY = py - o.rect.Top
	o.acquire()
}

// BeginResize starts a resize gesture anchored at the bottom-right handle.
func (o *Overlay) BeginResize(px, py float32) {
	if o.gesture != GestureNone {
		return
	}
	o.gesture = GestureResize
	o.startX, o.startY = px, py
	o.startW, o.startH = o.rect.Width, o.rect.Height
	o.acquire()
}

// PointerMove advances the active gesture and streams the snapped rect.
// Without an active gesture it is a no-op.
func (o *Overlay) PointerMove(px, py float32) {
	switch o.gesture {
	case GestureMove:
		o.rect.Left = px - o.offX
		o.rect.Top = py - o.offY
	case GestureResize:
		o.rect.Width = o.startW + (px - o.startX)
		o.rect.Height = o.startH + (py - o.startY)
	default:
		return
	}
	if o.OnUpdate != nil {
		o.OnUpdate(o.Rect())
	}
}

// PointerUp ends the gesture and commits via OnFinish.
func (o *Overlay) PointerUp() {
	if o.gesture == GestureNone {
		return
	}
	o.rect = snap(o.rect)
	finish := o.OnFinish
	o.end()
	if finish != nil {
		finish(o.rect)
	}
}

// Cancel ends the gesture without committing. The rect keeps its last
// streamed value; listener release still runs.
func (o *Overlay) Cancel() {
	if o.gesture == GestureNone {
		return
	}
	o.rect = snap(o.rect)
	o.end()
}

func (o *Overlay) acquire() {
	if o.Acquire != nil {
		o.Acquire()
	}
}

// end is the single cleanup path for both release and cancellation.
func (o *Overlay) end() {
	o.gesture = GestureNone
	if o.Release != nil {
		o.Release()
	}
}

// snap aligns all four rect fields to the grid, flooring sizes at one unit.
func snap(r domain.RectPx) domain.RectPx {
	return domain.RectPx{
		Top:    vector.SnapGrid(r.Top, GridUnit),
		Left:   vector.SnapGrid(r.Left, GridUnit),
		Width:  vector.SnapGridMin(r.Width, GridUnit),
		Height: vector.SnapGridMin(r.Height, GridUnit),
	}
}
