/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas is the world engine behind the studio's infinite 2D
// workspace: camera state (pan/zoom), per-screen frame placement, and
// mode-sensitive routing of raw pointer events into selection, connection
// drawing or panning. It is UI-toolkit agnostic; the shell feeds it events
// and reads its state back.
package canvas

import (
	"log/slog"

	"appstudio/internal/domain"
	applog "appstudio/internal/log"
	"appstudio/internal/navgraph"
	"appstudio/internal/preview"
	"appstudio/internal/project"
	"appstudio/internal/vector"
)

// Camera limits and defaults.
const (
	MinZoom  float32 = 0.1
	MaxZoom  float32 = 2.0
	ZoomStep float32 = 0.05

	DefaultZoom float32 = 0.5
	DefaultPanX float32 = 60
	DefaultPanY float32 = 60
)

// Button identifies a pointer button.
type Button uint8

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// Modifiers carries the keyboard state accompanying a pointer event.
type Modifiers struct {
	Ctrl bool
	Alt  bool
}

// PendingConnection marks the source of a connection being drawn. While set,
// the next click on a different screen's frame commits the edge.
type PendingConnection struct {
	Screen       string
	ElementID    string
	ElementLabel string
}

// ContextMenu is the transient right-click menu state.
type ContextMenu struct {
	X, Y    float32
	Screen  string
	Element *domain.UIElementRef
}

// frameDrag tracks a label-bar drag in progress. Positions stream as
// transient overrides and commit once at release, so drag feedback never
// floods the history log.
type frameDrag struct {
	screen         string
	startX, startY float32
	startPos       domain.ScreenPos
	current        domain.ScreenPos
}

// Engine owns camera and interaction state for one open project.
type Engine struct {
	store *project.Store

	zoom    float32
	pan     vector.Pt
	panning bool

	mode       preview.Mode
	activeFile string
	selected   *domain.UIElementRef
	connecting *PendingConnection
	menu       *ContextMenu
	drag       *frameDrag
	guides     []vector.GuideLine

	logger *slog.Logger
}

// NewEngine builds an engine over the store with the default camera and the
// first screen active.
func NewEngine(store *project.Store) *Engine {
	e := &Engine{
		store:  store,
		mode:   preview.ModeBuild,
		logger: applog.WithComponent("canvas"),
	}
	e.ResetView()
	if screens := store.Current().HTMLFiles(); len(screens) > 0 {
		e.activeFile = screens[0]
	}
	return e
}

// Zoom returns the current zoom factor.
func (e *Engine) Zoom() float32 { return e.zoom }

// Pan returns the current camera offset in host pixels.
func (e *Engine) Pan() vector.Pt { return e.pan }

// Mode returns the current interaction mode.
func (e *Engine) Mode() preview.Mode { return e.mode }

// ActiveFile returns the screen currently targeted for editing.
func (e *Engine) ActiveFile() string { return e.activeFile }

// Selected returns the current element selection, nil when none.
func (e *Engine) Selected() *domain.UIElementRef { return e.selected }

// Connecting returns the pending connection source, nil when none.
func (e *Engine) Connecting() *PendingConnection { return e.connecting }

// Menu returns the open context menu, nil when closed.
func (e *Engine) Menu() *ContextMenu { return e.menu }

// ResetView restores the default camera.
func (e *Engine) ResetView() {
	e.zoom = DefaultZoom
	e.pan = vector.Pt{X: DefaultPanX, Y: DefaultPanY}
}

// SetMode switches between build and test interaction. Leaving build mode
// drops selection, pending connections and the menu.
func (e *Engine) SetMode(m preview.Mode) {
	e.mode = m
	if m != preview.ModeBuild {
		e.selected = nil
		e.connecting = nil
		e.menu = nil
	}
}

// Wheel handles scroll input: with the modifier held the zoom steps and
// clamps, otherwise the raw delta pans the camera.
func (e *Engine) Wheel(dx, dy float32, mods Modifiers) {
	if mods.Ctrl {
		step := ZoomStep
		if dy > 0 {
			step = -ZoomStep
		}
		e.zoom = clamp(e.zoom+step, MinZoom, MaxZoom)
		return
	}
	e.pan.X -= dx
	e.pan.Y -= dy
}

// PointerDown routes a raw press: middle button or modifier+left starts a
// global pan; any press closes an open context menu.
func (e *Engine) PointerDown(b Button, mods Modifiers) {
	if b == ButtonMiddle || (b == ButtonLeft && mods.Alt) {
		e.panning = true
	}
	e.menu = nil
}

// PointerDrag advances a pan gesture by the cursor movement delta.
func (e *Engine) PointerDrag(dx, dy float32) {
	if !e.panning {
		return
	}
	e.pan.X += dx
	e.pan.Y += dy
}

// PointerUp ends a pan gesture; the release may happen anywhere, the gesture
// is tracked globally.
func (e *Engine) PointerUp() {
	e.panning = false
	if e.drag != nil {
		e.EndFrameDrag()
	}
}

// Panning reports whether a pan gesture is active.
func (e *Engine) Panning() bool { return e.panning }

// ToWorld converts a host-pixel point into world coordinates.
func (e *Engine) ToWorld(p vector.Pt) vector.Pt {
	return vector.Pt{X: (p.X - e.pan.X) / e.zoom, Y: (p.Y - e.pan.Y) / e.zoom}
}

// ToHost converts a world point into host pixels.
func (e *Engine) ToHost(p vector.Pt) vector.Pt {
	return vector.Pt{X: p.X*e.zoom + e.pan.X, Y: p.Y*e.zoom + e.pan.Y}
}

// Layout resolves the current project's frame geometry, honoring an
// in-progress frame drag.
func (e *Engine) Layout() navgraph.Layout {
	p := e.store.Current()
	if e.drag == nil {
		return navgraph.NewLayout(p)
	}
	positions := make(map[string]domain.ScreenPos, len(p.Positions)+1)
	for k, v := range p.Positions {
		positions[k] = v
	}
	positions[e.drag.screen] = e.drag.current
	override := *p
	override.Positions = positions
	return navgraph.NewLayout(&override)
}

// BeginFrameDrag starts dragging a screen by its label bar. px,py are host
// pixels. Ignored while a connection is pending, the click should pick a
// target instead.
func (e *Engine) BeginFrameDrag(screen string, px, py float32) {
	if e.connecting != nil {
		return
	}
	pos := navgraph.NewLayout(e.store.Current()).Pos(screen)
	e.drag = &frameDrag{screen: screen, startX: px, startY: py, startPos: pos, current: pos}
}

// SnapThreshold is the world-space distance at which a dragged frame snaps
// to another frame's edges or centers.
const SnapThreshold float32 = 8

// FrameDrag advances the drag. The cursor delta is divided by zoom so drag
// speed is zoom-invariant; the raw position then snaps against the other
// frames.
func (e *Engine) FrameDrag(px, py float32) {
	if e.drag == nil {
		return
	}
	raw := domain.ScreenPos{
		X: e.drag.startPos.X + (px-e.drag.startX)/e.zoom,
		Y: e.drag.startPos.Y + (py-e.drag.startY)/e.zoom,
	}
	e.drag.current, e.guides = e.snapFrame(e.drag.screen, raw)
}

// snapFrame aligns a candidate frame origin against every other frame.
func (e *Engine) snapFrame(screen string, raw domain.ScreenPos) (domain.ScreenPos, []vector.GuideLine) {
	l := navgraph.NewLayout(e.store.Current())
	var anchors []vector.Anchor
	for _, s := range l.Screens() {
		if s != screen {
			anchors = append(anchors, vector.Anchor{Rect: l.FrameBox(s), Weight: 1})
		}
	}
	if len(anchors) == 0 {
		return raw, nil
	}
	moving := vector.R(raw.X, raw.Y, navgraph.FrameOuterWidth, navgraph.FrameOuterHeight)
	snapped, guides := vector.ComputeSmartGuides(moving, anchors, vector.SnapOptions{
		Threshold:     SnapThreshold,
		SnapToEdges:   true,
		SnapToCenters: true,
	})
	return domain.ScreenPos{X: snapped.X, Y: snapped.Y}, guides
}

// Guides returns the alignment guides of the frame drag in progress, empty
// outside a drag or away from any snap line.
func (e *Engine) Guides() []vector.GuideLine { return e.guides }

// EndFrameDrag commits the final placement as one versioned change.
func (e *Engine) EndFrameDrag() {
	if e.drag == nil {
		return
	}
	d := e.drag
	e.drag = nil
	e.guides = nil
	if d.current == d.startPos {
		return
	}
	if err := e.store.SetScreenPosition(d.screen, d.current); err != nil {
		e.logger.Error("frame placement commit failed", slog.String("screen", d.screen), slog.Any("error", err))
	}
}

// SelectScreen activates a screen for editing, dropping any element
// selection from the previous screen.
func (e *Engine) SelectScreen(path string) {
	if e.activeFile != path {
		e.activeFile = path
		e.selected = nil
	}
}

// ScreenClicked routes a click on a screen's frame. With a connection
// pending, a different screen commits the edge and clears the pending
// state; the source screen itself is a no-op (Escape cancels). Otherwise
// the screen becomes the edit target.
func (e *Engine) ScreenClicked(path string) {
	if e.connecting != nil {
		if e.connecting.Screen != path {
			e.commitConnection(path)
		}
		return
	}
	e.SelectScreen(path)
}

// ElementInteracted handles a STUDIO_INTERACT report from screen's sandbox:
// target picking while connecting, otherwise activation plus selection.
func (e *Engine) ElementInteracted(screen string, ref domain.UIElementRef) {
	if e.mode != preview.ModeBuild {
		return
	}
	if e.connecting != nil {
		if e.connecting.Screen != screen {
			e.commitConnection(screen)
		}
		return
	}
	if e.activeFile != screen {
		e.SelectScreen(screen)
	}
	e.selected = &ref
}

// ElementRightClicked opens the context menu for an element in build mode.
func (e *Engine) ElementRightClicked(screen string, ref domain.UIElementRef, x, y float32) {
	if e.mode != preview.ModeBuild {
		return
	}
	e.menu = &ContextMenu{X: x, Y: y, Screen: screen, Element: &ref}
}

// MenuTargets lists every other screen as a direct navigate-to shortcut.
func (e *Engine) MenuTargets() []string {
	if e.menu == nil {
		return nil
	}
	var out []string
	for _, s := range e.store.Current().HTMLFiles() {
		if s != e.menu.Screen {
			out = append(out, s)
		}
	}
	return out
}

// MenuNavigateTo commits a connection from the menu's element straight to
// target and closes the menu.
func (e *Engine) MenuNavigateTo(target string) {
	if e.menu == nil || e.menu.Element == nil {
		return
	}
	e.connecting = &PendingConnection{
		Screen:       e.menu.Screen,
		ElementID:    e.menu.Element.ID,
		ElementLabel: elementLabel(*e.menu.Element),
	}
	e.menu = nil
	e.commitConnection(target)
}

// MenuPickTarget enters connect-pending mode from the menu; the next click
// on another screen picks the destination.
func (e *Engine) MenuPickTarget() {
	if e.menu == nil || e.menu.Element == nil {
		return
	}
	e.connecting = &PendingConnection{
		Screen:       e.menu.Screen,
		ElementID:    e.menu.Element.ID,
		ElementLabel: elementLabel(*e.menu.Element),
	}
	e.menu = nil
}

// StartConnecting enters connect-pending mode directly (right-click on an
// element without the menu path).
func (e *Engine) StartConnecting(screen string, ref domain.UIElementRef) {
	if e.mode != preview.ModeBuild {
		return
	}
	e.connecting = &PendingConnection{
		Screen:       screen,
		ElementID:    ref.ID,
		ElementLabel: elementLabel(ref),
	}
}

// Escape cancels the pending connection and closes the menu.
func (e *Engine) Escape() {
	e.connecting = nil
	e.menu = nil
}

func (e *Engine) commitConnection(target string) {
	c := e.connecting
	e.connecting = nil
	err := e.store.AddConnection(domain.NavigationConnection{
		FromScreen:       c.Screen,
		FromElementID:    c.ElementID,
		FromElementLabel: c.ElementLabel,
		ToScreen:         target,
		Action:           domain.ActionNavigate,
	})
	if err != nil {
		e.logger.Error("connection commit failed", slog.String("from", c.Screen), slog.String("to", target), slog.Any("error", err))
	}
}

func elementLabel(ref domain.UIElementRef) string {
	switch {
	case ref.Text != "":
		return ref.Text
	case ref.TagName != "":
		return ref.TagName
	default:
		return "Element"
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
