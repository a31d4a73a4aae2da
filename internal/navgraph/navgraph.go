/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package navgraph maintains the directed screen-to-screen connection overlay:
// frame geometry in world space, bezier edge routing between frames, hover
// hit-testing, and the auto-generated navigation glue code each source screen
// carries. All routing is deterministic so the arrow layer can be re-derived
// from project state alone.
package navgraph

import (
	"math"

	"appstudio/internal/domain"
	"appstudio/internal/vector"
)

// Device frame metrics in world units. A screen frame is the label bar on top
// of a padded device viewport.
const (
	ScreenWidth       = 360
	ScreenHeight      = 740
	ScreenLabelHeight = 40
	FramePadding      = 12

	// DefaultSpacing is the horizontal stride for screens that have never
	// been dragged; placement falls back to index*DefaultSpacing, 0.
	DefaultSpacing = 450

	// edgeClearance pushes arrow endpoints just off the device edge.
	edgeClearance = 6

	// Control points extend along the dominant axis by
	// min(|dx|, |dy|, maxControlBend) + controlBendBase.
	maxControlBend  = 120
	controlBendBase = 60

	// HitStrokeWidth is the width of the invisible stroke used for hover
	// detection; the visible stroke is too thin to target with a pointer.
	HitStrokeWidth = 20
)

// FrameOuterWidth and FrameOuterHeight are the full world-space footprint of
// one screen frame including label bar and padding.
const (
	FrameOuterWidth  = ScreenWidth + 2*FramePadding
	FrameOuterHeight = ScreenLabelHeight + ScreenHeight + 2*FramePadding
)

// Layout resolves screen frames to world-space geometry for one project
// version. It carries the sorted screen list so default placement is stable.
type Layout struct {
	screens   []string
	positions map[string]domain.ScreenPos
}

// NewLayout captures the screen set and placements of p.
func NewLayout(p *domain.Project) Layout {
	return Layout{screens: p.HTMLFiles(), positions: p.Positions}
}

// Screens returns the sorted screen paths the layout covers.
func (l Layout) Screens() []string { return l.screens }

// Has reports whether screen is part of the layout.
func (l Layout) Has(screen string) bool {
	for _, s := range l.screens {
		if s == screen {
			return true
		}
	}
	return false
}

// Pos returns the frame origin for screen, falling back to the deterministic
// index-based default when the user never dragged it.
func (l Layout) Pos(screen string) domain.ScreenPos {
	if p, ok := l.positions[screen]; ok {
		return p
	}
	idx := 0
	for i, s := range l.screens {
		if s == screen {
			idx = i
			break
		}
	}
	return domain.ScreenPos{X: float32(idx) * DefaultSpacing, Y: 0}
}

// FrameBox returns the full outer bounds of a screen frame (label bar plus
// padded device viewport) in world units.
func (l Layout) FrameBox(screen string) vector.Rect {
	p := l.Pos(screen)
	return vector.R(p.X, p.Y, FrameOuterWidth, FrameOuterHeight)
}

// DeviceBox returns the device viewport bounds inside the frame, the rect
// arrows attach to.
func (l Layout) DeviceBox(screen string) vector.Rect {
	p := l.Pos(screen)
	return vector.R(p.X+FramePadding, p.Y+ScreenLabelHeight+FramePadding, ScreenWidth, ScreenHeight)
}

// Center returns the device viewport center of screen.
func (l Layout) Center(screen string) vector.Pt {
	b := l.DeviceBox(screen)
	return vector.Pt{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// edgePoint picks the exit (or entry) point on a frame's device edge. The
// dominant axis of the center-to-center delta selects the edge; the point
// sits at the edge midpoint pushed edgeClearance units outward.
func (l Layout) edgePoint(screen string, dx, dy float32) vector.Pt {
	b := l.DeviceBox(screen)
	cx, cy := b.X+b.W/2, b.Y+b.H/2
	if abs32(dx) > abs32(dy) {
		if dx > 0 {
			return vector.Pt{X: b.X + b.W + edgeClearance, Y: cy}
		}
		return vector.Pt{X: b.X - edgeClearance, Y: cy}
	}
	if dy > 0 {
		return vector.Pt{X: cx, Y: b.Y + b.H + edgeClearance}
	}
	return vector.Pt{X: cx, Y: b.Y - edgeClearance}
}

// Arrow is one routed connection: a single cubic bezier from the source
// frame's edge to the destination frame's edge.
type Arrow struct {
	Conn       domain.NavigationConnection
	Start, End vector.Pt
	C1, C2     vector.Pt
}

// Route computes the bezier for conn. ok is false when either endpoint
// screen is missing from the layout (a dangling connection, filtered at
// render time, never purged from the set).
func (l Layout) Route(conn domain.NavigationConnection) (Arrow, bool) {
	if !l.Has(conn.FromScreen) || !l.Has(conn.ToScreen) {
		return Arrow{}, false
	}
	fc := l.Center(conn.FromScreen)
	tc := l.Center(conn.ToScreen)

	start := l.edgePoint(conn.FromScreen, tc.X-fc.X, tc.Y-fc.Y)
	end := l.edgePoint(conn.ToScreen, fc.X-tc.X, fc.Y-tc.Y)

	dx := end.X - start.X
	dy := end.Y - start.Y
	bend := min3(abs32(dx), abs32(dy), maxControlBend) + controlBendBase

	c1, c2 := start, end
	if abs32(dx) > abs32(dy) {
		if dx > 0 {
			c1.X += bend
			c2.X -= bend
		} else {
			c1.X -= bend
			c2.X += bend
		}
	} else {
		if dy > 0 {
			c1.Y += bend
			c2.Y -= bend
		} else {
			c1.Y -= bend
			c2.Y += bend
		}
	}
	return Arrow{Conn: conn, Start: start, End: end, C1: c1, C2: c2}, true
}

// Arrows routes every connection whose endpoints still exist. Order follows
// the input set.
func (l Layout) Arrows(conns []domain.NavigationConnection) []Arrow {
	var out []Arrow
	for _, c := range conns {
		if a, ok := l.Route(c); ok {
			out = append(out, a)
		}
	}
	return out
}

// Midpoint is where the hover label and delete control sit.
func (a Arrow) Midpoint() vector.Pt {
	return vector.Pt{X: (a.Start.X + a.End.X) / 2, Y: (a.Start.Y + a.End.Y) / 2}
}

// Path renders the arrow as a vector path.
func (a Arrow) Path() vector.Path {
	var p vector.Path
	p.MoveTo(a.Start.X, a.Start.Y)
	p.CubicTo(a.C1.X, a.C1.Y, a.C2.X, a.C2.Y, a.End.X, a.End.Y)
	return p
}

// pointAt evaluates the cubic at t in [0,1].
func (a Arrow) pointAt(t float32) vector.Pt {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return vector.Pt{
		X: b0*a.Start.X + b1*a.C1.X + b2*a.C2.X + b3*a.End.X,
		Y: b0*a.Start.Y + b1*a.C1.Y + b2*a.C2.Y + b3*a.End.Y,
	}
}

const hitSamples = 32

// Hit reports whether p falls within the invisible hover stroke around the
// curve. The curve is flattened into hitSamples segments; connection counts
// are small so the scan cost is negligible.
func (a Arrow) Hit(p vector.Pt) bool {
	limit := float32(HitStrokeWidth) / 2
	prev := a.Start
	for i := 1; i <= hitSamples; i++ {
		cur := a.pointAt(float32(i) / hitSamples)
		if distToSegment(p, prev, cur) <= limit {
			return true
		}
		prev = cur
	}
	return false
}

func distToSegment(p, a, b vector.Pt) float32 {
	abx, aby := b.X-a.X, b.Y-a.Y
	apx, apy := p.X-a.X, p.Y-a.Y
	den := abx*abx + aby*aby
	t := float32(0)
	if den > 0 {
		t = (apx*abx + apy*aby) / den
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	dx := p.X - (a.X + t*abx)
	dy := p.Y - (a.Y + t*aby)
	return float32(math.Hypot(float64(dx), float64(dy)))
}

// ArrowState is the visual state of one rendered arrow.
type ArrowState uint8

const (
	ArrowIdle ArrowState = iota
	ArrowHovered
	// ArrowActive marks arrows touching the currently edited screen.
	ArrowActive
)

var (
	idleColor   = vector.Color{R: 0xf9, G: 0x73, B: 0x16, A: 0x80}
	hoverColor  = vector.Color{R: 0xfb, G: 0x92, B: 0x3c, A: 0xcc}
	activeColor = vector.Color{R: 0x3b, G: 0x82, B: 0xf6, A: 0xe6}
)

// StateFor derives an arrow's visual state from hover and the active screen.
// Active wins over hovered, matching the stroke the renderer picks.
func StateFor(conn domain.NavigationConnection, activeScreen string, hovered bool) ArrowState {
	if conn.FromScreen == activeScreen || conn.ToScreen == activeScreen {
		return ArrowActive
	}
	if hovered {
		return ArrowHovered
	}
	return ArrowIdle
}

// Stroke returns the visible stroke for an arrow in state s. Modal
// connections render dashed.
func (a Arrow) Stroke(s ArrowState) vector.Stroke {
	st := vector.Stroke{Width: 2, Cap: vector.CapRound, Join: vector.JoinRound, Enabled: true}
	switch s {
	case ArrowHovered:
		st.Color = hoverColor
		st.Width = 3
	case ArrowActive:
		st.Color = activeColor
	default:
		st.Color = idleColor
	}
	if a.Conn.Action == domain.ActionModal {
		st.Dash = []float32{8, 4}
	}
	return st
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func min3(a, b, c float32) float32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
