/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"math"
	"testing"

	"appstudio/internal/domain"
	"appstudio/internal/preview"
	"appstudio/internal/project"
	"appstudio/internal/vector"
)

func newEngine(t *testing.T) (*Engine, *project.Store) {
	t.Helper()
	s := project.New(&domain.Project{
		ID:      "p1",
		Name:    "Demo",
		Version: 1,
		Files: map[string]domain.AppFile{
			"index.html":   domain.NewFile("index.html", "<html></html>"),
			"screen2.html": domain.NewFile("screen2.html", "<html></html>"),
		},
		Positions: map[string]domain.ScreenPos{},
	})
	return NewEngine(s), s
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-4 }

func TestDefaultsAndReset(t *testing.T) {
	e, _ := newEngine(t)
	if !near(e.Zoom(), 0.5) {
		t.Fatalf("default zoom = %v", e.Zoom())
	}
	if e.Pan() != (vector.Pt{X: 60, Y: 60}) {
		t.Fatalf("default pan = %+v", e.Pan())
	}
	if e.ActiveFile() != "index.html" {
		t.Fatalf("active file = %q", e.ActiveFile())
	}

	e.Wheel(30, 40, Modifiers{})
	e.Wheel(0, -10, Modifiers{Ctrl: true})
	e.ResetView()
	if !near(e.Zoom(), 0.5) || e.Pan() != (vector.Pt{X: 60, Y: 60}) {
		t.Fatalf("reset did not restore defaults: zoom=%v pan=%+v", e.Zoom(), e.Pan())
	}
}

func TestWheelZoomStepsAndClamps(t *testing.T) {
	e, _ := newEngine(t)
	e.Wheel(0, -1, Modifiers{Ctrl: true}) // scroll up zooms in
	if !near(e.Zoom(), 0.55) {
		t.Fatalf("zoom = %v, want 0.55", e.Zoom())
	}
	for i := 0; i < 100; i++ {
		e.Wheel(0, -1, Modifiers{Ctrl: true})
	}
	if e.Zoom() > MaxZoom || !near(e.Zoom(), MaxZoom) {
		t.Fatalf("zoom not clamped at max: %v", e.Zoom())
	}
	for i := 0; i < 100; i++ {
		e.Wheel(0, 1, Modifiers{Ctrl: true})
	}
	if e.Zoom() < MinZoom || !near(e.Zoom(), MinZoom) {
		t.Fatalf("zoom not clamped at min: %v", e.Zoom())
	}
}

func TestPlainWheelPansRawDelta(t *testing.T) {
	e, _ := newEngine(t)
	e.Wheel(15, -25, Modifiers{})
	if e.Pan() != (vector.Pt{X: 45, Y: 85}) {
		t.Fatalf("pan = %+v, want {45 85}", e.Pan())
	}
}

func TestPanGesture(t *testing.T) {
	e, _ := newEngine(t)
	e.PointerDrag(50, 50) // no gesture yet
	if e.Pan() != (vector.Pt{X: 60, Y: 60}) {
		t.Fatalf("drag without gesture moved the camera")
	}

	e.PointerDown(ButtonMiddle, Modifiers{})
	if !e.Panning() {
		t.Fatalf("middle button must start panning")
	}
	e.PointerDrag(10, -20)
	e.PointerUp()
	if e.Pan() != (vector.Pt{X: 70, Y: 40}) {
		t.Fatalf("pan = %+v", e.Pan())
	}
	if e.Panning() {
		t.Fatalf("release must end panning")
	}

	e.PointerDown(ButtonLeft, Modifiers{Alt: true})
	if !e.Panning() {
		t.Fatalf("modifier+left must start panning")
	}
	e.PointerUp()

	e.PointerDown(ButtonLeft, Modifiers{})
	if e.Panning() {
		t.Fatalf("plain left press must not pan")
	}
}

func TestWorldHostRoundTrip(t *testing.T) {
	e, _ := newEngine(t)
	w := e.ToWorld(vector.Pt{X: 160, Y: 260})
	if !near(w.X, 200) || !near(w.Y, 400) {
		t.Fatalf("world = %+v, want {200 400}", w)
	}
	h := e.ToHost(w)
	if !near(h.X, 160) || !near(h.Y, 260) {
		t.Fatalf("host round trip = %+v", h)
	}
}

func TestFrameDragZoomInvariantAndCommitsOnce(t *testing.T) {
	e, s := newEngine(t)
	v := s.Current().Version

	e.BeginFrameDrag("screen2.html", 100, 100)
	e.FrameDrag(150, 120) // +50,+20 host pixels at zoom 0.5 = +100,+40 world
	if s.Current().Version != v {
		t.Fatalf("drag feedback must not commit")
	}
	// Transient placement visible through the engine's layout.
	pos := e.Layout().Pos("screen2.html")
	if !near(pos.X, 550) || !near(pos.Y, 40) {
		t.Fatalf("transient pos = %+v, want {550 40}", pos)
	}

	e.EndFrameDrag()
	p := s.Current()
	if p.Version != v+1 {
		t.Fatalf("release must commit exactly once, version %d -> %d", v, p.Version)
	}
	got := p.Positions["screen2.html"]
	if !near(got.X, 550) || !near(got.Y, 40) {
		t.Fatalf("committed pos = %+v", got)
	}
}

func TestFrameDragSnapsToNeighborEdges(t *testing.T) {
	e, _ := newEngine(t)

	// Raw world target (600, 5): the 5-unit vertical offset is inside the
	// snap threshold, so the top edge aligns with index.html at y=0.
	e.BeginFrameDrag("screen2.html", 0, 0)
	e.FrameDrag(75, 2.5)

	pos := e.Layout().Pos("screen2.html")
	if !near(pos.X, 600) {
		t.Fatalf("x = %v, want 600 (no horizontal snap candidate)", pos.X)
	}
	if !near(pos.Y, 0) {
		t.Fatalf("y = %v, want snap to 0", pos.Y)
	}
	if len(e.Guides()) == 0 {
		t.Fatal("snap produced no guide lines")
	}

	e.EndFrameDrag()
	if e.Guides() != nil {
		t.Fatal("guides must clear at release")
	}
}

func TestFrameDragNoMoveNoCommit(t *testing.T) {
	e, s := newEngine(t)
	v := s.Current().Version
	e.BeginFrameDrag("index.html", 10, 10)
	e.EndFrameDrag()
	if s.Current().Version != v {
		t.Fatalf("a drag that never moved must not commit")
	}
}

func TestConnectionFlowViaScreenClick(t *testing.T) {
	e, s := newEngine(t)
	e.StartConnecting("index.html", domain.UIElementRef{ID: "go", Text: "Go"})
	if e.Connecting() == nil {
		t.Fatalf("pending connection not set")
	}

	// Clicking the source screen is a no-op, pending stays.
	e.ScreenClicked("index.html")
	if e.Connecting() == nil {
		t.Fatalf("source-screen click must keep the pending state")
	}

	e.ScreenClicked("screen2.html")
	if e.Connecting() != nil {
		t.Fatalf("commit must clear the pending state")
	}
	conns := s.Current().Connections
	if len(conns) != 1 {
		t.Fatalf("connections = %d, want 1", len(conns))
	}
	c := conns[0]
	if c.FromScreen != "index.html" || c.ToScreen != "screen2.html" || c.FromElementID != "go" ||
		c.FromElementLabel != "Go" || c.Action != domain.ActionNavigate {
		t.Fatalf("unexpected connection: %+v", c)
	}
}

func TestEscapeCancelsConnecting(t *testing.T) {
	e, s := newEngine(t)
	e.StartConnecting("index.html", domain.UIElementRef{ID: "go"})
	e.Escape()
	if e.Connecting() != nil {
		t.Fatalf("escape must cancel")
	}
	e.ScreenClicked("screen2.html")
	if len(s.Current().Connections) != 0 {
		t.Fatalf("no connection may be created after cancel")
	}
	if e.ActiveFile() != "screen2.html" {
		t.Fatalf("click after cancel should activate the screen")
	}
}

func TestElementInteractionSelectsAndActivates(t *testing.T) {
	e, _ := newEngine(t)
	ref := domain.UIElementRef{ID: "hero", TagName: "DIV"}
	e.ElementInteracted("screen2.html", ref)
	if e.ActiveFile() != "screen2.html" {
		t.Fatalf("interaction on inactive screen must activate it")
	}
	if e.Selected() == nil || e.Selected().ID != "hero" {
		t.Fatalf("element not selected: %+v", e.Selected())
	}
}

func TestElementInteractionIgnoredInTestMode(t *testing.T) {
	e, _ := newEngine(t)
	e.SetMode(preview.ModeTest)
	e.ElementInteracted("index.html", domain.UIElementRef{ID: "hero"})
	if e.Selected() != nil {
		t.Fatalf("test mode must not select")
	}
}

func TestElementInteractionPicksConnectionTarget(t *testing.T) {
	e, s := newEngine(t)
	e.StartConnecting("index.html", domain.UIElementRef{ID: "go", Text: "Go"})
	// Clicking any element of another screen picks that screen.
	e.ElementInteracted("screen2.html", domain.UIElementRef{ID: "whatever"})
	if len(s.Current().Connections) != 1 {
		t.Fatalf("target pick did not commit the connection")
	}
	if e.Selected() != nil {
		t.Fatalf("target pick must not double as a selection")
	}
}

func TestContextMenuFlow(t *testing.T) {
	e, s := newEngine(t)
	ref := domain.UIElementRef{ID: "go", TagName: "BUTTON"}
	e.ElementRightClicked("index.html", ref, 10, 20)
	if e.Menu() == nil {
		t.Fatalf("menu not opened")
	}
	targets := e.MenuTargets()
	if len(targets) != 1 || targets[0] != "screen2.html" {
		t.Fatalf("menu targets = %v", targets)
	}

	e.MenuNavigateTo("screen2.html")
	if e.Menu() != nil {
		t.Fatalf("menu must close after a shortcut")
	}
	if len(s.Current().Connections) != 1 {
		t.Fatalf("shortcut did not commit the connection")
	}
	// Label falls back to the tag name when the element has no text.
	if got := s.Current().Connections[0].FromElementLabel; got != "BUTTON" {
		t.Fatalf("label = %q, want BUTTON", got)
	}

	// Pick-target path.
	e.ElementRightClicked("screen2.html", domain.UIElementRef{ID: "back", Text: "Back"}, 0, 0)
	e.MenuPickTarget()
	if e.Menu() != nil || e.Connecting() == nil {
		t.Fatalf("pick target must close the menu and set pending state")
	}
	e.ScreenClicked("index.html")
	if len(s.Current().Connections) != 2 {
		t.Fatalf("pick-target connection not committed")
	}
}

func TestPointerDownClosesMenu(t *testing.T) {
	e, _ := newEngine(t)
	e.ElementRightClicked("index.html", domain.UIElementRef{ID: "go"}, 0, 0)
	e.PointerDown(ButtonLeft, Modifiers{})
	if e.Menu() != nil {
		t.Fatalf("pointer press must close the menu")
	}
}

func TestSetModeLeavingBuildClearsState(t *testing.T) {
	e, _ := newEngine(t)
	e.ElementInteracted("index.html", domain.UIElementRef{ID: "go"})
	e.StartConnecting("index.html", domain.UIElementRef{ID: "go"})
	e.SetMode(preview.ModeTest)
	if e.Selected() != nil || e.Connecting() != nil || e.Menu() != nil {
		t.Fatalf("leaving build mode must clear interaction state")
	}
}
