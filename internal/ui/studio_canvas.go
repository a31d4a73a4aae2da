//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	fcanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	appcanvas "appstudio/internal/canvas"
	"appstudio/internal/domain"
	"appstudio/internal/navgraph"
	"appstudio/internal/overlay"
	"appstudio/internal/preview"
	"appstudio/internal/telemetry"
	"appstudio/internal/vector"
)

const (
	elementRowHeight = 34
	elementRowGap    = 6
	devicePadding    = 10
	arrowSegments    = 24
)

var (
	canvasBackground = color.RGBA{R: 0x05, G: 0x05, B: 0x05, A: 0xff}
	frameFill        = color.RGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}
	frameStroke      = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	frameActive      = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	labelColor       = color.RGBA{R: 0x94, G: 0xa3, B: 0xb8, A: 0xff}
	deviceFill       = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	rowFill          = color.RGBA{R: 0xf1, G: 0xf5, B: 0xf9, A: 0xff}
	rowSelected      = color.RGBA{R: 0xdb, G: 0xea, B: 0xfe, A: 0xff}
	rowText          = color.RGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xff}
	guideColor       = color.RGBA{R: 0xf4, G: 0x72, B: 0xb6, A: 0xcc}
)

// StudioCanvas is the pannable, zoomable screen-graph surface. All geometry
// lives in the interaction engine; the widget translates Fyne input events
// into engine calls and repaints from the engine's layout.
type StudioCanvas struct {
	widget.BaseWidget
	shell *studioShell

	dragKind dragKind
	ov       *overlay.Overlay
	ovScreen string
}

type dragKind uint8

const (
	dragNone dragKind = iota
	dragPan
	dragFrame
	dragElement
)

func NewStudioCanvas(shell *studioShell) *StudioCanvas {
	sc := &StudioCanvas{shell: shell}
	sc.ExtendBaseWidget(sc)
	return sc
}

// elementRowBox returns the world-space box of the i-th interactive element
// row inside a screen's device area.
func elementRowBox(l navgraph.Layout, screen string, i int) vector.Rect {
	dev := l.DeviceBox(screen)
	top := dev.Y + devicePadding + float32(i)*(elementRowHeight+elementRowGap)
	return vector.R(dev.X+devicePadding, top, dev.W-2*devicePadding, elementRowHeight)
}

// labelBarBox is the draggable title strip above a screen's device area.
func labelBarBox(l navgraph.Layout, screen string) vector.Rect {
	f := l.FrameBox(screen)
	return vector.R(f.X, f.Y, f.W, navgraph.ScreenLabelHeight)
}

// hit resolves a host-pixel point against screens and their element rows.
func (sc *StudioCanvas) hit(pos fyne.Position) (screen string, ref *domain.UIElementRef, label bool) {
	e := sc.shell.engine
	world := e.ToWorld(vector.Pt{X: pos.X, Y: pos.Y})
	l := e.Layout()
	for _, s := range l.Screens() {
		if labelBarBox(l, s).Contains(world) {
			return s, nil, true
		}
		if !l.FrameBox(s).Contains(world) {
			continue
		}
		if sb := sc.shell.sandboxes.get(s); sb != nil {
			for i, el := range sb.Interactive() {
				if elementRowBox(l, s, i).Contains(world) {
					el := el
					return s, &el, false
				}
			}
		}
		return s, nil, false
	}
	return "", nil, false
}

func (sc *StudioCanvas) Tapped(ev *fyne.PointEvent) {
	e := sc.shell.engine
	screen, ref, _ := sc.hit(ev.Position)
	switch {
	case screen == "":
		e.Escape()
	case ref != nil:
		sc.elementTapped(screen, *ref)
	default:
		e.ScreenClicked(screen)
	}
	sc.Refresh()
}

// elementTapped routes an element activation. Build mode goes through the
// sandbox so selection and connection picking behave exactly like a wired
// preview; test mode follows the element's outgoing navigation instead.
func (sc *StudioCanvas) elementTapped(screen string, ref domain.UIElementRef) {
	e := sc.shell.engine
	if e.Mode() == preview.ModeBuild {
		if sb := sc.shell.sandboxes.get(screen); sb != nil {
			if _, ok := sb.Click(ref.ID); ok {
				return
			}
		}
		e.ElementInteracted(screen, ref)
		return
	}
	for _, c := range navgraph.OutgoingFrom(sc.shell.store.Current().Connections, screen) {
		if c.FromElementID == ref.ID {
			e.SelectScreen(c.ToScreen)
			return
		}
	}
}

func (sc *StudioCanvas) TappedSecondary(ev *fyne.PointEvent) {
	screen, ref, _ := sc.hit(ev.Position)
	if screen == "" || ref == nil {
		sc.shell.engine.Escape()
		sc.Refresh()
		return
	}
	e := sc.shell.engine
	e.ElementRightClicked(screen, *ref, ev.Position.X, ev.Position.Y)
	sc.showContextMenu(ev.AbsolutePosition)
}

// showContextMenu materializes the engine's context-menu state as a popup.
func (sc *StudioCanvas) showContextMenu(at fyne.Position) {
	e := sc.shell.engine
	if e.Menu() == nil {
		return
	}
	var items []*fyne.MenuItem
	for _, target := range e.MenuTargets() {
		target := target
		items = append(items, fyne.NewMenuItem("Navigate to "+target, func() {
			e.MenuNavigateTo(target)
			telemetry.ConnectionAdded("navigate", len(sc.shell.store.Current().Connections))
			sc.Refresh()
		}))
	}
	items = append(items, fyne.NewMenuItemSeparator())
	items = append(items, fyne.NewMenuItem("Pick target on canvas", func() {
		e.MenuPickTarget()
		sc.shell.status.SetText("Click a destination screen")
		sc.Refresh()
	}))
	menu := fyne.NewMenu("", items...)
	widget.ShowPopUpMenuAtPosition(menu, fyne.CurrentApp().Driver().CanvasForObject(sc), at)
}

func (sc *StudioCanvas) Dragged(ev *fyne.DragEvent) {
	e := sc.shell.engine
	if sc.dragKind == dragNone {
		start := fyne.NewPos(ev.Position.X-ev.Dragged.DX, ev.Position.Y-ev.Dragged.DY)
		screen, ref, label := sc.hit(start)
		sel := e.Selected()
		switch {
		case label:
			e.BeginFrameDrag(screen, start.X, start.Y)
			sc.dragKind = dragFrame
		case ref != nil && sel != nil && sel.ID == ref.ID && e.Mode() == preview.ModeBuild:
			sc.beginElementMove(screen, *ref, start)
		default:
			// anywhere else the left drag pans the camera
			e.PointerDown(appcanvas.ButtonMiddle, appcanvas.Modifiers{})
			sc.dragKind = dragPan
		}
	}
	switch sc.dragKind {
	case dragFrame:
		e.FrameDrag(ev.Position.X, ev.Position.Y)
	case dragElement:
		sc.ov.PointerMove(ev.Position.X, ev.Position.Y)
	case dragPan:
		e.PointerDrag(ev.Dragged.DX, ev.Dragged.DY)
	}
	sc.Refresh()
}

// beginElementMove starts a free-positioning gesture on the selected
// element; the final rect lands in the screen's sandbox as an inline layout.
func (sc *StudioCanvas) beginElementMove(screen string, ref domain.UIElementRef, start fyne.Position) {
	sc.ov = overlay.New(ref)
	sc.ovScreen = screen
	sc.ov.OnFinish = func(r domain.RectPx) {
		if sb := sc.shell.sandboxes.get(sc.ovScreen); sb != nil {
			sb.Dispatch(preview.Message{Type: preview.ApplyLayout, ID: ref.ID, Rect: &r})
		}
	}
	sc.ov.BeginMove(start.X, start.Y)
	sc.dragKind = dragElement
}

func (sc *StudioCanvas) DragEnd() {
	if sc.ov != nil {
		sc.ov.PointerUp()
		sc.ov = nil
	}
	sc.shell.engine.PointerUp()
	sc.dragKind = dragNone
	sc.Refresh()
}

// Scrolled pans the camera. Zoom rides the View menu so plain trackpad
// scrolling never changes scale underneath the cursor.
func (sc *StudioCanvas) Scrolled(ev *fyne.ScrollEvent) {
	sc.shell.engine.Wheel(-ev.Scrolled.DX, -ev.Scrolled.DY, appcanvas.Modifiers{})
	sc.Refresh()
}

func (sc *StudioCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := fcanvas.NewRectangle(canvasBackground)
	return &studioCanvasRenderer{sc: sc, bg: bg}
}

// studioCanvasRenderer rebuilds its object list on every refresh; the scene
// graph is small (frames, rows, arrow polylines) and counts change as
// screens come and go.
type studioCanvasRenderer struct {
	sc      *StudioCanvas
	bg      *fcanvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *studioCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.rebuild()
}

func (r *studioCanvasRenderer) MinSize() fyne.Size { return fyne.NewSize(400, 300) }

func (r *studioCanvasRenderer) Refresh() {
	r.rebuild()
	fcanvas.Refresh(r.sc)
}

func (r *studioCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *studioCanvasRenderer) Destroy() {}

func (r *studioCanvasRenderer) rebuild() {
	e := r.sc.shell.engine
	l := e.Layout()
	objs := []fyne.CanvasObject{r.bg}

	for _, arrow := range l.Arrows(r.sc.shell.store.Current().Connections) {
		state := navgraph.StateFor(arrow.Conn, e.ActiveFile(), false)
		objs = append(objs, r.arrowLines(arrow, state)...)
	}
	for _, screen := range l.Screens() {
		objs = append(objs, r.screenObjects(l, screen)...)
	}
	for _, g := range e.Guides() {
		line := fcanvas.NewLine(guideColor)
		line.StrokeWidth = 1
		p1 := e.ToHost(g.From)
		p2 := e.ToHost(g.To)
		line.Position1 = fyne.NewPos(p1.X, p1.Y)
		line.Position2 = fyne.NewPos(p2.X, p2.Y)
		objs = append(objs, line)
	}
	r.objects = objs
}

func (r *studioCanvasRenderer) screenObjects(l navgraph.Layout, screen string) []fyne.CanvasObject {
	e := r.sc.shell.engine
	active := screen == e.ActiveFile()

	frame := fcanvas.NewRectangle(frameFill)
	frame.CornerRadius = 12 * e.Zoom()
	frame.StrokeWidth = 1
	frame.StrokeColor = frameStroke
	if active {
		frame.StrokeWidth = 2
		frame.StrokeColor = frameActive
	}
	placeRect(frame, e, l.FrameBox(screen))

	label := fcanvas.NewText(screen, labelColor)
	label.TextSize = 13 * e.Zoom()
	label.TextStyle = fyne.TextStyle{Monospace: true}
	bar := labelBarBox(l, screen)
	labelPos := e.ToHost(vector.Pt{X: bar.X + navgraph.FramePadding, Y: bar.Y + bar.H/4})
	label.Move(fyne.NewPos(labelPos.X, labelPos.Y))

	device := fcanvas.NewRectangle(deviceFill)
	device.CornerRadius = 8 * e.Zoom()
	placeRect(device, e, l.DeviceBox(screen))

	objs := []fyne.CanvasObject{frame, label, device}

	sb := r.sc.shell.sandboxes.get(screen)
	if sb == nil {
		return objs
	}
	selected := e.Selected()
	for i, el := range sb.Interactive() {
		box := elementRowBox(l, screen, i)
		if box.Y+box.H > l.DeviceBox(screen).Y+l.DeviceBox(screen).H-devicePadding {
			break
		}
		fill := rowFill
		if active && selected != nil && selected.ID == el.ID {
			fill = rowSelected
		}
		row := fcanvas.NewRectangle(fill)
		row.CornerRadius = 6 * e.Zoom()
		placeRect(row, e, box)

		text := el.Text
		if text == "" {
			text = el.TagName
		}
		rowLabel := fcanvas.NewText(text, rowText)
		rowLabel.TextSize = 12 * e.Zoom()
		pos := e.ToHost(vector.Pt{X: box.X + 8, Y: box.Y + box.H/4})
		rowLabel.Move(fyne.NewPos(pos.X, pos.Y))
		objs = append(objs, row, rowLabel)
	}
	return objs
}

// arrowLines flattens one bezier into short line segments with the arrow's
// computed stroke.
func (r *studioCanvasRenderer) arrowLines(a navgraph.Arrow, state navgraph.ArrowState) []fyne.CanvasObject {
	e := r.sc.shell.engine
	stroke := a.Stroke(state)
	col := color.RGBA{R: stroke.Color.R, G: stroke.Color.G, B: stroke.Color.B, A: stroke.Color.A}

	pts := make([]vector.Pt, 0, arrowSegments+1)
	for i := 0; i <= arrowSegments; i++ {
		pts = append(pts, cubicAt(a, float32(i)/arrowSegments))
	}
	var out []fyne.CanvasObject
	for i := 1; i < len(pts); i++ {
		// dashed strokes drop every other segment
		if len(stroke.Dash) > 0 && i%2 == 0 {
			continue
		}
		line := fcanvas.NewLine(col)
		line.StrokeWidth = stroke.Width * e.Zoom()
		p1 := e.ToHost(pts[i-1])
		p2 := e.ToHost(pts[i])
		line.Position1 = fyne.NewPos(p1.X, p1.Y)
		line.Position2 = fyne.NewPos(p2.X, p2.Y)
		out = append(out, line)
	}
	return out
}

func cubicAt(a navgraph.Arrow, t float32) vector.Pt {
	u := 1 - t
	return vector.Pt{
		X: u*u*u*a.Start.X + 3*u*u*t*a.C1.X + 3*u*t*t*a.C2.X + t*t*t*a.End.X,
		Y: u*u*u*a.Start.Y + 3*u*u*t*a.C1.Y + 3*u*t*t*a.C2.Y + t*t*t*a.End.Y,
	}
}

func placeRect(obj fyne.CanvasObject, e *appcanvas.Engine, box vector.Rect) {
	min := e.ToHost(vector.Pt{X: box.X, Y: box.Y})
	obj.Move(fyne.NewPos(min.X, min.Y))
	obj.Resize(fyne.NewSize(box.W*e.Zoom(), box.H*e.Zoom()))
}
