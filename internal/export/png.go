/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders project overviews to shareable formats: a raster
// snapshot of the canvas world (screen frames plus routed arrows), an SVG
// of the same scene, and a PDF project report.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"appstudio/internal/domain"
	"appstudio/internal/navgraph"
	"appstudio/internal/vector"
)

// PNGOptions controls the raster overview.
// - Scale: world units to pixels; zero means 0.25 (a 360pt-wide device
//   frame becomes 90px).
// - ActiveScreen highlights one frame and its outgoing arrows.
type PNGOptions struct {
	Scale        float64
	ActiveScreen string
}

const overviewMargin = 40 // world units around the outermost frames

// WriteOverviewPNG renders the canvas world of p to a PNG at outPath.
// Parent directories are created as needed.
func WriteOverviewPNG(outPath string, p *domain.Project, opt PNGOptions) error {
	if p == nil {
		return fmt.Errorf("project is nil")
	}
	l := navgraph.NewLayout(p)
	screens := l.Screens()
	if len(screens) == 0 {
		return fmt.Errorf("no screens to render")
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = 0.25
	}

	bounds := l.FrameBox(screens[0])
	for _, s := range screens[1:] {
		bounds = bounds.Union(l.FrameBox(s))
	}
	offX := float64(overviewMargin - bounds.X)
	offY := float64(overviewMargin - bounds.Y)
	pixW := int((float64(bounds.W) + 2*overviewMargin) * scale)
	pixH := int((float64(bounds.H) + 2*overviewMargin) * scale)

	dc := gg.NewContext(pixW, pixH)
	if face := labelFace(13); face != nil {
		dc.SetFontFace(face)
	}
	dc.Scale(scale, scale)
	dc.SetHexColor("#050505")
	dc.Clear()

	for _, screen := range screens {
		drawFrame(dc, l, screen, offX, offY, screen == opt.ActiveScreen)
	}
	for _, a := range l.Arrows(p.Connections) {
		state := navgraph.StateFor(a.Conn, opt.ActiveScreen, false)
		drawArrow(dc, a, a.Stroke(state), offX, offY)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := dc.SavePNG(outPath); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func drawFrame(dc *gg.Context, l navgraph.Layout, screen string, offX, offY float64, active bool) {
	fb := l.FrameBox(screen)
	db := l.DeviceBox(screen)

	dc.DrawRoundedRectangle(float64(fb.X)+offX, float64(fb.Y)+offY, float64(fb.W), float64(fb.H), 12)
	dc.SetHexColor("#111111")
	dc.FillPreserve()
	if active {
		dc.SetHexColor("#3b82f6")
		dc.SetLineWidth(2)
	} else {
		dc.SetHexColor("#333333")
		dc.SetLineWidth(1)
	}
	dc.Stroke()

	dc.DrawRoundedRectangle(float64(db.X)+offX, float64(db.Y)+offY, float64(db.W), float64(db.H), 8)
	dc.SetHexColor("#ffffff")
	dc.FillPreserve()
	dc.SetHexColor("#222222")
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.SetHexColor("#94a3b8")
	dc.DrawString(screen, float64(fb.X)+offX+14, float64(fb.Y)+offY+navgraph.ScreenLabelHeight/2+4)
}

func drawArrow(dc *gg.Context, a navgraph.Arrow, st vector.Stroke, offX, offY float64) {
	dc.SetRGBA255(int(st.Color.R), int(st.Color.G), int(st.Color.B), int(st.Color.A))
	dc.SetLineWidth(float64(st.Width))
	if len(st.Dash) == 2 {
		dc.SetDash(float64(st.Dash[0]), float64(st.Dash[1]))
	}
	dc.MoveTo(float64(a.Start.X)+offX, float64(a.Start.Y)+offY)
	dc.CubicTo(
		float64(a.C1.X)+offX, float64(a.C1.Y)+offY,
		float64(a.C2.X)+offX, float64(a.C2.Y)+offY,
		float64(a.End.X)+offX, float64(a.End.Y)+offY)
	dc.Stroke()
	dc.SetDash()

	// Arrow head along the incoming tangent.
	dx := float64(a.End.X - a.C2.X)
	dy := float64(a.End.Y - a.C2.Y)
	angle := math.Atan2(dy, dx)
	const size = 10.0
	const half = 3.5
	tipX := float64(a.End.X) + offX
	tipY := float64(a.End.Y) + offY
	baseX := tipX - size*math.Cos(angle)
	baseY := tipY - size*math.Sin(angle)
	nx := -math.Sin(angle)
	ny := math.Cos(angle)
	dc.MoveTo(tipX, tipY)
	dc.LineTo(baseX+half*nx, baseY+half*ny)
	dc.LineTo(baseX-half*nx, baseY-half*ny)
	dc.ClosePath()
	dc.Fill()
}
