/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package navgraph

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"appstudio/internal/domain"
	"appstudio/internal/vector"
)

const svgMargin = 40

// WriteSVG renders the navigation overlay (screen frames plus routed arrows)
// as a standalone SVG document. The world is translated so the top-left
// frame sits at the margin.
func WriteSVG(w io.Writer, l Layout, conns []domain.NavigationConnection, activeScreen string) error {
	if len(l.Screens()) == 0 {
		return fmt.Errorf("navgraph: no screens to render")
	}
	bounds := l.FrameBox(l.Screens()[0])
	for _, s := range l.Screens()[1:] {
		bounds = bounds.Union(l.FrameBox(s))
	}
	offX := svgMargin - bounds.X
	offY := svgMargin - bounds.Y

	canvas := svg.New(w)
	canvas.Start(int(bounds.W)+2*svgMargin, int(bounds.H)+2*svgMargin)
	canvas.Rect(0, 0, int(bounds.W)+2*svgMargin, int(bounds.H)+2*svgMargin, "fill:#050505")

	for _, screen := range l.Screens() {
		fb := l.FrameBox(screen)
		db := l.DeviceBox(screen)
		x, y := int(fb.X+offX), int(fb.Y+offY)
		frameStyle := "fill:#111111;stroke:#333333;stroke-width:1"
		if screen == activeScreen {
			frameStyle = "fill:#111111;stroke:#3b82f6;stroke-width:2"
		}
		canvas.Roundrect(x, y, int(fb.W), int(fb.H), 12, 12, frameStyle)
		canvas.Roundrect(int(db.X+offX), int(db.Y+offY), int(db.W), int(db.H), 8, 8,
			"fill:#ffffff;stroke:#222222;stroke-width:1")
		canvas.Text(x+14, y+ScreenLabelHeight/2+4, screen,
			"fill:#94a3b8;font-size:13px;font-family:monospace")
	}

	for _, a := range l.Arrows(conns) {
		state := StateFor(a.Conn, activeScreen, false)
		st := a.Stroke(state)
		style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:%g;stroke-opacity:%.2f",
			cssColor(st.Color), st.Width, float64(st.Color.A)/255)
		if len(st.Dash) == 2 {
			style += fmt.Sprintf(";stroke-dasharray:%g %g", st.Dash[0], st.Dash[1])
		}
		d := fmt.Sprintf("M %g %g C %g %g, %g %g, %g %g",
			a.Start.X+offX, a.Start.Y+offY,
			a.C1.X+offX, a.C1.Y+offY,
			a.C2.X+offX, a.C2.Y+offY,
			a.End.X+offX, a.End.Y+offY)
		canvas.Path(d, style)
		drawArrowHead(canvas, a, offX, offY, cssColor(st.Color))
	}

	canvas.End()
	return nil
}

// drawArrowHead places a triangle at the curve end, oriented along the
// incoming tangent (the C2 -> End direction).
func drawArrowHead(canvas *svg.SVG, a Arrow, offX, offY float32, color string) {
	dx := float64(a.End.X - a.C2.X)
	dy := float64(a.End.Y - a.C2.Y)
	ang := math.Atan2(dy, dx)
	tipX := float64(a.End.X + offX)
	tipY := float64(a.End.Y + offY)
	const size = 10.0
	const half = 3.5
	baseX := tipX - size*math.Cos(ang)
	baseY := tipY - size*math.Sin(ang)
	nx := -math.Sin(ang)
	ny := math.Cos(ang)
	canvas.Polygon(
		[]int{int(tipX), int(baseX + half*nx), int(baseX - half*nx)},
		[]int{int(tipY), int(baseY + half*ny), int(baseY - half*ny)},
		fmt.Sprintf("fill:%s", color),
	)
}

func cssColor(c vector.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
