// seehuhn.de/go/evolve - approximate images with translucent triangles
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package raster

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// approaches lists thresholds which force one of the two scanline
// strategies.
var approaches = []struct {
	name      string
	threshold int
}{
	{"A", 1 << 30},
	{"B", 0},
}

func clipRect(w, h int) rect.Rect {
	return rect.Rect{LLx: 0, LLy: 0, URx: float64(w), URy: float64(h)}
}

func polygon(pts ...vec.Vec2) *path.Data {
	p := &path.Data{}
	for i, pt := range pts {
		if i == 0 {
			p.Cmds = append(p.Cmds, path.CmdMoveTo)
		} else {
			p.Cmds = append(p.Cmds, path.CmdLineTo)
		}
		p.Coords = append(p.Coords, pt)
	}
	p.Cmds = append(p.Cmds, path.CmdClose)
	return p
}

// collect renders into a w×h float buffer.
func collect(buf []float32, w int) Emitter {
	return func(y, xMin int, coverage []float32) {
		copy(buf[y*w+xMin:], coverage)
	}
}

func sum(buf []float32) float64 {
	var s float64
	for _, v := range buf {
		s += float64(v)
	}
	return s
}

func triangleArea(a, b, c vec.Vec2) float64 {
	return math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
}

func TestTriangleCoverageMatchesArea(t *testing.T) {
	cases := []struct {
		name    string
		a, b, c vec.Vec2
	}{
		{"axis_aligned", vec.Vec2{X: 2, Y: 2}, vec.Vec2{X: 30, Y: 2}, vec.Vec2{X: 2, Y: 30}},
		{"fractional", vec.Vec2{X: 1.3, Y: 4.7}, vec.Vec2{X: 27.1, Y: 9.9}, vec.Vec2{X: 12.5, Y: 28.2}},
		{"thin", vec.Vec2{X: 0.5, Y: 0.5}, vec.Vec2{X: 31.5, Y: 1.5}, vec.Vec2{X: 31.5, Y: 2.0}},
		{"clockwise", vec.Vec2{X: 5, Y: 5}, vec.Vec2{X: 5, Y: 25}, vec.Vec2{X: 25, Y: 15}},
	}

	const w, h = 32, 32
	for _, tc := range cases {
		for _, ap := range approaches {
			t.Run(tc.name+"_"+ap.name, func(t *testing.T) {
				r := NewRasterizer(clipRect(w, h))
				r.smallPathThreshold = ap.threshold
				buf := make([]float32, w*h)
				r.FillTriangle(tc.a, tc.b, tc.c, collect(buf, w))

				want := triangleArea(tc.a, tc.b, tc.c)
				got := sum(buf)
				if math.Abs(got-want) > 1e-3*want+1e-3 {
					t.Errorf("total coverage %g, want %g", got, want)
				}
				for i, v := range buf {
					if v < 0 || v > 1 {
						t.Fatalf("pixel %d has coverage %g", i, v)
					}
				}
			})
		}
	}
}

func TestApproachesAgree(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	const w, h = 48, 40
	for i := range 50 {
		var pts [3]vec.Vec2
		for j := range pts {
			pts[j] = vec.Vec2{X: rng.Float64()*70 - 10, Y: rng.Float64()*60 - 10}
		}

		bufs := make([][]float32, len(approaches))
		for k, ap := range approaches {
			r := NewRasterizer(clipRect(w, h))
			r.smallPathThreshold = ap.threshold
			bufs[k] = make([]float32, w*h)
			r.FillTriangle(pts[0], pts[1], pts[2], collect(bufs[k], w))
		}
		for p := range bufs[0] {
			if d := math.Abs(float64(bufs[0][p] - bufs[1][p])); d > 1e-5 {
				t.Fatalf("triangle %d: pixel %d differs: %g vs %g", i, p, bufs[0][p], bufs[1][p])
			}
		}
	}
}

func TestFillMatchesFillTriangle(t *testing.T) {
	a := vec.Vec2{X: 3.25, Y: 1.5}
	b := vec.Vec2{X: 20.75, Y: 12}
	c := vec.Vec2{X: 7, Y: 19.5}

	const w, h = 24, 24
	r := NewRasterizer(clipRect(w, h))
	viaTriangle := make([]float32, w*h)
	r.FillTriangle(a, b, c, collect(viaTriangle, w))

	viaPath := make([]float32, w*h)
	r.Fill(polygon(a, b, c), NonZero, collect(viaPath, w))

	for i := range viaPath {
		if viaPath[i] != viaTriangle[i] {
			t.Fatalf("pixel %d: path %g, triangle %g", i, viaPath[i], viaTriangle[i])
		}
	}
}

func TestFillRules(t *testing.T) {
	// A five-pointed star drawn in one stroke has winding number 2 in the
	// centre: covered under NonZero, a hole under EvenOdd.
	var pts []vec.Vec2
	for i := range 5 {
		phi := -math.Pi/2 + float64(2*i)*2*math.Pi/5
		pts = append(pts, vec.Vec2{X: 32 + 28*math.Cos(phi), Y: 32 + 28*math.Sin(phi)})
	}
	star := polygon(pts...)

	const w, h = 64, 64
	centre := 32*w + 32
	for _, ap := range approaches {
		t.Run(ap.name, func(t *testing.T) {
			r := NewRasterizer(clipRect(w, h))
			r.smallPathThreshold = ap.threshold

			nz := make([]float32, w*h)
			r.Fill(star, NonZero, collect(nz, w))
			if nz[centre] < 1-1e-4 {
				t.Errorf("nonzero: centre coverage %g, want 1", nz[centre])
			}

			eo := make([]float32, w*h)
			r.Fill(star, EvenOdd, collect(eo, w))
			if eo[centre] > 1e-4 {
				t.Errorf("evenodd: centre coverage %g, want 0", eo[centre])
			}
		})
	}
}

func TestClipping(t *testing.T) {
	const w, h = 16, 16
	r := NewRasterizer(clipRect(w, h))
	calls := 0
	r.FillTriangle(vec.Vec2{X: -40, Y: -40}, vec.Vec2{X: 80, Y: -40}, vec.Vec2{X: -40, Y: 80},
		func(y, xMin int, coverage []float32) {
			calls++
			if y < 0 || y >= h || xMin < 0 || xMin+len(coverage) > w {
				t.Errorf("row %d [%d, %d) outside clip", y, xMin, xMin+len(coverage))
			}
		})
	if calls != h {
		t.Errorf("got %d rows, want %d", calls, h)
	}

	// entirely outside
	r.FillTriangle(vec.Vec2{X: 20, Y: 20}, vec.Vec2{X: 30, Y: 20}, vec.Vec2{X: 20, Y: 30},
		func(y, xMin int, coverage []float32) {
			t.Errorf("unexpected output for row %d", y)
		})
}

func TestCTMScales(t *testing.T) {
	a := vec.Vec2{X: 1, Y: 1}
	b := vec.Vec2{X: 15, Y: 3}
	c := vec.Vec2{X: 6, Y: 14}

	const w, h = 64, 64
	r := NewRasterizer(clipRect(w, h))
	r.CTM = matrix.Matrix{2, 0, 0, 2, 0, 0}
	buf := make([]float32, w*h)
	r.FillTriangle(a, b, c, collect(buf, w))

	want := 4 * triangleArea(a, b, c)
	if got := sum(buf); math.Abs(got-want) > 1e-2 {
		t.Errorf("scaled coverage %g, want %g", got, want)
	}
}

func TestCurvesAreFlattened(t *testing.T) {
	// a circle made of four cubic arcs
	const k = 0.5522847498
	const cx, cy, rad = 20.0, 20.0, 15.0
	p := &path.Data{
		Cmds: []path.Command{path.CmdMoveTo, path.CmdCubeTo, path.CmdCubeTo, path.CmdCubeTo, path.CmdCubeTo, path.CmdClose},
		Coords: []vec.Vec2{
			{X: cx + rad, Y: cy},
			{X: cx + rad, Y: cy + k*rad}, {X: cx + k*rad, Y: cy + rad}, {X: cx, Y: cy + rad},
			{X: cx - k*rad, Y: cy + rad}, {X: cx - rad, Y: cy + k*rad}, {X: cx - rad, Y: cy},
			{X: cx - rad, Y: cy - k*rad}, {X: cx - k*rad, Y: cy - rad}, {X: cx, Y: cy - rad},
			{X: cx + k*rad, Y: cy - rad}, {X: cx + rad, Y: cy - k*rad}, {X: cx + rad, Y: cy},
		},
	}

	const w, h = 40, 40
	r := NewRasterizer(clipRect(w, h))
	buf := make([]float32, w*h)
	r.Fill(p, NonZero, collect(buf, w))

	want := math.Pi * rad * rad
	if got := sum(buf); math.Abs(got-want) > 0.01*want {
		t.Errorf("circle coverage %g, want about %g", got, want)
	}
}

func TestResetKeepsDefaults(t *testing.T) {
	r := NewRasterizer(clipRect(8, 8))
	r.CTM = matrix.Matrix{3, 0, 0, 3, 1, 1}
	r.Flatness = 2
	r.Reset(clipRect(4, 4))
	if r.CTM != matrix.Identity {
		t.Errorf("CTM not reset: %v", r.CTM)
	}
	if r.Flatness != defaultFlatness {
		t.Errorf("flatness not reset: %g", r.Flatness)
	}
	if r.Clip.URx != 4 || r.Clip.URy != 4 {
		t.Errorf("clip not updated: %v", r.Clip)
	}
}

func ExampleRasterizer_FillTriangle() {
	r := NewRasterizer(rect.Rect{URx: 4, URy: 4})
	r.FillTriangle(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 4, Y: 0}, vec.Vec2{X: 0, Y: 4},
		func(y, xMin int, coverage []float32) {
			fmt.Println(y, xMin, coverage)
		})
	// Output:
	// 0 0 [1 1 1 0.5]
	// 1 0 [1 1 0.5]
	// 2 0 [1 0.5]
	// 3 0 [0.5]
}
