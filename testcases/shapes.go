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

package testcases

import (
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"

	"seehuhn.de/go/evolve/raster"
)

// kappa for cubic Bezier approximation of a quarter circle
const kappa = 0.5522847498307936

var flatCases = []Target{
	{
		Name:       "black",
		Width:      32,
		Height:     32,
		Background: rgba(0, 0, 0, 255),
	},
	{
		Name:       "halves",
		Width:      48,
		Height:     32,
		Background: rgba(240, 240, 230, 255),
		Shapes: []Shape{
			{Path: rectangle(0, 0, 24, 32), Color: rgba(30, 60, 150, 255)},
		},
	},
	{
		Name:       "single_triangle",
		Width:      64,
		Height:     64,
		Background: rgba(255, 255, 255, 255),
		Shapes: []Shape{
			{Path: triangle(10, 50, 32, 10, 54, 50), Color: rgba(200, 30, 30, 255)},
		},
	},
}

var shapeCases = []Target{
	{
		Name:       "star_nonzero",
		Width:      64,
		Height:     64,
		Background: rgba(10, 10, 40, 255),
		Shapes: []Shape{
			{Path: fivePointStar(32, 32, 25), Rule: raster.NonZero, Color: rgba(250, 220, 60, 255)},
		},
	},
	{
		Name:       "star_evenodd",
		Width:      64,
		Height:     64,
		Background: rgba(10, 10, 40, 255),
		Shapes: []Shape{
			{Path: fivePointStar(32, 32, 25), Rule: raster.EvenOdd, Color: rgba(250, 220, 60, 255)},
		},
	},
	{
		Name:       "overlap",
		Width:      64,
		Height:     48,
		Background: rgba(255, 255, 255, 255),
		Shapes: []Shape{
			{Path: rectangle(4, 4, 40, 36), Color: rgba(255, 0, 0, 160)},
			{Path: rectangle(24, 12, 60, 44), Color: rgba(0, 0, 255, 160)},
			{Path: triangle(8, 44, 32, 2, 56, 44), Color: rgba(0, 200, 0, 96)},
		},
	},
}

var curveCases = []Target{
	{
		Name:       "circle",
		Width:      64,
		Height:     64,
		Background: rgba(20, 90, 20, 255),
		Shapes: []Shape{
			{Path: circle(32, 32, 25), Color: rgba(250, 250, 250, 255)},
		},
	},
	{
		Name:       "ring",
		Width:      64,
		Height:     64,
		Background: rgba(0, 0, 0, 255),
		Shapes: []Shape{
			{Path: ring(32, 32, 28, 16), Rule: raster.EvenOdd, Color: rgba(255, 140, 0, 255)},
		},
	},
	{
		Name:       "bubbles",
		Width:      96,
		Height:     64,
		Background: rgba(200, 220, 255, 255),
		Shapes: []Shape{
			{Path: circle(30, 30, 20), Color: rgba(255, 255, 255, 180)},
			{Path: circle(60, 36, 24), Color: rgba(80, 120, 255, 120)},
			{Path: circle(48, 20, 12), Color: rgba(255, 80, 160, 200)},
		},
	},
}

var transformCases = []Target{
	{
		Name:       "rotated_squares",
		Width:      64,
		Height:     64,
		Background: rgba(255, 255, 255, 255),
		Shapes: []Shape{
			{Path: rectangle(-14, -14, 14, 14), Color: rgba(0, 0, 0, 255),
				CTM: matrix.RotateDeg(45).Translate(32, 32)},
			{Path: rectangle(-8, -8, 8, 8), Color: rgba(220, 0, 0, 255),
				CTM: matrix.RotateDeg(20).Translate(32, 32)},
		},
	},
	{
		Name:       "scaled_triangle",
		Width:      128,
		Height:     96,
		Background: rgba(30, 30, 30, 255),
		Shapes: []Shape{
			{Path: triangle(0, 10, 10, 0, 20, 10), Color: rgba(120, 200, 255, 255),
				CTM: matrix.Scale(5, 8).Translate(14, 4)},
		},
	},
}

var largeCases = []Target{
	{
		Name:       "stripes",
		Width:      320,
		Height:     240,
		Background: rgba(0, 0, 0, 255),
		Shapes:     stripes(320, 240, 16),
	},
	{
		Name:       "large_diamond",
		Width:      400,
		Height:     300,
		Background: rgba(250, 245, 235, 255),
		Shapes: []Shape{
			{Path: diamond(200, 150, 140), Color: rgba(40, 80, 160, 255)},
			{Path: circle(200, 150, 60), Color: rgba(230, 200, 40, 200)},
		},
	},
}

// stripes returns n vertical bands forming a left-to-right colour ramp.
func stripes(w, h, n int) []Shape {
	shapes := make([]Shape, n)
	for i := range shapes {
		x0 := float64(i*w) / float64(n)
		x1 := float64((i+1)*w) / float64(n)
		v := uint8(255 * i / (n - 1))
		shapes[i] = Shape{
			Path:  rectangle(x0, 0, x1, float64(h)),
			Color: rgba(v, 64, 255-v, 255),
		}
	}
	return shapes
}

// triangle builds a triangular path.
func triangle(x1, y1, x2, y2, x3, y3 float64) *path.Data {
	return (&path.Data{}).
		MoveTo(pt(x1, y1)).
		LineTo(pt(x2, y2)).
		LineTo(pt(x3, y3)).
		Close()
}

// rectangle builds a rectangular path.
func rectangle(x1, y1, x2, y2 float64) *path.Data {
	return (&path.Data{}).
		MoveTo(pt(x1, y1)).
		LineTo(pt(x2, y1)).
		LineTo(pt(x2, y2)).
		LineTo(pt(x1, y2)).
		Close()
}

// diamond builds a square rotated by 45 degrees.
func diamond(cx, cy, r float64) *path.Data {
	return (&path.Data{}).
		MoveTo(pt(cx, cy-r)).
		LineTo(pt(cx+r, cy)).
		LineTo(pt(cx, cy+r)).
		LineTo(pt(cx-r, cy)).
		Close()
}

// fivePointStar builds a five-pointed star (self-intersecting).
func fivePointStar(cx, cy, r float64) *path.Data {
	p := &path.Data{}
	// connect every second point: 0 -> 2 -> 4 -> 1 -> 3
	for k, i := range []int{0, 2, 4, 1, 3} {
		angle := float64(i)*2*math.Pi/5 - math.Pi/2
		v := pt(cx+r*math.Cos(angle), cy+r*math.Sin(angle))
		if k == 0 {
			p.MoveTo(v)
		} else {
			p.LineTo(v)
		}
	}
	return p.Close()
}

// circle builds a circle from four cubic Bezier segments.
func circle(cx, cy, r float64) *path.Data {
	return addCircle(&path.Data{}, cx, cy, r)
}

// ring builds two concentric circles, to be filled with the even-odd rule.
func ring(cx, cy, outer, inner float64) *path.Data {
	return addCircle(addCircle(&path.Data{}, cx, cy, outer), cx, cy, inner)
}

func addCircle(p *path.Data, cx, cy, r float64) *path.Data {
	k := r * kappa
	return p.
		MoveTo(pt(cx+r, cy)).
		CubeTo(pt(cx+r, cy-k), pt(cx+k, cy-r), pt(cx, cy-r)).
		CubeTo(pt(cx-k, cy-r), pt(cx-r, cy-k), pt(cx-r, cy)).
		CubeTo(pt(cx-r, cy+k), pt(cx-k, cy+r), pt(cx, cy+r)).
		CubeTo(pt(cx+k, cy+r), pt(cx+r, cy+k), pt(cx+r, cy)).
		Close()
}
