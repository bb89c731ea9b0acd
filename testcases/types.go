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

// Package testcases provides synthetic target images for tests and
// benchmarks of the evolution engine.
//
// Every target is described by vector shapes and rendered with the
// rasterizer from package raster, so targets are exactly reproducible.
package testcases

import (
	"image/color"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/evolve/fitness"
	"seehuhn.de/go/evolve/raster"
)

// Target is a synthetic image.
type Target struct {
	Name       string // lowercase a-z and _ only
	Width      int
	Height     int
	Background color.NRGBA
	Shapes     []Shape // painted in order
}

// Shape is a filled path with a translucent colour.
type Shape struct {
	Path  *path.Data
	Rule  raster.Rule
	Color color.NRGBA
	CTM   matrix.Matrix // zero value means no transform
}

// Render draws the target.
func (t *Target) Render() *fitness.PixelBuffer {
	n := t.Width * t.Height
	planes := [3][]float32{make([]float32, n), make([]float32, n), make([]float32, n)}
	bg := [3]float32{float32(t.Background.R), float32(t.Background.G), float32(t.Background.B)}
	for k := range planes {
		for i := range planes[k] {
			planes[k][i] = bg[k]
		}
	}

	r := raster.NewRasterizer(rect.Rect{URx: float64(t.Width), URy: float64(t.Height)})
	for _, s := range t.Shapes {
		r.CTM = s.CTM
		if r.CTM == (matrix.Matrix{}) {
			r.CTM = matrix.Identity
		}
		alpha := float32(s.Color.A) / 255
		col := [3]float32{float32(s.Color.R), float32(s.Color.G), float32(s.Color.B)}
		r.Fill(s.Path, s.Rule, func(y, xMin int, coverage []float32) {
			off := y*t.Width + xMin
			for i, cov := range coverage {
				a := alpha * cov
				for k := range planes {
					p := &planes[k][off+i]
					*p += (col[k] - *p) * a
				}
			}
		})
	}

	buf := fitness.NewPixelBuffer(t.Width, t.Height)
	for i := range buf.Pix {
		buf.Pix[i] = fitness.Pack(toByte(planes[0][i]), toByte(planes[1][i]), toByte(planes[2][i]))
	}
	return buf
}

func toByte(v float32) uint8 {
	return uint8(min(max(v, 0), 255) + 0.5)
}

// pt is a helper to create a vec.Vec2 from x, y coordinates.
func pt(x, y float64) vec.Vec2 {
	return vec.Vec2{X: x, Y: y}
}

func rgba(r, g, b, a uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: a}
}
