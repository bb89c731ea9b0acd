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

package paint

import (
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/evolve/fitness"
	"seehuhn.de/go/evolve/genome"
	"seehuhn.de/go/evolve/raster"
)

// Canvas renders genomes using the anti-aliasing rasterizer from package
// raster. Colours are blended in floating point and rounded once at the
// end.
type Canvas struct {
	// Background is the packed RGB colour below all triangles.
	Background uint32

	width, height int
	ras           *raster.Rasterizer
	red           []float32
	green         []float32
	blue          []float32
	out           *fitness.PixelBuffer

	// colour of the triangle currently being drawn, premultiplied
	cr, cg, cb, ca float32
	emit           raster.Emitter
}

// NewCanvas returns a Canvas producing w×h images on a black background.
func NewCanvas(w, h int) *Canvas {
	n := w * h
	c := &Canvas{
		width:  w,
		height: h,
		ras:    raster.NewRasterizer(rect.Rect{URx: float64(w), URy: float64(h)}),
		red:    make([]float32, n),
		green:  make([]float32, n),
		blue:   make([]float32, n),
		out:    fitness.NewPixelBuffer(w, h),
	}
	c.emit = c.blendRow
	return c
}

// SetScale sets the factor from gene coordinates to pixels. This allows to
// render genomes evolved for one image size at another size.
func (c *Canvas) SetScale(s float64) {
	c.ras.CTM = matrix.Matrix{s, 0, 0, s, 0, 0}
}

// Size implements [Renderer].
func (c *Canvas) Size() (int, int) { return c.width, c.height }

// Render implements [Renderer].
func (c *Canvas) Render(g *genome.Genome, limit int) *fitness.PixelBuffer {
	br, bg, bb := fitness.Unpack(c.Background)
	fillPlane(c.red, float32(br))
	fillPlane(c.green, float32(bg))
	fillPlane(c.blue, float32(bb))

	for i := range drawCount(g, limit) {
		gene := g.Gene(i)
		if gene[genome.Alpha] == 0 {
			continue
		}
		c.ca = float32(gene[genome.Alpha]) / genome.MaxChannel
		c.cr = float32(gene[genome.Red]) * c.ca
		c.cg = float32(gene[genome.Green]) * c.ca
		c.cb = float32(gene[genome.Blue]) * c.ca
		c.ras.FillTriangle(vertex(&gene, 0), vertex(&gene, 1), vertex(&gene, 2), c.emit)
	}

	for i := range c.out.Pix {
		c.out.Pix[i] = fitness.Pack(toByte(c.red[i]), toByte(c.green[i]), toByte(c.blue[i]))
	}
	return c.out
}

// blendRow composites the current colour over one scanline.
func (c *Canvas) blendRow(y, xMin int, coverage []float32) {
	off := y*c.width + xMin
	for k, cov := range coverage {
		i := off + k
		keep := 1 - c.ca*cov
		c.red[i] = c.red[i]*keep + c.cr*cov
		c.green[i] = c.green[i]*keep + c.cg*cov
		c.blue[i] = c.blue[i]*keep + c.cb*cov
	}
}

func vertex(g *genome.Gene, k int) vec.Vec2 {
	x, y := g.Vertex(k)
	return vec.Vec2{X: float64(x), Y: float64(y)}
}

func fillPlane(p []float32, v float32) {
	for i := range p {
		p[i] = v
	}
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
