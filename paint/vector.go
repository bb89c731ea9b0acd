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
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"

	"seehuhn.de/go/evolve/fitness"
	"seehuhn.de/go/evolve/genome"
)

// VectorCanvas renders genomes using golang.org/x/image/vector.
// Blending happens in 8-bit RGBA, so results differ from [Canvas] by
// rounding.
type VectorCanvas struct {
	// Background is the packed RGB colour below all triangles.
	Background uint32

	width, height int
	ras           *vector.Rasterizer
	img           *image.RGBA
	src           *image.Uniform
	out           *fitness.PixelBuffer
}

// NewVectorCanvas returns a VectorCanvas producing w×h images on a black
// background.
func NewVectorCanvas(w, h int) *VectorCanvas {
	return &VectorCanvas{
		width:  w,
		height: h,
		ras:    vector.NewRasterizer(w, h),
		img:    image.NewRGBA(image.Rect(0, 0, w, h)),
		src:    image.NewUniform(color.NRGBA{}),
		out:    fitness.NewPixelBuffer(w, h),
	}
}

// Size implements [Renderer].
func (c *VectorCanvas) Size() (int, int) { return c.width, c.height }

// Render implements [Renderer].
func (c *VectorCanvas) Render(g *genome.Genome, limit int) *fitness.PixelBuffer {
	br, bg, bb := fitness.Unpack(c.Background)
	c.src.C = color.RGBA{R: br, G: bg, B: bb, A: 0xFF}
	draw.Draw(c.img, c.img.Bounds(), c.src, image.Point{}, draw.Src)

	for i := range drawCount(g, limit) {
		gene := g.Gene(i)
		if gene[genome.Alpha] == 0 {
			continue
		}
		c.ras.Reset(c.width, c.height)
		c.ras.MoveTo(float32(gene[genome.X0]), float32(gene[genome.Y0]))
		c.ras.LineTo(float32(gene[genome.X1]), float32(gene[genome.Y1]))
		c.ras.LineTo(float32(gene[genome.X2]), float32(gene[genome.Y2]))
		c.ras.ClosePath()
		c.src.C = gene.Color()
		c.ras.Draw(c.img, c.img.Bounds(), c.src, image.Point{})
	}

	for i := range c.out.Pix {
		p := c.img.Pix[4*i : 4*i+3]
		c.out.Pix[i] = fitness.Pack(p[0], p[1], p[2])
	}
	return c.out
}
