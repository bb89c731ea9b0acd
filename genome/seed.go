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

package genome

import (
	"image"
	"math/rand/v2"
)

// SeedGrid is the number of rows and columns of the grid of average
// colours used by [Seeded].
const SeedGrid = 3

const (
	seedColorJitter = 48 // maximal deviation from the mean colour
	seedAlphaMin    = 16
	seedAlphaRange  = 96
)

// Seeded returns a genome which starts out close to the target image.
//
// The target is divided into a 3×3 grid. For each grid cell, two opaque
// triangles covering the cell are painted in the cell's average colour.
// The remaining genes are translucent triangles with colours scattered
// around the mean colour of the image, placed near the image edges and
// corners.
func Seeded(rng *rand.Rand, capacity int, b Bounds, target image.Image) *Genome {
	g := New(capacity)
	cells := gridAverages(target)

	var sum [3]int
	for row := range SeedGrid {
		for col := range SeedGrid {
			c := cells[row][col]
			for k := range sum {
				sum[k] += c[k]
			}

			x0, x1 := col*b.Width/SeedGrid, (col+1)*b.Width/SeedGrid
			y0, y1 := row*b.Height/SeedGrid, (row+1)*b.Height/SeedGrid
			// ErrFull truncates the base layer of very small genomes.
			_ = g.Add(Gene{x0, x1, x0, y0, y0, y1, c[0], c[1], c[2], MaxChannel})
			_ = g.Add(Gene{x1, x1, x0, y0, y1, y1, c[0], c[1], c[2], MaxChannel})
		}
	}
	var mean [3]int
	for k := range mean {
		mean[k] = sum[k] / (SeedGrid * SeedGrid)
	}

	for g.Len() < capacity {
		var gene Gene
		ax, ay := edgeAnchor(rng, b)
		radius := max(b.Width, b.Height)/4 + 1
		for v := range 3 {
			gene[X0+v] = b.Clamp(X0, ax+rng.IntN(2*radius+1)-radius)
			gene[Y0+v] = b.Clamp(Y0, ay+rng.IntN(2*radius+1)-radius)
		}
		for k := range mean {
			gene[Red+k] = b.Clamp(Red+k, mean[k]+rng.IntN(2*seedColorJitter+1)-seedColorJitter)
		}
		gene[Alpha] = seedAlphaMin + rng.IntN(seedAlphaRange)
		g.genes = append(g.genes, gene)
	}
	return g
}

// edgeAnchor returns a random point on the border of the image, favouring
// the four corners.
func edgeAnchor(rng *rand.Rand, b Bounds) (x, y int) {
	if rng.IntN(2) == 0 {
		return rng.IntN(2) * b.Width, rng.IntN(2) * b.Height
	}
	switch rng.IntN(4) {
	case 0:
		return rng.IntN(b.Width + 1), 0
	case 1:
		return rng.IntN(b.Width + 1), b.Height
	case 2:
		return 0, rng.IntN(b.Height + 1)
	default:
		return b.Width, rng.IntN(b.Height + 1)
	}
}

// gridAverages returns the average 8-bit RGB colour of each cell of a
// SeedGrid×SeedGrid partition of img. Empty cells are black.
func gridAverages(img image.Image) [SeedGrid][SeedGrid][3]int {
	var out [SeedGrid][SeedGrid][3]int
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	for row := range SeedGrid {
		for col := range SeedGrid {
			x0, x1 := r.Min.X+col*w/SeedGrid, r.Min.X+(col+1)*w/SeedGrid
			y0, y1 := r.Min.Y+row*h/SeedGrid, r.Min.Y+(row+1)*h/SeedGrid
			n := (x1 - x0) * (y1 - y0)
			if n <= 0 {
				continue
			}
			var sum [3]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					cr, cg, cb, _ := img.At(x, y).RGBA()
					sum[0] += int(cr >> 8)
					sum[1] += int(cg >> 8)
					sum[2] += int(cb >> 8)
				}
			}
			for k := range sum {
				out[row][col][k] = sum[k] / n
			}
		}
	}
	return out
}
