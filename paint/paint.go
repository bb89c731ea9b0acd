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

// Package paint turns genomes into pixel buffers.
package paint

import (
	"fmt"

	"seehuhn.de/go/evolve/fitness"
	"seehuhn.de/go/evolve/genome"
)

// Renderer draws the genes of a genome, in order, onto a background.
//
// Render draws at most limit genes; a negative limit draws all of them.
// The returned buffer belongs to the Renderer and is overwritten by the
// next call. Rendering is deterministic.
//
// A Renderer is not safe for concurrent use; every hill-climbing worker
// owns its own.
type Renderer interface {
	Render(g *genome.Genome, limit int) *fitness.PixelBuffer
	Size() (width, height int)
}

// Factory creates renderers of the given size.
type Factory func(width, height int) Renderer

// Renderer names accepted by [FactoryByName].
const (
	NameRaster = "raster"
	NameVector = "vector"
)

// FactoryByName returns the factory for the named renderer.
func FactoryByName(name string, background uint32) (Factory, error) {
	switch name {
	case NameRaster, "":
		return func(w, h int) Renderer {
			c := NewCanvas(w, h)
			c.Background = background
			return c
		}, nil
	case NameVector:
		return func(w, h int) Renderer {
			c := NewVectorCanvas(w, h)
			c.Background = background
			return c
		}, nil
	default:
		return nil, fmt.Errorf("paint: unknown renderer %q", name)
	}
}

// drawCount returns the number of genes to draw.
func drawCount(g *genome.Genome, limit int) int {
	n := g.Len()
	if limit >= 0 && limit < n {
		return limit
	}
	return n
}
