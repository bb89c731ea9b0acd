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
	"fmt"
	"image/color"
)

// DNALength is the number of integer fields in one gene.
const DNALength = 10

// Field indices into a [Gene].
const (
	X0 = iota
	X1
	X2
	Y0
	Y1
	Y2
	Red
	Green
	Blue
	Alpha
)

// MaxChannel is the largest value of a colour field.
const MaxChannel = 255

// Gene encodes one translucent triangle: three x coordinates, three y
// coordinates and a non-premultiplied RGBA colour.
//
// Gene is an array, so assigning a Gene copies it.
type Gene [DNALength]int

// Bounds gives the size of the image the genes are drawn on.
// Coordinates range over [0, Width] and [0, Height] (inclusive).
type Bounds struct {
	Width, Height int
}

// Max returns the largest legal value of the given field.
// Fields are always non-negative.
func (b Bounds) Max(field int) int {
	switch field {
	case X0, X1, X2:
		return b.Width
	case Y0, Y1, Y2:
		return b.Height
	default:
		return MaxChannel
	}
}

// Clamp restricts v to the legal range of the given field.
func (b Bounds) Clamp(field, v int) int {
	return min(max(v, 0), b.Max(field))
}

// Valid reports whether all fields of g are within bounds.
func (g *Gene) Valid(b Bounds) bool {
	for f, v := range g {
		if v < 0 || v > b.Max(f) {
			return false
		}
	}
	return true
}

// Vertex returns the coordinates of corner i, for i in {0, 1, 2}.
func (g *Gene) Vertex(i int) (x, y int) {
	return g[X0+i], g[Y0+i]
}

// Color returns the triangle's colour.
func (g *Gene) Color() color.NRGBA {
	return color.NRGBA{
		R: uint8(g[Red]),
		G: uint8(g[Green]),
		B: uint8(g[Blue]),
		A: uint8(g[Alpha]),
	}
}

func (g Gene) String() string {
	return fmt.Sprintf("(%d,%d)(%d,%d)(%d,%d)#%02x%02x%02x/%d",
		g[X0], g[Y0], g[X1], g[Y1], g[X2], g[Y2], g[Red], g[Green], g[Blue], g[Alpha])
}
