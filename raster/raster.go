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

// Package raster computes anti-aliased pixel coverage for filled polygons.
//
// Coverage is the fraction of a pixel's area lying inside the shape, from 0
// (outside) to 1 (inside). Results are delivered one scanline at a time to
// an [Emitter], so callers can blend directly into their own buffers.
package raster

import (
	"cmp"
	"math"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Rule selects how the winding numbers of overlapping contours are turned
// into coverage.
type Rule int

const (
	// NonZero treats every point with a non-zero winding number as inside.
	NonZero Rule = iota

	// EvenOdd treats points with an odd winding number as inside.
	EvenOdd
)

// Emitter receives the coverage of one scanline. The coverage slice starts
// at pixel xMin of row y and is only valid for the duration of the call.
type Emitter func(y, xMin int, coverage []float32)

// edge is a non-horizontal line segment in device coordinates.
type edge struct {
	x0, y0 float64
	x1, y1 float64
	dxdy   float64 // (x1-x0)/(y1-y0)
}

func (e *edge) yMin() float64 { return min(e.y0, e.y1) }
func (e *edge) yMax() float64 { return max(e.y0, e.y1) }

// xAt returns the x coordinate of the edge's supporting line at height y.
func (e *edge) xAt(y float64) float64 { return e.x0 + e.dxdy*(y-e.y0) }

// Rasterizer turns polygons into coverage values.
// Buffers are kept between calls, so that a Rasterizer which is reused for
// many shapes of similar size stops allocating after the first few calls.
//
// A Rasterizer is not safe for concurrent use.
type Rasterizer struct {
	// CTM maps user space to device space. It must be non-singular.
	CTM matrix.Matrix

	// Clip limits the output to this device-space rectangle.
	// The coordinates must be integers.
	Clip rect.Rect

	// Flatness is the maximal distance, in device pixels, between a curve
	// and the line segments approximating it.
	Flatness float64

	// smallPathThreshold is the largest bounding box area for which the
	// whole shape is accumulated into 2D buffers at once. Larger shapes are
	// processed one scanline at a time using an active edge list.
	smallPathThreshold int

	cover     []float32 // signed vertical extent per pixel; overwritten with coverage
	area      []float32 // area to the right of the edge within each pixel
	edges     []edge
	active    []int // indices into edges
	rowUsed   []bool
	crossings []float64

	bboxEmpty                          bool
	devXMin, devXMax, devYMin, devYMax float64
}

// NewRasterizer returns a Rasterizer for the given clip rectangle, using
// the identity transformation.
func NewRasterizer(clip rect.Rect) *Rasterizer {
	return &Rasterizer{
		CTM:                matrix.Identity,
		Clip:               clip,
		Flatness:           defaultFlatness,
		smallPathThreshold: smallPathThreshold,
	}
}

// Reset restores the default parameters and sets a new clip rectangle.
// Internal buffers keep their capacity.
func (r *Rasterizer) Reset(clip rect.Rect) {
	r.CTM = matrix.Identity
	r.Clip = clip
	r.Flatness = defaultFlatness

	r.cover = r.cover[:0]
	r.area = r.area[:0]
	r.edges = r.edges[:0]
	r.active = r.active[:0]
	r.rowUsed = r.rowUsed[:0]
	r.crossings = r.crossings[:0]
}

// Fill rasterizes the closed contours of p. Open subpaths are closed
// implicitly.
func (r *Rasterizer) Fill(p *path.Data, rule Rule, emit Emitter) {
	r.beginEdges()

	var current, start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			if current != start {
				r.addEdge(current, start)
			}
			current = p.Coords[k]
			start = current
			k++
		case path.CmdLineTo:
			r.addEdge(current, p.Coords[k])
			current = p.Coords[k]
			k++
		case path.CmdQuadTo:
			r.flattenQuadratic(current, p.Coords[k], p.Coords[k+1])
			current = p.Coords[k+1]
			k += 2
		case path.CmdCubeTo:
			r.flattenCubic(current, p.Coords[k], p.Coords[k+1], p.Coords[k+2])
			current = p.Coords[k+2]
			k += 3
		case path.CmdClose:
			if current != start {
				r.addEdge(current, start)
			}
			current = start
		}
	}
	if current != start {
		r.addEdge(current, start)
	}

	r.finish(rule, emit)
}

// FillTriangle rasterizes the triangle with corners a, b and c.
// This is equivalent to filling the closed path a-b-c, but avoids building
// a path.
func (r *Rasterizer) FillTriangle(a, b, c vec.Vec2, emit Emitter) {
	r.beginEdges()
	r.addEdge(a, b)
	r.addEdge(b, c)
	r.addEdge(c, a)
	r.finish(NonZero, emit)
}

func (r *Rasterizer) beginEdges() {
	r.edges = r.edges[:0]
	r.bboxEmpty = true
}

// addEdge transforms a user-space segment to device space and records it.
func (r *Rasterizer) addEdge(p0, p1 vec.Vec2) {
	m := &r.CTM
	x0 := m[0]*p0.X + m[2]*p0.Y + m[4]
	y0 := m[1]*p0.X + m[3]*p0.Y + m[5]
	x1 := m[0]*p1.X + m[2]*p1.Y + m[4]
	y1 := m[1]*p1.X + m[3]*p1.Y + m[5]

	dy := y1 - y0
	if math.Abs(dy) < horizontalEdgeThreshold {
		return
	}
	r.edges = append(r.edges, edge{x0: x0, y0: y0, x1: x1, y1: y1, dxdy: (x1 - x0) / dy})

	if r.bboxEmpty {
		r.devXMin, r.devXMax = min(x0, x1), max(x0, x1)
		r.devYMin, r.devYMax = min(y0, y1), max(y0, y1)
		r.bboxEmpty = false
		return
	}
	r.devXMin = min(r.devXMin, x0, x1)
	r.devXMax = max(r.devXMax, x0, x1)
	r.devYMin = min(r.devYMin, y0, y1)
	r.devYMax = max(r.devYMax, y0, y1)
}

// linear applies the 2×2 part of the CTM, ignoring translation.
func (r *Rasterizer) linear(v vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: r.CTM[0]*v.X + r.CTM[2]*v.Y,
		Y: r.CTM[1]*v.X + r.CTM[3]*v.Y,
	}
}

// flattenQuadratic replaces a quadratic Bézier curve by line segments.
func (r *Rasterizer) flattenQuadratic(p0, p1, p2 vec.Vec2) {
	dev := r.linear(p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25)).Length()
	n := 1
	if dev > r.Flatness {
		n = int(math.Ceil(math.Sqrt(dev / r.Flatness)))
	}

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s).Add(p1.Mul(2 * s * t)).Add(p2.Mul(t * t))
		r.addEdge(prev, pt)
		prev = pt
	}
}

// flattenCubic replaces a cubic Bézier curve by line segments, choosing
// the number of segments by Wang's formula.
func (r *Rasterizer) flattenCubic(p0, p1, p2, p3 vec.Vec2) {
	d1 := r.linear(p0.Sub(p1.Mul(2)).Add(p2)).Length()
	d2 := r.linear(p1.Sub(p2.Mul(2)).Add(p3)).Length()
	n := 1
	if m := max(d1, d2); m > 0 {
		if f := math.Sqrt(3 * m / (4 * r.Flatness)); f > 1 {
			n = int(math.Ceil(f))
		}
	}

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s * s).
			Add(p1.Mul(3 * s * s * t)).
			Add(p2.Mul(3 * s * t * t)).
			Add(p3.Mul(t * t * t))
		r.addEdge(prev, pt)
		prev = pt
	}
}

// finish clips the bounding box of the collected edges and runs the
// scanline conversion.
func (r *Rasterizer) finish(rule Rule, emit Emitter) {
	if len(r.edges) == 0 {
		return
	}

	xMin := max(int(math.Floor(r.devXMin)), int(r.Clip.LLx))
	xMax := min(int(math.Floor(r.devXMax))+1, int(r.Clip.URx))
	yMin := max(int(math.Floor(r.devYMin)), int(r.Clip.LLy))
	yMax := min(int(math.Floor(r.devYMax))+1, int(r.Clip.URy))
	if xMin >= xMax || yMin >= yMax {
		return
	}

	if (xMax-xMin)*(yMax-yMin) < r.smallPathThreshold {
		r.fillSmall(xMin, xMax, yMin, yMax, rule, emit)
	} else {
		r.fillLarge(xMin, xMax, yMin, yMax, rule, emit)
	}
}

// How coverage is accumulated:
//
// Every pixel gets two numbers. cover is the signed height of all edge
// pieces inside the pixel (positive for downward edges), and area is cover
// weighted by the horizontal fraction of the pixel lying to the right of
// the edge. Sweeping a scanline from left to right, the coverage of pixel
// i is the running sum of cover over all pixels left of i plus area[i].
// Pieces of edges left of the bounding box are collected in the first
// pixel, so that the running sum starts at the right value.

// accumulate adds the part of e inside scanline y to cover and area,
// which are indexed by x-xMin.
func (r *Rasterizer) accumulate(e *edge, y int, cover, area []float32, xMin, xMax int) {
	top := max(float64(y), e.yMin())
	bot := min(float64(y+1), e.yMax())
	if bot <= top {
		return
	}

	sign := float32(1)
	if e.y1 < e.y0 {
		sign = -1
	}

	xTop, xBot := e.xAt(top), e.xAt(bot)
	left := int(math.Floor(min(xTop, xBot)))
	right := int(math.Floor(max(xTop, xBot)))
	if left >= xMax {
		return
	}
	if left == right || right < xMin {
		deposit(e, top, bot, sign, cover, area, xMin, xMax)
		return
	}

	// The edge crosses pixel boundaries: split it wherever it meets an
	// integer x coordinate.
	r.crossings = append(r.crossings[:0], top, bot)
	dydx := 1 / e.dxdy
	for x := left + 1; x <= right; x++ {
		yx := e.y0 + dydx*(float64(x)-e.x0)
		if yx > top && yx < bot {
			r.crossings = append(r.crossings, yx)
		}
	}
	slices.Sort(r.crossings)
	for i := 0; i+1 < len(r.crossings); i++ {
		deposit(e, r.crossings[i], r.crossings[i+1], sign, cover, area, xMin, xMax)
	}
}

// deposit adds the piece of e between heights top and bot, which must lie
// within a single pixel column.
func deposit(e *edge, top, bot float64, sign float32, cover, area []float32, xMin, xMax int) {
	dy := bot - top
	if dy <= 0 {
		return
	}
	c := sign * float32(dy)
	xMid := e.xAt((top + bot) / 2)
	pix := int(math.Floor(xMid))

	switch {
	case pix < xMin:
		cover[0] += c
		area[0] += c
	case pix < xMax:
		i := pix - xMin
		cover[i] += c
		area[i] += c * float32(1-(xMid-float64(pix)))
	}
}

// integrate converts one scanline of cover/area values into coverage,
// in place in cover.
func integrate(cover, area []float32, rule Rule) {
	var acc float32
	for i := range cover {
		w := acc + area[i]
		acc += cover[i]
		if w < 0 {
			w = -w
		}
		if rule == EvenOdd {
			w -= 2 * float32(int(w/2))
			if w > 1 {
				w = 2 - w
			}
		} else if w > 1 {
			w = 1
		}
		cover[i] = w
	}
}

// trimZeros strips leading and trailing zeros.
// It returns nil if all values are zero.
func trimZeros(coverage []float32) ([]float32, int) {
	lo, hi := 0, len(coverage)
	for lo < hi && coverage[lo] == 0 {
		lo++
	}
	if lo == hi {
		return nil, 0
	}
	for coverage[hi-1] == 0 {
		hi--
	}
	return coverage[lo:hi], lo
}

// fillSmall accumulates all edges into 2D buffers covering the bounding
// box, then integrates row by row.
func (r *Rasterizer) fillSmall(xMin, xMax, yMin, yMax int, rule Rule, emit Emitter) {
	width := xMax - xMin
	height := yMax - yMin

	size := width * height
	r.cover = slices.Grow(r.cover[:0], size)[:size]
	r.area = slices.Grow(r.area[:0], size)[:size]
	clear(r.cover)
	clear(r.area)
	r.rowUsed = slices.Grow(r.rowUsed[:0], height)[:height]
	clear(r.rowUsed)

	for i := range r.edges {
		e := &r.edges[i]
		from := max(int(math.Floor(e.yMin())), yMin)
		to := min(int(math.Floor(e.yMax()))+1, yMax)
		for y := from; y < to; y++ {
			row := y - yMin
			off := row * width
			r.accumulate(e, y, r.cover[off:off+width], r.area[off:off+width], xMin, xMax)
			r.rowUsed[row] = true
		}
	}

	for row, used := range r.rowUsed {
		if !used {
			continue
		}
		off := row * width
		line := r.cover[off : off+width]
		integrate(line, r.area[off:off+width], rule)
		if cov, skip := trimZeros(line); cov != nil {
			emit(yMin+row, xMin+skip, cov)
		}
	}
}

// fillLarge sweeps the bounding box one scanline at a time, keeping a list
// of the edges which intersect the current scanline.
func (r *Rasterizer) fillLarge(xMin, xMax, yMin, yMax int, rule Rule, emit Emitter) {
	width := xMax - xMin
	r.cover = slices.Grow(r.cover[:0], width)[:width]
	r.area = slices.Grow(r.area[:0], width)[:width]

	slices.SortFunc(r.edges, func(a, b edge) int {
		return cmp.Compare(a.yMin(), b.yMin())
	})

	r.active = r.active[:0]
	next := 0
	for y := yMin; y < yMax; y++ {
		top, bot := float64(y), float64(y+1)

		for next < len(r.edges) && r.edges[next].yMin() < bot {
			r.active = append(r.active, next)
			next++
		}
		if len(r.active) == 0 {
			continue
		}

		clear(r.cover)
		clear(r.area)
		touched := false
		for i := 0; i < len(r.active); {
			e := &r.edges[r.active[i]]
			if e.yMax() <= top {
				last := len(r.active) - 1
				r.active[i] = r.active[last]
				r.active = r.active[:last]
				continue
			}
			r.accumulate(e, y, r.cover, r.area, xMin, xMax)
			if min(bot, e.yMax()) > max(top, e.yMin()) {
				touched = true
			}
			i++
		}
		if !touched {
			continue
		}

		integrate(r.cover, r.area, rule)
		if cov, skip := trimZeros(r.cover); cov != nil {
			emit(y, xMin+skip, cov)
		}
	}
}

const (
	// defaultFlatness is the default curve flattening tolerance in device
	// pixels.
	defaultFlatness = 0.25

	// horizontalEdgeThreshold is the smallest vertical extent of an edge
	// which still contributes to coverage.
	horizontalEdgeThreshold = 1e-10

	// smallPathThreshold is the default bounding box area (in pixels) below
	// which fillSmall is used.
	smallPathThreshold = 65536
)
