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

// Package crossover exchanges DNA between genomes of the population.
//
// Parents are drawn with a bias toward the start of the population, which
// after sorting holds the fittest genomes. Each pair exchanges a range of
// DNA positions in place, so crossover allocates no genomes.
package crossover

import (
	"math"
	"math/rand/v2"

	"seehuhn.de/go/evolve/genome"
	"seehuhn.de/go/evolve/population"
)

// SelectParent returns an index in [0, n). Index i is chosen with
// probability proportional to n-i (approximately), so low indices are
// preferred.
func SelectParent(rng *rand.Rand, n int) int {
	return int(float64(n) * math.Abs(rng.Float64()-rng.Float64()))
}

// FullRange returns the DNA range used for crossover of genomes with the
// given number of genes. The range [L, 2L), with L the DNA length, wraps
// around exactly once and thus covers every position.
func FullRange(genes int) (start, end int) {
	l := genes * genome.DNALength
	return l, 2 * l
}

// Engine performs crossover rounds. An Engine is not safe for concurrent
// use.
type Engine struct {
	rng     *rand.Rand
	touched []bool
}

// New returns an engine drawing random numbers from rng.
func New(rng *rand.Rand) *Engine {
	return &Engine{rng: rng}
}

// Cross performs up to count crossovers between pairs of distinct genomes.
// In every pair at least one genome has not been part of an earlier pair of
// the same call. Cross returns early once every genome has been used. The
// return value is the number of pairs crossed.
func (e *Engine) Cross(l *population.Lease, count int) int {
	n := l.Len()
	if n < 2 || count <= 0 {
		return 0
	}
	if cap(e.touched) < n {
		e.touched = make([]bool, n)
	}
	touched := e.touched[:n]
	clear(touched)

	untouched := n
	crossed := 0
	for crossed < count && untouched > 0 {
		var i, j int
		for {
			i = SelectParent(e.rng, n)
			j = SelectParent(e.rng, n)
			if i != j && (!touched[i] || !touched[j]) {
				break
			}
		}

		a, b := l.Genome(i), l.Genome(j)
		start, end := FullRange(min(a.Len(), b.Len()))
		e.Swap(l, i, j, start, end)

		for _, k := range [2]int{i, j} {
			if !touched[k] {
				touched[k] = true
				untouched--
			}
		}
		crossed++
	}
	return crossed
}

// Swap exchanges the DNA positions [start, end) of genomes i and j and
// updates the fitness cache. If the whole DNA was exchanged, the cached
// values are swapped too, otherwise both genomes become unscored.
func (e *Engine) Swap(l *population.Lease, i, j, start, end int) {
	a, b := l.Genome(i), l.Genome(j)
	a.SwapDNA(b, start, end)

	n := min(a.DNALen(), b.DNALen())
	switch {
	case n == 0 || end <= start:
		// nothing was exchanged
	case end-start >= n && a.DNALen() == b.DNALen():
		l.SwapFitness(i, j)
	default:
		l.Invalidate(i)
		l.Invalidate(j)
	}
}
