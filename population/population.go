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

// Package population holds the genomes being evolved, together with a cache
// of their fitness values.
//
// The population is divided into tribes, contiguous index ranges each owned
// by one hill-climbing worker. A worker only touches the slots of its own
// tribe. Operations on the whole population, such as sorting or crossover,
// need a [Lease], which is handed out only while all workers are paused.
package population

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"seehuhn.de/go/evolve/genome"
)

// Unscored is the cached fitness of a slot which has not been evaluated
// since it last changed.
const Unscored int64 = -1

var (
	// ErrEmpty indicates a population without genomes.
	ErrEmpty = errors.New("population: no genomes")

	// ErrThreads indicates a tribe count below one.
	ErrThreads = errors.New("population: number of tribes must be positive")
)

// Range is the half-open index range [Start, End) of a tribe.
type Range struct {
	Start, End int
}

// Len returns the number of indices in r.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether i lies in r.
func (r Range) Contains(i int) bool { return i >= r.Start && i < r.End }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Partition splits n genomes into the given number of tribes. Every tribe
// has ceil(n/threads) members, except that the last tribes may be smaller
// or even empty. The ranges are disjoint, in order, and cover [0, n).
func Partition(n, threads int) ([]Range, error) {
	if threads < 1 {
		return nil, fmt.Errorf("%w: %d", ErrThreads, threads)
	}
	size := (n + threads - 1) / threads
	ranges := make([]Range, threads)
	for k := range ranges {
		ranges[k] = Range{
			Start: min(k*size, n),
			End:   min((k+1)*size, n),
		}
	}
	return ranges, nil
}

type slot struct {
	genome  *genome.Genome
	fitness atomic.Int64
}

// Population is the ordered list of genomes together with their cached
// fitness.
//
// Fitness values can be read at any time. Genomes may only be modified by
// the worker owning the tribe, or by the holder of a Lease.
//
// The slot order only changes under a Lease, while mu is held for
// writing. Readers outside a lease hold mu for reading.
type Population struct {
	mu     sync.RWMutex
	slots  []*slot
	leased atomic.Bool
}

// New returns a population holding the given genomes, all unscored.
func New(genomes []*genome.Genome) (*Population, error) {
	if len(genomes) == 0 {
		return nil, ErrEmpty
	}
	p := &Population{}
	p.fill(genomes)
	return p, nil
}

func (p *Population) fill(genomes []*genome.Genome) {
	slots := make([]*slot, len(genomes))
	for i, g := range genomes {
		s := &slot{genome: g}
		s.fitness.Store(Unscored)
		slots[i] = s
	}
	p.mu.Lock()
	p.slots = slots
	p.mu.Unlock()
}

func (p *Population) at(i int) *slot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.slots[i]
}

// Len returns the number of genomes.
func (p *Population) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.slots)
}

// Genome returns genome i. The caller must own the tribe containing i.
func (p *Population) Genome(i int) *genome.Genome { return p.at(i).genome }

// Fitness returns the cached fitness of genome i, or Unscored.
func (p *Population) Fitness(i int) int64 { return p.at(i).fitness.Load() }

// SetFitness records the fitness of genome i.
func (p *Population) SetFitness(i int, v int64) { p.at(i).fitness.Store(v) }

// MeanFitness returns the mean over all scored genomes. The second return
// value is false if no genome has been scored yet.
func (p *Population) MeanFitness() (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var sum float64
	n := 0
	for _, s := range p.slots {
		if v := s.fitness.Load(); v != Unscored {
			sum += float64(v)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Best returns the index and fitness of the scored genome with the lowest
// error. If no genome is scored, the index is -1.
func (p *Population) Best() (int, int64) {
	return p.BestIn(Range{0, math.MaxInt})
}

// Worst returns the index and fitness of the scored genome with the highest
// error. If no genome is scored, the index is -1.
func (p *Population) Worst() (int, int64) {
	return p.WorstIn(Range{0, math.MaxInt})
}

// BestIn is like [Population.Best], restricted to r.
func (p *Population) BestIn(r Range) (int, int64) {
	return p.extreme(r, func(a, b int64) bool { return a < b })
}

// WorstIn is like [Population.Worst], restricted to r.
func (p *Population) WorstIn(r Range) (int, int64) {
	return p.extreme(r, func(a, b int64) bool { return a > b })
}

func (p *Population) extreme(r Range, better func(a, b int64) bool) (int, int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	idx, val := -1, Unscored
	for i := max(r.Start, 0); i < min(r.End, len(p.slots)); i++ {
		v := p.slots[i].fitness.Load()
		if v == Unscored {
			continue
		}
		if idx < 0 || better(v, val) {
			idx, val = i, v
		}
	}
	return idx, val
}

// Leased reports whether a lease is outstanding.
func (p *Population) Leased() bool { return p.leased.Load() }

// Acquire returns the exclusive lease on p. The caller is responsible for
// making sure that no worker is running; normally this is done by the tribe
// scheduler. Acquire panics if a lease is already outstanding.
func (p *Population) Acquire() *Lease {
	if !p.leased.CompareAndSwap(false, true) {
		panic("population: lease already held")
	}
	return &Lease{p: p}
}

// Lease grants exclusive access to the whole population.
// All methods panic after Release has been called.
type Lease struct {
	p        *Population
	released bool
}

func (l *Lease) pop() *Population {
	if l.released {
		panic("population: use of released lease")
	}
	return l.p
}

// Len returns the number of genomes.
func (l *Lease) Len() int { return len(l.pop().slots) }

// Genome returns genome i. Changes to the genome must be followed by
// [Lease.Invalidate] or [Lease.SwapFitness] to keep the cache correct.
func (l *Lease) Genome(i int) *genome.Genome { return l.pop().slots[i].genome }

// Fitness returns the cached fitness of genome i.
func (l *Lease) Fitness(i int) int64 { return l.pop().slots[i].fitness.Load() }

// SortByFitness orders the population by increasing error. Unscored genomes
// go last. The sort is stable.
func (l *Lease) SortByFitness() {
	p := l.pop()
	p.mu.Lock()
	defer p.mu.Unlock()
	slices.SortStableFunc(p.slots, func(a, b *slot) int {
		fa, fb := a.fitness.Load(), b.fitness.Load()
		switch {
		case fa == fb:
			return 0
		case fa == Unscored:
			return 1
		case fb == Unscored:
			return -1
		case fa < fb:
			return -1
		default:
			return 1
		}
	})
}

// SwapFitness exchanges the cached fitness of genomes i and j. This is
// used after the contents of the two genomes have been swapped completely.
func (l *Lease) SwapFitness(i, j int) {
	p := l.pop()
	a, b := &p.slots[i].fitness, &p.slots[j].fitness
	fa := a.Load()
	a.Store(b.Load())
	b.Store(fa)
}

// Invalidate marks genome i as unscored.
func (l *Lease) Invalidate(i int) { l.pop().slots[i].fitness.Store(Unscored) }

// Snapshot returns deep copies of all genomes, in population order.
func (l *Lease) Snapshot() []*genome.Genome {
	p := l.pop()
	out := make([]*genome.Genome, len(p.slots))
	for i, s := range p.slots {
		out[i] = s.genome.Clone()
	}
	return out
}

// Replace discards the current contents and installs the given genomes,
// all unscored. The population may change size, so tribes must be
// re-partitioned afterwards.
func (l *Lease) Replace(genomes []*genome.Genome) error {
	p := l.pop()
	if len(genomes) == 0 {
		return ErrEmpty
	}
	p.fill(genomes)
	return nil
}

// Release gives up the lease. Releasing twice is a no-op.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.p.leased.Store(false)
}
