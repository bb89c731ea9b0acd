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

package population

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/evolve/genome"
)

func TestPartition(t *testing.T) {
	cases := []struct {
		n, threads int
		want       []Range
	}{
		{10, 1, []Range{{0, 10}}},
		{10, 4, []Range{{0, 3}, {3, 6}, {6, 9}, {9, 10}}},
		{10, 6, []Range{{0, 2}, {2, 4}, {4, 6}, {6, 8}, {8, 10}, {10, 10}}},
		{200, 8, []Range{{0, 25}, {25, 50}, {50, 75}, {75, 100}, {100, 125}, {125, 150}, {150, 175}, {175, 200}}},
		{3, 5, []Range{{0, 1}, {1, 2}, {2, 3}, {3, 3}, {3, 3}}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d/%d", tc.n, tc.threads), func(t *testing.T) {
			got, err := Partition(tc.n, tc.threads)
			if err != nil {
				t.Fatal(err)
			}
			if d := cmp.Diff(tc.want, got); d != "" {
				t.Errorf("ranges differ (-want +got):\n%s", d)
			}
		})
	}
}

func TestPartitionCovers(t *testing.T) {
	for n := 1; n < 40; n++ {
		for threads := 1; threads < 12; threads++ {
			ranges, err := Partition(n, threads)
			if err != nil {
				t.Fatal(err)
			}
			next := 0
			for _, r := range ranges {
				if r.Start != next || r.End < r.Start {
					t.Fatalf("n=%d threads=%d: bad range %v", n, threads, r)
				}
				next = r.End
			}
			if next != n {
				t.Fatalf("n=%d threads=%d: covered up to %d", n, threads, next)
			}
		}
	}
}

func TestPartitionErrors(t *testing.T) {
	for _, threads := range []int{0, -3} {
		if _, err := Partition(10, threads); !errors.Is(err, ErrThreads) {
			t.Errorf("threads=%d: got %v", threads, err)
		}
	}
}

func testGenomes(n int) []*genome.Genome {
	rng := rand.New(rand.NewPCG(1, 2))
	out := make([]*genome.Genome, n)
	for i := range out {
		out[i] = genome.Random(rng, 4, genome.Bounds{Width: 10, Height: 10})
	}
	return out
}

func TestNew(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("got %v, want ErrEmpty", err)
	}
	p, err := New(testGenomes(5))
	if err != nil {
		t.Fatal(err)
	}
	for i := range p.Len() {
		if f := p.Fitness(i); f != Unscored {
			t.Errorf("slot %d starts with fitness %d", i, f)
		}
	}
	if _, ok := p.MeanFitness(); ok {
		t.Error("mean of unscored population reported")
	}
	if i, _ := p.Best(); i != -1 {
		t.Errorf("best of unscored population is %d", i)
	}
}

func TestQueries(t *testing.T) {
	p, _ := New(testGenomes(6))
	for i, f := range []int64{50, 10, Unscored, 70, 30, 20} {
		p.SetFitness(i, f)
	}

	if i, f := p.Best(); i != 1 || f != 10 {
		t.Errorf("Best = %d, %d", i, f)
	}
	if i, f := p.Worst(); i != 3 || f != 70 {
		t.Errorf("Worst = %d, %d", i, f)
	}
	if i, f := p.BestIn(Range{3, 6}); i != 5 || f != 20 {
		t.Errorf("BestIn = %d, %d", i, f)
	}
	if i, f := p.WorstIn(Range{0, 3}); i != 0 || f != 50 {
		t.Errorf("WorstIn = %d, %d", i, f)
	}
	if i, _ := p.BestIn(Range{2, 3}); i != -1 {
		t.Errorf("BestIn unscored range = %d", i)
	}
	if m, ok := p.MeanFitness(); !ok || m != 36 {
		t.Errorf("MeanFitness = %g, %t", m, ok)
	}
}

func TestSortByFitness(t *testing.T) {
	gs := testGenomes(6)
	p, _ := New(gs)
	fit := []int64{50, Unscored, 10, 30, 10, Unscored}
	for i, f := range fit {
		p.SetFitness(i, f)
	}

	l := p.Acquire()
	l.SortByFitness()

	wantOrder := []int{2, 4, 3, 0, 1, 5}
	for k, i := range wantOrder {
		if l.Genome(k) != gs[i] {
			t.Errorf("position %d holds wrong genome, want original %d", k, i)
		}
		if l.Fitness(k) != fit[i] {
			t.Errorf("position %d has fitness %d, want %d", k, l.Fitness(k), fit[i])
		}
	}
	l.Release()
}

func TestLeaseCache(t *testing.T) {
	p, _ := New(testGenomes(3))
	p.SetFitness(0, 5)
	p.SetFitness(1, 7)
	p.SetFitness(2, 9)

	l := p.Acquire()
	l.SwapFitness(0, 1)
	l.Invalidate(2)
	l.Release()

	got := []int64{p.Fitness(0), p.Fitness(1), p.Fitness(2)}
	if d := cmp.Diff([]int64{7, 5, Unscored}, got); d != "" {
		t.Errorf("fitness differs (-want +got):\n%s", d)
	}
}

func TestSnapshotIsDeep(t *testing.T) {
	gs := testGenomes(3)
	p, _ := New(gs)
	l := p.Acquire()
	snap := l.Snapshot()
	l.Release()

	for i := range snap {
		if snap[i] == gs[i] || !snap[i].Equal(gs[i]) {
			t.Fatalf("snapshot %d is not a copy", i)
		}
	}
	gs[0].SetField(0, genome.Red, 255-gs[0].Field(0, genome.Red))
	if snap[0].Equal(gs[0]) {
		t.Error("snapshot shares genes with the population")
	}
}

func TestReplace(t *testing.T) {
	p, _ := New(testGenomes(3))
	p.SetFitness(0, 1)

	l := p.Acquire()
	if err := l.Replace(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Replace(nil) = %v", err)
	}
	if err := l.Replace(testGenomes(5)); err != nil {
		t.Fatal(err)
	}
	l.Release()

	if p.Len() != 5 {
		t.Errorf("Len = %d after replace", p.Len())
	}
	if p.Fitness(0) != Unscored {
		t.Error("replaced population keeps old fitness")
	}
}

func TestLeaseExclusive(t *testing.T) {
	p, _ := New(testGenomes(2))
	l := p.Acquire()
	if !p.Leased() {
		t.Error("Leased() false while lease is held")
	}
	mustPanic(t, "second Acquire", func() { p.Acquire() })

	l.Release()
	l.Release()
	if p.Leased() {
		t.Error("Leased() true after release")
	}
	mustPanic(t, "use after release", func() { l.Len() })

	p.Acquire().Release()
}

// TestReadDuringSort reads population-wide statistics while another
// goroutine keeps reordering the slots under a lease, as the controller
// does before crossover. Run with -race.
func TestReadDuringSort(t *testing.T) {
	const n = 40
	const lo, hi = 100, 100 + n - 1
	p, _ := New(testGenomes(n))
	rng := rand.New(rand.NewPCG(3, 4))
	for i, v := range rng.Perm(n) {
		p.SetFitness(i, int64(lo+v))
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if i, f := p.Best(); i < 0 || i >= n || f < lo || f > hi {
				t.Errorf("Best() = %d, %d during sort", i, f)
				return
			}
			if i, f := p.Worst(); i < 0 || i >= n || f < lo || f > hi {
				t.Errorf("Worst() = %d, %d during sort", i, f)
				return
			}
			if m, ok := p.MeanFitness(); !ok || m < lo || m > hi {
				t.Errorf("MeanFitness() = %g, %t during sort", m, ok)
				return
			}
			if k := p.Len(); k != n {
				t.Errorf("Len() = %d during sort", k)
				return
			}
		}
	}()

	for range 200 {
		l := p.Acquire()
		for i := range n {
			l.SwapFitness(i, rng.IntN(n))
		}
		l.SortByFitness()
		l.Release()
	}
	close(stop)
	wg.Wait()

	for i := range n {
		if f := p.Fitness(i); f != int64(lo+i) {
			t.Fatalf("slot %d has fitness %d after sort", i, f)
		}
	}
}

func mustPanic(t *testing.T, what string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", what)
		}
	}()
	f()
}
