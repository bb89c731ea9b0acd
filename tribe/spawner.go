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

// Package tribe manages the hill-climbing workers of a population.
//
// A [Spawner] splits the population into tribes, runs one worker per tribe,
// and coordinates pausing all workers so that the population can be
// modified as a whole.
package tribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"

	"seehuhn.de/go/evolve/climb"
	"seehuhn.de/go/evolve/fitness"
	"seehuhn.de/go/evolve/genome"
	"seehuhn.de/go/evolve/paint"
	"seehuhn.de/go/evolve/population"
)

var (
	// ErrTribeRange indicates a tribe index beyond the number of tribes.
	ErrTribeRange = errors.New("tribe: index out of range")

	// ErrNotPaused is returned by [Spawner.Lock] when a worker is not
	// paused.
	ErrNotPaused = errors.New("tribe: workers are not paused")

	// ErrReference indicates a missing or empty reference image.
	ErrReference = errors.New("tribe: empty reference image")
)

// Config holds the settings of a spawner.
type Config struct {
	Threads   int
	Climb     climb.Config
	Factory   paint.Factory
	Evaluator fitness.Evaluator
	Logger    *slog.Logger
}

// Spawner owns the workers of a population.
//
// All methods are safe for concurrent use, but the controller is normally
// the only caller.
type Spawner struct {
	mu        sync.Mutex
	cfg       Config
	pop       *population.Population
	ref       *fitness.PixelBuffer
	rng       *rand.Rand
	logger    *slog.Logger
	ranges    []population.Range
	workers   []*climb.Worker
	renderers []paint.Renderer
	retired   int64
}

// New partitions pop into cfg.Threads tribes and creates an idle worker
// for each of them. Per-worker random generators are derived from rng.
func New(pop *population.Population, ref *fitness.PixelBuffer, rng *rand.Rand, cfg Config) (*Spawner, error) {
	if cfg.Factory == nil {
		f, err := paint.FactoryByName(paint.NameRaster, 0)
		if err != nil {
			return nil, err
		}
		cfg.Factory = f
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = fitness.CPU{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Spawner{
		cfg:    cfg,
		pop:    pop,
		ref:    ref,
		rng:    rng,
		logger: logger,
	}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuild stops all workers and creates a new set. The caller must hold
// s.mu, or be the constructor.
func (s *Spawner) rebuild() error {
	if s.cfg.Threads < 1 {
		return fmt.Errorf("%w: %d", population.ErrThreads, s.cfg.Threads)
	}
	if s.pop == nil || s.pop.Len() == 0 {
		return population.ErrEmpty
	}
	if s.ref == nil || s.ref.Width <= 0 || s.ref.Height <= 0 {
		return ErrReference
	}
	ranges, err := population.Partition(s.pop.Len(), s.cfg.Threads)
	if err != nil {
		return err
	}

	stopAll(s.workers)
	for _, w := range s.workers {
		s.retired += w.Passes()
		if k := w.ID(); k < len(s.renderers) {
			s.renderers[k] = w.Renderer()
		}
	}

	if len(s.renderers) < len(ranges) {
		s.renderers = append(s.renderers, make([]paint.Renderer, len(ranges)-len(s.renderers))...)
	}
	workers := make([]*climb.Worker, len(ranges))
	for k, r := range ranges {
		rend := s.renderers[k]
		if rend != nil {
			if w, h := rend.Size(); w != s.ref.Width || h != s.ref.Height {
				rend = nil
			}
		}
		if rend == nil {
			rend = s.cfg.Factory(s.ref.Width, s.ref.Height)
			s.renderers[k] = rend
		}
		workers[k] = climb.New(climb.Params{
			ID:         k,
			Population: s.pop,
			Tribe:      r,
			Renderer:   rend,
			Reference:  s.ref,
			Evaluator:  s.cfg.Evaluator,
			Rand:       rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64())),
			Config:     s.cfg.Climb,
			Logger:     s.logger,
		})
	}
	s.ranges = ranges
	s.workers = workers

	s.logger.Info("tribes created",
		"tribes", len(ranges),
		"genomes", s.pop.Len(),
		"width", s.ref.Width,
		"height", s.ref.Height)
	return nil
}

func (s *Spawner) snapshot() []*climb.Worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workers
}

// each runs f on all workers concurrently and waits for completion.
func each(workers []*climb.Worker, f func(w *climb.Worker)) {
	var g errgroup.Group
	for _, w := range workers {
		g.Go(func() error {
			f(w)
			return nil
		})
	}
	g.Wait()
}

func stopAll(workers []*climb.Worker) {
	each(workers, (*climb.Worker).Stop)
}

// StartAll starts every worker which has not been started yet.
func (s *Spawner) StartAll(ctx context.Context) {
	for _, w := range s.snapshot() {
		w.Start(ctx)
	}
}

// StopAll stops every worker and waits until all run loops have exited.
func (s *Spawner) StopAll() {
	stopAll(s.snapshot())
}

// PauseAll asks all workers to pause and waits until each of them has
// acknowledged. Every pass that was in progress has completed when PauseAll
// returns.
func (s *Spawner) PauseAll() {
	each(s.snapshot(), (*climb.Worker).Pause)
}

// UnpauseAll resumes all workers and waits until each of them has left the
// paused state.
func (s *Spawner) UnpauseAll() {
	each(s.snapshot(), (*climb.Worker).Unpause)
}

// StepOnce runs one pass of every worker, concurrently, independent of
// whether the workers are running.
func (s *Spawner) StepOnce(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range s.snapshot() {
		g.Go(func() error { return w.Pass(ctx) })
	}
	return g.Wait()
}

// IsAnyPaused reports whether at least one worker is paused.
func (s *Spawner) IsAnyPaused() bool {
	for _, w := range s.snapshot() {
		if w.State() == climb.Paused {
			return true
		}
	}
	return false
}

// AreAllPaused reports whether every worker is paused.
func (s *Spawner) AreAllPaused() bool {
	for _, w := range s.snapshot() {
		if w.State() != climb.Paused {
			return false
		}
	}
	return true
}

// Lock returns the exclusive lease on the population. All workers must be
// paused or stopped.
func (s *Spawner) Lock() (*population.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkQuiet(); err != nil {
		return nil, err
	}
	return s.pop.Acquire(), nil
}

// checkQuiet returns ErrNotPaused unless every worker is paused or stopped.
// The caller must hold s.mu.
func (s *Spawner) checkQuiet() error {
	for _, w := range s.workers {
		if st := w.State(); st != climb.Paused && st != climb.Stopped {
			return fmt.Errorf("%w: tribe %d is %s", ErrNotPaused, w.ID(), st)
		}
	}
	return nil
}

// Threads returns the number of tribes.
func (s *Spawner) Threads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ranges)
}

// Range returns the population range of tribe i.
func (s *Spawner) Range(i int) (population.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.ranges) {
		return population.Range{}, fmt.Errorf("%w: %d of %d", ErrTribeRange, i, len(s.ranges))
	}
	return s.ranges[i], nil
}

// GenomesOf returns the genomes of tribe i. The genomes may be modified by
// the worker while it runs.
func (s *Spawner) GenomesOf(i int) ([]*genome.Genome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.ranges) {
		return nil, fmt.Errorf("%w: %d of %d", ErrTribeRange, i, len(s.ranges))
	}
	r := s.ranges[i]
	out := make([]*genome.Genome, 0, r.Len())
	for j := r.Start; j < r.End; j++ {
		out = append(out, s.pop.Genome(j))
	}
	return out, nil
}

// Workers returns the current workers.
func (s *Spawner) Workers() []*climb.Worker {
	ws := s.snapshot()
	out := make([]*climb.Worker, len(ws))
	copy(out, ws)
	return out
}

// Passes returns the number of completed passes, including those of
// workers which have since been replaced.
func (s *Spawner) Passes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.retired
	for _, w := range s.workers {
		total += w.Passes()
	}
	return total
}

// Population returns the population being evolved.
func (s *Spawner) Population() *population.Population {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pop
}

// Reference returns the current reference image.
func (s *Spawner) Reference() *fitness.PixelBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref
}

// SetThreads changes the number of tribes. All workers are stopped and
// replaced by idle ones.
func (s *Spawner) SetThreads(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 {
		return fmt.Errorf("%w: %d", population.ErrThreads, n)
	}
	old := s.cfg.Threads
	s.cfg.Threads = n
	if err := s.rebuild(); err != nil {
		s.cfg.Threads = old
		return err
	}
	return nil
}

// SetReference installs a new reference image. All workers are stopped and
// replaced by idle ones. Renderers are replaced if the size changes.
func (s *Spawner) SetReference(ref *fitness.PixelBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref == nil || ref.Width <= 0 || ref.Height <= 0 {
		return ErrReference
	}
	old := s.ref
	s.ref = ref
	if err := s.rebuild(); err != nil {
		s.ref = old
		return err
	}
	return nil
}

// SetPopulation replaces the contents of the population by the given
// genomes, all unscored. All workers must be paused or stopped; they are
// then replaced by idle ones, re-partitioned for the new population size.
func (s *Spawner) SetPopulation(genomes []*genome.Genome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(genomes) == 0 {
		return population.ErrEmpty
	}
	if err := s.checkQuiet(); err != nil {
		return err
	}
	lease := s.pop.Acquire()
	err := lease.Replace(genomes)
	lease.Release()
	if err != nil {
		return err
	}
	return s.rebuild()
}
