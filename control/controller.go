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

// Package control drives an evolution run.
//
// The [Controller] alternates between two phases. While hill climbing, the
// tribe workers run and the controller samples the mean fitness of the
// population at regular intervals. Once the improvement between two samples
// drops well below the largest improvement seen so far, the workers are
// paused and a round of crossover mixes genomes across tribes.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"seehuhn.de/go/evolve/crossover"
	"seehuhn.de/go/evolve/fitness"
	"seehuhn.de/go/evolve/genome"
	"seehuhn.de/go/evolve/population"
	"seehuhn.de/go/evolve/tribe"
)

// State tells whether the controller lets the workers run.
type State int32

// These are the states of a [Controller].
const (
	Paused State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Phase is the current activity of a running controller.
type Phase int32

// These are the phases of a [Controller].
const (
	HillClimbing Phase = iota
	Crossover
)

func (p Phase) String() string {
	switch p {
	case HillClimbing:
		return "hill-climbing"
	case Crossover:
		return "crossover"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

var (
	// ErrRunning is returned by operations which need a paused controller.
	ErrRunning = errors.New("control: controller is running")

	// ErrStopped is returned by [Controller.Run] after [Controller.Stop].
	ErrStopped = errors.New("control: controller has been stopped")
)

// Config holds the timing and crossover settings.
type Config struct {
	SampleInterval      time.Duration
	PollInterval        time.Duration
	PlateauDivisor      float64
	SortBeforeCrossover bool
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		SampleInterval:      2 * time.Second,
		PollInterval:        50 * time.Millisecond,
		PlateauDivisor:      16,
		SortBeforeCrossover: true,
	}
}

// Controller runs the evolution loop.
type Controller struct {
	spawner *tribe.Spawner
	engine  *crossover.Engine
	rng     *rand.Rand
	cfg     Config
	logger  *slog.Logger

	state  atomic.Int32
	phase  atomic.Int32
	rounds atomic.Int64

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	finished chan struct{}
	started  atomic.Bool

	// mu serialises the loop's work with the public operations.
	mu           sync.Mutex
	crossoverDue bool
	hasBaseline  bool
	lastMean     float64
	maxDelta     float64
}

// New returns a paused controller. The engine and the crossover count draw
// from rng.
func New(s *tribe.Spawner, rng *rand.Rand, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = def.SampleInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.PlateauDivisor <= 0 {
		cfg.PlateauDivisor = def.PlateauDivisor
	}
	c := &Controller{
		spawner:  s,
		engine:   crossover.New(rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))),
		rng:      rng,
		cfg:      cfg,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	c.state.Store(int32(Paused))
	c.phase.Store(int32(HillClimbing))
	return c
}

// Run executes the control loop until ctx is cancelled or Stop is called.
// On return all workers have been stopped. Run may be called only once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("control: Run called twice")
	}
	defer close(c.finished)
	defer c.spawner.StopAll()

	select {
	case <-c.stop:
		return ErrStopped
	default:
	}

	c.logger.Info("controller loop started",
		"sample_interval", c.cfg.SampleInterval,
		"poll_interval", c.cfg.PollInterval)

	poll := time.NewTicker(c.cfg.PollInterval)
	defer poll.Stop()
	sample := time.NewTicker(c.cfg.SampleInterval)
	defer sample.Stop()

	for {
		c.tick(ctx)

		select {
		case <-ctx.Done():
			c.logger.Info("controller loop cancelled")
			return nil
		case <-c.stop:
			c.logger.Info("controller loop stopped")
			return nil
		case <-c.wake:
		case <-poll.C:
		case <-sample.C:
			c.sample()
		}
	}
}

// tick brings the workers in line with the requested state and performs a
// pending crossover.
func (c *Controller) tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != Running {
		if !c.spawner.AreAllPaused() {
			c.spawner.PauseAll()
		}
		return
	}

	c.spawner.StartAll(ctx)
	if c.spawner.IsAnyPaused() {
		c.spawner.UnpauseAll()
		c.checkResumed()
	}
	if c.crossoverDue {
		c.crossover()
	}
}

// sample records the mean fitness and detects plateaus.
func (c *Controller) sample() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != Running {
		return
	}
	mean, ok := c.spawner.Population().MeanFitness()
	if !ok {
		return
	}
	if c.hasBaseline {
		delta := math.Abs(mean - c.lastMean)
		c.maxDelta = max(c.maxDelta, delta)
		if c.maxDelta > 0 && delta < c.maxDelta/c.cfg.PlateauDivisor {
			c.crossoverDue = true
		}
		c.logger.Debug("fitness sample",
			"mean", mean,
			"delta", delta,
			"max_delta", c.maxDelta,
			"plateau", c.crossoverDue)
	}
	c.lastMean = mean
	c.hasBaseline = true
}

// crossover runs one crossover round. The caller must hold c.mu.
func (c *Controller) crossover() {
	c.phase.Store(int32(Crossover))
	defer c.phase.Store(int32(HillClimbing))

	c.spawner.PauseAll()
	lease, err := c.spawner.Lock()
	if err != nil {
		panic(fmt.Sprintf("control: workers not paused for crossover: %v", err))
	}
	if c.cfg.SortBeforeCrossover {
		lease.SortByFitness()
	}
	n := lease.Len()
	count := 1
	if n/8 > 0 {
		count = max(1, c.rng.IntN(n/8))
	}
	crossed := c.engine.Cross(lease, count)
	lease.Release()

	c.spawner.UnpauseAll()
	c.checkResumed()

	round := c.rounds.Add(1)
	c.crossoverDue = false
	c.hasBaseline = false
	c.logger.Info("crossover round", "round", round, "pairs", crossed)
}

// checkResumed panics if a worker is still paused although the controller
// is running. The caller must hold c.mu.
func (c *Controller) checkResumed() {
	if c.State() == Running && c.spawner.IsAnyPaused() {
		panic("control: worker still paused after unpause")
	}
}

func (c *Controller) resetBaseline() {
	c.hasBaseline = false
	c.maxDelta = 0
	c.crossoverDue = false
}

func (c *Controller) nudge() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Start requests hill climbing to begin or continue.
func (c *Controller) Start() {
	c.state.Store(int32(Running))
	c.nudge()
}

// Pause requests all workers to pause. The request is carried out by the
// loop within one poll interval, after the workers finish their passes.
func (c *Controller) Pause() {
	c.state.Store(int32(Paused))
	c.nudge()
}

// Unpause is equivalent to [Controller.Start].
func (c *Controller) Unpause() { c.Start() }

// Stop terminates the loop and stops all workers. This is the only way to
// release the workers for good. Stop waits for Run to return.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		c.logger.Info("controller stop requested")
	})
	if c.started.Load() {
		<-c.finished
	} else {
		c.spawner.StopAll()
	}
}

// Step runs a single pass of every worker. The controller must be paused.
func (c *Controller) Step(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == Running {
		return ErrRunning
	}
	c.spawner.PauseAll()
	return c.spawner.StepOnce(ctx)
}

// Snapshot returns copies of all genomes in population order. Workers are
// paused while the copy is taken.
func (c *Controller) Snapshot() []*genome.Genome {
	var snap []*genome.Genome
	c.withLease(func(l *population.Lease) {
		snap = l.Snapshot()
	})
	return snap
}

// Best returns a copy of the genome with the lowest error, together with
// its error. If no genome has been scored yet, Best returns nil and
// population.Unscored.
func (c *Controller) Best() (*genome.Genome, int64) {
	var best *genome.Genome
	bestFitness := population.Unscored
	c.withLease(func(l *population.Lease) {
		idx := -1
		for i := range l.Len() {
			f := l.Fitness(i)
			if f != population.Unscored && (idx < 0 || f < bestFitness) {
				idx, bestFitness = i, f
			}
		}
		if idx >= 0 {
			best = l.Genome(idx).Clone()
		}
	})
	return best, bestFitness
}

// withLease pauses the workers, calls f with exclusive access to the
// population and resumes the workers if the controller is running.
func (c *Controller) withLease(f func(l *population.Lease)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.spawner.PauseAll()
	lease, err := c.spawner.Lock()
	if err != nil {
		panic(fmt.Sprintf("control: workers not paused: %v", err))
	}
	f(lease)
	lease.Release()

	if c.State() == Running {
		c.spawner.UnpauseAll()
		c.checkResumed()
	}
}

// SetThreads changes the number of tribes.
func (c *Controller) SetThreads(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spawner.PauseAll()
	if err := c.spawner.SetThreads(n); err != nil {
		return err
	}
	c.resetBaseline()
	c.nudge()
	c.logger.Info("tribes reconfigured", "threads", n)
	return nil
}

// SetReference installs a new target image.
func (c *Controller) SetReference(ref *fitness.PixelBuffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spawner.PauseAll()
	if err := c.spawner.SetReference(ref); err != nil {
		return err
	}
	c.resetBaseline()
	c.nudge()
	c.logger.Info("reference replaced", "width", ref.Width, "height", ref.Height)
	return nil
}

// ResetPopulation replaces all genomes.
func (c *Controller) ResetPopulation(genomes []*genome.Genome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(genomes) == 0 {
		return population.ErrEmpty
	}
	c.spawner.PauseAll()
	if err := c.spawner.SetPopulation(genomes); err != nil {
		return err
	}
	c.resetBaseline()
	c.nudge()
	c.logger.Info("population reset", "genomes", len(genomes))
	return nil
}

// State returns the requested state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return Phase(c.phase.Load()) }

// HillClimbPasses returns the number of completed worker passes.
func (c *Controller) HillClimbPasses() int64 { return c.spawner.Passes() }

// CrossoverRounds returns the number of completed crossover rounds.
func (c *Controller) CrossoverRounds() int64 { return c.rounds.Load() }

// BestFitness returns the lowest error in the population, or
// population.Unscored.
func (c *Controller) BestFitness() int64 {
	_, f := c.spawner.Population().Best()
	return f
}

// WorstFitness returns the highest error in the population, or
// population.Unscored.
func (c *Controller) WorstFitness() int64 {
	_, f := c.spawner.Population().Worst()
	return f
}

// MeanFitness returns the mean error of the scored genomes, or NaN.
func (c *Controller) MeanFitness() float64 {
	m, ok := c.spawner.Population().MeanFitness()
	if !ok {
		return math.NaN()
	}
	return m
}

// TribeBest returns the lowest error within tribe i.
func (c *Controller) TribeBest(i int) (int64, error) {
	r, err := c.spawner.Range(i)
	if err != nil {
		return 0, err
	}
	_, f := c.spawner.Population().BestIn(r)
	return f, nil
}

// TribeWorst returns the highest error within tribe i.
func (c *Controller) TribeWorst(i int) (int64, error) {
	r, err := c.spawner.Range(i)
	if err != nil {
		return 0, err
	}
	_, f := c.spawner.Population().WorstIn(r)
	return f, nil
}

// Threads returns the number of tribes.
func (c *Controller) Threads() int { return c.spawner.Threads() }
