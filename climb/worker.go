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

// Package climb implements the hill-climbing worker which improves the
// genomes of one tribe.
//
// A worker repeatedly runs passes over its tribe. In every pass each genome
// receives mutations until one of them does not increase the error, or
// until the attempt budget is used up. Rejected mutations are undone, so a
// pass never makes a genome worse.
//
// Workers can be paused. A pause request takes effect between passes, and
// [Worker.Pause] only returns once the worker has acknowledged it. While a
// worker is paused, its tribe may be modified by other parties.
package climb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"seehuhn.de/go/evolve/fitness"
	"seehuhn.de/go/evolve/genome"
	"seehuhn.de/go/evolve/paint"
	"seehuhn.de/go/evolve/population"
)

// State is the lifecycle state of a worker.
type State int32

// These are the states of a [Worker].
const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config holds the search parameters of a worker.
type Config struct {
	// MaxStep is the largest initial step of a mutation.
	MaxStep int

	// MaxAttempts bounds the number of mutations tried per genome and pass.
	// Zero means no bound.
	MaxAttempts int

	// DrawLimit is the number of genes rendered and mutated.
	// A negative value means all genes.
	DrawLimit int
}

// Params collects the dependencies of a worker.
type Params struct {
	ID         int
	Population *population.Population
	Tribe      population.Range
	Renderer   paint.Renderer
	Reference  *fitness.PixelBuffer
	Evaluator  fitness.Evaluator
	Rand       *rand.Rand
	Config     Config
	Logger     *slog.Logger
}

// Worker is a hill climber for one tribe.
type Worker struct {
	id       int
	pop      *population.Population
	tribe    population.Range
	renderer paint.Renderer
	ref      *fitness.PixelBuffer
	eval     fitness.Evaluator
	rng      *rand.Rand
	bounds   genome.Bounds
	cfg      Config
	logger   *slog.Logger

	// passMu serialises passes of the run loop and of [Worker.Pass].
	passMu sync.Mutex
	mem    Memory

	mu       sync.Mutex
	cond     *sync.Cond
	state    State
	pauseReq bool
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	err      error

	passes atomic.Int64
}

// New returns an idle worker.
func New(p Params) *Worker {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := p.Config
	cfg.MaxStep = max(cfg.MaxStep, 1)
	w := &Worker{
		id:       p.ID,
		pop:      p.Population,
		tribe:    p.Tribe,
		renderer: p.Renderer,
		ref:      p.Reference,
		eval:     p.Evaluator,
		rng:      p.Rand,
		bounds:   genome.Bounds{Width: p.Reference.Width, Height: p.Reference.Height},
		cfg:      cfg,
		logger:   logger.With("worker", p.ID),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// ID returns the tribe number of w.
func (w *Worker) ID() int { return w.id }

// Tribe returns the population range owned by w.
func (w *Worker) Tribe() population.Range { return w.tribe }

// Renderer returns the renderer used by w.
func (w *Worker) Renderer() paint.Renderer { return w.renderer }

// Passes returns the number of completed passes.
func (w *Worker) Passes() int64 { return w.passes.Load() }

// Memory returns the current mutation memory.
func (w *Worker) Memory() Memory {
	w.passMu.Lock()
	defer w.passMu.Unlock()
	return w.mem
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err returns the evaluation error which stopped the worker, if any.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Start launches the run loop. If a pause was requested before, the worker
// starts out paused. Start has no effect on a worker which has been started
// or stopped before.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.state == Stopped {
		return
	}
	w.started = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	if w.pauseReq {
		w.state = Paused
	} else {
		w.state = Running
	}
	w.cond.Broadcast()
	w.logger.Info("worker started", "tribe", w.tribe.String(), "state", w.state.String())
	go w.run(ctx)
}

// Pause asks the worker to stop after the current pass and waits until it
// has done so. Pausing an idle worker takes effect immediately.
func (w *Worker) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pauseReq = true
	if !w.started {
		if w.state == Idle {
			w.state = Paused
			w.cond.Broadcast()
		}
		return
	}
	for w.state != Paused && w.state != Stopped {
		w.cond.Wait()
	}
}

// Unpause withdraws a pause request and waits until the worker has resumed.
// An unpaused worker which was never started returns to the idle state.
func (w *Worker) Unpause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pauseReq = false
	if !w.started {
		if w.state == Paused {
			w.state = Idle
		}
		return
	}
	w.cond.Broadcast()
	for w.state == Paused {
		w.cond.Wait()
	}
}

// Stop terminates the worker. A pass in progress is abandoned between two
// mutation attempts, with the current genome restored. Stop waits for the
// run loop to exit. Stopped is a terminal state.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.pauseReq = false
	if !w.started {
		w.state = Stopped
		w.cond.Broadcast()
		w.mu.Unlock()
		return
	}
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
}

func (w *Worker) run(ctx context.Context) {
	stopWake := context.AfterFunc(ctx, func() {
		w.mu.Lock()
		w.cond.Broadcast()
		w.mu.Unlock()
	})
	defer func() {
		stopWake()
		w.mu.Lock()
		w.state = Stopped
		w.cond.Broadcast()
		w.mu.Unlock()
		w.logger.Info("worker stopped", "passes", w.passes.Load())
		close(w.done)
	}()

	for w.awaitRunnable(ctx) {
		err := w.Pass(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
			w.mu.Lock()
			w.err = err
			w.mu.Unlock()
			w.logger.Error("evaluation failed", "error", err)
		}
		return
	}
}

// awaitRunnable parks the worker while a pause is requested. It returns
// false once the worker should exit.
func (w *Worker) awaitRunnable(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		if ctx.Err() != nil {
			return false
		}
		if !w.pauseReq {
			break
		}
		if w.state != Paused {
			w.state = Paused
			w.cond.Broadcast()
		}
		w.cond.Wait()
	}
	if w.state != Running {
		w.state = Running
		w.cond.Broadcast()
	}
	return true
}

// Pass runs one hill-climbing pass over every genome of the tribe. It may be
// called directly to single-step a worker which is not running.
//
// Pass panics if the population is leased, since then the tribe may be
// changed concurrently.
func (w *Worker) Pass(ctx context.Context) error {
	w.passMu.Lock()
	defer w.passMu.Unlock()
	if w.pop.Leased() {
		panic("climb: pass started while the population is leased")
	}

	for i := w.tribe.Start; i < w.tribe.End; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.evolve(ctx, i); err != nil {
			return err
		}
	}
	w.passes.Add(1)
	return nil
}

// evolve mutates genome i until a mutation is accepted or the attempts are
// exhausted.
func (w *Worker) evolve(ctx context.Context, i int) error {
	g := w.pop.Genome(i)
	before, err := w.score(ctx, g)
	if err != nil {
		return err
	}
	w.pop.SetFitness(i, before)

	n := g.Len()
	if w.cfg.DrawLimit >= 0 {
		n = min(n, w.cfg.DrawLimit)
	}
	if n == 0 {
		return nil
	}
	m := &w.mem
	if m.Step == 0 || m.Gene >= n {
		m.resample(w.rng, n, w.cfg.MaxStep)
	}

	for attempt := 0; w.cfg.MaxAttempts == 0 || attempt < w.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		old, ok := m.apply(g, w.bounds, w.rng, n, w.cfg.MaxStep)
		if !ok {
			m.resample(w.rng, n, w.cfg.MaxStep)
			continue
		}
		after, err := w.score(ctx, g)
		if err != nil {
			g.SetField(m.Gene, m.Field, old)
			return err
		}
		if after > before {
			g.SetField(m.Gene, m.Field, old)
			m.resample(w.rng, n, w.cfg.MaxStep)
			continue
		}

		m.Multiplier += multiplierGrowth
		w.pop.SetFitness(i, after)
		return nil
	}
	return nil
}

func (w *Worker) score(ctx context.Context, g *genome.Genome) (int64, error) {
	cand := w.renderer.Render(g, w.cfg.DrawLimit)
	return w.eval.Evaluate(ctx, w.ref, cand)
}
