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

// Package evolve approximates images by overlapping translucent triangles.
//
// A population of candidate images, each described by a list of triangles,
// is improved by parallel hill climbing. When progress stalls, the
// candidates exchange runs of triangles by crossover.
//
// [New] assembles a ready-to-run [Engine] from a configuration and a target
// image. The building blocks live in the sub-packages genome, fitness,
// paint, population, climb, tribe, crossover and control.
package evolve

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"seehuhn.de/go/evolve/climb"
	"seehuhn.de/go/evolve/config"
	"seehuhn.de/go/evolve/control"
	"seehuhn.de/go/evolve/fitness"
	"seehuhn.de/go/evolve/genome"
	"seehuhn.de/go/evolve/paint"
	"seehuhn.de/go/evolve/population"
	"seehuhn.de/go/evolve/tribe"
)

// ErrNoTarget indicates a missing or empty target image.
var ErrNoTarget = errors.New("evolve: empty target image")

// Engine is an evolution run for one target image.
//
// The embedded controller provides the run-time operations: Run, Start,
// Pause, Stop, the counters and reconfiguration.
type Engine struct {
	*control.Controller

	cfg     *config.Config
	factory paint.Factory
	seed    uint64

	mu  sync.Mutex
	ref *fitness.PixelBuffer
	rng *rand.Rand // for Restart; the controller has its own
}

// New prepares an evolution run.
//
// The target is scaled to the configured working size and the initial
// population is generated: a fraction cfg.SeededFraction of the genomes is
// seeded from the target, the rest is random. A nil cfg means
// [config.Default].
func New(cfg *config.Config, target image.Image, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if target == nil || target.Bounds().Empty() {
		return nil, ErrNoTarget
	}

	factory, err := paint.FactoryByName(cfg.Renderer, cfg.BackgroundColor())
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	for seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	ref := PrepareTarget(target, cfg.Width, cfg.Height)
	genomes := initialPopulation(rng, cfg, ref)
	pop, err := population.New(genomes)
	if err != nil {
		return nil, err
	}

	s, err := tribe.New(pop, ref, rng, tribe.Config{
		Threads: cfg.Threads,
		Climb: climb.Config{
			MaxStep:     cfg.MaxStep,
			MaxAttempts: cfg.MaxAttempts,
			DrawLimit:   cfg.DrawLimit,
		},
		Factory:   factory,
		Evaluator: newEvaluator(cfg),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	ctl := control.New(s, rng, control.Config{
		SampleInterval:      cfg.SampleInterval,
		PollInterval:        cfg.PollInterval,
		PlateauDivisor:      cfg.PlateauDivisor,
		SortBeforeCrossover: cfg.SortBeforeCrossover,
	}, logger)

	logger.Info("evolution prepared",
		"width", ref.Width,
		"height", ref.Height,
		"population", cfg.Population,
		"triangles", cfg.Triangles,
		"threads", cfg.Threads,
		"renderer", cfg.Renderer,
		"seed", seed)

	return &Engine{
		Controller: ctl,
		cfg:        cfg,
		ref:        ref,
		factory:    factory,
		rng:        rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())),
		seed:       seed,
	}, nil
}

// PrepareTarget converts img to a pixel buffer of size w×h, scaling with a
// Catmull-Rom filter where needed. If w and h are zero, the size of img is
// kept. Translucent pixels are composed onto black.
func PrepareTarget(img image.Image, w, h int) *fitness.PixelBuffer {
	b := img.Bounds()
	if w <= 0 || h <= 0 || (w == b.Dx() && h == b.Dy()) {
		return fitness.FromImage(img)
	}
	dst := fitness.NewPixelBuffer(w, h)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func newEvaluator(cfg *config.Config) fitness.Evaluator {
	var ev fitness.Evaluator = fitness.CPU{}
	if cfg.EvalBands > 1 {
		ev = fitness.Parallel{Workers: cfg.EvalBands}
	}
	if cfg.MaxConcurrentEvals > 0 {
		ev = fitness.NewLimited(ev, int64(cfg.MaxConcurrentEvals))
	}
	return ev
}

func initialPopulation(rng *rand.Rand, cfg *config.Config, ref *fitness.PixelBuffer) []*genome.Genome {
	b := genome.Bounds{Width: ref.Width, Height: ref.Height}
	seeded := int(math.Round(cfg.SeededFraction * float64(cfg.Population)))
	genomes := make([]*genome.Genome, cfg.Population)
	for i := range genomes {
		if i < seeded {
			genomes[i] = genome.Seeded(rng, cfg.Triangles, b, ref)
		} else {
			genomes[i] = genome.Random(rng, cfg.Triangles, b)
		}
	}
	return genomes
}

// Seed returns the seed of the random generators. If the configuration
// asked for a random seed, this is the seed which was picked.
func (e *Engine) Seed() uint64 { return e.seed }

// Config returns the configuration of the run.
func (e *Engine) Config() *config.Config { return e.cfg }

// Reference returns the scaled target image.
func (e *Engine) Reference() *fitness.PixelBuffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ref
}

// Bounds returns the coordinate ranges of the genes.
func (e *Engine) Bounds() genome.Bounds {
	ref := e.Reference()
	return genome.Bounds{Width: ref.Width, Height: ref.Height}
}

// Render draws g at the working size, honouring the configured draw limit.
func (e *Engine) Render(g *genome.Genome) *fitness.PixelBuffer {
	b := e.Bounds()
	return e.factory(b.Width, b.Height).Render(g, e.cfg.DrawLimit)
}

// BestImage renders the best genome of the population. It returns nil and
// population.Unscored if no genome has been scored yet.
func (e *Engine) BestImage() (*image.RGBA, int64) {
	g, f := e.Best()
	if g == nil {
		return nil, f
	}
	return e.Render(g).ToImage(), f
}

// SetTarget replaces the target image. The new image is scaled to the
// current working size, so that all genes stay valid.
func (e *Engine) SetTarget(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return ErrNoTarget
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ref := PrepareTarget(img, e.ref.Width, e.ref.Height)
	if err := e.SetReference(ref); err != nil {
		return err
	}
	e.ref = ref
	return nil
}

// Restart replaces the population by a freshly generated one.
func (e *Engine) Restart() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ResetPopulation(initialPopulation(e.rng, e.cfg, e.ref))
}

// RunFor starts hill climbing and runs the control loop until d has
// elapsed or ctx is cancelled. A non-positive d means no time limit.
// All workers are stopped when RunFor returns.
func (e *Engine) RunFor(ctx context.Context, d time.Duration) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	e.Start()
	return e.Run(ctx)
}
