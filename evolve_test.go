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

package evolve

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"testing"
	"time"

	"seehuhn.de/go/evolve/config"
	"seehuhn.de/go/evolve/fitness"
	"seehuhn.de/go/evolve/population"
	"seehuhn.de/go/evolve/testcases"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Population = 8
	cfg.Triangles = 12
	cfg.Threads = 2
	cfg.MaxAttempts = 20
	cfg.Seed = 1
	cfg.SampleInterval = 3 * time.Millisecond
	cfg.PollInterval = time.Millisecond
	return cfg
}

func target(t *testing.T, category, name string) *fitness.PixelBuffer {
	t.Helper()
	tc, ok := testcases.Get(category, name)
	if !ok {
		t.Fatalf("test case %s/%s not found", category, name)
	}
	return tc.Render()
}

func newEngine(t *testing.T, cfg *config.Config, img image.Image) *Engine {
	t.Helper()
	e, err := New(cfg, img, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Stop)
	return e
}

func TestNewErrors(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	if _, err := New(testConfig(), nil, logger); !errors.Is(err, ErrNoTarget) {
		t.Errorf("nil target: %v", err)
	}
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := New(testConfig(), empty, logger); !errors.Is(err, ErrNoTarget) {
		t.Errorf("empty target: %v", err)
	}

	cfg := testConfig()
	cfg.Threads = 0
	img := target(t, "flat", "black")
	if _, err := New(cfg, img, logger); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("invalid config: %v", err)
	}
}

func TestPrepareTarget(t *testing.T) {
	img := target(t, "flat", "halves")

	same := PrepareTarget(img, 0, 0)
	if same.Width != img.Width || same.Height != img.Height {
		t.Fatalf("size %dx%d", same.Width, same.Height)
	}
	for i := range img.Pix {
		if same.Pix[i] != img.Pix[i] {
			t.Fatalf("pixel %d changed", i)
		}
	}

	small := PrepareTarget(img, 12, 8)
	if small.Width != 12 || small.Height != 8 {
		t.Fatalf("scaled size %dx%d", small.Width, small.Height)
	}
	near := func(got uint32, r, g, b int) bool {
		gr, gg, gb := fitness.Unpack(got)
		d := abs(int(gr)-r) + abs(int(gg)-g) + abs(int(gb)-b)
		return d <= 6
	}
	for y := range small.Height {
		if p := small.Pix[y*12]; !near(p, 30, 60, 150) {
			t.Errorf("row %d: left pixel %06x", y, p)
		}
		if p := small.Pix[y*12+11]; !near(p, 240, 240, 230) {
			t.Errorf("row %d: right pixel %06x", y, p)
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestNew(t *testing.T) {
	cfg := testConfig()
	cfg.Width, cfg.Height = 32, 32
	e := newEngine(t, cfg, target(t, "curves", "circle"))

	if e.Seed() != 1 {
		t.Errorf("seed %d", e.Seed())
	}
	if b := e.Bounds(); b.Width != 32 || b.Height != 32 {
		t.Errorf("bounds %v", b)
	}
	if e.Threads() != 2 {
		t.Errorf("%d threads", e.Threads())
	}
	snap := e.Snapshot()
	if len(snap) != cfg.Population {
		t.Fatalf("%d genomes", len(snap))
	}
	for i, g := range snap {
		if g.Len() != cfg.Triangles {
			t.Errorf("genome %d has %d genes", i, g.Len())
		}
		if !g.Valid(e.Bounds()) {
			t.Errorf("genome %d is out of bounds", i)
		}
	}
}

func TestRandomSeed(t *testing.T) {
	cfg := testConfig()
	cfg.Seed = 0
	e := newEngine(t, cfg, target(t, "flat", "black"))
	if e.Seed() == 0 {
		t.Error("no seed picked")
	}
}

func TestDeterministic(t *testing.T) {
	img := target(t, "shapes", "overlap")
	a := newEngine(t, testConfig(), img)
	b := newEngine(t, testConfig(), img)
	for _, e := range []*Engine{a, b} {
		for range 3 {
			if err := e.Step(context.Background()); err != nil {
				t.Fatal(err)
			}
		}
	}
	sa, sb := a.Snapshot(), b.Snapshot()
	for i := range sa {
		if !sa[i].Equal(sb[i]) {
			t.Errorf("genome %d differs between runs with the same seed", i)
		}
	}
	if a.BestFitness() != b.BestFitness() {
		t.Errorf("best fitness %d != %d", a.BestFitness(), b.BestFitness())
	}
}

func TestBestImage(t *testing.T) {
	e := newEngine(t, testConfig(), target(t, "flat", "single_triangle"))
	if img, f := e.BestImage(); img != nil || f != population.Unscored {
		t.Error("best image before scoring")
	}
	if err := e.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	img, f := e.BestImage()
	if img == nil {
		t.Fatal("no best image after a step")
	}
	if img.Bounds() != e.Reference().Bounds() {
		t.Errorf("best image has bounds %v", img.Bounds())
	}
	d, err := fitness.Score(e.Reference(), fitness.FromImage(img))
	if err != nil {
		t.Fatal(err)
	}
	if d != f {
		t.Errorf("best image has error %d, cached %d", d, f)
	}
}

func TestRunFor(t *testing.T) {
	e := newEngine(t, testConfig(), target(t, "flat", "halves"))
	if err := e.RunFor(context.Background(), 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if e.HillClimbPasses() == 0 {
		t.Error("no passes completed")
	}
	if img, _ := e.BestImage(); img == nil {
		t.Error("no best image after the run")
	}
}

func TestRestartAndSetTarget(t *testing.T) {
	e := newEngine(t, testConfig(), target(t, "flat", "halves"))
	if err := e.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := e.Restart(); err != nil {
		t.Fatal(err)
	}
	if e.BestFitness() != population.Unscored {
		t.Error("restarted population carries fitness values")
	}

	if err := e.SetTarget(nil); !errors.Is(err, ErrNoTarget) {
		t.Errorf("SetTarget(nil): %v", err)
	}
	big := target(t, "large", "stripes")
	if err := e.SetTarget(big); err != nil {
		t.Fatal(err)
	}
	if r := e.Reference(); r.Width != 48 || r.Height != 32 {
		t.Errorf("reference is %dx%d after SetTarget", r.Width, r.Height)
	}
	if err := e.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
}
