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

// Package config holds the settings of an evolution run.
//
// Settings are read from YAML. Fields missing from the file keep their
// default values, and a few fields can be overridden from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"seehuhn.de/go/evolve/paint"
)

// ErrInvalid indicates a configuration which fails validation.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete configuration of an evolution run.
type Config struct {
	// Width and Height give the working size, to which the target image is
	// scaled. Zero keeps the size of the target.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	Population int `yaml:"population"`
	Triangles  int `yaml:"triangles"`
	Threads    int `yaml:"threads"`

	// DrawLimit is the number of genes which are rendered and mutated.
	// A negative value means all of them.
	DrawLimit   int `yaml:"draw_limit"`
	MaxStep     int `yaml:"max_step"`
	MaxAttempts int `yaml:"max_attempts"`

	SampleInterval      time.Duration `yaml:"sample_interval"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	PlateauDivisor      float64       `yaml:"plateau_divisor"`
	SortBeforeCrossover bool          `yaml:"sort_before_crossover"`

	// Seed initialises all random generators. Zero picks a random seed.
	Seed uint64 `yaml:"seed"`

	// SeededFraction is the fraction of the initial population built from
	// the target image rather than at random.
	SeededFraction float64 `yaml:"seeded_fraction"`

	// EvalBands splits every fitness evaluation into this many concurrent
	// bands. Values below 2 evaluate on the worker's goroutine.
	EvalBands int `yaml:"eval_bands"`

	// MaxConcurrentEvals bounds the number of fitness evaluations running
	// at the same time. Zero means no bound.
	MaxConcurrentEvals int `yaml:"max_concurrent_evals"`

	Renderer   string `yaml:"renderer"`
	Background string `yaml:"background"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Width:               0,
		Height:              0,
		Population:          64,
		Triangles:           200,
		Threads:             8,
		DrawLimit:           -1,
		MaxStep:             10,
		MaxAttempts:         1000,
		SampleInterval:      2 * time.Second,
		PollInterval:        50 * time.Millisecond,
		PlateauDivisor:      16,
		SortBeforeCrossover: true,
		Seed:                0,
		SeededFraction:      0.5,
		EvalBands:           0,
		MaxConcurrentEvals:  0,
		Renderer:            paint.NameRaster,
		Background:          "#000000",
	}
}

// Parse reads a YAML configuration. Fields not present keep their default
// values. The result is validated.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads a YAML configuration file and applies environment overrides.
// An empty path gives the default configuration.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv overrides settings from EVOLVE_* environment variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"EVOLVE_THREADS", &c.Threads},
		{"EVOLVE_POPULATION", &c.Population},
		{"EVOLVE_TRIANGLES", &c.Triangles},
	}
	for _, e := range ints {
		v := getenv(e.name)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, e.name, err)
		}
		*e.dst = i
	}
	if v := getenv("EVOLVE_SEED"); v != "" {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: EVOLVE_SEED: %w", ErrInvalid, err)
		}
		c.Seed = s
	}
	if v := getenv("EVOLVE_RENDERER"); v != "" {
		c.Renderer = v
	}
	return nil
}

// Validate checks the configuration. All errors wrap ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Width >= 0 && c.Height >= 0, "negative size %dx%d", c.Width, c.Height)
	check((c.Width == 0) == (c.Height == 0), "width and height must both be set or both be zero")
	check(c.Population >= 1, "population must be >= 1, got %d", c.Population)
	check(c.Triangles >= 1, "triangles must be >= 1, got %d", c.Triangles)
	check(c.Threads >= 1, "threads must be >= 1, got %d", c.Threads)
	check(c.MaxStep >= 1, "max_step must be >= 1, got %d", c.MaxStep)
	check(c.MaxAttempts >= 0, "max_attempts must be >= 0, got %d", c.MaxAttempts)
	check(c.SampleInterval > 0, "sample_interval must be positive")
	check(c.PollInterval > 0, "poll_interval must be positive")
	check(c.PlateauDivisor > 0, "plateau_divisor must be positive")
	check(c.SeededFraction >= 0 && c.SeededFraction <= 1,
		"seeded_fraction must be in [0, 1], got %g", c.SeededFraction)
	check(c.EvalBands >= 0, "eval_bands must be >= 0, got %d", c.EvalBands)
	check(c.MaxConcurrentEvals >= 0, "max_concurrent_evals must be >= 0, got %d", c.MaxConcurrentEvals)
	if _, err := paint.FactoryByName(c.Renderer, 0); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseColor(c.Background); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// BackgroundColor returns the background as a packed RGB value.
func (c *Config) BackgroundColor() uint32 {
	p, _ := ParseColor(c.Background)
	return p
}

// ParseColor parses a colour of the form "#RRGGBB".
func ParseColor(s string) (uint32, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || len(hex) != 6 {
		return 0, fmt.Errorf("colour %q is not of the form #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("colour %q: %w", s, err)
	}
	return uint32(v), nil
}

// Marshal returns the YAML form of c.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
