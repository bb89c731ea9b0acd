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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestParseOverrides(t *testing.T) {
	c, err := Parse([]byte(`
threads: 3
sample_interval: 500ms
renderer: vector
background: "#102030"
sort_before_crossover: false
`))
	if err != nil {
		t.Fatal(err)
	}

	want := Default()
	want.Threads = 3
	want.SampleInterval = 500 * time.Millisecond
	want.Renderer = "vector"
	want.Background = "#102030"
	want.SortBeforeCrossover = false
	if d := cmp.Diff(want, c); d != "" {
		t.Errorf("config differs (-want +got):\n%s", d)
	}
	if bg := c.BackgroundColor(); bg != 0x102030 {
		t.Errorf("background %06x", bg)
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"threads", "threads: 0"},
		{"population", "population: -1"},
		{"renderer", "renderer: opengl"},
		{"background", "background: red"},
		{"seeded_fraction", "seeded_fraction: 1.5"},
		{"half_size", "width: 100"},
		{"sample_interval", "sample_interval: 0s"},
		{"plateau_divisor", "plateau_divisor: 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("got %v, want ErrInvalid", err)
			}
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte("threads: [1, 2"))
	if err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("got %v, want a parse error", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	c := Default()
	c.Seed = 42
	c.PollInterval = 10 * time.Millisecond
	data, err := c.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("%v\n%s", err, data)
	}
	if d := cmp.Diff(c, back); d != "" {
		t.Errorf("round trip differs (-want +got):\n%s", d)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"EVOLVE_THREADS":  "5",
		"EVOLVE_SEED":     "99",
		"EVOLVE_RENDERER": "vector",
	}
	c := Default()
	if err := c.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatal(err)
	}
	if c.Threads != 5 || c.Seed != 99 || c.Renderer != "vector" {
		t.Errorf("got threads=%d seed=%d renderer=%s", c.Threads, c.Seed, c.Renderer)
	}

	env["EVOLVE_POPULATION"] = "many"
	if err := c.applyEnv(func(k string) string { return env[k] }); !errors.Is(err, ErrInvalid) {
		t.Errorf("got %v, want ErrInvalid", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evolve.yaml")
	if err := os.WriteFile(path, []byte("population: 12\ntriangles: 50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EVOLVE_THREADS", "2")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Population != 12 || c.Triangles != 50 || c.Threads != 2 {
		t.Errorf("got population=%d triangles=%d threads=%d", c.Population, c.Triangles, c.Threads)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"#000000", 0, true},
		{"#FFffFF", 0xFFFFFF, true},
		{"#12ab9f", 0x12AB9F, true},
		{"123456", 0, false},
		{"#12345", 0, false},
		{"#12345g", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseColor(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("ParseColor(%q) = %06x, %v", tc.in, got, err)
		}
	}
}
