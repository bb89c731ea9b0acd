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

package control

import (
	"math"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"seehuhn.de/go/evolve/population"
)

// Collector exports the counters of a controller as Prometheus metrics.
// Values are read when the registry is scraped.
type Collector struct {
	c *Controller

	passes    *prometheus.Desc
	rounds    *prometheus.Desc
	best      *prometheus.Desc
	worst     *prometheus.Desc
	mean      *prometheus.Desc
	tribeBest *prometheus.Desc
	running   *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for c. All metric names start with the
// given namespace.
func NewCollector(c *Controller, namespace string) *Collector {
	name := func(s string) string { return prometheus.BuildFQName(namespace, "", s) }
	return &Collector{
		c: c,
		passes: prometheus.NewDesc(name("hill_climb_passes_total"),
			"Number of completed hill-climbing passes.", nil, nil),
		rounds: prometheus.NewDesc(name("crossover_rounds_total"),
			"Number of completed crossover rounds.", nil, nil),
		best: prometheus.NewDesc(name("best_fitness"),
			"Lowest error in the population.", nil, nil),
		worst: prometheus.NewDesc(name("worst_fitness"),
			"Highest error in the population.", nil, nil),
		mean: prometheus.NewDesc(name("mean_fitness"),
			"Mean error of the scored genomes.", nil, nil),
		tribeBest: prometheus.NewDesc(name("tribe_best_fitness"),
			"Lowest error within a tribe.", []string{"tribe"}, nil),
		running: prometheus.NewDesc(name("running"),
			"1 if hill climbing is enabled, 0 if paused.", nil, nil),
	}
}

// Describe implements [prometheus.Collector].
func (m *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.passes
	ch <- m.rounds
	ch <- m.best
	ch <- m.worst
	ch <- m.mean
	ch <- m.tribeBest
	ch <- m.running
}

// Collect implements [prometheus.Collector]. Fitness values are omitted
// while nothing has been scored.
func (m *Collector) Collect(ch chan<- prometheus.Metric) {
	c := m.c
	ch <- prometheus.MustNewConstMetric(m.passes, prometheus.CounterValue, float64(c.HillClimbPasses()))
	ch <- prometheus.MustNewConstMetric(m.rounds, prometheus.CounterValue, float64(c.CrossoverRounds()))

	running := 0.0
	if c.State() == Running {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(m.running, prometheus.GaugeValue, running)

	if f := c.BestFitness(); f != population.Unscored {
		ch <- prometheus.MustNewConstMetric(m.best, prometheus.GaugeValue, float64(f))
	}
	if f := c.WorstFitness(); f != population.Unscored {
		ch <- prometheus.MustNewConstMetric(m.worst, prometheus.GaugeValue, float64(f))
	}
	if f := c.MeanFitness(); !math.IsNaN(f) {
		ch <- prometheus.MustNewConstMetric(m.mean, prometheus.GaugeValue, f)
	}
	for i := range c.Threads() {
		f, err := c.TribeBest(i)
		if err != nil || f == population.Unscored {
			continue
		}
		ch <- prometheus.MustNewConstMetric(m.tribeBest, prometheus.GaugeValue, float64(f), strconv.Itoa(i))
	}
}
