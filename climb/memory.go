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

package climb

import (
	"fmt"
	"math/rand/v2"

	"seehuhn.de/go/evolve/genome"
)

// multiplierGrowth is added to the step multiplier after every accepted
// mutation.
const multiplierGrowth = 0.5

// Memory is the directional mutation state of a worker. It remembers which
// field was changed last, and in which direction, so that a successful
// change is repeated with growing step size.
type Memory struct {
	Gene       int
	Field      int
	Step       int     // in [1, MaxStep]
	Direction  int     // +1 or -1
	Multiplier float64 // starts at 1
}

// resample picks a new random target among the first n genes and resets the
// multiplier.
func (m *Memory) resample(rng *rand.Rand, n, maxStep int) {
	m.Gene = rng.IntN(n)
	m.Field = rng.IntN(genome.DNALength)
	m.Step = 1 + rng.IntN(maxStep)
	m.Direction = 1
	if rng.IntN(2) == 0 {
		m.Direction = -1
	}
	m.Multiplier = 1
}

// delta returns the signed change to apply next.
func (m *Memory) delta() int {
	return int(float64(m.Step)*m.Multiplier) * m.Direction
}

// apply changes one field of g according to m and returns the previous
// value. When the step would leave the legal range it is tried in the
// opposite direction. If that fails too, a new target is drawn and the
// result is clamped, turning around if the clamped value equals the old
// one. On return, m.Gene and m.Field name the changed field.
//
// The second return value is false if the field could not be changed at
// all, which only happens for fields with an empty range.
func (m *Memory) apply(g *genome.Genome, b genome.Bounds, rng *rand.Rand, n, maxStep int) (int, bool) {
	old := g.Field(m.Gene, m.Field)
	hi := b.Max(m.Field)
	v := old + m.delta()
	if v < 0 || v > hi {
		m.Direction = -m.Direction
		v = old + m.delta()
	}
	if v < 0 || v > hi {
		m.resample(rng, n, maxStep)
		old = g.Field(m.Gene, m.Field)
		v = b.Clamp(m.Field, old+m.delta())
		if v == old {
			m.Direction = -m.Direction
			v = b.Clamp(m.Field, old+m.delta())
		}
	}
	g.SetField(m.Gene, m.Field, v)
	return old, v != old
}

func (m Memory) String() string {
	return fmt.Sprintf("gene %d field %d step %d×%.1f dir %+d",
		m.Gene, m.Field, m.Step, m.Multiplier, m.Direction)
}
