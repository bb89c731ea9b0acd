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

// Package genome implements the triangle encoding used by the evolution
// engine.
//
// A [Genome] is an ordered list of [Gene] values. The order is the painting
// order: gene 0 is drawn first and later genes are drawn on top. Every gene
// is a fixed-length array of integer fields, and crossover operates on the
// concatenation of these arrays, the genome's "DNA".
package genome

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrFull is returned by [Genome.Add] when the genome is at capacity.
var ErrFull = errors.New("genome: capacity reached")

// Genome is an ordered collection of genes with a fixed capacity.
//
// A Genome is not safe for concurrent use.
type Genome struct {
	genes    []Gene
	capacity int
}

// New returns an empty genome which can hold up to capacity genes.
func New(capacity int) *Genome {
	return &Genome{
		genes:    make([]Gene, 0, capacity),
		capacity: capacity,
	}
}

// FromGenes returns a genome holding a copy of the given genes, with
// capacity equal to their number.
func FromGenes(genes ...Gene) *Genome {
	g := New(len(genes))
	g.genes = append(g.genes, genes...)
	return g
}

// Random returns a genome filled to capacity with uniformly random genes.
func Random(rng *rand.Rand, capacity int, b Bounds) *Genome {
	g := New(capacity)
	for range capacity {
		g.genes = append(g.genes, RandomGene(rng, b))
	}
	return g
}

// RandomGene returns a gene with every field drawn uniformly from its
// legal range.
func RandomGene(rng *rand.Rand, b Bounds) Gene {
	var gene Gene
	for f := range gene {
		gene[f] = rng.IntN(b.Max(f) + 1)
	}
	return gene
}

// Len returns the number of genes.
func (g *Genome) Len() int { return len(g.genes) }

// Cap returns the maximal number of genes.
func (g *Genome) Cap() int { return g.capacity }

// Add appends a gene. If the genome is already at capacity, ErrFull is
// returned and g is not modified.
func (g *Genome) Add(gene Gene) error {
	if len(g.genes) >= g.capacity {
		return ErrFull
	}
	g.genes = append(g.genes, gene)
	return nil
}

// Gene returns a copy of gene i.
func (g *Genome) Gene(i int) Gene { return g.genes[i] }

// SetGene replaces gene i.
func (g *Genome) SetGene(i int, gene Gene) { g.genes[i] = gene }

// Field returns field f of gene i.
func (g *Genome) Field(i, f int) int { return g.genes[i][f] }

// SetField sets field f of gene i.
func (g *Genome) SetField(i, f, v int) { g.genes[i][f] = v }

// Genes returns a copy of all genes, in painting order.
func (g *Genome) Genes() []Gene {
	out := make([]Gene, len(g.genes))
	copy(out, g.genes)
	return out
}

// Clone returns a deep copy of g.
func (g *Genome) Clone() *Genome {
	c := New(g.capacity)
	c.genes = append(c.genes, g.genes...)
	return c
}

// CopyFrom overwrites g with the contents of src.
func (g *Genome) CopyFrom(src *Genome) {
	if g == src {
		return
	}
	g.capacity = src.capacity
	g.genes = append(g.genes[:0], src.genes...)
}

// Equal reports whether g and other hold the same genes in the same order.
// The capacity is not compared.
func (g *Genome) Equal(other *Genome) bool {
	if len(g.genes) != len(other.genes) {
		return false
	}
	for i := range g.genes {
		if g.genes[i] != other.genes[i] {
			return false
		}
	}
	return true
}

// Distance returns the number of fields in which g and other differ.
// If the genomes have different lengths, every field of the surplus genes
// counts as different.
func (g *Genome) Distance(other *Genome) int {
	n := min(len(g.genes), len(other.genes))
	d := DNALength * (max(len(g.genes), len(other.genes)) - n)
	for i := range n {
		a, b := &g.genes[i], &other.genes[i]
		for f := range DNALength {
			if a[f] != b[f] {
				d++
			}
		}
	}
	return d
}

// Valid reports whether every gene of g is within the given bounds.
func (g *Genome) Valid(b Bounds) bool {
	for i := range g.genes {
		if !g.genes[i].Valid(b) {
			return false
		}
	}
	return true
}

// DNALen returns the number of DNA positions, DNALength per gene.
func (g *Genome) DNALen() int { return len(g.genes) * DNALength }

// SwapDNA exchanges the DNA positions [start, end) between g and other, in
// place. Position p denotes field p%DNALength of gene p/DNALength.
//
// Positions are taken modulo the DNA length of the shorter genome, so a
// range at least as long as the whole DNA swaps every gene. Genes which are
// only partially inside the range have just the covered fields exchanged;
// all other genes in the range are exchanged as a whole.
func (g *Genome) SwapDNA(other *Genome, start, end int) {
	genes := min(len(g.genes), len(other.genes))
	n := genes * DNALength
	if n == 0 || end <= start || g == other {
		return
	}

	if end-start >= n {
		for i := range genes {
			g.genes[i], other.genes[i] = other.genes[i], g.genes[i]
		}
		return
	}

	pos := (start%n + n) % n
	for left := end - start; left > 0; {
		i, f := pos/DNALength, pos%DNALength
		k := min(DNALength-f, left)
		if k == DNALength {
			g.genes[i], other.genes[i] = other.genes[i], g.genes[i]
		} else {
			a, b := &g.genes[i], &other.genes[i]
			for j := f; j < f+k; j++ {
				a[j], b[j] = b[j], a[j]
			}
		}
		left -= k
		pos = (pos + k) % n
	}
}

func (g *Genome) String() string {
	return fmt.Sprintf("genome(%d/%d)", len(g.genes), g.capacity)
}
