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

// Package fitness measures how far a rendered candidate is from the
// reference image.
//
// The error of a candidate is the sum, over all pixels, of the Euclidean
// distance between the candidate's and the reference's RGB values, each
// distance rounded down to an integer. Lower is better, and identical
// images have error 0.
package fitness

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrEmpty indicates a buffer without pixels.
	ErrEmpty = errors.New("fitness: empty pixel buffer")

	// ErrFormat indicates a buffer whose pixel slice does not match its
	// dimensions.
	ErrFormat = errors.New("fitness: malformed pixel buffer")

	// ErrSizeMismatch indicates that two buffers have different sizes.
	ErrSizeMismatch = errors.New("fitness: buffer sizes differ")
)

// Evaluator computes the error of a candidate image.
// Implementations must return the same value as [Score].
type Evaluator interface {
	Evaluate(ctx context.Context, ref, cand *PixelBuffer) (int64, error)
}

// Score returns the error of cand relative to ref.
// The result is symmetric in its arguments.
func Score(ref, cand *PixelBuffer) (int64, error) {
	if err := checkCompatible(ref, cand); err != nil {
		return 0, err
	}
	return sumDistances(ref.Pix, cand.Pix), nil
}

// CPU evaluates candidates on the calling goroutine.
type CPU struct{}

// Evaluate implements [Evaluator].
func (CPU) Evaluate(_ context.Context, ref, cand *PixelBuffer) (int64, error) {
	return Score(ref, cand)
}

// Parallel splits the image into horizontal bands which are evaluated
// concurrently.
type Parallel struct {
	// Workers is the number of bands. Values below 2 evaluate on the
	// calling goroutine.
	Workers int
}

// Evaluate implements [Evaluator].
func (p Parallel) Evaluate(ctx context.Context, ref, cand *PixelBuffer) (int64, error) {
	if err := checkCompatible(ref, cand); err != nil {
		return 0, err
	}
	bands := min(p.Workers, ref.Height)
	if bands < 2 {
		return sumDistances(ref.Pix, cand.Pix), nil
	}

	partial := make([]int64, bands)
	g, ctx := errgroup.WithContext(ctx)
	for k := range bands {
		from := k * ref.Height / bands * ref.Width
		to := (k + 1) * ref.Height / bands * ref.Width
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partial[k] = sumDistances(ref.Pix[from:to], cand.Pix[from:to])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, s := range partial {
		total += s
	}
	return total, nil
}

// Limited bounds the number of concurrent calls into another evaluator.
// This is used to share one expensive evaluator, for example one backed by
// a coprocessor, between all hill-climbing workers.
type Limited struct {
	next Evaluator
	sem  *semaphore.Weighted
}

// NewLimited returns an evaluator which allows at most n concurrent
// evaluations of next. Callers exceeding the limit block until a permit is
// available or their context is cancelled.
func NewLimited(next Evaluator, n int64) *Limited {
	return &Limited{
		next: next,
		sem:  semaphore.NewWeighted(max(n, 1)),
	}
}

// Evaluate implements [Evaluator].
func (l *Limited) Evaluate(ctx context.Context, ref, cand *PixelBuffer) (int64, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer l.sem.Release(1)
	return l.next.Evaluate(ctx, ref, cand)
}

func sumDistances(a, b []uint32) int64 {
	var total int64
	for i, p := range a {
		q := b[i]
		dr := int(p>>16&0xFF) - int(q>>16&0xFF)
		dg := int(p>>8&0xFF) - int(q>>8&0xFF)
		db := int(p&0xFF) - int(q&0xFF)
		total += int64(math.Sqrt(float64(dr*dr + dg*dg + db*db)))
	}
	return total
}

func checkCompatible(a, b *PixelBuffer) error {
	for _, buf := range [2]*PixelBuffer{a, b} {
		if buf == nil || buf.Width <= 0 || buf.Height <= 0 {
			return ErrEmpty
		}
		if len(buf.Pix) != buf.Width*buf.Height {
			return fmt.Errorf("%w: %d pixels for %dx%d",
				ErrFormat, len(buf.Pix), buf.Width, buf.Height)
		}
	}
	if a.Width != b.Width || a.Height != b.Height {
		return fmt.Errorf("%w: %dx%d vs %dx%d",
			ErrSizeMismatch, a.Width, a.Height, b.Width, b.Height)
	}
	return nil
}
