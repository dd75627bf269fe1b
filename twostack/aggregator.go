// Copyright 2026 Sneller Labs, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package twostack implements the two-stack sliding-window aggregator:
// an input stack of newly inserted values and an output stack of
// cumulative prefix partials, related by a periodic "swap" that rebuilds
// the output stack from the live contents of a circular buffer. It
// amortizes per-element aggregation work to O(1) over a window of W
// elements sliding by S at a time.
package twostack

import (
	"golang.org/x/exp/constraints"

	"github.com/sneller-labs/slidewindow/internal/ints"
	"github.com/sneller-labs/slidewindow/internal/simd"
	"github.com/sneller-labs/slidewindow/operator"
	"github.com/sneller-labs/slidewindow/ring"
)

// Aggregator is a fixed-(W,S) sliding-window aggregator over T under the
// associative reduction described by op. It is single-threaded and
// non-reentrant: an instance must be owned by exactly one goroutine for
// the duration of a stream (spec §5).
type Aggregator[T constraints.Integer] struct {
	w, s, panes int
	op          operator.Operator[T]
	buf         *ring.Buffer[T]

	ostackVal             []T
	ostackPtr, ostackSize int
	istackPtr, istackSize int
	istackVal             T
}

// New constructs an aggregator for window size w, slide s, and
// reduction op. w and s must satisfy w >= 1, s >= 1, and w mod s == 0;
// otherwise New returns ErrInvalidConfig.
func New[T constraints.Integer](w, s int, op operator.Operator[T]) (*Aggregator[T], error) {
	if w < 1 || s < 1 || w%s != 0 {
		return nil, ErrInvalidConfig
	}
	return &Aggregator[T]{
		w:         w,
		s:         s,
		panes:     w / s,
		op:        op,
		buf:       ring.New[T](w),
		ostackVal: make([]T, w),
		istackPtr: -1,
		ostackPtr: -1,
	}, nil
}

// Len returns the number of live elements currently held (spec's n).
func (a *Aggregator[T]) Len() int { return a.buf.Len() }

// Cap returns the window size W.
func (a *Aggregator[T]) Cap() int { return a.w }

// wrapIndex reduces i into [0, cap) via modular arithmetic.
func wrapIndex(i, cap int) int {
	i %= cap
	if i < 0 {
		i += cap
	}
	return i
}

// Insert appends one value through the scalar path. It fails with
// ErrOverflow, leaving state unchanged, if the window is already full.
func (a *Aggregator[T]) Insert(v T) error {
	if a.buf.Len() == a.w {
		return ErrOverflow
	}
	prev := a.op.Identity
	if a.istackSize > 0 {
		prev = a.istackVal
	}
	next := a.op.Combine(a.op.Lift(v), prev)
	if err := a.buf.Enqueue(v); err != nil {
		invariantViolation("enqueue failed after capacity check: %v", err)
	}
	a.istackVal = next
	a.istackPtr = a.buf.Rear()
	a.istackSize++
	return nil
}

// InsertBulk inserts src[start:end) as a single call. The result is
// identical to calling Insert for each element in order. For SUM and
// MIN it takes a SIMD-accelerated path once the slide and the range are
// both at least two lane-vectors wide (2*simd.Width == 16, matching the
// reference's threshold); smaller ranges fall back to the scalar loop.
// MAX, CNT, and AVG are reserved and always fail with ErrUnsupported.
func (a *Aggregator[T]) InsertBulk(src []T, start, end int) error {
	if a.op.Tag != operator.Sum && a.op.Tag != operator.Min {
		return ErrUnsupported
	}
	if start < 0 || end > len(src) || end < start {
		invariantViolation("bad range [%d:%d) into source of length %d", start, end, len(src))
	}
	n := end - start
	if a.buf.Len()+n > a.w {
		return ErrOverflow
	}
	if n == 0 {
		return nil
	}
	if a.s < 2*simd.Width || n < 2*simd.Width {
		return a.insertScalarRange(src, start, end)
	}
	return a.insertSIMDRange(src, start, end)
}

func (a *Aggregator[T]) insertScalarRange(src []T, start, end int) error {
	prev := a.op.Identity
	if a.istackSize > 0 {
		prev = a.istackVal
	}
	for i := start; i < end; i++ {
		prev = a.op.Combine(a.op.Lift(src[i]), prev)
	}
	if err := a.buf.EnqueueMany(src[start:end]); err != nil {
		invariantViolation("enqueue failed after capacity check: %v", err)
	}
	a.istackVal = prev
	a.istackPtr = a.buf.Rear()
	a.istackSize += end - start
	return nil
}

func (a *Aggregator[T]) insertSIMDRange(src []T, start, end int) error {
	prev := a.op.Identity
	if a.istackSize > 0 {
		prev = a.istackVal
	}

	alignedStart := ints.AlignUp(start, simd.Width)
	alignedEnd := ints.AlignDown(end, simd.Width)

	for i := start; i < alignedStart && i < end; i++ {
		prev = a.op.Combine(a.op.Lift(src[i]), prev)
	}
	if alignedEnd > alignedStart {
		switch a.op.Tag {
		case operator.Sum:
			vec := simd.Splat[T](0)
			for i := alignedStart; i < alignedEnd; i += simd.Width {
				vec = simd.Add(vec, simd.Load(src[i:]))
			}
			prev = a.op.Combine(simd.HorizontalAdd(vec), prev)
		case operator.Min:
			vec := simd.Splat(a.op.Identity)
			for i := alignedStart; i < alignedEnd; i += simd.Width {
				vec = simd.Min(vec, simd.Load(src[i:]))
			}
			prev = a.op.Combine(simd.HorizontalMin(vec), prev)
		}
	}
	tailStart := ints.Max(alignedStart, alignedEnd)
	for i := tailStart; i < end; i++ {
		prev = a.op.Combine(a.op.Lift(src[i]), prev)
	}

	if err := a.buf.EnqueueMany(src[start:end]); err != nil {
		invariantViolation("enqueue failed after capacity check: %v", err)
	}
	a.istackVal = prev
	a.istackPtr = a.buf.Rear()
	a.istackSize += end - start
	return nil
}

// Evict advances the output stack's cursor (and the buffer's front) by
// k. It never re-materializes partials: once the output stack is
// drained, the next Query is responsible for triggering another swap.
// k is expected to be a multiple of S, matching the slide-advance model
// of spec §1 ("after each slide advance, report the aggregate"). After a
// SIMD swap of n elements, Query is correct only while ostackSize is a
// multiple of S or still n (see swapSIMD): for a full window that rules
// out any k that is not a multiple of S, and when n was not a multiple
// of S, evicting a whole slide leaves ostackSize on an unpopulated slot.
func (a *Aggregator[T]) Evict(k int) error {
	if k < 1 {
		invariantViolation("evict called with non-positive k=%d", k)
	}
	if k > a.ostackSize {
		return ErrUnderflow
	}
	a.ostackPtr = wrapIndex(a.ostackPtr+k, a.buf.Cap())
	a.ostackSize -= k
	a.buf.DequeueMany(k)
	return nil
}

// Query returns the aggregate of the most recent W (or, before the
// first full window, Len()) values. If the output stack is empty it is
// first rebuilt from the buffer's current contents via swap. Query is
// idempotent: repeated calls without an intervening Insert/Evict return
// the same value and leave the aggregator in the same state.
func (a *Aggregator[T]) Query(useSIMD bool) T {
	if a.ostackSize == 0 {
		if a.istackSize == 0 {
			return a.op.Lower(a.op.Identity)
		}
		a.swap(useSIMD)
	}
	top := a.ostackVal[a.ostackSize-1]
	rest := a.op.Identity
	if a.istackSize > 0 {
		rest = a.istackVal
	}
	return a.op.Lower(a.op.Combine(top, rest))
}

// Reset empties the aggregator, returning it to the state of a freshly
// constructed instance with the same (W, S, operator).
func (a *Aggregator[T]) Reset() {
	var zero T
	a.istackSize, a.ostackSize = 0, 0
	a.istackPtr, a.ostackPtr = -1, -1
	a.istackVal = zero
	a.buf.Reset()
}
