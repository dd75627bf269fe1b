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

package twostack

import (
	"golang.org/x/exp/constraints"

	"github.com/sneller-labs/slidewindow/internal/ints"
	"github.com/sneller-labs/slidewindow/internal/simd"
	"github.com/sneller-labs/slidewindow/operator"
)

// swap rebuilds the output stack from the istackSize most recently
// inserted elements, currently stored in the buffer with istackPtr ==
// buf.Rear(). After swap, ostackSize == the old istackSize and
// istackSize == 0.
func (a *Aggregator[T]) swap(useSIMD bool) {
	n := a.istackSize
	if n == 0 {
		invariantViolation("swap called with empty input stack")
	}
	if a.ostackSize != 0 {
		invariantViolation("swap called with non-empty output stack (ostackSize=%d)", a.ostackSize)
	}

	cap := a.buf.Cap()
	rear := a.buf.Rear()
	if rear < 0 {
		invariantViolation("swap called with no rear cursor despite istackSize=%d", n)
	}

	if useSIMD && a.s >= 2*simd.Width {
		a.swapSIMD(n, rear, cap)
	} else {
		a.swapScalar(n, rear, cap)
	}

	a.ostackSize = n
	a.istackSize = 0
	a.ostackPtr = wrapIndex(rear-a.ostackSize+1, cap)
	a.istackPtr = -1
}

// swapScalar performs the single reverse scan over the n live elements,
// writing ostackVal[i] = combine(Q[rear-i], ostackVal[i-1] or identity)
// for i = 0..n-1. It is also the path taken when useSIMD is false.
func (a *Aggregator[T]) swapScalar(n, rear, cap int) {
	tempValue := a.op.Identity
	for i := 0; i < n; i++ {
		idx := wrapIndex(rear-i, cap)
		tempValue = a.op.Combine(a.buf.At(idx), tempValue)
		a.ostackVal[i] = tempValue
	}
}

// swapSIMD processes the input stack one slide at a time, newest first,
// vectorizing the 8-lane-aligned interior of each slide's physical
// range and folding unaligned head/tail/wrap remainders scalar-wise. It
// writes a cumulative partial at the end of each slide it completes; if
// n is not an exact multiple of S (a partially filled window), the
// final, shorter slide is folded the same way and its result lands at
// ostackVal[n-1].
//
// Only indices that land on a slide boundary (including the final
// index n-1) are populated with their true cumulative value; intra-
// slide indices are untouched, matching spec §4.3 ("only slots at
// ostackVal[k*S-1] are ever read by query") and the slide-aligned
// eviction model documented on Evict.
func (a *Aggregator[T]) swapSIMD(n, rear, cap int) {
	tempValue := a.op.Identity
	tempSize := 0
	writePos := 0
	for tempSize < n {
		paneSize := ints.Min(a.s, n-tempSize)
		rearJ := wrapIndex(rear-tempSize, cap)
		frontJ := wrapIndex(rearJ-paneSize+1, cap)

		var paneVal T
		if frontJ <= rearJ {
			paneVal = a.reduceRange(frontJ, rearJ)
		} else {
			// the slide wraps the end of the circular buffer: split
			// into the older half [frontJ, cap-1] and the newer half
			// [0, rearJ] and combine them (safe because SUM and MIN
			// are both commutative and associative under wrapping
			// two's-complement arithmetic, so the two halves may be
			// combined in either order).
			older := a.reduceRange(frontJ, cap-1)
			newer := a.reduceRange(0, rearJ)
			paneVal = a.op.Combine(newer, older)
		}

		tempValue = a.op.Combine(paneVal, tempValue)
		writePos += paneSize
		a.ostackVal[writePos-1] = tempValue
		tempSize += paneSize
	}
}

// reduceRange folds the non-wrapping physical range [lo, hi] (both
// inclusive) of the buffer into a single partial, vectorizing the
// largest 8-lane-aligned interior sub-range and combining unaligned
// head/tail elements scalar-wise. lo and hi must not cross the buffer's
// wrap boundary; callers split wrapping ranges before calling this.
func (a *Aggregator[T]) reduceRange(lo, hi int) T {
	if hi < lo {
		return a.op.Identity
	}
	result := a.op.Identity
	n := hi - lo + 1
	if n < simd.Width {
		for i := lo; i <= hi; i++ {
			result = a.op.Combine(a.buf.At(i), result)
		}
		return result
	}

	alignedLo := ints.AlignUp(lo, simd.Width)
	alignedHi := ints.AlignDown(hi+1, simd.Width) // exclusive

	for i := lo; i < alignedLo; i++ {
		result = a.op.Combine(a.buf.At(i), result)
	}
	if alignedHi > alignedLo {
		result = a.op.Combine(reduceAligned(a.buf.Window(alignedLo, alignedHi-1), a.op), result)
	}
	for i := ints.Max(alignedLo, alignedHi); i <= hi; i++ {
		result = a.op.Combine(a.buf.At(i), result)
	}
	return result
}

// reduceAligned reduces a slice whose length is an exact multiple of
// simd.Width using the lane-wise op selected by the operator's tag.
func reduceAligned[T constraints.Integer](window []T, op operator.Operator[T]) T {
	switch op.Tag {
	case operator.Sum:
		vec := simd.Splat[T](0)
		for i := 0; i < len(window); i += simd.Width {
			vec = simd.Add(vec, simd.Load(window[i:]))
		}
		return simd.HorizontalAdd(vec)
	case operator.Min:
		vec := simd.Splat(op.Identity)
		for i := 0; i < len(window); i += simd.Width {
			vec = simd.Min(vec, simd.Load(window[i:]))
		}
		return simd.HorizontalMin(vec)
	default:
		invariantViolation("reduceAligned called with unsupported tag %s", op.Tag)
		panic("unreachable")
	}
}
