// Copyright 2026 Sneller Labs, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package simd provides a software emulation of a fixed-width integer
// lane vector, in the style of a real 256-bit/8-lane SIMD register. There
// is no assembly backend: every op is a plain loop over Width elements.
// The point is not speed here but bit-for-bit parity with a scalar
// left-fold, which the emulation gets for free since it performs the
// same arithmetic in the same numeric domain.
package simd

import "golang.org/x/exp/constraints"

// Width is the lane count of a Vec8, chosen to match the reference
// implementation's 256-bit/32-bit-lane AVX2 vectors. It is independent of
// the element type's bit width: a Vec8[int64] is still 8 lanes wide.
const Width = 8

// Vec8 is an emulated width-8 lane vector.
type Vec8[T constraints.Integer] [Width]T

// Splat returns a vector with every lane set to v.
func Splat[T constraints.Integer](v T) Vec8[T] {
	var r Vec8[T]
	for i := range r {
		r[i] = v
	}
	return r
}

// Load copies the first Width elements of src into a new vector.
// It panics if len(src) < Width, matching the precondition that callers
// only invoke Load on an already-validated 8-lane-aligned sub-range.
func Load[T constraints.Integer](src []T) Vec8[T] {
	var r Vec8[T]
	copy(r[:], src[:Width])
	return r
}

// Add performs a lane-wise wrapping add, equivalent to VPADDD on 8
// packed 32-bit lanes.
func Add[T constraints.Integer](a, b Vec8[T]) Vec8[T] {
	var r Vec8[T]
	for i := range r {
		r[i] = a[i] + b[i]
	}
	return r
}

// Min performs a lane-wise signed minimum, equivalent to VPMINSD on 8
// packed 32-bit lanes.
func Min[T constraints.Integer](a, b Vec8[T]) Vec8[T] {
	var r Vec8[T]
	for i := range r {
		if a[i] < b[i] {
			r[i] = a[i]
		} else {
			r[i] = b[i]
		}
	}
	return r
}

// HorizontalAdd folds all lanes of v with +, equivalent to a VPHADDD
// tree reduction followed by a final lane extract.
func HorizontalAdd[T constraints.Integer](v Vec8[T]) T {
	var sum T
	for _, x := range v {
		sum += x
	}
	return sum
}

// HorizontalMin folds all lanes of v with min.
func HorizontalMin[T constraints.Integer](v Vec8[T]) T {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
