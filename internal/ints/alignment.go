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

// Package ints provides generic integer helpers used by the two-stack
// aggregator's SIMD index arithmetic.
package ints

import (
	"golang.org/x/exp/constraints"
)

// IsAligned reports whether v is an integer multiple of alignment.
func IsAligned[T constraints.Integer](v, alignment T) bool {
	return v%alignment == 0
}

// AlignDown rounds v down to the nearest multiple of alignment.
func AlignDown[T constraints.Integer](v, alignment T) T {
	return (v / alignment) * alignment
}

// AlignUp rounds v up to the nearest multiple of alignment.
func AlignUp[T constraints.Integer](v, alignment T) T {
	return AlignDown(v+alignment-1, alignment)
}

// Min returns the smaller of x and y.
func Min[T constraints.Integer](x, y T) T {
	if x <= y {
		return x
	}
	return y
}

// Max returns the greater of x and y.
func Max[T constraints.Integer](x, y T) T {
	if x >= y {
		return x
	}
	return y
}

// Clamp returns x restricted to [lo, hi].
func Clamp[T constraints.Integer](x, lo, hi T) T {
	return Max(lo, Min(x, hi))
}
