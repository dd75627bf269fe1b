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

// Package operator defines the associative-reduction contract the
// two-stack aggregator is built on: an identity element, a lift from raw
// input to a partial, an associative combine of two partials, and a
// lower from partial to output. SUM and MIN are the only reductions with
// a concrete implementation; MAX, CNT, and AVG are reserved tags with no
// constructor.
package operator

import (
	"errors"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// ErrUnsupported is returned by New for any Tag other than Sum or Min.
var ErrUnsupported = errors.New("operator: reduction not implemented")

// Tag enumerates the reduction kind and, in the two-stack aggregator,
// selects which lane-wise SIMD op backs the interior of a swap.
type Tag int

const (
	Sum Tag = iota
	Min
	Max // reserved, not implemented
	Cnt // reserved, not implemented
	Avg // reserved, not implemented
)

func (t Tag) String() string {
	switch t {
	case Sum:
		return "SUM"
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Cnt:
		return "CNT"
	case Avg:
		return "AVG"
	default:
		return "UNKNOWN"
	}
}

// Operator describes an associative reduction over a single numeric
// type T. Binding In, Partial, and Out to the same type (rather than
// three independent type parameters, as spec §4.1 allows in the
// abstract) matches the reference's only two instantiations and lets
// the SIMD lane ops in internal/simd vectorize over one representation.
type Operator[T constraints.Integer] struct {
	Tag      Tag
	Identity T
	Lift     func(T) T
	Combine  func(a, b T) T
	Lower    func(T) T
}

func identity[T any](v T) T { return v }

// New constructs the Operator for tag, or ErrUnsupported if tag is not
// Sum or Min.
func New[T constraints.Integer](tag Tag) (Operator[T], error) {
	switch tag {
	case Sum:
		return Operator[T]{
			Tag:      Sum,
			Identity: 0,
			Lift:     identity[T],
			Combine:  func(a, b T) T { return a + b },
			Lower:    identity[T],
		}, nil
	case Min:
		return Operator[T]{
			Tag:      Min,
			Identity: maxSigned[T](),
			Lift:     identity[T],
			Combine: func(a, b T) T {
				if a < b {
					return a
				}
				return b
			},
			Lower: identity[T],
		}, nil
	default:
		return Operator[T]{}, ErrUnsupported
	}
}

// maxSigned returns the maximum representable value of T, used as the
// identity element for MIN. It works for any signed integer width
// without a type switch, using the same unsafe.Sizeof-driven bit-width
// arithmetic the reference's bit-manipulation helpers use. T is assumed
// signed, matching spec §4.3's "signed lane-wise minimum"; instantiating
// New[T](Min) with an unsigned T yields the wrong identity.
func maxSigned[T constraints.Integer]() T {
	var zero T
	bits := int(unsafe.Sizeof(zero)) * 8
	return T(uint64(1)<<(bits-1) - 1)
}
