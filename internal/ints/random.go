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

package ints

import (
	"crypto/rand"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// RandomFillSlice overwrites every element of out with bytes drawn from
// a cryptographically strong random source. It is used to synthesize
// benchmark input streams; it is not a substitute for
// the RNG harness the spec scopes out as an external collaborator.
func RandomFillSlice[T constraints.Integer](out []T) error {
	n := len(out)
	if n == 0 {
		return nil
	}
	byteLen := n * int(unsafe.Sizeof(out[0]))
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), byteLen)
	_, err := rand.Read(raw)
	return err
}
