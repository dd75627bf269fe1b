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
	"errors"
	"fmt"

	"github.com/sneller-labs/slidewindow/operator"
)

var (
	// ErrInvalidConfig is returned by New when W or S violate the
	// window/slide contract (W >= 1, S >= 1, W mod S == 0).
	ErrInvalidConfig = errors.New("twostack: invalid window/slide configuration")

	// ErrOverflow is returned by Insert/InsertBulk when the insert would
	// leave the aggregator holding more than W live elements.
	ErrOverflow = errors.New("twostack: insert exceeds window capacity")

	// ErrUnderflow is returned by Evict when k exceeds the number of
	// elements currently materialized in the output stack.
	ErrUnderflow = errors.New("twostack: evict exceeds live output stack")

	// ErrUnsupported is returned by InsertBulk for any reduction tag
	// other than SUM or MIN.
	ErrUnsupported = operator.ErrUnsupported
)

// invariantViolation panics with a "pkg: message" string, matching the
// teacher's own panic idiom for conditions that indicate a bug in the
// aggregator itself rather than caller misuse.
func invariantViolation(format string, args ...any) {
	panic(fmt.Sprintf("twostack: invariant violation: "+format, args...))
}
