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

// Command slidebench measures the throughput of the sliding-window
// aggregator's scalar and SIMD query paths side by side, over either a
// synthetic random stream or a file of whitespace-separated integers.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sneller-labs/slidewindow/internal/ints"
	"github.com/sneller-labs/slidewindow/operator"
	"github.com/sneller-labs/slidewindow/twostack"
)

func fatalf(f string, args ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
	os.Exit(1)
}

func loadInput(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []int64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		v, err := strconv.ParseInt(sc.Text(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", sc.Text(), err)
		}
		out = append(out, v)
	}
	return out, sc.Err()
}

func randomInput(n int) ([]int64, error) {
	out := make([]int64, n)
	if err := ints.RandomFillSlice(out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i] < 0 {
			out[i] = -out[i]
		}
	}
	return out, nil
}

// measure feeds agg repeated slides of size s drawn round-robin from
// data until deadline elapses, issuing a Query(useSIMD) call after every
// slide, and returns the number of slides processed.
func measure(agg *twostack.Aggregator[int64], data []int64, s int, useSIMD bool, deadline time.Time) int64 {
	pos := 0
	var slides int64
	chunk := make([]int64, s)
	for time.Now().Before(deadline) {
		for i := range chunk {
			chunk[i] = data[pos]
			pos = (pos + 1) % len(data)
		}
		if agg.Len() == agg.Cap() {
			if err := agg.Evict(s); err != nil {
				fatalf("evict: %s", err)
			}
		}
		if err := agg.InsertBulk(chunk, 0, s); err != nil {
			fatalf("insert: %s", err)
		}
		agg.Query(useSIMD)
		slides++
	}
	return slides
}

func run(windowSize, slide int, duration time.Duration, tag operator.Tag, data []int64) error {
	if len(data) < slide {
		return fmt.Errorf("input has %d values, need at least slide=%d", len(data), slide)
	}

	op, err := operator.New[int64](tag)
	if err != nil {
		return err
	}

	for _, useSIMD := range []bool{false, true} {
		agg, err := twostack.New(windowSize, slide, op)
		if err != nil {
			return err
		}
		for agg.Len() < agg.Cap() {
			n := slide
			if agg.Len()+n > agg.Cap() {
				n = agg.Cap() - agg.Len()
			}
			if err := agg.InsertBulk(data[:n], 0, n); err != nil {
				return err
			}
		}
		// materialize the output stack so measure's first Evict has
		// slides to drop.
		agg.Query(useSIMD)

		start := time.Now()
		slides := measure(agg, data, slide, useSIMD, start.Add(duration))
		elapsed := time.Since(start)

		elems := slides * int64(slide)
		rate := float64(elems) / elapsed.Seconds()
		label := "scalar"
		if useSIMD {
			label = "simd"
		}
		fmt.Printf("%-6s W=%-8d S=%-6d %10d slides %14.0f elem/s\n", label, windowSize, slide, slides, rate)
	}
	return nil
}

func main() {
	var (
		size     int
		slide    int
		duration time.Duration
		input    string
		typeFlag string
	)
	flag.IntVar(&size, "size", 1<<16, "window size W")
	flag.IntVar(&slide, "slide", 1<<10, "slide size S, must divide size")
	flag.DurationVar(&duration, "duration", 3*time.Second, "measurement duration per path")
	flag.StringVar(&input, "input", "", "path to a file of whitespace-separated int64 values; random data is used if empty")
	flag.StringVar(&typeFlag, "type", "SUM", "reduction to benchmark: SUM or MIN")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	var tag operator.Tag
	switch strings.ToUpper(typeFlag) {
	case "SUM":
		tag = operator.Sum
	case "MIN":
		tag = operator.Min
	default:
		fatalf("unsupported -type %q, want SUM or MIN", typeFlag)
	}

	var data []int64
	var err error
	if input != "" {
		data, err = loadInput(input)
	} else {
		data, err = randomInput(4 * size)
	}
	if err != nil {
		fatalf("loading input: %s", err)
	}

	if err := run(size, slide, duration, tag, data); err != nil {
		fatalf("%s", err)
	}
}
