/*
Copyright 2024 The Waveline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package stamp implements the logical timestamps the engine tracks progress
// over. A timestamp is an element of the product partial order over
// (round, iteration): two timestamps are ordered only when both coordinates
// are. The package also provides the antichain (frontier) built on top of
// the order.
package stamp

import "fmt"

// Ordering is the result of comparing two timestamps under the partial order.
type Ordering int

const (
	Less Ordering = iota
	Greater
	Equal
	Incomparable
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "Less"
	case Greater:
		return "Greater"
	case Equal:
		return "Equal"
	case Incomparable:
		return "Incomparable"
	default:
		return "Unknown"
	}
}

// Time is a logical timestamp. Round is the outer coordinate advanced by the
// input, Iter the inner coordinate advanced by feedback edges. The order is
// the product order: a Time is less-equal another only when both coordinates
// are.
type Time struct {
	Round int64
	Iter  int64
}

// New returns a Time at the given round and iteration.
func New(round, iter int64) Time {
	return Time{Round: round, Iter: iter}
}

func (t Time) String() string {
	return fmt.Sprintf("(%d,%d)", t.Round, t.Iter)
}

// Compare compares two timestamps under the product order.
func (t Time) Compare(other Time) Ordering {
	switch {
	case t == other:
		return Equal
	case t.Round <= other.Round && t.Iter <= other.Iter:
		return Less
	case other.Round <= t.Round && other.Iter <= t.Iter:
		return Greater
	default:
		return Incomparable
	}
}

// LessEqual reports whether t precedes or equals other.
func (t Time) LessEqual(other Time) bool {
	return t.Round <= other.Round && t.Iter <= other.Iter
}

// Join returns the least upper bound of the two timestamps. An update derived
// from two inputs is stamped with the join of their times so that it never
// claims an earlier effect than either cause.
func (t Time) Join(other Time) Time {
	return Time{
		Round: max64(t.Round, other.Round),
		Iter:  max64(t.Iter, other.Iter),
	}
}

// Meet returns the greatest lower bound of the two timestamps.
func (t Time) Meet(other Time) Time {
	return Time{
		Round: min64(t.Round, other.Round),
		Iter:  min64(t.Iter, other.Iter),
	}
}

// Lexicographic reports whether t sorts before other in (round, iteration)
// lexicographic order. This is a total extension of the partial order used
// to lay out totally ordered runs.
func (t Time) Lexicographic(other Time) bool {
	if t.Round != other.Round {
		return t.Round < other.Round
	}
	return t.Iter < other.Iter
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
