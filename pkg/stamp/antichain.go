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

package stamp

import (
	"sort"
	"strings"
)

// Antichain is a minimal set of mutually incomparable timestamps. Used as a
// frontier it marks the boundary of progress: a timestamp may still be seen
// exactly when some element of the antichain is less-equal to it. The empty
// antichain closes every timestamp and signals input shutdown.
type Antichain struct {
	elements []Time
}

// NewAntichain returns an antichain holding the minimal elements of the
// given timestamps.
func NewAntichain(times ...Time) *Antichain {
	a := &Antichain{}
	for _, t := range times {
		a.Insert(t)
	}
	return a
}

// Insert adds t to the antichain. It is a no-op if an existing element is
// less-equal t; otherwise every element dominated by t is removed. Returns
// true if t was inserted.
func (a *Antichain) Insert(t Time) bool {
	kept := a.elements[:0]
	for _, e := range a.elements {
		switch e.Compare(t) {
		case Less, Equal:
			// an existing element already covers t
			return false
		case Greater:
			// t covers e, drop it
		default:
			kept = append(kept, e)
		}
	}
	a.elements = append(kept, t)
	return true
}

// LessEqual reports whether some element of the antichain is less-equal t,
// i.e. whether t is still open under this frontier.
func (a *Antichain) LessEqual(t Time) bool {
	for _, e := range a.elements {
		if e.LessEqual(t) {
			return true
		}
	}
	return false
}

// Closes reports whether t is closed under this frontier: no element of the
// antichain can still reach it.
func (a *Antichain) Closes(t Time) bool {
	return !a.LessEqual(t)
}

// DominatedBy reports whether every element of a is reachable from some
// element of other, i.e. a is at or beyond other. The empty antichain is
// beyond everything.
func (a *Antichain) DominatedBy(other *Antichain) bool {
	for _, e := range a.elements {
		if !other.LessEqual(e) {
			return false
		}
	}
	return true
}

// Meet merges other into a pointwise lower bound: the minimal elements of
// the union of both antichains. A time open under either input stays open
// under the meet.
func (a *Antichain) Meet(other *Antichain) *Antichain {
	m := NewAntichain(a.elements...)
	for _, e := range other.elements {
		m.Insert(e)
	}
	return m
}

// MeetAll folds the elements of the antichain with Time.Meet. It is the
// greatest timestamp less-equal every future time and is degenerate on an
// empty antichain (ok is false).
func (a *Antichain) MeetAll() (Time, bool) {
	if len(a.elements) == 0 {
		return Time{}, false
	}
	m := a.elements[0]
	for _, e := range a.elements[1:] {
		m = m.Meet(e)
	}
	return m, true
}

// Equals reports whether both antichains hold the same elements.
func (a *Antichain) Equals(other *Antichain) bool {
	if len(a.elements) != len(other.elements) {
		return false
	}
	for _, e := range a.elements {
		found := false
		for _, o := range other.elements {
			if e == o {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the antichain has no elements.
func (a *Antichain) IsEmpty() bool {
	return len(a.elements) == 0
}

// Elements returns a copy of the antichain's elements in lexicographic order.
func (a *Antichain) Elements() []Time {
	out := make([]Time, len(a.elements))
	copy(out, a.elements)
	sort.Slice(out, func(i, j int) bool { return out[i].Lexicographic(out[j]) })
	return out
}

// Clone returns an independent copy of the antichain.
func (a *Antichain) Clone() *Antichain {
	return NewAntichain(a.elements...)
}

func (a *Antichain) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, e := range a.Elements() {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(e.String())
	}
	b.WriteString("}")
	return b.String()
}
