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

// Package frontier aggregates the frontiers reported by an operator's
// upstream inputs into one combined frontier and hands out the intervals of
// timestamps each advance closes. The combined frontier is the pointwise
// lower bound over all inputs, so a timestamp is closed only once every
// input has moved past it.
package frontier

import (
	"errors"
	"fmt"

	"github.com/wavelineproj/waveline/pkg/stamp"
)

// ErrRegression is returned when an upstream reports a frontier not
// reachable from its previous one. Progress tracking downstream is unsound
// once this happens, so callers must treat it as fatal.
var ErrRegression = errors.New("frontier moved backward")

// ClosedInterval is the set of timestamps closed by one frontier advance:
// open under the previous combined frontier, closed under the current one.
// Successive intervals from one Tracker partition time with no overlap.
type ClosedInterval struct {
	Previous *stamp.Antichain
	Current  *stamp.Antichain
}

// Contains reports whether t was closed by exactly this advance.
func (ci ClosedInterval) Contains(t stamp.Time) bool {
	return ci.Previous.LessEqual(t) && ci.Current.Closes(t)
}

// IsEmpty reports whether the advance closed nothing.
func (ci ClosedInterval) IsEmpty() bool {
	return ci.Previous.Equals(ci.Current)
}

func (ci ClosedInterval) String() string {
	return fmt.Sprintf("[%v, %v)", ci.Previous, ci.Current)
}

// Tracker maintains one frontier per upstream input plus their combined
// meet. It is owned by a single operator instance and is not safe for
// concurrent use; the owning worker is single threaded.
type Tracker struct {
	inputs   []*stamp.Antichain
	combined *stamp.Antichain
}

// NewTracker returns a tracker over the given number of upstream inputs.
// Every input starts at the minimum timestamp, so nothing is closed until
// all inputs report.
func NewTracker(numInputs int) *Tracker {
	t := &Tracker{}
	for i := 0; i < numInputs; i++ {
		t.inputs = append(t.inputs, stamp.NewAntichain(stamp.Time{}))
	}
	t.combined = t.meet()
	return t
}

func (t *Tracker) meet() *stamp.Antichain {
	if len(t.inputs) == 0 {
		return stamp.NewAntichain()
	}
	m := t.inputs[0].Clone()
	for _, in := range t.inputs[1:] {
		m = m.Meet(in)
	}
	return m
}

// Advance records a new frontier for the given input and returns the
// interval of timestamps the advance closed, which may be empty if other
// inputs still hold the combined frontier back. An upstream frontier not
// reachable from its previous report is a protocol violation and returns
// ErrRegression.
func (t *Tracker) Advance(input int, f *stamp.Antichain) (ClosedInterval, error) {
	if input < 0 || input >= len(t.inputs) {
		return ClosedInterval{}, fmt.Errorf("no such input %d", input)
	}
	if !f.DominatedBy(t.inputs[input]) {
		return ClosedInterval{}, fmt.Errorf("%w: input %d reported %v after %v", ErrRegression, input, f, t.inputs[input])
	}
	t.inputs[input] = f.Clone()
	prev := t.combined
	t.combined = t.meet()
	return ClosedInterval{Previous: prev, Current: t.combined}, nil
}

// Frontier returns the current combined frontier.
func (t *Tracker) Frontier() *stamp.Antichain {
	return t.combined.Clone()
}

// Input returns the last reported frontier of the given input.
func (t *Tracker) Input(i int) *stamp.Antichain {
	return t.inputs[i].Clone()
}

// Closed reports whether every input has shut down (reported the empty
// frontier).
func (t *Tracker) Closed() bool {
	return t.combined.IsEmpty()
}
