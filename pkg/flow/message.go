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

// Package flow defines the units the engine moves between operators: updates,
// the batches that carry them, and the capabilities that authorize sending
// them. A batch is either low resolution (every update inherits the batch
// time) or high resolution (updates carry their own times, the batch time a
// lower bound on all of them).
package flow

import (
	"errors"
	"fmt"

	"github.com/wavelineproj/waveline/pkg/stamp"
)

// ErrTimeNotCovered is returned when an update's effective timestamp is not
// at or beyond the time of the capability used to send it. This is a
// programming-error-class fault: continuing would corrupt downstream
// progress tracking, so the operator must abort.
var ErrTimeNotCovered = errors.New("update time not covered by capability")

// Update is one signed change to a keyed collection. Mult is the signed
// multiplicity of the change. Time is nil for low-resolution updates, which
// inherit the enclosing batch's time.
type Update struct {
	Key   string
	Value []byte
	Mult  int64
	Time  *stamp.Time
}

// At returns a copy of the update carrying an explicit timestamp.
func (u Update) At(t stamp.Time) Update {
	u.Time = &t
	return u
}

func (u Update) String() string {
	ts := "inherit"
	if u.Time != nil {
		ts = u.Time.String()
	}
	return fmt.Sprintf("{key=%s mult=%d time=%s}", u.Key, u.Mult, ts)
}

// Batch is an ordered collection of updates sent under one capability. At is
// the capability time: the lower bound every update's effective time must
// satisfy.
type Batch struct {
	At      stamp.Time
	Updates []Update
}

// NewBatch returns a batch at the given capability time.
func NewBatch(at stamp.Time, updates ...Update) *Batch {
	return &Batch{At: at, Updates: updates}
}

// EffectiveTime returns the timestamp of the i-th update, inheriting the
// batch time when the update carries none.
func (b *Batch) EffectiveTime(i int) stamp.Time {
	if t := b.Updates[i].Time; t != nil {
		return *t
	}
	return b.At
}

// Validate checks that every explicit update time is at or beyond the batch
// time. A violation is a protocol invariant breach, not a recoverable error.
func (b *Batch) Validate() error {
	for i := range b.Updates {
		if t := b.Updates[i].Time; t != nil && !b.At.LessEqual(*t) {
			return fmt.Errorf("%w: update %d at %v, batch at %v", ErrTimeNotCovered, i, *t, b.At)
		}
	}
	return nil
}

// Promote returns a high-resolution copy of the batch: every update carries
// its own timestamp. Promotion is always legal since it only makes the
// inherited times explicit.
func (b *Batch) Promote() *Batch {
	out := &Batch{At: b.At, Updates: make([]Update, len(b.Updates))}
	for i := range b.Updates {
		out.Updates[i] = b.Updates[i].At(b.EffectiveTime(i))
	}
	return out
}

// Coarsen returns a low-resolution copy of the batch: every update's
// explicit time is dropped and replaced by the batch time. Coarsening
// coalesces updates that were distinguishable in time, so it is never done
// implicitly; callers opt in through this operator, typically as a
// windowing step.
func (b *Batch) Coarsen() *Batch {
	out := &Batch{At: b.At, Updates: make([]Update, len(b.Updates))}
	for i := range b.Updates {
		u := b.Updates[i]
		u.Time = nil
		out.Updates[i] = u
	}
	return out
}

// HighResolution reports whether every update carries an explicit time.
func (b *Batch) HighResolution() bool {
	for i := range b.Updates {
		if b.Updates[i].Time == nil {
			return false
		}
	}
	return true
}

// MinTime returns the meet of all effective update times, or the batch time
// for an empty batch.
func (b *Batch) MinTime() stamp.Time {
	if len(b.Updates) == 0 {
		return b.At
	}
	m := b.EffectiveTime(0)
	for i := 1; i < len(b.Updates); i++ {
		m = m.Meet(b.EffectiveTime(i))
	}
	return m
}
