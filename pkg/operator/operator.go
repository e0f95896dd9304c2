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

// Package operator implements the stateful operators of the engine. Each
// operator is an explicit state machine driven by two discrete events, batch
// arrival and frontier advance. A frontier advance that closes a nonempty
// interval of timestamps triggers recomputation of the per-key output deltas
// for that interval, emission under capabilities derived from the held ones,
// and finally advancement of the output frontier. Recomputation for an
// interval is a deterministic pure function of the accumulated history and
// the interval; there is no partial pass and no retry.
package operator

import (
	"context"

	"go.uber.org/zap"

	"github.com/wavelineproj/waveline/pkg/flow"
	"github.com/wavelineproj/waveline/pkg/flow/capability"
	"github.com/wavelineproj/waveline/pkg/flow/edge"
	"github.com/wavelineproj/waveline/pkg/shared/logging"
	"github.com/wavelineproj/waveline/pkg/stamp"
	"github.com/wavelineproj/waveline/pkg/stamp/frontier"
)

// State is the operator lifecycle state.
type State int32

const (
	Idle State = iota
	Accumulating
	Recomputing
	Emitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Accumulating:
		return "Accumulating"
	case Recomputing:
		return "Recomputing"
	case Emitting:
		return "Emitting"
	default:
		return "Unknown"
	}
}

// base carries the plumbing shared by the operators: input frontier
// tracking, held output capabilities, the output edge and the state machine.
type base struct {
	name    string
	state   State
	tracker *frontier.Tracker
	caps    *capability.Registry
	out     *edge.Edge
	log     *zap.SugaredLogger
}

func newBase(ctx context.Context, name string, numInputs int, out *edge.Edge) base {
	return base{
		name:    name,
		state:   Idle,
		tracker: frontier.NewTracker(numInputs),
		caps:    capability.NewRegistry(stamp.Time{}),
		out:     out,
		log:     logging.FromContext(ctx).With("operator", name),
	}
}

// Name returns the operator name.
func (b *base) Name() string {
	return b.name
}

// State returns the current lifecycle state.
func (b *base) State() State {
	return b.state
}

func (b *base) transition(to State) {
	if b.state == to {
		return
	}
	b.log.Debugw("State transition", zap.String("from", b.state.String()), zap.String("to", to.String()))
	b.state = to
}

// emit sends the recomputed updates downstream. Every update carries an
// explicit time; updates are bucketed by the held capability covering them,
// one high-resolution batch per bucket with the batch time at the meet of
// the bucket's update times. A time no held capability covers is a protocol
// violation and aborts the operator.
func (b *base) emit(updates []flow.Update) error {
	if len(updates) == 0 {
		return nil
	}
	b.transition(Emitting)
	buckets := make(map[*capability.Capability][]flow.Update)
	var order []*capability.Capability
	for _, u := range updates {
		c, err := b.caps.CoverFor(*u.Time)
		if err != nil {
			return err
		}
		if _, ok := buckets[c]; !ok {
			order = append(order, c)
		}
		buckets[c] = append(buckets[c], u)
	}
	for _, c := range order {
		us := buckets[c]
		at := *us[0].Time
		for _, u := range us[1:] {
			at = at.Meet(*u.Time)
		}
		if err := b.out.Send(c, flow.NewBatch(at, us...)); err != nil {
			return err
		}
		emittedUpdates.WithLabelValues(b.name).Add(float64(len(us)))
	}
	return nil
}

// advanceOut downgrades the held capabilities to the combined input frontier
// and lets downstream know. Holding on longer than this throttles every
// consumer.
func (b *base) advanceOut() error {
	f := b.tracker.Frontier()
	if f.IsEmpty() {
		b.caps.DropAll()
		return b.out.AdvanceFrontier(f)
	}
	if err := b.caps.SyncTo(f); err != nil {
		return err
	}
	return b.out.AdvanceFrontier(b.caps.Frontier())
}
