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

package operator

import (
	"context"

	"github.com/wavelineproj/waveline/pkg/flow"
	"github.com/wavelineproj/waveline/pkg/flow/edge"
	"github.com/wavelineproj/waveline/pkg/history"
	"github.com/wavelineproj/waveline/pkg/stamp"
	"github.com/wavelineproj/waveline/pkg/stamp/frontier"
)

// Side identifies one of a join's two inputs.
type Side int

const (
	LeftSide Side = iota
	RightSide
)

func (s Side) String() string {
	if s == LeftSide {
		return "left"
	}
	return "right"
}

// CombineFunc derives the payload of a joined pair from the two input
// payloads of a key.
type CombineFunc func(key string, left, right []byte) []byte

// Join pairs the updates of keys present in both inputs. A pair is combined
// exactly once: in the pass that closes the later of its two timestamps.
// The combined update carries multiplicity mult(left)*mult(right) and the
// join (least upper bound) of the two times, so output never claims an
// earlier effect than either cause. Pairing is tracked by retirement marks
// per side, not by memoizing literal pairs: a pass combines its freshly
// closed entries against the other side's retired history plus each other,
// then retires them.
type Join struct {
	base
	stores     [2]*history.Store
	compactors [2]*history.Compactor
	combine    CombineFunc
}

// NewJoin returns a join emitting on the given edge.
func NewJoin(ctx context.Context, name string, out *edge.Edge, combine CombineFunc, opts ...Option) *Join {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	j := &Join{
		base:    newBase(ctx, name, 2, out),
		combine: combine,
	}
	j.stores[LeftSide] = history.NewStore(ctx, name+"-left")
	j.stores[RightSide] = history.NewStore(ctx, name+"-right")
	for side := range j.stores {
		j.compactors[side] = history.NewCompactor(ctx, j.stores[side], o.compactorOpts...)
	}
	return j
}

// BindLeft subscribes the join's left input to an edge.
func (j *Join) BindLeft(e *edge.Edge) {
	j.bind(LeftSide, e)
}

// BindRight subscribes the join's right input to an edge.
func (j *Join) BindRight(e *edge.Edge) {
	j.bind(RightSide, e)
}

func (j *Join) bind(side Side, e *edge.Edge) {
	e.OnBatch(func(b *flow.Batch) error {
		return j.HandleBatch(side, b)
	})
	e.OnFrontierAdvance(func(f *stamp.Antichain) error {
		return j.HandleFrontierAdvance(side, f)
	})
}

// HandleBatch accumulates a batch into the side's per-key history.
func (j *Join) HandleBatch(side Side, b *flow.Batch) error {
	j.transition(Accumulating)
	for i := range b.Updates {
		u := b.Updates[i]
		j.stores[side].Append(u.Key, history.Entry{
			Time:  b.EffectiveTime(i),
			Value: u.Value,
			Mult:  u.Mult,
		})
	}
	return nil
}

// HandleFrontierAdvance advances the side's frontier and, if the combined
// frontier closed a nonempty interval, recomputes and emits the joined
// deltas for it before propagating the advance downstream.
func (j *Join) HandleFrontierAdvance(side Side, f *stamp.Antichain) error {
	ci, err := j.tracker.Advance(int(side), f)
	if err != nil {
		j.log.Errorw("Fatal frontier protocol violation", "side", side.String(), "error", err)
		return err
	}
	if !ci.IsEmpty() {
		j.transition(Recomputing)
		updates, err := j.recompute(ci)
		if err != nil {
			return err
		}
		recomputePasses.WithLabelValues(j.name).Inc()
		if err := j.emit(updates); err != nil {
			return err
		}
	}
	if err := j.advanceOut(); err != nil {
		return err
	}
	combined := j.tracker.Frontier()
	for side := range j.compactors {
		j.compactors[side].FrontierAdvanced(combined)
	}
	j.transition(Idle)
	return nil
}

func (j *Join) recompute(ci frontier.ClosedInterval) ([]flow.Update, error) {
	var updates []flow.Update
	for _, key := range unionKeys(j.stores[LeftSide], j.stores[RightSide]) {
		freshL := j.stores[LeftSide].FreshIn(key, ci)
		freshR := j.stores[RightSide].FreshIn(key, ci)
		if len(freshL) == 0 && len(freshR) == 0 {
			continue
		}
		oldL := j.stores[LeftSide].Retired(key)
		oldR := j.stores[RightSide].Retired(key)

		us, err := j.combineAll(key, freshL, oldR)
		if err != nil {
			return nil, err
		}
		updates = append(updates, us...)
		us, err = j.combineAll(key, oldL, freshR)
		if err != nil {
			return nil, err
		}
		updates = append(updates, us...)
		us, err = j.combineAll(key, freshL, freshR)
		if err != nil {
			return nil, err
		}
		updates = append(updates, us...)

		if err := j.stores[LeftSide].Retire(key, freshL); err != nil {
			return nil, err
		}
		if err := j.stores[RightSide].Retire(key, freshR); err != nil {
			return nil, err
		}
	}
	return updates, nil
}

func (j *Join) combineAll(key string, left, right []history.Cursor) ([]flow.Update, error) {
	var updates []flow.Update
	for _, lc := range left {
		l, err := j.stores[LeftSide].Get(key, lc)
		if err != nil {
			return nil, err
		}
		for _, rc := range right {
			r, err := j.stores[RightSide].Get(key, rc)
			if err != nil {
				return nil, err
			}
			mult := l.Mult * r.Mult
			if mult == 0 {
				continue
			}
			t := l.Time.Join(r.Time)
			updates = append(updates, flow.Update{
				Key:   key,
				Value: j.combine(key, l.Value, r.Value),
				Mult:  mult,
				Time:  &t,
			})
		}
	}
	pairsProcessed.WithLabelValues(j.name).Add(float64(len(left) * len(right)))
	return updates, nil
}

// LeftSize and RightSize expose history sizes for observability.
func (j *Join) LeftSize() int64  { return j.stores[LeftSide].Size() }
func (j *Join) RightSize() int64 { return j.stores[RightSide].Size() }

func unionKeys(a, b *history.Store) []string {
	keys := a.Keys()
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	for _, k := range b.Keys() {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}
