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
	"sort"

	"github.com/wavelineproj/waveline/pkg/flow"
	"github.com/wavelineproj/waveline/pkg/flow/edge"
	"github.com/wavelineproj/waveline/pkg/history"
	"github.com/wavelineproj/waveline/pkg/stamp"
	"github.com/wavelineproj/waveline/pkg/stamp/frontier"
)

// Accumulator folds a multiset of (value, multiplicity) contributions into
// one aggregate value. Result reports false on an empty multiset.
type Accumulator interface {
	Add(value []byte, mult int64)
	Result() ([]byte, bool)
}

// Aggregator supplies fresh accumulators. One accumulator serves one
// totally ordered run: within a run the included contribution set only
// grows, so Add is the only mutation needed.
type Aggregator interface {
	NewAccumulator() Accumulator
}

// Group maintains, per key, the aggregate of all contributions at or before
// each timestamp and emits the delta against what it previously told
// downstream whenever a frontier advance closes timestamps that change it.
//
// For every closed interval the touched timestamps are the times of the
// newly closed updates, closed under least upper bound with the key's
// history (an aggregate can change at the join of two incomparable input
// times); joins that are still open are parked and revisited once closed.
// The touched set is then decomposed into maximal totally ordered runs:
// within a run the aggregate is carried forward incrementally, and only a
// run boundary pays a fresh fold. On totally ordered input this collapses
// to a single run and linear cost.
type Group struct {
	base
	in      *history.Store
	emitted *history.Store
	inComp  *history.Compactor
	outComp *history.Compactor
	agg     Aggregator
	pending map[string]map[stamp.Time]struct{}
	naive   bool
}

// NewGroup returns a group emitting on the given edge.
func NewGroup(ctx context.Context, name string, out *edge.Edge, agg Aggregator, opts ...Option) *Group {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	g := &Group{
		base:    newBase(ctx, name, 1, out),
		in:      history.NewStore(ctx, name+"-in"),
		emitted: history.NewStore(ctx, name+"-emitted"),
		agg:     agg,
		pending: make(map[string]map[stamp.Time]struct{}),
		naive:   o.naiveRecompute,
	}
	g.inComp = history.NewCompactor(ctx, g.in, o.compactorOpts...)
	g.outComp = history.NewCompactor(ctx, g.emitted, o.compactorOpts...)
	return g
}

// Bind subscribes the group's input to an edge.
func (g *Group) Bind(e *edge.Edge) {
	e.OnBatch(g.HandleBatch)
	e.OnFrontierAdvance(g.HandleFrontierAdvance)
}

// HandleBatch accumulates a batch into the per-key input history.
func (g *Group) HandleBatch(b *flow.Batch) error {
	g.transition(Accumulating)
	for i := range b.Updates {
		u := b.Updates[i]
		g.in.Append(u.Key, history.Entry{
			Time:  b.EffectiveTime(i),
			Value: u.Value,
			Mult:  u.Mult,
		})
	}
	return nil
}

// HandleFrontierAdvance advances the input frontier and recomputes every
// key the newly closed interval affects.
func (g *Group) HandleFrontierAdvance(f *stamp.Antichain) error {
	ci, err := g.tracker.Advance(0, f)
	if err != nil {
		g.log.Errorw("Fatal frontier protocol violation", "error", err)
		return err
	}
	if !ci.IsEmpty() {
		g.transition(Recomputing)
		updates, err := g.recompute(ci)
		if err != nil {
			return err
		}
		recomputePasses.WithLabelValues(g.name).Inc()
		if err := g.emit(updates); err != nil {
			return err
		}
	}
	if err := g.advanceOut(); err != nil {
		return err
	}
	combined := g.tracker.Frontier()
	g.inComp.FrontierAdvanced(combined)
	g.outComp.FrontierAdvanced(combined)
	g.transition(Idle)
	return nil
}

func (g *Group) recompute(ci frontier.ClosedInterval) ([]flow.Update, error) {
	fresh := make(map[string][]history.Cursor)
	affected := make(map[string]struct{})
	for _, key := range g.in.Keys() {
		if cs := g.in.FreshIn(key, ci); len(cs) > 0 {
			fresh[key] = cs
			affected[key] = struct{}{}
		}
	}
	for key, times := range g.pending {
		for t := range times {
			if ci.Current.Closes(t) {
				affected[key] = struct{}{}
				break
			}
		}
	}

	keys := make([]string, 0, len(affected))
	for k := range affected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var updates []flow.Update
	for _, key := range keys {
		us, err := g.recomputeKey(key, ci, fresh[key])
		if err != nil {
			return nil, err
		}
		updates = append(updates, us...)
	}
	return updates, nil
}

func (g *Group) recomputeKey(key string, ci frontier.ClosedInterval, fresh []history.Cursor) ([]flow.Update, error) {
	touched := make(map[stamp.Time]struct{})
	for _, c := range fresh {
		e, err := g.in.Get(key, c)
		if err != nil {
			return nil, err
		}
		touched[e.Time] = struct{}{}
	}
	if err := g.in.Retire(key, fresh); err != nil {
		return nil, err
	}
	for t := range g.pending[key] {
		if ci.Current.Closes(t) {
			touched[t] = struct{}{}
			delete(g.pending[key], t)
		}
	}
	if len(g.pending[key]) == 0 {
		delete(g.pending, key)
	}

	// The aggregate can change at the join of two incomparable times even
	// when neither is itself an update time, so close the touched set under
	// join with the key's history. Joins still open under the new frontier
	// are parked until a later interval closes them.
	sources := g.in.Times(key)
	queue := make([]stamp.Time, 0, len(touched))
	for t := range touched {
		queue = append(queue, t)
	}
	for len(queue) > 0 {
		t := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		candidates := make([]stamp.Time, 0, len(sources)+len(touched))
		candidates = append(candidates, sources...)
		for s := range touched {
			candidates = append(candidates, s)
		}
		for _, s := range candidates {
			l := t.Join(s)
			if _, ok := touched[l]; ok {
				continue
			}
			if ci.Current.Closes(l) {
				touched[l] = struct{}{}
				queue = append(queue, l)
			} else {
				g.park(key, l)
			}
		}
	}
	if len(touched) == 0 {
		return nil, nil
	}

	times := make([]stamp.Time, 0, len(touched))
	for t := range touched {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Lexicographic(times[j]) })
	touchedTimes.WithLabelValues(g.name).Observe(float64(len(times)))

	if g.naive {
		return g.recomputeNaive(key, times)
	}
	runs := decomposeRuns(times)
	runsPerPass.WithLabelValues(g.name).Observe(float64(len(runs)))

	inLog := sortedByTime(g.in.Entries(key))
	var updates []flow.Update
	for _, run := range runs {
		updates = append(updates, g.processRun(key, inLog, run)...)
	}
	return updates, nil
}

// processRun carries the aggregate along one totally ordered run of touched
// timestamps. Both logs are lexicographically sorted, and any time at or
// before t sorts at or before t, so inclusion advances as a prefix pointer;
// entries seen early but still incomparable wait in a deferred list. On
// totally ordered history the deferred list stays empty and the run is
// linear.
func (g *Group) processRun(key string, inLog []history.Entry, run []stamp.Time) []flow.Update {
	acc := g.agg.NewAccumulator()
	inPtr, inDeferred := 0, []history.Entry(nil)

	emitLog := sortedByTime(g.emitted.Entries(key))
	emitPtr, emitDeferred := 0, []history.Entry(nil)
	net := make(map[string]int64)

	var updates []flow.Update
	for _, t := range run {
		for inPtr < len(inLog) && !t.Lexicographic(inLog[inPtr].Time) {
			e := inLog[inPtr]
			inPtr++
			if e.Time.LessEqual(t) {
				acc.Add(e.Value, e.Mult)
			} else {
				inDeferred = append(inDeferred, e)
			}
		}
		inDeferred = includeDeferred(inDeferred, t, func(e history.Entry) { acc.Add(e.Value, e.Mult) })

		for emitPtr < len(emitLog) && !t.Lexicographic(emitLog[emitPtr].Time) {
			e := emitLog[emitPtr]
			emitPtr++
			if e.Time.LessEqual(t) {
				net[string(e.Value)] += e.Mult
			} else {
				emitDeferred = append(emitDeferred, e)
			}
		}
		emitDeferred = includeDeferred(emitDeferred, t, func(e history.Entry) { net[string(e.Value)] += e.Mult })

		updates = append(updates, g.reconcile(key, t, acc, net)...)
	}
	return updates
}

// recomputeNaive rescans the full per-key history for every touched
// timestamp. It is the reference the run decomposition is checked against
// and costs O(history size x times touched).
func (g *Group) recomputeNaive(key string, times []stamp.Time) ([]flow.Update, error) {
	var updates []flow.Update
	for _, t := range times {
		acc := g.agg.NewAccumulator()
		for _, e := range g.in.Entries(key) {
			if e.Time.LessEqual(t) {
				acc.Add(e.Value, e.Mult)
			}
		}
		net := make(map[string]int64)
		for _, e := range g.emitted.Entries(key) {
			if e.Time.LessEqual(t) {
				net[string(e.Value)] += e.Mult
			}
		}
		updates = append(updates, g.reconcile(key, t, acc, net)...)
	}
	return updates, nil
}

// reconcile emits the delta between the aggregate the accumulator computed
// for t and whatever this operator previously emitted at or before t,
// recording the emission in the output history so later touched times see
// it. The previously emitted fold is a general multiset: two emissions at
// incomparable times both count at their join, so the delta subtracts the
// whole net rather than assuming a single current value.
func (g *Group) reconcile(key string, t stamp.Time, acc Accumulator, net map[string]int64) []flow.Update {
	target := make(map[string]int64, 1)
	if newVal, ok := acc.Result(); ok {
		target[string(newVal)] = 1
	}
	vals := make([]string, 0, len(net)+len(target))
	seen := make(map[string]struct{}, len(net)+len(target))
	for v := range net {
		vals = append(vals, v)
		seen[v] = struct{}{}
	}
	for v := range target {
		if _, ok := seen[v]; !ok {
			vals = append(vals, v)
		}
	}
	sort.Strings(vals)

	tt := t
	var updates []flow.Update
	for _, v := range vals {
		d := target[v] - net[v]
		if d == 0 {
			continue
		}
		updates = append(updates, flow.Update{Key: key, Value: []byte(v), Mult: d, Time: &tt})
		g.emitted.AppendRetired(key, history.Entry{Time: t, Value: []byte(v), Mult: d})
		net[v] += d
	}
	return updates
}

func (g *Group) park(key string, t stamp.Time) {
	if g.pending[key] == nil {
		g.pending[key] = make(map[stamp.Time]struct{})
	}
	g.pending[key][t] = struct{}{}
}

// Size exposes the input history size for observability.
func (g *Group) Size() int64 { return g.in.Size() }

func includeDeferred(deferred []history.Entry, t stamp.Time, add func(history.Entry)) []history.Entry {
	kept := deferred[:0]
	for _, e := range deferred {
		if e.Time.LessEqual(t) {
			add(e)
		} else {
			kept = append(kept, e)
		}
	}
	return kept
}

// decomposeRuns splits lexicographically sorted timestamps into maximal
// runs that are totally ordered among themselves: a run extends while the
// next time is comparable with (and therefore at or beyond) the last.
func decomposeRuns(times []stamp.Time) [][]stamp.Time {
	var runs [][]stamp.Time
	for _, t := range times {
		if n := len(runs); n > 0 {
			run := runs[n-1]
			if run[len(run)-1].LessEqual(t) {
				runs[n-1] = append(run, t)
				continue
			}
		}
		runs = append(runs, []stamp.Time{t})
	}
	return runs
}

func sortedByTime(entries []history.Entry) []history.Entry {
	out := make([]history.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Lexicographic(out[j].Time) })
	return out
}
