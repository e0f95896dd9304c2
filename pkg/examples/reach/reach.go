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

// Package reach computes shortest hop distances from a root over a changing
// edge set. It is an application of the engine, not part of it: a join
// propagates known distances across edges, a group keeps the minimum
// distance per node, and a driver feeds the group's output back into the
// join at the next iteration of the timestamp until a round reaches
// fixpoint. The driver holds capabilities and advances frontiers exactly
// the way any producer collaborator would.
package reach

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wavelineproj/waveline/pkg/flow"
	"github.com/wavelineproj/waveline/pkg/flow/capability"
	"github.com/wavelineproj/waveline/pkg/flow/edge"
	"github.com/wavelineproj/waveline/pkg/operator"
	"github.com/wavelineproj/waveline/pkg/stamp"
)

// EdgeEvent is one signed change to the graph's edge set at a round.
type EdgeEvent struct {
	Round int64
	Src   string
	Dst   string
	Mult  int64
}

// DistDelta is one signed change to the distance assignment of a node,
// projected onto the round that caused it.
type DistDelta struct {
	Round int64
	Node  string
	Dist  int64
	Mult  int64
}

func (d DistDelta) String() string {
	return fmt.Sprintf("dist(%s)=%d: %+d@%d", d.Node, d.Dist, d.Mult, d.Round)
}

// minAggregator keeps the smallest distance among contributions with
// positive net multiplicity.
type minAggregator struct{}

type minAccumulator struct {
	net map[int64]int64
}

func (minAggregator) NewAccumulator() operator.Accumulator {
	return &minAccumulator{net: make(map[int64]int64)}
}

func (a *minAccumulator) Add(value []byte, mult int64) {
	d, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return
	}
	a.net[d] += mult
}

func (a *minAccumulator) Result() ([]byte, bool) {
	found := false
	var m int64
	for d, n := range a.net {
		if n <= 0 {
			continue
		}
		if !found || d < m {
			m = d
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return []byte(strconv.FormatInt(m, 10)), true
}

// propagate combines a known distance of src with an outgoing edge: the
// destination is reachable one hop further. The output payload carries the
// destination so the driver can rekey candidates by it.
func propagate(_ string, dist, dst []byte) []byte {
	d, err := strconv.ParseInt(string(dist), 10, 64)
	if err != nil {
		return nil
	}
	return []byte(string(dst) + ":" + strconv.FormatInt(d+1, 10))
}

// Run feeds the edge events, delivered in the given batch grouping, through
// the dataflow and returns every distance delta the computation emitted.
// The grouping only affects batching, never the accumulated result.
func Run(ctx context.Context, root string, groups [][]EdgeEvent, opts ...operator.Option) ([]DistDelta, error) {
	candidates := edge.New(ctx, "candidates")
	distances := edge.New(ctx, "distances")

	join := operator.NewJoin(ctx, "propagate", candidates, propagate, opts...)
	group := operator.NewGroup(ctx, "min-dist", distances, minAggregator{}, opts...)

	edgesIn := edge.New(ctx, "edges")
	feedbackIn := edge.New(ctx, "dist-feedback")
	groupIn := edge.New(ctx, "min-dist-in")
	join.BindRight(edgesIn)
	join.BindLeft(feedbackIn)
	group.Bind(groupIn)

	// candidates are keyed by source node; rekey them by destination before
	// the per-node minimum.
	candidates.OnBatch(func(b *flow.Batch) error {
		hb := b.Promote()
		rekeyed := make([]flow.Update, 0, len(hb.Updates))
		for _, u := range hb.Updates {
			dst, dist, ok := strings.Cut(string(u.Value), ":")
			if !ok {
				return fmt.Errorf("malformed candidate payload %q", u.Value)
			}
			rekeyed = append(rekeyed, flow.Update{Key: dst, Value: []byte(dist), Mult: u.Mult, Time: u.Time})
		}
		return groupIn.Send(capability.FromBatch(b), flow.NewBatch(b.At, rekeyed...))
	})
	candidates.OnFrontierAdvance(groupIn.AdvanceFrontier)

	// the driver consumes distance deltas twice over: as results and as the
	// next iteration's feedback.
	var results []DistDelta
	var feedback []flow.Update
	distances.OnBatch(func(b *flow.Batch) error {
		hb := b.Promote()
		for _, u := range hb.Updates {
			d, err := strconv.ParseInt(string(u.Value), 10, 64)
			if err != nil {
				return fmt.Errorf("malformed distance payload %q", u.Value)
			}
			results = append(results, DistDelta{Round: u.Time.Round, Node: u.Key, Dist: d, Mult: u.Mult})
		}
		feedback = append(feedback, hb.Updates...)
		return nil
	})

	// ingest the edge sets, then close the input for good.
	edgeCap := capability.Mint(stamp.Time{})
	for _, grp := range groups {
		if len(grp) == 0 {
			continue
		}
		updates := make([]flow.Update, 0, len(grp))
		at := stamp.New(grp[0].Round, 0)
		for _, ev := range grp {
			t := stamp.New(ev.Round, 0)
			at = at.Meet(t)
			updates = append(updates, flow.Update{Key: ev.Src, Value: []byte(ev.Dst), Mult: ev.Mult, Time: &t})
		}
		if err := edgesIn.Send(edgeCap, flow.NewBatch(at, updates...)); err != nil {
			return nil, err
		}
	}
	edgeCap.Drop()
	if err := edgesIn.AdvanceFrontier(stamp.NewAntichain()); err != nil {
		return nil, err
	}

	// seed the root at distance zero and iterate to fixpoint: close one
	// iteration of the feedback input, collect the deltas it produced, and
	// resend them one iteration later.
	distCap := capability.Mint(stamp.Time{})
	if err := feedbackIn.Send(distCap, flow.NewBatch(stamp.Time{}, flow.Update{Key: root, Value: []byte("0"), Mult: 1})); err != nil {
		return nil, err
	}
	for iter := int64(0); ; iter++ {
		next := stamp.New(0, iter+1)
		downgraded, err := distCap.Downgrade(next)
		if err != nil {
			return nil, err
		}
		distCap = downgraded
		if err := feedbackIn.AdvanceFrontier(stamp.NewAntichain(next)); err != nil {
			return nil, err
		}
		if len(feedback) == 0 {
			break
		}
		fb := feedback
		feedback = nil
		rebased := make([]flow.Update, 0, len(fb))
		for _, u := range fb {
			rebased = append(rebased, u.At(stamp.New(u.Time.Round, iter+1)))
		}
		if err := feedbackIn.Send(distCap, flow.NewBatch(next, rebased...)); err != nil {
			return nil, err
		}
	}
	distCap.Drop()
	if err := feedbackIn.AdvanceFrontier(stamp.NewAntichain()); err != nil {
		return nil, err
	}
	return results, nil
}

// CountByDist folds distance deltas into the per-distance counts the
// computation ultimately answers with, keyed "dist=<d>@<round>".
func CountByDist(deltas []DistDelta) map[string]int64 {
	counts := make(map[string]int64)
	for _, d := range deltas {
		k := fmt.Sprintf("dist=%d@%d", d.Dist, d.Round)
		counts[k] += d.Mult
		if counts[k] == 0 {
			delete(counts, k)
		}
	}
	return counts
}
