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

package reach

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wavelineproj/waveline/pkg/history"
	"github.com/wavelineproj/waveline/pkg/operator"
)

// the running example: a direct edge to node 3 at round 0, a two-hop path
// through node 2 assembled at rounds 5 and 10, and the direct edge removed
// at round 11, which flips node 3 from distance 1 to distance 2.
var events = []EdgeEvent{
	{Round: 0, Src: "0", Dst: "3", Mult: 1},
	{Round: 5, Src: "0", Dst: "2", Mult: 1},
	{Round: 10, Src: "2", Dst: "3", Mult: 1},
	{Round: 11, Src: "0", Dst: "3", Mult: -1},
}

var wantCounts = map[string]int64{
	"dist=1@0":  1,
	"dist=1@5":  1,
	"dist=1@11": -1,
	"dist=2@11": 1,
}

// accumulate nets deltas per (node, dist, round), dropping zeros.
func accumulate(deltas []DistDelta) map[string]int64 {
	acc := make(map[string]int64)
	for _, d := range deltas {
		k := fmt.Sprintf("%s|%d|%d", d.Node, d.Dist, d.Round)
		acc[k] += d.Mult
		if acc[k] == 0 {
			delete(acc, k)
		}
	}
	return acc
}

var wantAccumulated = map[string]int64{
	"3|1|0":  1,
	"2|1|5":  1,
	"3|1|11": -1,
	"3|2|11": 1,
}

func TestRun_SingleBatch(t *testing.T) {
	deltas, err := Run(context.Background(), "0", [][]EdgeEvent{events})
	assert.NoError(t, err)
	assert.Equal(t, wantCounts, CountByDist(deltas))
	assert.Equal(t, wantAccumulated, accumulate(deltas))
}

func TestRun_BatchingInvariance(t *testing.T) {
	groupings := map[string][][]EdgeEvent{
		"one_batch":  {events},
		"per_event":  {events[0:1], events[1:2], events[2:3], events[3:4]},
		"pairs":      {events[0:2], events[2:4]},
		"lopsided":   {events[0:3], events[3:4]},
		"rounds_mix": {{events[1], events[0]}, {events[3], events[2]}},
	}
	for name, groups := range groupings {
		groups := groups
		t.Run(name, func(t *testing.T) {
			deltas, err := Run(context.Background(), "0", groups)
			assert.NoError(t, err)
			assert.Equal(t, wantCounts, CountByDist(deltas))
			assert.Equal(t, wantAccumulated, accumulate(deltas))
		})
	}
}

func TestRun_MatchesNaiveRecompute(t *testing.T) {
	optimized, err := Run(context.Background(), "0", [][]EdgeEvent{events})
	assert.NoError(t, err)
	naive, err := Run(context.Background(), "0", [][]EdgeEvent{events}, operator.WithNaiveRecompute())
	assert.NoError(t, err)
	assert.Equal(t, accumulate(naive), accumulate(optimized))
}

func TestRun_CompactionTransparency(t *testing.T) {
	// consolidating after every frontier advance must leave the delta
	// stream untouched
	deltas, err := Run(context.Background(), "0", [][]EdgeEvent{events},
		operator.WithCompactorOptions(
			history.WithCompactionInterval(1),
			history.WithMaxKeyEntries(1),
		))
	assert.NoError(t, err)
	assert.Equal(t, wantCounts, CountByDist(deltas))
	assert.Equal(t, wantAccumulated, accumulate(deltas))
}

func TestRun_EdgeRemovalOnly(t *testing.T) {
	// adding and removing the same edge in one closed round nets to nothing
	deltas, err := Run(context.Background(), "0", [][]EdgeEvent{{
		{Round: 0, Src: "0", Dst: "1", Mult: 1},
		{Round: 0, Src: "0", Dst: "1", Mult: -1},
	}})
	assert.NoError(t, err)
	assert.Empty(t, CountByDist(deltas))
}

func TestRun_CycleReachesFixpoint(t *testing.T) {
	// a cycle through the root must not iterate forever: distances stop
	// improving once every node holds its minimum
	deltas, err := Run(context.Background(), "0", [][]EdgeEvent{{
		{Round: 0, Src: "0", Dst: "1", Mult: 1},
		{Round: 0, Src: "1", Dst: "2", Mult: 1},
		{Round: 0, Src: "2", Dst: "0", Mult: 1},
	}})
	assert.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"dist=1@0": 1,
		"dist=2@0": 1,
		"dist=3@0": 1,
	}, CountByDist(deltas))
}