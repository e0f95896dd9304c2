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

package edge

import (
	"github.com/wavelineproj/waveline/pkg/flow"
	"github.com/wavelineproj/waveline/pkg/stamp"
)

// Collector is a result-consumer sink: it subscribes to an edge and keeps
// every delivered update with its effective timestamp. Used by tests and by
// applications that read the final output of a dataflow.
type Collector struct {
	updates  []flow.Update
	frontier *stamp.Antichain
}

// NewCollector returns a collector subscribed to the given edge.
func NewCollector(e *Edge) *Collector {
	c := &Collector{frontier: stamp.NewAntichain(stamp.Time{})}
	e.OnBatch(func(b *flow.Batch) error {
		hb := b.Promote()
		c.updates = append(c.updates, hb.Updates...)
		return nil
	})
	e.OnFrontierAdvance(func(f *stamp.Antichain) error {
		c.frontier = f
		return nil
	})
	return c
}

// Updates returns every collected update, all carrying explicit times.
func (c *Collector) Updates() []flow.Update {
	return c.updates
}

// Frontier returns the last frontier the producer advanced.
func (c *Collector) Frontier() *stamp.Antichain {
	return c.frontier
}

// Accumulate sums collected multiplicities per (key, value, time), dropping
// zeros. Two deliveries of the same logical updates accumulate identically
// regardless of batching, which is what tests compare.
func (c *Collector) Accumulate() map[string]int64 {
	acc := make(map[string]int64)
	for _, u := range c.updates {
		k := u.Key + "|" + string(u.Value) + "|" + u.Time.String()
		acc[k] += u.Mult
		if acc[k] == 0 {
			delete(acc, k)
		}
	}
	return acc
}
