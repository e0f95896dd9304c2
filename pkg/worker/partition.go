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

package worker

import (
	"github.com/cespare/xxhash/v2"

	"github.com/wavelineproj/waveline/pkg/flow"
	"github.com/wavelineproj/waveline/pkg/flow/capability"
	"github.com/wavelineproj/waveline/pkg/flow/edge"
	"github.com/wavelineproj/waveline/pkg/stamp"
)

// Partitioner scatters a batch across per-worker edges by key hash, so that
// every key has exactly one owning worker. Frontier advancements go to every
// partition: progress is global even when data is not.
type Partitioner struct {
	outs []*edge.Edge
}

// NewPartitioner returns a partitioner over the given per-worker edges.
func NewPartitioner(outs []*edge.Edge) *Partitioner {
	return &Partitioner{outs: outs}
}

// Route returns the partition owning the key.
func (p *Partitioner) Route(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(p.outs)))
}

// Scatter splits the batch by key ownership and sends each piece to its
// partition under the same capability. Sub-batches keep the original batch
// time, so the capability keeps covering them.
func (p *Partitioner) Scatter(cap *capability.Capability, b *flow.Batch) error {
	parts := make([][]flow.Update, len(p.outs))
	hb := b.Promote()
	for _, u := range hb.Updates {
		i := p.Route(u.Key)
		parts[i] = append(parts[i], u)
	}
	for i, us := range parts {
		if len(us) == 0 {
			continue
		}
		if err := p.outs[i].Send(cap, flow.NewBatch(b.At, us...)); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceFrontier propagates a frontier advance to every partition.
func (p *Partitioner) AdvanceFrontier(f *stamp.Antichain) error {
	for _, e := range p.outs {
		if err := e.AdvanceFrontier(f); err != nil {
			return err
		}
	}
	return nil
}
