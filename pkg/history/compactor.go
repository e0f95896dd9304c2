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

package history

import (
	"context"

	"go.uber.org/zap"

	"github.com/wavelineproj/waveline/pkg/metrics"
	"github.com/wavelineproj/waveline/pkg/shared/logging"
	"github.com/wavelineproj/waveline/pkg/stamp"
)

// Compactor consolidates history entries. Retired entries whose times are
// closed compare identically against every still-open time after being
// advanced to the join of their time with the frontier's lower bound, so
// advancing them and then summing multiplicities per (time, value) class
// leaves all future recomputation bit-identical. Retired entries still open
// keep their time but merge within the same (time, value) class, which is
// always safe: contributions at one exact time are additive. The compactor
// runs amortized on frontier advances, never on the emit path.
type Compactor struct {
	store    *Store
	interval int
	maxKey   int
	advances int
	log      *zap.SugaredLogger
}

// NewCompactor returns a compactor over the given store.
func NewCompactor(ctx context.Context, store *Store, opts ...CompactorOption) *Compactor {
	c := &Compactor{
		store:    store,
		interval: defaultCompactionInterval,
		maxKey:   defaultMaxKeyEntries,
		log:      logging.FromContext(ctx).With("store", store.Name()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FrontierAdvanced is the opportunistic entry point: every interval-th
// advance triggers a full pass, and a key whose history outgrew the
// per-key bound is consolidated immediately.
func (c *Compactor) FrontierAdvanced(f *stamp.Antichain) int {
	c.advances++
	if c.advances%c.interval == 0 {
		return c.CompactAll(f)
	}
	removed := 0
	for _, key := range c.store.Keys() {
		if c.store.Len(key) > c.maxKey {
			removed += c.Compact(key, f)
		}
	}
	return removed
}

// CompactAll consolidates every key against the frontier and returns the
// number of entries removed.
func (c *Compactor) CompactAll(f *stamp.Antichain) int {
	removed := 0
	for _, key := range c.store.Keys() {
		removed += c.Compact(key, f)
	}
	if removed > 0 {
		c.log.Debugw("Compacted history", zap.Int("removed", removed), zap.String("frontier", f.String()))
	}
	return removed
}

// Compact consolidates one key's retired entries against the frontier.
// Existing cursors into the store are invalidated when anything changed.
func (c *Compactor) Compact(key string, f *stamp.Antichain) int {
	kh, ok := c.store.keys[key]
	if !ok {
		return 0
	}

	type class struct {
		t stamp.Time
		v string
	}
	merged := make(map[class]int64)
	order := make([]class, 0)
	var kept []slot
	before := len(kh.slots)

	lower, live := f.MeetAll()
	for _, sl := range kh.slots {
		if !sl.retired {
			kept = append(kept, sl)
			continue
		}
		t := sl.entry.Time
		if f.Closes(t) {
			if !live {
				// empty frontier: no future recomputation can observe this entry
				continue
			}
			t = t.Join(lower)
		}
		cl := class{t: t, v: string(sl.entry.Value)}
		if _, seen := merged[cl]; !seen {
			order = append(order, cl)
		}
		merged[cl] += sl.entry.Mult
	}

	rebuilt := &keyHistory{byTime: make(map[stamp.Time][]int)}
	for _, cl := range order {
		if merged[cl] == 0 {
			continue
		}
		rebuilt.append(Entry{Time: cl.t, Value: []byte(cl.v), Mult: merged[cl]}, true)
	}
	for _, sl := range kept {
		rebuilt.append(sl.entry, sl.retired)
	}

	removed := before - len(rebuilt.slots)
	if removed == 0 {
		return 0
	}
	if len(rebuilt.slots) == 0 {
		delete(c.store.keys, key)
	} else {
		c.store.keys[key] = rebuilt
	}
	c.store.gen.Inc()
	c.store.size.Sub(int64(removed))

	labels := map[string]string{metrics.LabelStore: c.store.name}
	historyEntries.With(labels).Set(float64(c.store.size.Load()))
	compactionPasses.With(labels).Inc()
	compactedEntries.With(labels).Add(float64(removed))
	return removed
}
