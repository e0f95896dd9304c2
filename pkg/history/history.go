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

// Package history holds the not-yet-fully-consolidated contributions of each
// key across timestamps. Every key owns an arena-style append log of
// (time, value, multiplicity) entries plus an index bucketing the log by
// exact timestamp. Cursors into the log carry the store generation, which the
// compactor bumps when it rewrites a key, so a stale reference fails loudly
// instead of dangling.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/wavelineproj/waveline/pkg/metrics"
	"github.com/wavelineproj/waveline/pkg/shared/logging"
	"github.com/wavelineproj/waveline/pkg/stamp"
	"github.com/wavelineproj/waveline/pkg/stamp/frontier"
)

// ErrStaleCursor is returned when a cursor from before a compaction pass is
// dereferenced.
var ErrStaleCursor = errors.New("cursor predates compaction")

// Entry is one contribution: a signed multiplicity of a value at a time.
type Entry struct {
	Time  stamp.Time
	Value []byte
	Mult  int64
}

func (e Entry) String() string {
	return fmt.Sprintf("(%s, %q, %+d)", e.Time, e.Value, e.Mult)
}

// Cursor is a generation-checked reference to one arena slot of a key.
type Cursor struct {
	Gen  int64
	Slot int
}

type slot struct {
	entry   Entry
	retired bool
}

type keyHistory struct {
	slots []slot
	// byTime indexes slots by exact timestamp, the comparability class that
	// is always safe to consolidate within.
	byTime map[stamp.Time][]int
}

func (kh *keyHistory) append(e Entry, retired bool) {
	kh.slots = append(kh.slots, slot{entry: e, retired: retired})
	kh.byTime[e.Time] = append(kh.byTime[e.Time], len(kh.slots)-1)
}

// Store is the per-key history of one operator input or output. It is owned
// by the single worker holding the key partition, so no locking.
type Store struct {
	name string
	keys map[string]*keyHistory
	gen  *atomic.Int64
	size *atomic.Int64
	log  *zap.SugaredLogger
}

// NewStore returns an empty named store.
func NewStore(ctx context.Context, name string) *Store {
	return &Store{
		name: name,
		keys: make(map[string]*keyHistory),
		gen:  atomic.NewInt64(0),
		size: atomic.NewInt64(0),
		log:  logging.FromContext(ctx).With("store", name),
	}
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

// Generation returns the compaction generation; cursors minted before the
// current generation are stale.
func (s *Store) Generation() int64 {
	return s.gen.Load()
}

func (s *Store) key(key string) *keyHistory {
	kh, ok := s.keys[key]
	if !ok {
		kh = &keyHistory{byTime: make(map[stamp.Time][]int)}
		s.keys[key] = kh
	}
	return kh
}

// Append adds an entry to the key's log. Zero multiplicities are dropped.
func (s *Store) Append(key string, e Entry) {
	s.append(key, e, false)
}

// AppendRetired adds an already-processed entry. Operator output histories
// use this: their entries become consolidation-eligible as soon as the
// frontier passes them.
func (s *Store) AppendRetired(key string, e Entry) {
	s.append(key, e, true)
}

func (s *Store) append(key string, e Entry, retired bool) {
	if e.Mult == 0 {
		return
	}
	s.key(key).append(e, retired)
	s.size.Inc()
	historyEntries.With(map[string]string{metrics.LabelStore: s.name}).Set(float64(s.size.Load()))
}

// Keys returns the keys with any entry, sorted.
func (s *Store) Keys() []string {
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get dereferences a cursor.
func (s *Store) Get(key string, c Cursor) (Entry, error) {
	if c.Gen != s.gen.Load() {
		return Entry{}, fmt.Errorf("%w: cursor gen %d, store gen %d", ErrStaleCursor, c.Gen, s.gen.Load())
	}
	return s.keys[key].slots[c.Slot].entry, nil
}

// FreshIn returns cursors to the key's unretired entries whose times fall in
// the closed interval, in append order.
func (s *Store) FreshIn(key string, ci frontier.ClosedInterval) []Cursor {
	kh, ok := s.keys[key]
	if !ok {
		return nil
	}
	var out []Cursor
	for i, sl := range kh.slots {
		if !sl.retired && ci.Contains(sl.entry.Time) {
			out = append(out, Cursor{Gen: s.gen.Load(), Slot: i})
		}
	}
	return out
}

// Retired returns cursors to the key's retired entries, in append order.
func (s *Store) Retired(key string) []Cursor {
	kh, ok := s.keys[key]
	if !ok {
		return nil
	}
	var out []Cursor
	for i, sl := range kh.slots {
		if sl.retired {
			out = append(out, Cursor{Gen: s.gen.Load(), Slot: i})
		}
	}
	return out
}

// Retire marks the referenced entries as processed. Retired entries stay in
// the log (joins pair against them; folds include them) until the compactor
// consolidates them.
func (s *Store) Retire(key string, cursors []Cursor) error {
	kh := s.keys[key]
	for _, c := range cursors {
		if c.Gen != s.gen.Load() {
			return fmt.Errorf("%w: cursor gen %d, store gen %d", ErrStaleCursor, c.Gen, s.gen.Load())
		}
		kh.slots[c.Slot].retired = true
	}
	return nil
}

// Entries returns a snapshot of the key's entries in append order.
func (s *Store) Entries(key string) []Entry {
	kh, ok := s.keys[key]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(kh.slots))
	for _, sl := range kh.slots {
		out = append(out, sl.entry)
	}
	return out
}

// Times returns the key's distinct timestamps in lexicographic order.
func (s *Store) Times(key string) []stamp.Time {
	kh, ok := s.keys[key]
	if !ok {
		return nil
	}
	out := make([]stamp.Time, 0, len(kh.byTime))
	for t := range kh.byTime {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Lexicographic(out[j]) })
	return out
}

// Len returns the number of entries held for the key.
func (s *Store) Len(key string) int {
	kh, ok := s.keys[key]
	if !ok {
		return 0
	}
	return len(kh.slots)
}

// Size returns the total number of entries across keys. Unbounded growth
// here is a performance pathology, not an error; it is surfaced through the
// history_entries gauge.
func (s *Store) Size() int64 {
	return s.size.Load()
}
