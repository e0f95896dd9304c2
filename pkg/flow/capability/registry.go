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

package capability

import (
	"errors"
	"fmt"

	"github.com/wavelineproj/waveline/pkg/stamp"
)

// ErrNoCover is returned when an operator asks for a capability covering a
// time it holds no authorization for. Fatal: sending anyway would make
// downstream progress tracking unsound.
var ErrNoCover = errors.New("no held capability covers time")

// Registry tracks the capabilities one operator output holds. The antichain
// of live capability times is exactly the operator's output frontier, so
// keeping the registry tight is what propagates progress downstream. Owned
// by a single operator on a single-threaded worker.
type Registry struct {
	caps []*Capability
}

// NewRegistry returns a registry seeded with one capability at the given
// time, usually the minimum timestamp at operator construction.
func NewRegistry(seed stamp.Time) *Registry {
	return &Registry{caps: []*Capability{Mint(seed)}}
}

// Frontier returns the antichain of live capability times: the operator's
// output frontier.
func (r *Registry) Frontier() *stamp.Antichain {
	f := stamp.NewAntichain()
	for _, c := range r.caps {
		if c.Valid() {
			f.Insert(c.Time())
		}
	}
	return f
}

// CoverFor returns a live capability authorizing emission at t.
func (r *Registry) CoverFor(t stamp.Time) (*Capability, error) {
	for _, c := range r.caps {
		if c.Covers(t) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %v against %v", ErrNoCover, t, r.Frontier())
}

// SyncTo downgrades the held capabilities so that their times form exactly
// the given frontier, dropping whatever no longer covers anything. The
// frontier must be reachable from the currently held one; anything else is
// a protocol violation.
func (r *Registry) SyncTo(f *stamp.Antichain) error {
	targets := f.Elements()
	assigned := make([]bool, len(targets))
	var next []*Capability
	for _, c := range r.caps {
		if !c.Valid() {
			continue
		}
		var mine []stamp.Time
		for i, t := range targets {
			if !assigned[i] && c.Time().LessEqual(t) {
				assigned[i] = true
				mine = append(mine, t)
			}
		}
		if len(mine) == 0 {
			c.Drop()
			continue
		}
		children, err := c.DowngradeAll(mine)
		if err != nil {
			return err
		}
		next = append(next, children...)
	}
	for i, t := range targets {
		if !assigned[i] {
			return fmt.Errorf("%w: frontier element %v", ErrNoCover, t)
		}
	}
	r.caps = next
	return nil
}

// DropAll releases every held capability, the shutdown signal for this
// output.
func (r *Registry) DropAll() {
	for _, c := range r.caps {
		c.Drop()
	}
	r.caps = nil
}
