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

// Package capability implements the emission permits of the engine. A
// capability at time t authorizes sending updates at any time at or beyond
// t, and the set of capabilities an operator holds is the only information
// downstream progress tracking has about what the operator may still send.
// A capability is never minted out of thin air past the ingestion boundary:
// it is derived by downgrading a held one or from an incoming batch.
package capability

import (
	"errors"
	"fmt"

	"go.uber.org/atomic"

	"github.com/wavelineproj/waveline/pkg/flow"
	"github.com/wavelineproj/waveline/pkg/stamp"
)

var (
	// ErrInvalidated is returned when a capability is used after it was
	// dropped or downgraded. Fatal: the authorization it carried no longer
	// exists.
	ErrInvalidated = errors.New("capability used after downgrade or drop")
	// ErrBackward is returned when a downgrade target is not at or beyond
	// the capability's time.
	ErrBackward = errors.New("cannot downgrade capability backward")
)

// Capability authorizes emission of updates at or beyond its timestamp.
// Exactly one logical owner holds a capability instance; downgrading
// derives new instances and invalidates the receiver.
type Capability struct {
	t     stamp.Time
	valid *atomic.Bool
}

// Mint creates a fresh capability at the given time. Only the ingestion
// boundary (a raw stream producer) may mint; operators derive theirs by
// downgrading or from incoming batches.
func Mint(t stamp.Time) *Capability {
	return &Capability{t: t, valid: atomic.NewBool(true)}
}

// FromBatch derives a capability at the incoming batch's time. The sender
// held a capability covering that time, so the derivation keeps the
// authorization chain intact.
func FromBatch(b *flow.Batch) *Capability {
	return Mint(b.At)
}

// Time returns the capability's timestamp.
func (c *Capability) Time() stamp.Time {
	return c.t
}

// Valid reports whether the capability still carries its authorization.
func (c *Capability) Valid() bool {
	return c.valid.Load()
}

// Covers reports whether the capability authorizes emission at t.
func (c *Capability) Covers(t stamp.Time) bool {
	return c.Valid() && c.t.LessEqual(t)
}

// Downgrade derives a capability at the later time t and invalidates the
// receiver. Fails if the receiver is already invalid or t is not at or
// beyond the receiver's time.
func (c *Capability) Downgrade(t stamp.Time) (*Capability, error) {
	children, err := c.DowngradeAll([]stamp.Time{t})
	if err != nil {
		return nil, err
	}
	return children[0], nil
}

// DowngradeAll derives one capability per given time and invalidates the
// receiver. Used when a single held capability must split to cover several
// incomparable frontier elements.
func (c *Capability) DowngradeAll(times []stamp.Time) ([]*Capability, error) {
	if !c.Valid() {
		return nil, ErrInvalidated
	}
	for _, t := range times {
		if !c.t.LessEqual(t) {
			return nil, fmt.Errorf("%w: held %v, requested %v", ErrBackward, c.t, t)
		}
	}
	children := make([]*Capability, 0, len(times))
	for _, t := range times {
		children = append(children, &Capability{t: t, valid: atomic.NewBool(true)})
	}
	c.valid.Store(false)
	return children, nil
}

// Drop releases the capability, signalling that the holder will never send
// below any other bound it still holds. Dropping promptly is what lets
// downstream frontiers advance.
func (c *Capability) Drop() {
	c.valid.Store(false)
}

func (c *Capability) String() string {
	state := "live"
	if !c.Valid() {
		state = "invalid"
	}
	return fmt.Sprintf("cap@%v(%s)", c.t, state)
}
