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

// Package edge implements the operator-to-operator boundary: batches are
// sent under a capability and frontier advancements declare that nothing
// below them will ever be sent again. Delivery is in-memory and synchronous;
// transport across processes sits outside the engine.
package edge

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wavelineproj/waveline/pkg/flow"
	"github.com/wavelineproj/waveline/pkg/flow/capability"
	"github.com/wavelineproj/waveline/pkg/shared/logging"
	"github.com/wavelineproj/waveline/pkg/stamp"
	"github.com/wavelineproj/waveline/pkg/stamp/frontier"
)

// BatchHandler consumes a delivered batch. A returned error is fatal to the
// consuming operator.
type BatchHandler func(*flow.Batch) error

// FrontierHandler consumes a frontier advancement.
type FrontierHandler func(*stamp.Antichain) error

// Edge connects one producing output to its consumers. The producer owns
// the edge; consumers register handlers. An edge validates the protocol
// invariants at the send boundary so that a violation is caught where it
// originates.
type Edge struct {
	name             string
	frontier         *stamp.Antichain
	batchHandlers    []BatchHandler
	frontierHandlers []FrontierHandler
	log              *zap.SugaredLogger
}

// New returns a named edge. The frontier starts at the minimum timestamp.
func New(ctx context.Context, name string) *Edge {
	if name == "" {
		name = "edge-" + uuid.New().String()[0:8]
	}
	return &Edge{
		name:     name,
		frontier: stamp.NewAntichain(stamp.Time{}),
		log:      logging.FromContext(ctx).With("edge", name),
	}
}

// Name returns the edge name.
func (e *Edge) Name() string {
	return e.name
}

// OnBatch registers a handler invoked for every sent batch.
func (e *Edge) OnBatch(h BatchHandler) {
	e.batchHandlers = append(e.batchHandlers, h)
}

// OnFrontierAdvance registers a handler invoked for every frontier
// advancement.
func (e *Edge) OnFrontierAdvance(h FrontierHandler) {
	e.frontierHandlers = append(e.frontierHandlers, h)
}

// Send delivers a batch under the given capability. The capability must be
// live and cover the batch time, every explicit update time must be at or
// beyond the batch time, and the batch time must still be open under the
// edge's advanced frontier. Each of these is an unconditional protocol
// invariant; a violation aborts the sender.
func (e *Edge) Send(cap *capability.Capability, b *flow.Batch) error {
	if !cap.Valid() {
		return fmt.Errorf("edge %s: %w", e.name, capability.ErrInvalidated)
	}
	if !cap.Covers(b.At) {
		return fmt.Errorf("edge %s: %w: batch at %v under %v", e.name, flow.ErrTimeNotCovered, b.At, cap)
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("edge %s: %w", e.name, err)
	}
	if e.frontier.Closes(b.At) {
		return fmt.Errorf("edge %s: %w: batch at %v behind advanced frontier %v", e.name, flow.ErrTimeNotCovered, b.At, e.frontier)
	}
	sentBatches.WithLabelValues(e.name).Inc()
	var err error
	for _, h := range e.batchHandlers {
		err = multierr.Append(err, h(b))
	}
	return err
}

// AdvanceFrontier declares that no batch below f will ever be sent on this
// edge. The empty frontier closes the edge for good. Going backward is a
// fatal protocol violation.
func (e *Edge) AdvanceFrontier(f *stamp.Antichain) error {
	if !f.DominatedBy(e.frontier) {
		return fmt.Errorf("edge %s: %w: %v after %v", e.name, frontier.ErrRegression, f, e.frontier)
	}
	if f.Equals(e.frontier) {
		return nil
	}
	e.frontier = f.Clone()
	frontierAdvances.WithLabelValues(e.name).Inc()
	var err error
	for _, h := range e.frontierHandlers {
		err = multierr.Append(err, h(f.Clone()))
	}
	return err
}

// Frontier returns the last advanced frontier.
func (e *Edge) Frontier() *stamp.Antichain {
	return e.frontier.Clone()
}

// Closed reports whether the producer advanced the empty frontier.
func (e *Edge) Closed() bool {
	return e.frontier.IsEmpty()
}
