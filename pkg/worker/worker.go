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

// Package worker schedules operator work. A worker is a single-threaded
// cooperative executor: every operator it owns, and every key of its
// partition, is touched by exactly one goroutine, so operator and history
// state need no locks. Parallelism is across workers; keys are
// hash-partitioned between them and the only cross-worker traffic is
// batches routed to the owning partition plus small frontier summaries.
package worker

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavelineproj/waveline/pkg/flow"
	"github.com/wavelineproj/waveline/pkg/flow/capability"
	"github.com/wavelineproj/waveline/pkg/flow/edge"
	"github.com/wavelineproj/waveline/pkg/shared/logging"
	"github.com/wavelineproj/waveline/pkg/stamp"
)

// Worker executes queued events one at a time. Blocking on an empty mailbox
// is its only suspension point; a full mailbox blocks producers, which is
// the engine's structural backpressure.
type Worker struct {
	name    string
	mailbox chan func() error
	log     *zap.SugaredLogger
}

// New returns a worker with the given name.
func New(ctx context.Context, name string, opts ...Option) *Worker {
	o := defaultWorkerOptions()
	for _, opt := range opts {
		opt(o)
	}
	if name == "" {
		name = "worker-" + uuid.New().String()[0:8]
	}
	return &Worker{
		name:    name,
		mailbox: make(chan func() error, o.mailboxSize),
		log:     logging.FromContext(ctx).With("worker", name),
	}
}

// Name returns the worker name.
func (w *Worker) Name() string {
	return w.name
}

// Submit enqueues an event for the worker loop.
func (w *Worker) Submit(fn func() error) {
	w.mailbox <- fn
}

// Close stops the worker once its mailbox drains. No event may be submitted
// after Close.
func (w *Worker) Close() {
	close(w.mailbox)
}

// Run processes events until the mailbox is closed and drained or the
// context ends. An event returning an error is a protocol invariant
// violation: the worker logs it and terminates, because continuing would
// silently corrupt downstream progress tracking.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Infow("Worker started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn, ok := <-w.mailbox:
			if !ok {
				w.log.Infow("Worker mailbox closed, exiting")
				return nil
			}
			if err := fn(); err != nil {
				w.log.Errorw("Fatal operator error, terminating worker", zap.Error(err))
				return err
			}
			eventsProcessed.WithLabelValues(w.name).Inc()
		}
	}
}

// Deliver moves an edge's traffic onto this worker: it returns a new edge
// that replays the source's batches and frontier advancements from inside
// the worker loop. Bind operators to the returned edge when the producer
// lives on another worker.
func (w *Worker) Deliver(ctx context.Context, src *edge.Edge) *edge.Edge {
	dst := edge.New(ctx, src.Name()+"@"+w.name)
	src.OnBatch(func(b *flow.Batch) error {
		w.Submit(func() error {
			return dst.Send(capability.FromBatch(b), b)
		})
		return nil
	})
	src.OnFrontierAdvance(func(f *stamp.Antichain) error {
		w.Submit(func() error {
			return dst.AdvanceFrontier(f)
		})
		return nil
	})
	return dst
}
