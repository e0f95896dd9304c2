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
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/wavelineproj/waveline/pkg/shared/logging"
)

// Pool runs a set of workers, one goroutine each. The first worker to fail
// cancels the rest; a clean run ends when every mailbox is closed and
// drained.
type Pool struct {
	workers []*Worker
}

// NewPool returns a pool over the given workers.
func NewPool(workers ...*Worker) *Pool {
	return &Pool{workers: workers}
}

// Workers returns the pooled workers.
func (p *Pool) Workers() []*Worker {
	return p.workers
}

// Run blocks until every worker exits.
func (p *Pool) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		w := w
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	err := g.Wait()
	if err != nil {
		log.Errorw("Worker pool exited with error", "error", err)
	}
	return err
}

// Close closes every worker's mailbox; Run returns once they drain.
func (p *Pool) Close() {
	for _, w := range p.workers {
		w.Close()
	}
}
