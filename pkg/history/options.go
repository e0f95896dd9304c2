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

const (
	defaultCompactionInterval = 4
	defaultMaxKeyEntries      = 64
)

// CompactorOption customizes a Compactor.
type CompactorOption func(*Compactor)

// WithCompactionInterval sets how many frontier advances pass between full
// compaction passes.
func WithCompactionInterval(n int) CompactorOption {
	return func(c *Compactor) {
		if n > 0 {
			c.interval = n
		}
	}
}

// WithMaxKeyEntries sets the per-key history length beyond which a key is
// consolidated without waiting for the next full pass.
func WithMaxKeyEntries(n int) CompactorOption {
	return func(c *Compactor) {
		if n > 0 {
			c.maxKey = n
		}
	}
}
