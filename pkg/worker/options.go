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

const defaultMailboxSize = 1024

type workerOptions struct {
	mailboxSize int
}

func defaultWorkerOptions() *workerOptions {
	return &workerOptions{mailboxSize: defaultMailboxSize}
}

// Option customizes a worker.
type Option func(*workerOptions)

// WithMailboxSize sets the event queue depth. A full mailbox blocks
// producers, which is the intended backpressure.
func WithMailboxSize(n int) Option {
	return func(o *workerOptions) {
		if n > 0 {
			o.mailboxSize = n
		}
	}
}
