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

package operator

import "github.com/wavelineproj/waveline/pkg/history"

type options struct {
	naiveRecompute bool
	compactorOpts  []history.CompactorOption
}

func defaultOptions() *options {
	return &options{}
}

// Option customizes an operator.
type Option func(*options)

// WithNaiveRecompute makes a group rescan the full per-key history for every
// touched timestamp instead of decomposing into totally ordered runs. Kept
// as the reference the run-optimized path is checked against.
func WithNaiveRecompute() Option {
	return func(o *options) {
		o.naiveRecompute = true
	}
}

// WithCompactorOptions forwards options to the operator's history
// compactors.
func WithCompactorOptions(opts ...history.CompactorOption) Option {
	return func(o *options) {
		o.compactorOpts = append(o.compactorOpts, opts...)
	}
}
