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

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wavelineproj/waveline/pkg/metrics"
)

// emittedUpdates is the number of updates emitted downstream
var emittedUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "operator",
	Name:      "emitted_updates_total",
	Help:      "Total number of updates emitted",
}, []string{metrics.LabelOperator})

// recomputePasses is the number of nonempty closed intervals processed
var recomputePasses = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "operator",
	Name:      "recompute_passes_total",
	Help:      "Total number of closed intervals recomputed",
}, []string{metrics.LabelOperator})

// pairsProcessed is the number of join pairs combined
var pairsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "operator",
	Name:      "join_pairs_total",
	Help:      "Total number of update pairs combined by join",
}, []string{metrics.LabelOperator})

// runsPerPass observes how many totally ordered runs the touched timestamps
// of a group pass decomposed into; growth here signals genuine partial-order
// concurrency in the input
var runsPerPass = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "operator",
	Name:      "group_runs_per_pass",
	Help:      "Totally ordered runs per group recomputation pass",
	Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
}, []string{metrics.LabelOperator})

// touchedTimes observes how many distinct timestamps a group pass touched
var touchedTimes = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "operator",
	Name:      "group_touched_times_per_pass",
	Help:      "Distinct timestamps recomputed per group pass",
	Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
}, []string{metrics.LabelOperator})
