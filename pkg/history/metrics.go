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

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wavelineproj/waveline/pkg/metrics"
)

// historyEntries is the number of entries currently held across keys
var historyEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "history",
	Name:      "entries",
	Help:      "Number of history entries currently held across all keys",
}, []string{metrics.LabelStore})

// compactionPasses is the number of completed compaction passes
var compactionPasses = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "history",
	Name:      "compaction_passes_total",
	Help:      "Total number of compaction passes",
}, []string{metrics.LabelStore})

// compactedEntries is the number of entries removed by consolidation
var compactedEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "history",
	Name:      "compacted_entries_total",
	Help:      "Total number of history entries removed by consolidation",
}, []string{metrics.LabelStore})
