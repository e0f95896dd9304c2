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

package edge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wavelineproj/waveline/pkg/metrics"
)

// sentBatches is the number of batches delivered on an edge
var sentBatches = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "edge",
	Name:      "sent_batches_total",
	Help:      "Total number of batches delivered on the edge",
}, []string{metrics.LabelEdge})

// frontierAdvances is the number of frontier advancements on an edge
var frontierAdvances = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "edge",
	Name:      "frontier_advances_total",
	Help:      "Total number of frontier advancements on the edge",
}, []string{metrics.LabelEdge})
