// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadHistorySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bookrec",
		Subsystem: "pipeline",
		Name:      "read_history_seconds",
	})
	ScoreSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bookrec",
		Subsystem: "pipeline",
		Name:      "score_seconds",
	})
	ReadHistoryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookrec",
		Subsystem: "pipeline",
		Name:      "read_history_failures_total",
	}, []string{"kind"})
	UnmappedCandidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookrec",
		Subsystem: "pipeline",
		Name:      "unmapped_candidates_total",
	})
	Candidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bookrec",
		Subsystem: "pipeline",
		Name:      "candidates",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})
)
