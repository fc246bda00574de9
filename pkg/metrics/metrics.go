/*
Copyright 2022 The Numaproj Authors.

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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "aqiflow"

	LabelVersion  = "version"
	LabelPlatform = "platform"
	LabelSource   = "source"
	LabelSink     = "sink"
	LabelFamily   = "family"
	LabelKind     = "kind"
	LabelReason   = "reason"
	LabelMetric   = "metric"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "build_info",
		Help:      "A metric with a constant value '1', labeled by aqiflow binary version and platform",
	}, []string{LabelVersion, LabelPlatform})
)

// Ingestion metrics
var (
	// EventsReceived is the number of raw records submitted by any source
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "events_received_total",
		Help:      "Total number of raw records received",
	}, []string{LabelSource})

	// EventsAccepted is the number of normalized events assigned to at least one window family
	EventsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "events_accepted_total",
		Help:      "Total number of events accepted by the engine",
	})

	// EventsMalformed is the number of raw records rejected by the normalizer
	EventsMalformed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "events_malformed_total",
		Help:      "Total number of malformed records",
	}, []string{LabelReason})

	// EventsLate is the number of events dropped by a family because the watermark passed their window
	EventsLate = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "events_late_total",
		Help:      "Total number of late events dropped per window family",
	}, []string{LabelFamily})

	// EventsFiltered is the number of events dropped by the filter expression
	EventsFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "events_filtered_total",
		Help:      "Total number of events dropped by the filter expression",
	})

	QueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "queue_dropped_total",
		Help:      "Total number of records evicted from the full dispatch queue",
	})

	QueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "queue_length",
		Help:      "Number of records waiting in the dispatch queue",
	})
)

// Window metrics
var (
	ActiveWindows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "active_windows",
		Help:      "Number of open windows per family",
	}, []string{LabelFamily})

	// Watermark is the current event time watermark in unix seconds
	Watermark = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "watermark_seconds",
		Help:      "Current watermark in seconds since the epoch",
	})

	WindowsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "windows_emitted_total",
		Help:      "Total number of windows finalized and evicted",
	}, []string{LabelFamily})

	SketchDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "sketch_degraded_total",
		Help:      "Total number of times a quantile sketch lowered its compression",
	}, []string{LabelFamily})

	// EmitLatency is the delay between the end of a window and its emission, measured against the wall clock
	EmitLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "emit_latency_seconds",
		Help:      "Wall clock delay between window end and emission",
		Buckets:   prometheus.ExponentialBucketsRange(1, 3600, 12),
	}, []string{LabelFamily})
)

// Sink metrics
var (
	SinkWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "sink_writes_total",
		Help:      "Total number of summaries written per sink",
	}, []string{LabelSink, LabelKind})

	SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "sink_errors_total",
		Help:      "Total number of summaries a sink failed to write after retries",
	}, []string{LabelSink})
)

// Rolling window metrics
var (
	Outliers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "outliers_total",
		Help:      "Total number of readings flagged as outliers per metric",
	}, []string{LabelMetric})
)
