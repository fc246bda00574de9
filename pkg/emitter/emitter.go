/*
Copyright 2026 The Aqiflow Authors.

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

// Package emitter turns finalizable windows into summaries, publishes them and evicts
// the windows.
//
// Every window returned by the manager is evicted after its summaries were handed to
// the sink, whether the sink accepted them or not. An evicted window can not be
// created again, because the watermark that finalized it never regresses, so each
// window is emitted at most once.
package emitter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/metrics"
	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/sinks"
	"github.com/aqiflow/aqiflow/pkg/summary"
	"github.com/aqiflow/aqiflow/pkg/watermark/wmb"
	"github.com/aqiflow/aqiflow/pkg/window"
)

// Emitter is driven by the dispatch loop and is not safe for concurrent use.
type Emitter struct {
	manager *window.Manager
	sink    sinks.Sink
	now     func() time.Time
	log     *zap.SugaredLogger
}

type Option func(*Emitter)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Emitter) {
		e.log = log
	}
}

// WithClock sets the wall clock used for the emit latency metric.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) {
		e.now = now
	}
}

// New returns an emitter publishing the windows of manager to sink.
func New(manager *window.Manager, sink sinks.Sink, opts ...Option) *Emitter {
	e := &Emitter{
		manager: manager,
		sink:    sink,
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = logging.NewLogger()
	}
	return e
}

// Emit finalizes, publishes and evicts every window whose end the watermark has
// reached, in window start order. It returns the number of evicted windows.
func (e *Emitter) Emit(ctx context.Context, wm wmb.Watermark) int {
	ready := e.manager.Finalizable(wm)
	for _, w := range ready {
		e.publish(ctx, w, Finalize(w))
		e.evict(w)
	}
	return len(ready)
}

func (e *Emitter) publish(ctx context.Context, w *window.Window, sums []summary.Summary) {
	for _, s := range sums {
		if err := e.sink.Write(ctx, s); err != nil {
			e.log.Errorw("Failed to publish the summary, dropping it", zap.String("window", w.ID().String()),
				zap.String("kind", s.Kind().String()), zap.Error(err))
		}
	}
}

func (e *Emitter) evict(w *window.Window) {
	family := w.Family().Name
	if !e.manager.Evict(w.ID()) {
		e.log.Warnw("Window already evicted", zap.String("window", w.ID().String()))
		return
	}
	metrics.WindowsEmitted.WithLabelValues(family).Inc()
	if lag := e.now().Sub(w.EndTime()); lag >= 0 {
		metrics.EmitLatency.WithLabelValues(family).Observe(lag.Seconds())
	}
	e.log.Debugw("Window emitted", zap.String("window", w.ID().String()), zap.Uint64("count", w.Count()))
}

// Finalize builds the summaries of a window. It does not modify the window, calling
// it twice on the same state returns equal summaries.
func Finalize(w *window.Window) []summary.Summary {
	var out []summary.Summary
	f := w.Family()
	switch {
	case f.Name == window.HourlyFamily:
		out = append(out, &summary.HourlySummary{StatisticsSummary: *statistics(w)})
	case len(f.StatisticsMetrics) > 0:
		out = append(out, statistics(w))
	}
	if counts, ok := w.Histogram(); ok {
		out = append(out, &summary.HistogramSummary{Start: w.StartTime(), End: w.EndTime(), Counts: counts})
	}
	if len(f.QuantileMetrics) > 0 {
		out = append(out, distribution(w))
	}
	return out
}

func statistics(w *window.Window) *summary.StatisticsSummary {
	s := &summary.StatisticsSummary{
		Start: w.StartTime(),
		End:   w.EndTime(),
		Count: w.Count(),
	}
	for _, r := range w.Statistics() {
		stats := summary.Stats{Min: r.Min, Max: r.Max, Mean: r.Mean, Stddev: r.Stddev}
		if r.Metric == window.AQI {
			s.AQI = stats
			continue
		}
		s.Metrics = append(s.Metrics, summary.MetricStats{Metric: r.Metric.String(), Stats: stats})
	}
	return s
}

func distribution(w *window.Window) *summary.DistributionSummary {
	d := &summary.DistributionSummary{Start: w.StartTime(), End: w.EndTime()}
	qs := w.Quantiles(summary.QuartileProbabilities...)
	for _, m := range w.Family().QuantileMetrics {
		v := qs[m]
		d.Quartiles = append(d.Quartiles, summary.Quartiles{Metric: m.String(), Values: [3]float64{v[0], v[1], v[2]}})
	}
	return d
}
