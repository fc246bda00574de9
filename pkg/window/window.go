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

package window

import (
	"fmt"
	"time"

	"github.com/aqiflow/aqiflow/pkg/aggregator"
	"github.com/aqiflow/aqiflow/pkg/classifier"
	"github.com/aqiflow/aqiflow/pkg/event"
	"github.com/aqiflow/aqiflow/pkg/sketch"
)

// Status is the lifecycle state of a window.
type Status int

const (
	Open Status = iota
	Finalized
)

func (s Status) String() string {
	switch s {
	case Open:
		return "Open"
	case Finalized:
		return "Finalized"
	default:
		return "Unknown"
	}
}

// ID identifies a window across families.
type ID struct {
	Family string
	Start  time.Time
}

func (id ID) String() string {
	return fmt.Sprintf("%s/%s", id.Family, id.Start.UTC().Format(time.RFC3339Nano))
}

// MetricResult pairs a metric with its finalized statistics.
type MetricResult struct {
	Metric Metric
	aggregator.Result
}

// Window is the mutable state of one active window. It is owned by the Manager;
// once evicted any Update panics.
type Window struct {
	family *Family
	start  time.Time
	end    time.Time
	status Status
	count  uint64

	stats     []aggregator.Accumulator
	sketches  []*sketch.TDigest
	histogram *classifier.Histogram
}

func newWindow(f *Family, start, end time.Time) *Window {
	w := &Window{
		family: f,
		start:  start,
		end:    end,
		stats:  make([]aggregator.Accumulator, len(f.StatisticsMetrics)),
	}
	if len(f.QuantileMetrics) > 0 {
		w.sketches = make([]*sketch.TDigest, len(f.QuantileMetrics))
		for i := range w.sketches {
			w.sketches[i] = sketch.New(f.sketchOpts...)
		}
	}
	if f.Histogram {
		w.histogram = &classifier.Histogram{}
	}
	return w
}

func (w *Window) StartTime() time.Time {
	return w.start
}

func (w *Window) EndTime() time.Time {
	return w.end
}

func (w *Window) ID() ID {
	return ID{Family: w.family.Name, Start: w.start}
}

func (w *Window) Family() *Family {
	return w.family
}

func (w *Window) Status() Status {
	return w.status
}

// Count returns the number of events folded into the window.
func (w *Window) Count() uint64 {
	return w.count
}

// Update folds ev into every piece of state the family tracks.
func (w *Window) Update(ev event.Event) {
	if w.status == Finalized {
		panic(fmt.Errorf("%w: %s", ErrEvicted, w.ID()))
	}
	w.count++
	for i, m := range w.family.StatisticsMetrics {
		w.stats[i].Update(m.Value(ev))
	}
	for i, m := range w.family.QuantileMetrics {
		w.sketches[i].Add(m.Value(ev))
	}
	if w.histogram != nil {
		// aqi was validated by the normalizer
		_ = w.histogram.Update(ev.AQI)
	}
}

// Statistics finalizes the accumulators in the family's metric order.
func (w *Window) Statistics() []MetricResult {
	out := make([]MetricResult, len(w.stats))
	for i := range w.stats {
		out[i] = MetricResult{Metric: w.family.StatisticsMetrics[i], Result: w.stats[i].Finalize()}
	}
	return out
}

// Quantiles returns, per quantile metric, the values at qs.
func (w *Window) Quantiles(qs ...float64) map[Metric][]float64 {
	out := make(map[Metric][]float64, len(w.sketches))
	for i, s := range w.sketches {
		out[w.family.QuantileMetrics[i]] = s.Quantiles(qs...)
	}
	return out
}

// Histogram returns the AQI category counts, or false if the family has no histogram.
func (w *Window) Histogram() (classifier.Counts, bool) {
	if w.histogram == nil {
		return classifier.Counts{}, false
	}
	return w.histogram.Finalize(), true
}
