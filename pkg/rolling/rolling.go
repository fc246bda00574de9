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

// Package rolling keeps the last N accepted events and computes rolling statistics
// and z-score outliers over them. It is independent of the event time windows.
//
// Standard deviations are sample standard deviations (n-1).
package rolling

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/aqiflow/aqiflow/pkg/event"
	"github.com/aqiflow/aqiflow/pkg/shared/queue"
)

const (
	DefaultSize             = 10
	DefaultOutlierThreshold = 2.0
)

// Field names a numeric field of an event.
type Field struct {
	Name  string
	value func(event.Event) float64
}

func aqiField() Field {
	return Field{Name: "aqi", value: func(ev event.Event) float64 { return float64(ev.AQI) }}
}

func pollutantField(p event.Pollutant) Field {
	return Field{Name: p.String(), value: func(ev event.Event) float64 { return ev.Component(p) }}
}

var (
	// StatisticsFields are summarized by Stats.
	StatisticsFields = []Field{aqiField(), pollutantField(event.CO), pollutantField(event.NO2), pollutantField(event.PM2_5), pollutantField(event.PM10)}
	// OutlierFields are scanned by Outliers.
	OutlierFields = []Field{aqiField(), pollutantField(event.CO), pollutantField(event.NO2), pollutantField(event.O3),
		pollutantField(event.SO2), pollutantField(event.PM2_5), pollutantField(event.PM10)}
)

// FieldStats of one field over the window. NaN values mean not enough data.
type FieldStats struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Outlier is an event with the fields whose |z| exceeded the threshold.
type Outlier struct {
	Event  event.Event
	Fields []string
}

// Window is the rolling buffer. It is safe for concurrent use.
type Window struct {
	events    *queue.OverflowQueue[event.Event]
	threshold float64
}

// NewWindow returns a window of the last size events. Non-positive arguments take the defaults.
func NewWindow(size int, threshold float64) *Window {
	if size <= 0 {
		size = DefaultSize
	}
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}
	return &Window{events: queue.New[event.Event](size), threshold: threshold}
}

// Add appends ev and returns the fields for which ev is an outlier among the buffered events.
func (w *Window) Add(ev event.Event) []string {
	w.events.Append(ev)
	return outlierFields(w.events.Items(), ev, w.threshold)
}

// Len returns the number of buffered events.
func (w *Window) Len() int {
	return w.events.Length()
}

// Size returns the window capacity.
func (w *Window) Size() int {
	return w.events.Capacity()
}

// Threshold returns the outlier z-score threshold.
func (w *Window) Threshold() float64 {
	return w.threshold
}

// Stats summarizes StatisticsFields. It reports false until the window is full.
func (w *Window) Stats() (map[string]FieldStats, bool) {
	events := w.events.Items()
	if len(events) < w.Size() {
		return nil, false
	}
	out := make(map[string]FieldStats, len(StatisticsFields))
	for _, f := range StatisticsFields {
		out[f.Name] = fieldStats(column(events, f))
	}
	return out, true
}

// Outliers returns the buffered events whose |z| exceeds threshold for any of
// OutlierFields, oldest first. A non-positive threshold uses the window threshold.
func (w *Window) Outliers(threshold float64) []Outlier {
	if threshold <= 0 {
		threshold = w.threshold
	}
	events := w.events.Items()
	var out []Outlier
	for _, ev := range events {
		if fields := outlierFields(events, ev, threshold); len(fields) > 0 {
			out = append(out, Outlier{Event: ev, Fields: fields})
		}
	}
	return out
}

func column(events []event.Event, f Field) stats.Float64Data {
	data := make(stats.Float64Data, len(events))
	for i, ev := range events {
		data[i] = f.value(ev)
	}
	return data
}

func fieldStats(data stats.Float64Data) FieldStats {
	fs := FieldStats{Mean: math.NaN(), Std: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	if v, err := stats.Mean(data); err == nil {
		fs.Mean = v
	}
	if v, err := stats.Min(data); err == nil {
		fs.Min = v
	}
	if v, err := stats.Max(data); err == nil {
		fs.Max = v
	}
	if len(data) > 1 {
		if v, err := stats.StandardDeviationSample(data); err == nil {
			fs.Std = v
		}
	}
	return fs
}

func outlierFields(events []event.Event, ev event.Event, threshold float64) []string {
	if len(events) < 2 {
		return nil
	}
	var out []string
	for _, f := range OutlierFields {
		fs := fieldStats(column(events, f))
		if math.IsNaN(fs.Std) || fs.Std == 0 {
			continue
		}
		if z := math.Abs((f.value(ev) - fs.Mean) / fs.Std); z > threshold {
			out = append(out, f.Name)
		}
	}
	return out
}
