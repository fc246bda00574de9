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

	"github.com/aqiflow/aqiflow/pkg/event"
	"github.com/aqiflow/aqiflow/pkg/sketch"
	"github.com/aqiflow/aqiflow/pkg/window/strategy/fixed"
)

const (
	// StatisticsFamily windows produce statistics and histogram summaries.
	StatisticsFamily = "statistics"
	// DistributionFamily windows produce quartile summaries.
	DistributionFamily = "distribution"
	// HourlyFamily windows produce hourly statistics summaries.
	HourlyFamily = "hourly"

	DefaultWindowSize = 5 * time.Minute
	HourlyWindowSize  = time.Hour
)

// Metric is a numeric field of an event: the AQI or one of the pollutants.
type Metric struct {
	name      string
	pollutant event.Pollutant
	aqi       bool
}

// AQI is the metric reading the event's AQI category as a number.
var AQI = Metric{name: "aqi", aqi: true}

// PollutantMetric returns the metric reading component p.
func PollutantMetric(p event.Pollutant) Metric {
	return Metric{name: p.String(), pollutant: p}
}

// ParseMetric resolves "aqi" or a pollutant key.
func ParseMetric(s string) (Metric, error) {
	if s == AQI.name {
		return AQI, nil
	}
	if p, ok := event.ParsePollutant(s); ok {
		return PollutantMetric(p), nil
	}
	return Metric{}, fmt.Errorf("unknown metric %q", s)
}

func (m Metric) String() string {
	return m.name
}

// Value extracts the metric from ev.
func (m Metric) Value(ev event.Event) float64 {
	if m.aqi {
		return float64(ev.AQI)
	}
	return ev.Component(m.pollutant)
}

var (
	// DefaultStatisticsMetrics are the pollutants summarized by statistics windows, besides the AQI.
	DefaultStatisticsMetrics = []event.Pollutant{event.CO, event.NO2, event.PM2_5, event.PM10}
	// DefaultQuantileMetrics are the gases summarized by distribution windows.
	DefaultQuantileMetrics = []event.Pollutant{event.CO, event.NO2, event.O3, event.SO2, event.PM2_5, event.PM10}
	// HourlyMetrics are the pollutants summarized by hourly windows, besides the AQI.
	HourlyMetrics = []event.Pollutant{event.CO, event.NO2, event.O3, event.SO2, event.PM2_5, event.PM10}
)

// Family is a class of same-sized windows sharing what they compute.
type Family struct {
	Name string
	Size time.Duration
	// StatisticsMetrics get an accumulator each.
	StatisticsMetrics []Metric
	// QuantileMetrics get a quantile sketch each.
	QuantileMetrics []Metric
	// Histogram enables AQI category counting.
	Histogram bool

	fixed      *fixed.Fixed
	sketchOpts []sketch.Option
}

// NewStatisticsFamily returns the family computing AQI statistics, the statistics of
// the given pollutants and the AQI histogram.
func NewStatisticsFamily(size time.Duration, pollutants []event.Pollutant) *Family {
	metrics := make([]Metric, 0, len(pollutants)+1)
	metrics = append(metrics, AQI)
	for _, p := range pollutants {
		metrics = append(metrics, PollutantMetric(p))
	}
	return &Family{
		Name:              StatisticsFamily,
		Size:              size,
		StatisticsMetrics: metrics,
		Histogram:         true,
	}
}

// NewHourlyFamily returns the family computing AQI and HourlyMetrics statistics over
// one hour windows. It has no histogram.
func NewHourlyFamily() *Family {
	metrics := make([]Metric, 0, len(HourlyMetrics)+1)
	metrics = append(metrics, AQI)
	for _, p := range HourlyMetrics {
		metrics = append(metrics, PollutantMetric(p))
	}
	return &Family{
		Name:              HourlyFamily,
		Size:              HourlyWindowSize,
		StatisticsMetrics: metrics,
	}
}

// NewDistributionFamily returns the family computing quartiles of the given pollutants.
func NewDistributionFamily(size time.Duration, pollutants []event.Pollutant) *Family {
	metrics := make([]Metric, 0, len(pollutants))
	for _, p := range pollutants {
		metrics = append(metrics, PollutantMetric(p))
	}
	return &Family{
		Name:            DistributionFamily,
		Size:            size,
		QuantileMetrics: metrics,
	}
}

// Bounds returns the window of this family containing t.
func (f *Family) Bounds(t time.Time) (start, end time.Time) {
	return f.fixed.AssignWindow(t)
}
