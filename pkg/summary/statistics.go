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

package summary

import "time"

// Stats are the finalized statistics of one metric.
type Stats struct {
	Min    float64
	Max    float64
	Mean   float64
	Stddev float64
}

// MetricStats names a Stats.
type MetricStats struct {
	Metric string
	Stats
}

// StatisticsSummary holds the AQI statistics and the per-pollutant statistics of a window.
type StatisticsSummary struct {
	Start time.Time
	End   time.Time
	Count uint64
	AQI   Stats
	// Metrics are the pollutant statistics in configured order. Their stddev is not published.
	Metrics []MetricStats
}

var _ Summary = (*StatisticsSummary)(nil)

func (s *StatisticsSummary) Kind() Kind {
	return KindStatistics
}

func (s *StatisticsSummary) WindowStart() time.Time {
	return s.Start
}

func (s *StatisticsSummary) WindowEnd() time.Time {
	return s.End
}

func (s *StatisticsSummary) MarshalJSON() ([]byte, error) {
	fs := header(s.Start, s.End)
	fs.add("count", s.Count)
	fs.add("aqi_min", Float(s.AQI.Min))
	fs.add("aqi_max", Float(s.AQI.Max))
	fs.add("aqi_mean", Float(s.AQI.Mean))
	fs.add("aqi_stddev", Float(s.AQI.Stddev))
	for _, m := range s.Metrics {
		fs.add(m.Metric+"_min", Float(m.Min))
		fs.add(m.Metric+"_max", Float(m.Max))
		fs.add(m.Metric+"_mean", Float(m.Mean))
	}
	return fs.MarshalJSON()
}

func (s *StatisticsSummary) Fields() map[string]interface{} {
	out := map[string]interface{}{"count": int64(s.Count)}
	putFinite(out, "aqi_min", s.AQI.Min)
	putFinite(out, "aqi_max", s.AQI.Max)
	putFinite(out, "aqi_mean", s.AQI.Mean)
	putFinite(out, "aqi_stddev", s.AQI.Stddev)
	for _, m := range s.Metrics {
		putFinite(out, m.Metric+"_min", m.Min)
		putFinite(out, m.Metric+"_max", m.Max)
		putFinite(out, m.Metric+"_mean", m.Mean)
	}
	return out
}

// HourlySummary is a StatisticsSummary of a one hour window. It is published as its
// own kind so that the five minute statistics stay apart.
type HourlySummary struct {
	StatisticsSummary
}

var _ Summary = (*HourlySummary)(nil)

func (h *HourlySummary) Kind() Kind {
	return KindHourly
}
