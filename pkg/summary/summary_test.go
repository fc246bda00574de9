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

import (
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqiflow/aqiflow/pkg/classifier"
)

var (
	start = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end   = start.Add(5 * time.Minute)
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		assert.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("percentiles")
	assert.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in       time.Time
		expected string
	}{
		{start, "2024-03-01T10:00:00Z"},
		{start.Add(1500 * time.Millisecond), "2024-03-01T10:00:01.5Z"},
		{start.Add(time.Nanosecond), "2024-03-01T10:00:00.000000001Z"},
		{start.In(time.FixedZone("X", 3600)).Add(250 * time.Millisecond), "2024-03-01T10:00:00.25Z"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatTime(tt.in))
	}

	// sub-second windows keep distinct bounds on the wire
	h := &HistogramSummary{Start: start.Add(500 * time.Millisecond), End: start.Add(time.Second)}
	b, err := json.Marshal(h)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "2024-03-01T10:00:00.5Z", decoded["window_start"])
	assert.Equal(t, "2024-03-01T10:00:01Z", decoded["window_end"])
}

func TestFloat_MarshalJSON(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 1.5, want: "1.5"},
		{in: 0, want: "0"},
		{in: math.NaN(), want: "null"},
		{in: math.Inf(1), want: "null"},
	}
	for _, tt := range tests {
		b, err := json.Marshal(Float(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(b))
	}
}

func TestStatisticsSummary_MarshalJSON(t *testing.T) {
	s := &StatisticsSummary{
		Start: start,
		End:   end,
		Count: 1,
		AQI:   Stats{Min: 3, Max: 3, Mean: 3, Stddev: math.NaN()},
		Metrics: []MetricStats{
			{Metric: "co", Stats: Stats{Min: 200.5, Max: 200.5, Mean: 200.5, Stddev: math.NaN()}},
		},
	}
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"window_start":"2024-03-01T10:00:00Z","window_end":"2024-03-01T10:05:00Z","count":1,`+
		`"aqi_min":3,"aqi_max":3,"aqi_mean":3,"aqi_stddev":null,"co_min":200.5,"co_max":200.5,"co_mean":200.5}`, string(b))
	assert.Equal(t, KindStatistics, s.Kind())

	fields := s.Fields()
	assert.NotContains(t, fields, "aqi_stddev")
	assert.Equal(t, int64(1), fields["count"])
	assert.Equal(t, 200.5, fields["co_mean"])
}

func TestHistogramSummary_MarshalJSON(t *testing.T) {
	h := &HistogramSummary{Start: start, End: end, Counts: classifier.Counts{2, 0, 1, 0, 1}}
	b, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, `{"window_start":"2024-03-01T10:00:00Z","window_end":"2024-03-01T10:05:00Z",`+
		`"Good":2,"Fair":0,"Moderate":1,"Poor":0,"Very Poor":1}`, string(b))
	assert.Equal(t, int64(1), h.Fields()["Very Poor"])
	assert.Len(t, h.Fields(), 5)
}

func TestDistributionSummary_MarshalJSON(t *testing.T) {
	d := &DistributionSummary{
		Start: start,
		End:   end,
		Quartiles: []Quartiles{
			{Metric: "co", Values: [3]float64{25, 50, 75}},
			{Metric: "no2", Values: [3]float64{math.NaN(), math.NaN(), math.NaN()}},
		},
	}
	b, err := json.Marshal(d)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, []interface{}{25.0, 50.0, 75.0}, decoded["co_quartiles"])
	assert.Equal(t, []interface{}{nil, nil, nil}, decoded["no2_quartiles"])
	assert.Equal(t, "2024-03-01T10:05:00Z", decoded["window_end"])

	fields := d.Fields()
	assert.Equal(t, 50.0, fields["co_p50"])
	assert.NotContains(t, fields, "no2_p50")
}
