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

package event

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAndNormalize(t *testing.T) {
	line := []byte(`{"timestamp":"2024-03-01T10:02:30Z","lat":21.03,"lon":105.85,"aqi":3,
		"co":230.3,"no":0.5,"no2":12.1,"o3":60,"so2":4.2,"nh3":1.1,"pm2_5":18.4,"pm10":25}`)
	ev, err := DecodeAndNormalize(line)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 2, 30, 0, time.UTC), ev.EventTime)
	assert.Equal(t, 3, ev.AQI)
	assert.Equal(t, Location{Lat: 21.03, Lon: 105.85}, ev.Location)
	assert.Equal(t, 230.3, ev.Component(CO))
	assert.Equal(t, 18.4, ev.Component(PM2_5))
	assert.Equal(t, 25.0, ev.Component(PM10))
}

func TestNormalize_Timestamps(t *testing.T) {
	tests := []struct {
		name     string
		ts       interface{}
		expected time.Time
	}{
		{"rfc3339 utc", "2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"rfc3339 offset", "2024-03-01T12:00:00+02:00", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"python isoformat without zone", "2024-03-01T10:00:00.250000", time.Date(2024, 3, 1, 10, 0, 0, 250000000, time.UTC)},
		{"space separated", "2024-03-01 10:00:00", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"epoch seconds", float64(1709287200), time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"fractional epoch seconds", 1709287200.5, time.Date(2024, 3, 1, 10, 0, 0, 500000000, time.UTC)},
		{"pre epoch", "1969-12-31T23:59:59Z", time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC)},
		{"near the lower bound", "1678-01-01T00:00:00Z", time.Date(1678, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"near the upper bound", "2262-04-11T00:00:00Z", time.Date(2262, 4, 11, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Normalize(RawRecord{"timestamp": tt.ts, "aqi": float64(1)})
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(ev.EventTime), "got %s", ev.EventTime)
			assert.Equal(t, time.UTC, ev.EventTime.Location())
		})
	}
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		rec    RawRecord
		reason Reason
		field  string
	}{
		{"missing timestamp", RawRecord{"aqi": float64(2)}, ReasonTimestamp, KeyTimestamp},
		{"empty timestamp", RawRecord{"timestamp": " ", "aqi": float64(2)}, ReasonTimestamp, KeyTimestamp},
		{"garbage timestamp", RawRecord{"timestamp": "not a time", "aqi": float64(2)}, ReasonTimestamp, KeyTimestamp},
		{"bool timestamp", RawRecord{"timestamp": true, "aqi": float64(2)}, ReasonTimestamp, KeyTimestamp},
		{"year 1500", RawRecord{"timestamp": "1500-06-01T00:02:00Z", "aqi": float64(2)}, ReasonTimestamp, KeyTimestamp},
		{"year 3000", RawRecord{"timestamp": "3000-01-01T00:02:00Z", "aqi": float64(2)}, ReasonTimestamp, KeyTimestamp},
		{"epoch milliseconds as number", RawRecord{"timestamp": float64(1709287200000), "aqi": float64(2)}, ReasonTimestamp, KeyTimestamp},
		{"huge epoch number", RawRecord{"timestamp": 1e300, "aqi": float64(2)}, ReasonTimestamp, KeyTimestamp},
		{"negative huge epoch number", RawRecord{"timestamp": -1e19, "aqi": float64(2)}, ReasonTimestamp, KeyTimestamp},
		{"missing aqi", RawRecord{"timestamp": "2024-03-01T10:00:00Z"}, ReasonAQI, KeyAQI},
		{"aqi zero", RawRecord{"timestamp": "2024-03-01T10:00:00Z", "aqi": float64(0)}, ReasonAQI, KeyAQI},
		{"aqi six", RawRecord{"timestamp": "2024-03-01T10:00:00Z", "aqi": float64(6)}, ReasonAQI, KeyAQI},
		{"aqi fraction", RawRecord{"timestamp": "2024-03-01T10:00:00Z", "aqi": 2.5}, ReasonAQI, KeyAQI},
		{"aqi string", RawRecord{"timestamp": "2024-03-01T10:00:00Z", "aqi": "3"}, ReasonAQI, KeyAQI},
		{"component string", RawRecord{"timestamp": "2024-03-01T10:00:00Z", "aqi": float64(3), "co": "high"}, ReasonComponent, "co"},
		{"component negative", RawRecord{"timestamp": "2024-03-01T10:00:00Z", "aqi": float64(3), "pm10": float64(-1)}, ReasonComponent, "pm10"},
		{"lat string", RawRecord{"timestamp": "2024-03-01T10:00:00Z", "aqi": float64(3), "lat": "north"}, ReasonLocation, KeyLat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedEvent)
			var me *MalformedEventError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.reason, me.Reason)
			assert.Equal(t, tt.field, me.Field)
			assert.Equal(t, tt.reason, ReasonOf(err))
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	ev, err := Normalize(RawRecord{"timestamp": "2024-03-01T10:00:00Z", "aqi": float64(5), "no2": nil, "pm25": 7.5})
	require.NoError(t, err)
	assert.Equal(t, 5, ev.AQI)
	for _, p := range Pollutants() {
		if p == PM2_5 {
			assert.Equal(t, 7.5, ev.Component(p))
			continue
		}
		assert.Equal(t, 0.0, ev.Component(p), p.String())
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "{", "null", "[1,2]"} {
		_, err := Decode([]byte(in))
		assert.ErrorIs(t, err, ErrMalformedEvent, in)
		assert.Equal(t, ReasonDecode, ReasonOf(err), in)
	}
	assert.Equal(t, Reason(""), ReasonOf(errors.New("other")))
}

func TestPollutants(t *testing.T) {
	assert.Len(t, Pollutants(), 8)
	for _, p := range Pollutants() {
		got, ok := ParsePollutant(p.String())
		assert.True(t, ok)
		assert.Equal(t, p, got)
	}
	p, ok := ParsePollutant("pm25")
	assert.True(t, ok)
	assert.Equal(t, PM2_5, p)
	_, ok = ParsePollutant("co2")
	assert.False(t, ok)
	assert.Equal(t, "pollutant(9)", Pollutant(9).String())
}

func TestFields(t *testing.T) {
	ev := Event{AQI: 2, Location: Location{Lat: 1, Lon: 2}, EventTime: time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)}
	ev.Components[O3] = 42
	f := ev.Fields()
	assert.Equal(t, "evening", f["time_of_day"])
	assert.Equal(t, 2, f["aqi"])
	assert.Equal(t, 42.0, f["o3"])
	assert.Equal(t, 1.0, f["lat"])
	assert.Len(t, f, 13)
}
