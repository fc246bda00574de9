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
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goccy/go-json"
)

const (
	KeyTimestamp = "timestamp"
	KeyAQI       = "aqi"
	KeyLat       = "lat"
	KeyLon       = "lon"
)

var (
	errMissing     = errors.New("missing")
	errNotNumber   = errors.New("not a number")
	errNotIntegral = errors.New("not an integer")
	errOutOfDomain = errors.New("out of domain")
	errNegative    = errors.New("negative concentration")
	errOutOfRange  = errors.New("outside the supported time range")
)

var (
	// MinEventTime and MaxEventTime bound the accepted event times, roughly the years 1678 to 2262.
	MinEventTime = time.Unix(0, math.MinInt64).UTC()
	MaxEventTime = time.Unix(0, math.MaxInt64).UTC()
)

// RawRecord is one decoded input record, e.g. a single NDJSON line.
type RawRecord map[string]interface{}

// Decode parses one JSON object.
func Decode(line []byte) (RawRecord, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, malformed(ReasonDecode, "", errors.New("empty record"))
	}
	var r RawRecord
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, malformed(ReasonDecode, "", err)
	}
	if r == nil {
		return nil, malformed(ReasonDecode, "", errors.New("record is null"))
	}
	return r, nil
}

// DecodeAndNormalize is Decode followed by Normalize.
func DecodeAndNormalize(line []byte) (Event, error) {
	r, err := Decode(line)
	if err != nil {
		return Event{}, err
	}
	return Normalize(r)
}

// Normalize validates a raw record and converts it to an Event.
//
// The timestamp and aqi are mandatory. Missing or null pollutant components
// default to 0, while present components must be non-negative numbers.
func Normalize(r RawRecord) (Event, error) {
	var ev Event
	ts, err := parseTimestamp(r[KeyTimestamp])
	if err != nil {
		return ev, malformed(ReasonTimestamp, KeyTimestamp, err)
	}
	if ts.Before(MinEventTime) || ts.After(MaxEventTime) {
		return ev, malformed(ReasonTimestamp, KeyTimestamp, fmt.Errorf("%s %s", ts.Format(time.RFC3339), errOutOfRange))
	}
	ev.EventTime = ts

	aqi, err := parseAQI(r[KeyAQI])
	if err != nil {
		return ev, malformed(ReasonAQI, KeyAQI, err)
	}
	ev.AQI = aqi

	if ev.Location.Lat, err = optionalNumber(r[KeyLat]); err != nil {
		return ev, malformed(ReasonLocation, KeyLat, err)
	}
	if ev.Location.Lon, err = optionalNumber(r[KeyLon]); err != nil {
		return ev, malformed(ReasonLocation, KeyLon, err)
	}

	for _, p := range Pollutants() {
		raw, ok := r[p.String()]
		if !ok && p == PM2_5 {
			raw = r["pm25"]
		}
		v, err := optionalNumber(raw)
		if err != nil {
			return ev, malformed(ReasonComponent, p.String(), err)
		}
		if v < 0 {
			return ev, malformed(ReasonComponent, p.String(), errNegative)
		}
		ev.Components[p] = v
	}
	return ev, nil
}

func parseTimestamp(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, errMissing
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, errMissing
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts.UTC(), nil
		}
		// zone-less timestamps such as Python's isoformat() are read as UTC
		ts, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		return ts.UTC(), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return time.Time{}, errNotNumber
		}
		// epoch seconds, checked before the int64 conversion can overflow
		if t < float64(MinEventTime.Unix()) || t > float64(MaxEventTime.Unix()) {
			return time.Time{}, fmt.Errorf("epoch seconds %v %s", t, errOutOfRange)
		}
		sec, frac := math.Modf(t)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func parseAQI(v interface{}) (int, error) {
	f, ok := v.(float64)
	if v == nil {
		return 0, errMissing
	}
	if !ok {
		return 0, errNotNumber
	}
	if f != math.Trunc(f) {
		return 0, errNotIntegral
	}
	if f < 1 || f > 5 {
		return 0, errOutOfDomain
	}
	return int(f), nil
}

func optionalNumber(v interface{}) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	default:
		return 0, errNotNumber
	}
}
