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

// Package summary defines the immutable results published when a window is finalized.
//
// Each summary serializes to one flat JSON object. Window bounds are RFC 3339 UTC
// strings and values that are not a number are written as null.
package summary

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// Kind names a summary type. Kinds are used as sink routing keys.
type Kind string

const (
	KindStatistics   Kind = "statistics"
	KindHistogram    Kind = "histogram"
	KindDistribution Kind = "distribution"
	KindHourly       Kind = "hourly"
)

// Kinds returns every summary kind.
func Kinds() []Kind {
	return []Kind{KindStatistics, KindHistogram, KindDistribution, KindHourly}
}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown summary kind %q", s)
}

func (k Kind) String() string {
	return string(k)
}

// Summary is the finalized output of one window.
type Summary interface {
	json.Marshaler
	Kind() Kind
	WindowStart() time.Time
	WindowEnd() time.Time
	// Fields flattens the numeric values, skipping those that are not finite.
	Fields() map[string]interface{}
}

// Float is a float64 that encodes NaN and infinities as null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// FormatTime formats window bounds.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// field is one entry of an object encoded in insertion order.
type field struct {
	key   string
	value interface{}
}

type fields []field

func (fs *fields) add(key string, value interface{}) {
	*fs = append(*fs, field{key: key, value: value})
}

func (fs fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q, %w", f.key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func header(start, end time.Time) fields {
	return fields{
		{key: "window_start", value: FormatTime(start)},
		{key: "window_end", value: FormatTime(end)},
	}
}

func putFinite(m map[string]interface{}, key string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	m[key] = v
}
