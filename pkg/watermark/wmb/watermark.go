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

// Package wmb holds the Watermark value type shared by the clock, the window
// manager and the emitter.
package wmb

import "time"

// Watermark is the monotonically increasing event time below which no further
// events are expected.
type Watermark time.Time

var (
	// InitialWatermark is reported before any event has been observed.
	InitialWatermark = Watermark(time.UnixMilli(-1))
	// MinWatermark precedes every event time, no window end is reached by it.
	MinWatermark = Watermark(time.Time{})
	// MaxWatermark closes every window. It is used when draining on shutdown.
	MaxWatermark = Watermark(time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC))
)

func (w Watermark) String() string {
	return time.Time(w).UTC().Format(time.RFC3339Nano)
}

func (w Watermark) Time() time.Time {
	return time.Time(w)
}

func (w Watermark) UnixMilli() int64 {
	return time.Time(w).UnixMilli()
}

func (w Watermark) After(t time.Time) bool {
	return time.Time(w).After(t)
}

func (w Watermark) AfterWatermark(compare Watermark) bool {
	return w.After(time.Time(compare))
}

func (w Watermark) Add(t time.Duration) time.Time {
	return time.Time(w).Add(t)
}

// Reached reports whether the watermark is at or past t.
func (w Watermark) Reached(t time.Time) bool {
	return !time.Time(w).Before(t)
}
