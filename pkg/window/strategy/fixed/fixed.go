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

// Package fixed implements Fixed windows. Fixed windows (sometimes called tumbling windows) are
// defined by a static window size, e.g. minutely windows or hourly windows. They are aligned to
// the Unix epoch, i.e. every window applies across all the data for the corresponding period of time.
package fixed

import (
	"fmt"
	"math/big"
	"time"
)

// Fixed assigns event times to epoch aligned, non-overlapping windows of Length.
type Fixed struct {
	// Length is the temporal length of the window.
	Length time.Duration
}

// NewFixed returns a Fixed windower. Length must be positive.
func NewFixed(length time.Duration) (*Fixed, error) {
	if length <= 0 {
		return nil, fmt.Errorf("window length must be positive, got %s", length)
	}
	return &Fixed{Length: length}, nil
}

// AssignWindow returns the [start, end) interval containing eventTime, where
// start = floor(eventTime / Length) * Length.
//
// Assignment follows a left inclusive and right exclusive principle, so an element on
// the boundary falls in to the window to the right of the boundary.
func (f *Fixed) AssignWindow(eventTime time.Time) (start, end time.Time) {
	start = f.Start(eventTime)
	return start, start.Add(f.Length)
}

// Start returns the start of the window containing eventTime, in UTC.
//
// The offset into the window is computed from the Unix seconds and nanoseconds
// separately, so times outside the int64 nanosecond range are still floored correctly.
func (f *Fixed) Start(eventTime time.Time) time.Time {
	t := eventTime.UTC()
	return t.Add(-f.offset(t.Unix(), int64(t.Nanosecond())))
}

// offset returns (sec*1e9 + nsec) mod Length, always in [0, Length).
func (f *Fixed) offset(sec, nsec int64) time.Duration {
	size := int64(f.Length)
	if size%int64(time.Second) == 0 {
		secs := size / int64(time.Second)
		return time.Duration(floorMod(sec, secs)*int64(time.Second) + nsec)
	}
	n := new(big.Int).Mul(big.NewInt(sec), big.NewInt(int64(time.Second)))
	n.Add(n, big.NewInt(nsec))
	// Mod is euclidean, the result is non-negative for a positive modulus
	return time.Duration(n.Mod(n, big.NewInt(size)).Int64())
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
