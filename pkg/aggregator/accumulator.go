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

// Package aggregator keeps incremental count, sum, sum of squares, min and max for a
// single metric of a window.
package aggregator

import "math"

// Accumulator is updated in O(1) per value. Values can only be added, never removed.
type Accumulator struct {
	count uint64
	sum   float64
	sumSq float64
	min   float64
	max   float64
}

// Result is the finalized, immutable view of an Accumulator.
type Result struct {
	Count  uint64
	Sum    float64
	SumSq  float64
	Min    float64
	Max    float64
	Mean   float64
	Stddev float64
}

// Update adds v. NaN values are ignored.
func (a *Accumulator) Update(v float64) {
	if math.IsNaN(v) {
		return
	}
	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.count++
	a.sum += v
	a.sumSq += v * v
}

// Count returns the number of values added.
func (a *Accumulator) Count() uint64 {
	return a.count
}

// Finalize derives mean and the population standard deviation. It does not
// modify the accumulator. With no values every statistic is NaN, and with a
// single value the standard deviation is NaN.
func (a *Accumulator) Finalize() Result {
	r := Result{Count: a.count, Sum: a.sum, SumSq: a.sumSq}
	if a.count == 0 {
		r.Min, r.Max, r.Mean, r.Stddev = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return r
	}
	n := float64(a.count)
	r.Min = a.min
	r.Max = a.max
	r.Mean = a.sum / n
	if a.count == 1 {
		r.Stddev = math.NaN()
		return r
	}
	variance := a.sumSq/n - r.Mean*r.Mean
	// cancellation can leave a tiny negative residue
	if variance < 0 {
		variance = 0
	}
	r.Stddev = math.Sqrt(variance)
	return r
}
