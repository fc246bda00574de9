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

package aggregator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulator_Finalize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		count  uint64
		min    float64
		max    float64
		mean   float64
		stddev float64
	}{
		{"three values", []float64{10, 20, 30}, 3, 10, 30, 20, math.Sqrt(200.0 / 3)},
		{"constant", []float64{4, 4, 4, 4}, 4, 4, 4, 4, 0},
		{"negative", []float64{-1, 1}, 2, -1, 1, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Accumulator
			for _, v := range tt.values {
				a.Update(v)
			}
			r := a.Finalize()
			assert.Equal(t, tt.count, r.Count)
			assert.Equal(t, tt.min, r.Min)
			assert.Equal(t, tt.max, r.Max)
			assert.InDelta(t, tt.mean, r.Mean, 1e-9)
			assert.InDelta(t, tt.stddev, r.Stddev, 1e-3)
		})
	}
}

func TestAccumulator_RoundTrip(t *testing.T) {
	var a Accumulator
	for _, v := range []float64{10, 20, 30} {
		a.Update(v)
	}
	r := a.Finalize()
	assert.Equal(t, uint64(3), r.Count)
	assert.Equal(t, 60.0, r.Sum)
	assert.Equal(t, 1400.0, r.SumSq)
	assert.InDelta(t, 8.165, r.Stddev, 1e-3)
	// finalize is idempotent
	assert.Equal(t, r, a.Finalize())
}

func TestAccumulator_Degenerate(t *testing.T) {
	var a Accumulator
	r := a.Finalize()
	assert.Equal(t, uint64(0), r.Count)
	assert.True(t, math.IsNaN(r.Mean))
	assert.True(t, math.IsNaN(r.Min))

	a.Update(math.NaN())
	assert.Equal(t, uint64(0), a.Count())

	a.Update(7)
	r = a.Finalize()
	assert.Equal(t, 7.0, r.Mean)
	assert.Equal(t, 7.0, r.Min)
	assert.True(t, math.IsNaN(r.Stddev))
}
