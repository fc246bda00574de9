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

// Package sketch implements a merging t-digest used to estimate per-window quartiles
// in bounded memory.
//
// Memory is bounded by the compression factor δ, not by the number of values:
// about (δ/2)·ln(n) merged centroids, capped at MaxCentroids (10δ by default),
// plus an insert buffer of 5δ values. The size of a centroid at quantile q is
// bounded by 4·n·q(1-q)/δ, so the rank error is about 1/δ around the median and
// shrinks towards the tails. With the default
// δ = 100 the median of 1000 values uniformly spread over [0, 100] is reported
// within ±1.0 of the true median.
//
// If the merged centroid count ever exceeds MaxCentroids, the digest halves its
// compression (never below MinCompression) and recompresses. This loses precision
// but never fails the window.
package sketch

import (
	"math"
	"sort"
)

const (
	DefaultCompression = 100
	MinCompression     = 20
	MaxCompression     = 1000
)

// Centroid is a cluster of values summarized by their mean and weight.
type Centroid struct {
	Mean   float64
	Weight float64
}

// TDigest is not safe for concurrent use. Windows are only touched by the dispatch loop.
type TDigest struct {
	compression  float64
	maxCentroids int
	onDegrade    func(compression float64)

	centroids []Centroid
	buffer    []Centroid
	bufferCap int
	count     float64
	min       float64
	max       float64
}

type Option func(*TDigest)

// WithCompression sets δ. Values are clamped to [MinCompression, MaxCompression].
func WithCompression(c float64) Option {
	return func(t *TDigest) {
		t.compression = c
	}
}

// WithMaxCentroids sets the centroid count above which the digest degrades.
func WithMaxCentroids(n int) Option {
	return func(t *TDigest) {
		t.maxCentroids = n
	}
}

// WithDegradeHandler is called every time the digest lowers its compression.
func WithDegradeHandler(f func(compression float64)) Option {
	return func(t *TDigest) {
		t.onDegrade = f
	}
}

// New returns an empty digest.
func New(opts ...Option) *TDigest {
	t := &TDigest{
		compression: DefaultCompression,
		min:         math.Inf(1),
		max:         math.Inf(-1),
	}
	for _, o := range opts {
		o(t)
	}
	t.compression = math.Max(MinCompression, math.Min(MaxCompression, t.compression))
	if t.maxCentroids <= 0 {
		t.maxCentroids = int(10 * t.compression)
	}
	t.bufferCap = int(5 * t.compression)
	t.buffer = make([]Centroid, 0, t.bufferCap)
	return t
}

// Add inserts a value. NaN and infinite values are ignored.
func (t *TDigest) Add(v float64) {
	t.AddWeighted(v, 1)
}

// AddWeighted inserts a value with the given weight.
func (t *TDigest) AddWeighted(v, w float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) || w <= 0 {
		return
	}
	if v < t.min {
		t.min = v
	}
	if v > t.max {
		t.max = v
	}
	t.count += w
	t.buffer = append(t.buffer, Centroid{Mean: v, Weight: w})
	if len(t.buffer) >= t.bufferCap {
		t.flush()
	}
}

// Quantile returns the approximate value at quantile q in [0, 1]. It returns NaN
// for an empty digest or an invalid q.
func (t *TDigest) Quantile(q float64) float64 {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return math.NaN()
	}
	t.flush()
	if t.count == 0 {
		return math.NaN()
	}
	if q == 0 {
		return t.min
	}
	if q == 1 {
		return t.max
	}
	c := t.centroids
	if len(c) == 1 {
		return c[0].Mean
	}
	index := q * t.count

	first := c[0]
	if index < first.Weight/2 {
		return t.min + (first.Mean-t.min)*index/(first.Weight/2)
	}
	cum := 0.0
	for i := 0; i < len(c)-1; i++ {
		left := cum + c[i].Weight/2
		right := cum + c[i].Weight + c[i+1].Weight/2
		if index < right {
			frac := (index - left) / (right - left)
			return c[i].Mean + frac*(c[i+1].Mean-c[i].Mean)
		}
		cum += c[i].Weight
	}
	last := c[len(c)-1]
	left := t.count - last.Weight/2
	frac := math.Min(1, (index-left)/(last.Weight/2))
	return last.Mean + frac*(t.max-last.Mean)
}

// Quantiles returns Quantile for each of qs.
func (t *TDigest) Quantiles(qs ...float64) []float64 {
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = t.Quantile(q)
	}
	return out
}

func (t *TDigest) Count() float64 {
	return t.count
}

func (t *TDigest) Min() float64 {
	if t.count == 0 {
		return math.NaN()
	}
	return t.min
}

func (t *TDigest) Max() float64 {
	if t.count == 0 {
		return math.NaN()
	}
	return t.max
}

func (t *TDigest) flush() {
	if len(t.buffer) == 0 {
		return
	}
	all := make([]Centroid, 0, len(t.centroids)+len(t.buffer))
	all = append(all, t.centroids...)
	all = append(all, t.buffer...)
	t.buffer = t.buffer[:0]
	sort.Slice(all, func(i, j int) bool { return all[i].Mean < all[j].Mean })
	t.centroids = t.compress(all)
	for len(t.centroids) > t.maxCentroids && t.compression > MinCompression {
		t.compression = math.Max(MinCompression, t.compression/2)
		t.centroids = t.compress(t.centroids)
		if t.onDegrade != nil {
			t.onDegrade(t.compression)
		}
	}
}

// compress merges neighbouring centroids of a sorted slice while the merged
// weight stays within the size bound at its quantile.
func (t *TDigest) compress(sorted []Centroid) []Centroid {
	if len(sorted) <= 1 {
		return sorted
	}
	total := 0.0
	for _, c := range sorted {
		total += c.Weight
	}
	out := make([]Centroid, 0, len(sorted))
	cur := sorted[0]
	before := 0.0
	for _, c := range sorted[1:] {
		w := cur.Weight + c.Weight
		q := (before + w/2) / total
		limit := 4 * total * q * (1 - q) / t.compression
		if w <= limit {
			cur.Mean += (c.Mean - cur.Mean) * c.Weight / w
			cur.Weight = w
			continue
		}
		out = append(out, cur)
		before += cur.Weight
		cur = c
	}
	return append(out, cur)
}
