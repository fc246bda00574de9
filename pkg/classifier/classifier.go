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

// Package classifier maps AQI values to category labels and counts them per window.
// It also labels the period of the day of an event time.
package classifier

import (
	"fmt"
	"time"
)

// Category is an AQI category. The zero value is invalid.
type Category int

const (
	Good Category = iota + 1
	Fair
	Moderate
	Poor
	VeryPoor
)

// NumCategories is the number of AQI categories.
const NumCategories = 5

var labels = [NumCategories]string{"Good", "Fair", "Moderate", "Poor", "Very Poor"}

func (c Category) String() string {
	if c < Good || c > VeryPoor {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return labels[c-1]
}

// Categories returns all categories in ascending AQI order.
func Categories() []Category {
	return []Category{Good, Fair, Moderate, Poor, VeryPoor}
}

// Classify maps an AQI value in 1..5 to its category.
func Classify(aqi int) (Category, error) {
	if aqi < int(Good) || aqi > int(VeryPoor) {
		return 0, fmt.Errorf("aqi %d is out of domain [1, 5]", aqi)
	}
	return Category(aqi), nil
}

// Counts holds one counter per category, indexed by Category-1.
type Counts [NumCategories]uint64

// Get returns the counter of c.
func (c Counts) Get(cat Category) uint64 {
	if cat < Good || cat > VeryPoor {
		return 0
	}
	return c[cat-1]
}

// Total returns the sum of all counters.
func (c Counts) Total() uint64 {
	var n uint64
	for _, v := range c {
		n += v
	}
	return n
}

// Histogram counts AQI categories of one window.
type Histogram struct {
	counts Counts
}

// Update increments the counter for aqi. Values outside 1..5 are rejected upstream
// by the normalizer; they are reported here rather than counted.
func (h *Histogram) Update(aqi int) error {
	cat, err := Classify(aqi)
	if err != nil {
		return err
	}
	h.counts[cat-1]++
	return nil
}

// Finalize returns all five counters, including zeros.
func (h *Histogram) Finalize() Counts {
	return h.counts
}

// DayPeriod is a coarse period of the day.
type DayPeriod int

const (
	Night DayPeriod = iota
	Morning
	Afternoon
	Evening
)

var periodLabels = [...]string{"night", "morning", "afternoon", "evening"}

func (p DayPeriod) String() string {
	if p < Night || p > Evening {
		return fmt.Sprintf("DayPeriod(%d)", int(p))
	}
	return periodLabels[p]
}

// TimeOfDay returns the period of the UTC hour of t: morning from 6 to 12, afternoon
// until 18, evening until 21 and night otherwise.
func TimeOfDay(t time.Time) DayPeriod {
	switch h := t.UTC().Hour(); {
	case h >= 6 && h < 12:
		return Morning
	case h >= 12 && h < 18:
		return Afternoon
	case h >= 18 && h < 21:
		return Evening
	default:
		return Night
	}
}
