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

// Package event defines the canonical air-quality Event and the normalizer that
// turns raw decoded records into Events.
package event

import (
	"fmt"
	"time"

	"github.com/aqiflow/aqiflow/pkg/classifier"
)

// Pollutant indexes the eight concentration components of a reading.
type Pollutant int

const (
	CO Pollutant = iota
	NO
	NO2
	O3
	SO2
	NH3
	PM2_5
	PM10
	// NumPollutants is the number of components carried by every Event.
	NumPollutants
)

var pollutantNames = [NumPollutants]string{"co", "no", "no2", "o3", "so2", "nh3", "pm2_5", "pm10"}

func (p Pollutant) String() string {
	if p < 0 || p >= NumPollutants {
		return fmt.Sprintf("pollutant(%d)", int(p))
	}
	return pollutantNames[p]
}

// Pollutants returns all pollutants in wire order.
func Pollutants() []Pollutant {
	out := make([]Pollutant, NumPollutants)
	for i := range out {
		out[i] = Pollutant(i)
	}
	return out
}

// ParsePollutant resolves a wire key such as "pm2_5". The legacy key "pm25" is accepted too.
func ParsePollutant(s string) (Pollutant, bool) {
	if s == "pm25" {
		return PM2_5, true
	}
	for i, n := range pollutantNames {
		if n == s {
			return Pollutant(i), true
		}
	}
	return 0, false
}

// Location is carried through the pipeline but never aggregated.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is a single validated reading. It is never mutated after Normalize returns it.
type Event struct {
	EventTime  time.Time
	Location   Location
	AQI        int
	Components [NumPollutants]float64
}

// Component returns the concentration of p.
func (e Event) Component(p Pollutant) float64 {
	return e.Components[p]
}

// Fields flattens the event into a name to value map. The filter expressions and
// the rolling window read events through it.
func (e Event) Fields() map[string]interface{} {
	m := make(map[string]interface{}, int(NumPollutants)+5)
	m["time"] = e.EventTime
	m["time_of_day"] = classifier.TimeOfDay(e.EventTime).String()
	m["aqi"] = e.AQI
	m["lat"] = e.Location.Lat
	m["lon"] = e.Location.Lon
	for i, v := range e.Components {
		m[pollutantNames[i]] = v
	}
	return m
}
