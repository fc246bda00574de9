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

package summary

import "time"

// Quartiles are the approximate 25th, 50th and 75th percentiles of a metric.
type Quartiles struct {
	Metric string
	Values [3]float64
}

// QuartileProbabilities are the quantiles reported by a DistributionSummary.
var QuartileProbabilities = []float64{0.25, 0.5, 0.75}

// DistributionSummary holds the quartiles of every distribution metric of a window.
type DistributionSummary struct {
	Start     time.Time
	End       time.Time
	Quartiles []Quartiles
}

var _ Summary = (*DistributionSummary)(nil)

func (d *DistributionSummary) Kind() Kind {
	return KindDistribution
}

func (d *DistributionSummary) WindowStart() time.Time {
	return d.Start
}

func (d *DistributionSummary) WindowEnd() time.Time {
	return d.End
}

func (d *DistributionSummary) MarshalJSON() ([]byte, error) {
	fs := header(d.Start, d.End)
	for _, q := range d.Quartiles {
		fs.add(q.Metric+"_quartiles", []Float{Float(q.Values[0]), Float(q.Values[1]), Float(q.Values[2])})
	}
	return fs.MarshalJSON()
}

func (d *DistributionSummary) Fields() map[string]interface{} {
	out := make(map[string]interface{}, 3*len(d.Quartiles))
	for _, q := range d.Quartiles {
		putFinite(out, q.Metric+"_p25", q.Values[0])
		putFinite(out, q.Metric+"_p50", q.Values[1])
		putFinite(out, q.Metric+"_p75", q.Values[2])
	}
	return out
}
