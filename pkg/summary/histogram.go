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

import (
	"time"

	"github.com/aqiflow/aqiflow/pkg/classifier"
)

// HistogramSummary counts the AQI categories of a window. All five categories are always present.
type HistogramSummary struct {
	Start  time.Time
	End    time.Time
	Counts classifier.Counts
}

var _ Summary = (*HistogramSummary)(nil)

func (h *HistogramSummary) Kind() Kind {
	return KindHistogram
}

func (h *HistogramSummary) WindowStart() time.Time {
	return h.Start
}

func (h *HistogramSummary) WindowEnd() time.Time {
	return h.End
}

func (h *HistogramSummary) MarshalJSON() ([]byte, error) {
	fs := header(h.Start, h.End)
	for _, c := range classifier.Categories() {
		fs.add(c.String(), h.Counts.Get(c))
	}
	return fs.MarshalJSON()
}

func (h *HistogramSummary) Fields() map[string]interface{} {
	out := make(map[string]interface{}, classifier.NumCategories)
	for _, c := range classifier.Categories() {
		out[c.String()] = int64(h.Counts.Get(c))
	}
	return out
}
