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

package influxdb

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqiflow/aqiflow/pkg/classifier"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

var start = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type recorder struct {
	sync.Mutex
	bodies []string
	status int
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	b, _ := io.ReadAll(req.Body)
	r.Lock()
	defer r.Unlock()
	if req.URL.Path == "/api/v2/write" {
		r.bodies = append(r.bodies, string(b))
	}
	w.WriteHeader(r.status)
}

func TestToInfluxDB_Write(t *testing.T) {
	rec := &recorder{status: http.StatusNoContent}
	server := httptest.NewServer(rec)
	defer server.Close()

	sink := NewToInfluxDB(server.URL, "token", "org", "air")
	defer func() { _ = sink.Close() }()
	assert.Equal(t, "influxdb", sink.Name())

	err := sink.Write(context.Background(), &summary.HistogramSummary{Start: start, End: start.Add(5 * time.Minute), Counts: classifier.Counts{2, 0, 1, 0, 1}})
	require.NoError(t, err)

	rec.Lock()
	defer rec.Unlock()
	require.Len(t, rec.bodies, 1)
	line := rec.bodies[0]
	assert.Contains(t, line, "histogram,window_end=2024-03-01T10:05:00Z ")
	assert.Contains(t, line, "Good=2i")
	assert.Contains(t, line, `Very\ Poor=1i`)
	assert.Contains(t, line, strconv.FormatInt(start.UnixNano(), 10))
}

func TestToInfluxDB_WriteError(t *testing.T) {
	server := httptest.NewServer(&recorder{status: http.StatusBadRequest})
	defer server.Close()

	sink := NewToInfluxDB(server.URL, "token", "org", "air")
	defer func() { _ = sink.Close() }()
	err := sink.Write(context.Background(), &summary.HistogramSummary{Start: start, End: start.Add(5 * time.Minute)})
	assert.Error(t, err)
}

func TestPoint(t *testing.T) {
	p := Point(&summary.DistributionSummary{Start: start, End: start.Add(5 * time.Minute),
		Quartiles: []summary.Quartiles{{Metric: "co", Values: [3]float64{1, 2, 3}}}})
	assert.Equal(t, "distribution", p.Name())
	assert.Equal(t, start, p.Time())
	assert.Len(t, p.FieldList(), 3)
	require.Len(t, p.TagList(), 1)
	assert.Equal(t, "window_end", p.TagList()[0].Key)
}
