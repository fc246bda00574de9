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

package file

import (
	"bufio"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqiflow/aqiflow/pkg/classifier"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var out []map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestToFile_Write(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewToFile(dir)
	require.NoError(t, err)
	for _, k := range summary.Kinds() {
		assert.DirExists(t, filepath.Join(dir, k.String()))
	}

	day1 := time.Date(2024, 3, 1, 23, 50, 0, 0, time.UTC)
	day2 := day1.Add(10 * time.Minute)
	ctx := context.Background()
	require.NoError(t, sink.Write(ctx, &summary.HistogramSummary{Start: day1, End: day1.Add(5 * time.Minute), Counts: classifier.Counts{1}}))
	require.NoError(t, sink.Write(ctx, &summary.HistogramSummary{Start: day1.Add(5 * time.Minute), End: day2, Counts: classifier.Counts{0, 2}}))
	require.NoError(t, sink.Write(ctx, &summary.HistogramSummary{Start: day2, End: day2.Add(5 * time.Minute), Counts: classifier.Counts{0, 0, 3}}))
	require.NoError(t, sink.Write(ctx, &summary.StatisticsSummary{Start: day1, End: day1.Add(5 * time.Minute), Count: 1,
		AQI: summary.Stats{Min: 1, Max: 1, Mean: 1, Stddev: math.NaN()}}))
	require.NoError(t, sink.Close())

	lines := readLines(t, filepath.Join(dir, "histogram", "part-20240301.json"))
	require.Len(t, lines, 2)
	assert.Equal(t, 1.0, lines[0]["Good"])
	assert.Equal(t, 2.0, lines[1]["Fair"])

	lines = readLines(t, filepath.Join(dir, "histogram", "part-20240302.json"))
	require.Len(t, lines, 1)
	assert.Equal(t, "2024-03-02T00:00:00Z", lines[0]["window_start"])

	lines = readLines(t, filepath.Join(dir, "statistics", "part-20240301.json"))
	require.Len(t, lines, 1)
	assert.Nil(t, lines[0]["aqi_stddev"])
	assert.Contains(t, lines[0], "aqi_stddev")
}
