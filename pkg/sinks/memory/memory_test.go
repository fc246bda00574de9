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

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqiflow/aqiflow/pkg/classifier"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

func histogramAt(i int) summary.Summary {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(i) * 5 * time.Minute)
	return &summary.HistogramSummary{Start: start, End: start.Add(5 * time.Minute), Counts: classifier.Counts{uint64(i)}}
}

func TestStore(t *testing.T) {
	s, err := NewStore(3)
	require.NoError(t, err)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Write(ctx, histogramAt(i)))
	}
	assert.Equal(t, 3, s.Len(summary.KindHistogram))
	assert.Equal(t, 0, s.Len(summary.KindStatistics))

	latest := s.Latest(summary.KindHistogram, 2)
	require.Len(t, latest, 2)
	assert.Equal(t, histogramAt(4).WindowStart(), latest[0].WindowStart())
	assert.Equal(t, histogramAt(3).WindowStart(), latest[1].WindowStart())
	assert.Len(t, s.Latest(summary.KindHistogram, 0), 3)
	assert.Empty(t, s.Latest(summary.KindDistribution, 10))

	// same window start overwrites
	require.NoError(t, s.Write(ctx, histogramAt(4)))
	assert.Equal(t, 3, s.Len(summary.KindHistogram))

	assert.NoError(t, s.Close())
	assert.Equal(t, 0, s.Len(summary.KindHistogram))
}

func TestNewStore_Invalid(t *testing.T) {
	_, err := NewStore(0)
	assert.Error(t, err)
}
