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

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aqiflow/aqiflow/pkg/classifier"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

var start = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func unreachable() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:       []string{"127.0.0.1:1"},
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}
}

func TestRedisSink_Keys(t *testing.T) {
	rs, err := NewRedisSink(unreachable(), WithStream("air"), WithMaxLen(50), WithTTL(time.Hour))
	require.NoError(t, err)
	defer func() { _ = rs.Close() }()

	assert.Equal(t, "air:statistics", rs.StreamKey(summary.KindStatistics))
	assert.Equal(t, "air:distribution:latest", rs.LatestKey(summary.KindDistribution))

	s := &summary.HistogramSummary{Start: start, End: start.Add(5 * time.Minute), Counts: classifier.Counts{1}}
	args := rs.xAddArgs(s, []byte(`{}`))
	assert.Equal(t, "air:histogram", args.Stream)
	assert.Equal(t, int64(50), args.MaxLen)
	assert.True(t, args.Approx)
	assert.Equal(t, "2024-03-01T10:05:00Z", args.Values.(map[string]interface{})["window_end"])
}

func TestRedisSink_Options(t *testing.T) {
	_, err := NewRedisSink(unreachable(), WithMaxLen(-1))
	assert.Error(t, err)

	rs, err := NewRedisSink(unreachable(), WithMaxLen(0))
	require.NoError(t, err)
	defer func() { _ = rs.Close() }()
	assert.False(t, rs.xAddArgs(&summary.HistogramSummary{}, nil).Approx)
	assert.Equal(t, "aqiflow:histogram", rs.StreamKey(summary.KindHistogram))
}

func TestRedisSink_WriteUnreachable(t *testing.T) {
	rs, err := NewRedisSink(unreachable(), WithLogger(zaptest.NewLogger(t).Sugar()))
	require.NoError(t, err)
	defer func() { _ = rs.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = rs.Write(ctx, &summary.HistogramSummary{Start: start, End: start.Add(5 * time.Minute)})
	assert.Error(t, err)
	assert.Error(t, rs.IsHealthy(ctx))
	assert.Equal(t, "redis", rs.Name())
}
