/*
Copyright 2022 The Numaproj Authors.

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
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redisclient "github.com/aqiflow/aqiflow/pkg/shared/clients/redis"
	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

const (
	DefaultStream = "aqiflow"
	DefaultMaxLen = 10000
)

// RedisSink appends every summary to "<stream>:<kind>" and keeps the most recent one
// under "<stream>:<kind>:latest".
type RedisSink struct {
	client *redisclient.RedisClient
	stream string
	maxLen int64
	ttl    time.Duration
	logger *zap.SugaredLogger
}

type Option func(sink *RedisSink) error

func WithLogger(log *zap.SugaredLogger) Option {
	return func(rs *RedisSink) error {
		rs.logger = log
		return nil
	}
}

// WithStream sets the key prefix.
func WithStream(stream string) Option {
	return func(rs *RedisSink) error {
		rs.stream = stream
		return nil
	}
}

// WithMaxLen caps each stream, approximately. 0 disables trimming.
func WithMaxLen(n int64) Option {
	return func(rs *RedisSink) error {
		if n < 0 {
			return fmt.Errorf("negative stream max length %d", n)
		}
		rs.maxLen = n
		return nil
	}
}

// WithTTL sets the expiry of the latest keys. 0 keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(rs *RedisSink) error {
		rs.ttl = ttl
		return nil
	}
}

// NewRedisSink returns RedisSink type.
func NewRedisSink(options *redis.UniversalOptions, opts ...Option) (*RedisSink, error) {
	rs := &RedisSink{
		stream: DefaultStream,
		maxLen: DefaultMaxLen,
	}
	for _, o := range opts {
		if err := o(rs); err != nil {
			return nil, err
		}
	}
	if rs.logger == nil {
		rs.logger = logging.NewLogger()
	}
	rs.logger = rs.logger.With("sinkType", "redis")
	rs.client = redisclient.NewRedisClient(options)
	return rs, nil
}

func (rs *RedisSink) Name() string {
	return "redis"
}

// StreamKey returns the stream of a summary kind.
func (rs *RedisSink) StreamKey(k summary.Kind) string {
	return rs.stream + ":" + k.String()
}

// LatestKey returns the key holding the latest summary of a kind.
func (rs *RedisSink) LatestKey(k summary.Kind) string {
	return rs.StreamKey(k) + ":latest"
}

func (rs *RedisSink) xAddArgs(s summary.Summary, payload []byte) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: rs.StreamKey(s.Kind()),
		MaxLen: rs.maxLen,
		Approx: rs.maxLen > 0,
		Values: map[string]interface{}{
			"window_start": summary.FormatTime(s.WindowStart()),
			"window_end":   summary.FormatTime(s.WindowEnd()),
			"payload":      string(payload),
		},
	}
}

// Write appends and updates the latest key in one transaction.
func (rs *RedisSink) Write(ctx context.Context, s summary.Summary) error {
	payload, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = rs.client.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, rs.xAddArgs(s, payload))
		pipe.Set(ctx, rs.LatestKey(s.Kind()), payload, rs.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write the %s summary to redis, %w", s.Kind(), err)
	}
	return nil
}

// IsHealthy pings the server.
func (rs *RedisSink) IsHealthy(ctx context.Context) error {
	return rs.client.Ping(ctx)
}

func (rs *RedisSink) Close() error {
	return rs.client.Close()
}
