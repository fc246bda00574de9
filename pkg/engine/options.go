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

package engine

import (
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/aqiflow/aqiflow/pkg/sinks"
)

type options struct {
	log          *zap.SugaredLogger
	sinks        []sinks.Sink
	retryBackoff *wait.Backoff
	now          func() time.Time
}

type Option func(*options)

// WithLogger sets the logger of the engine and everything it builds.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithSinks adds sinks receiving every emitted summary.
func WithSinks(s ...sinks.Sink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, s...)
	}
}

// WithSinkRetryBackoff overrides the per sink retry backoff.
func WithSinkRetryBackoff(b wait.Backoff) Option {
	return func(o *options) {
		o.retryBackoff = &b
	}
}

// WithNow sets the wall clock used for idle progression and emit latency.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
