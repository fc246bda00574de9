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

// Package sinks defines where finalized summaries are published.
package sinks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/aqiflow/aqiflow/pkg/metrics"
	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

// Sink publishes summaries.
type Sink interface {
	Name() string
	// Write publishes one summary. It is called from a single goroutine.
	Write(ctx context.Context, s summary.Summary) error
	Close() error
}

// DefaultRetryBackoff retries a failing sink for at most five attempts, about 1.5s in total.
var DefaultRetryBackoff = wait.Backoff{
	Duration: 100 * time.Millisecond,
	Factor:   2,
	Jitter:   0.1,
	Steps:    5,
}

// WriteError reports a sink that kept failing after all retries.
type WriteError struct {
	Sink     string
	Attempts int
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sink %s failed after %d attempt(s), %v", e.Sink, e.Attempts, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Fanout writes every summary to all of its sinks, retrying each sink independently.
type Fanout struct {
	sinks   []Sink
	backoff wait.Backoff
	log     *zap.SugaredLogger
}

type Option func(*Fanout)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(f *Fanout) {
		f.log = log
	}
}

// WithRetryBackoff overrides DefaultRetryBackoff.
func WithRetryBackoff(b wait.Backoff) Option {
	return func(f *Fanout) {
		f.backoff = b
	}
}

// NewFanout returns a Fanout over sinks, in order.
func NewFanout(sinks []Sink, opts ...Option) *Fanout {
	f := &Fanout{
		sinks:   sinks,
		backoff: DefaultRetryBackoff,
	}
	for _, o := range opts {
		o(f)
	}
	if f.log == nil {
		f.log = logging.NewLogger()
	}
	return f
}

func (f *Fanout) Name() string {
	return "fanout"
}

// Sinks returns the wrapped sinks.
func (f *Fanout) Sinks() []Sink {
	return f.sinks
}

// Write publishes s to every sink. A failing sink never stops the others; the
// returned error combines a *WriteError per failed sink.
func (f *Fanout) Write(ctx context.Context, s summary.Summary) error {
	var errs error
	for _, sk := range f.sinks {
		if err := f.writeWithRetry(ctx, sk, s); err != nil {
			metrics.SinkErrors.WithLabelValues(sk.Name()).Inc()
			errs = multierr.Append(errs, err)
			continue
		}
		metrics.SinkWrites.WithLabelValues(sk.Name(), s.Kind().String()).Inc()
	}
	return errs
}

func (f *Fanout) writeWithRetry(ctx context.Context, sk Sink, s summary.Summary) error {
	var (
		attempts int
		lastErr  error
	)
	err := wait.ExponentialBackoffWithContext(ctx, f.backoff, func(ctx context.Context) (bool, error) {
		attempts++
		if lastErr = sk.Write(ctx, s); lastErr != nil {
			f.log.Warnw("Failed to write the summary, retrying", zap.String("sink", sk.Name()),
				zap.String("kind", s.Kind().String()), zap.Int("attempt", attempts), zap.Error(lastErr))
			return false, nil
		}
		return true, nil
	})
	if err == nil {
		return nil
	}
	if lastErr == nil {
		lastErr = err
	}
	return &WriteError{Sink: sk.Name(), Attempts: attempts, Err: lastErr}
}

// Close closes all sinks and combines their errors.
func (f *Fanout) Close() error {
	var errs error
	for _, sk := range f.sinks {
		if err := sk.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close sink %s, %w", sk.Name(), err))
		}
	}
	return errs
}
