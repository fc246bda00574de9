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

// Package sources contains the inputs feeding NDJSON readings into the engine.
//
// Every source runs concurrently with the others and submits each raw line to the
// same Submitter. Ordering across sources is not preserved, the watermark absorbs
// out of order arrival up to the allowed lateness.
package sources

import (
	"bytes"
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/event"
)

// Submitter accepts raw NDJSON lines. It is satisfied by *engine.Handle.
type Submitter interface {
	Submit(ctx context.Context, line []byte) error
}

// Source reads from an upstream and submits what it reads.
type Source interface {
	Name() string
	// Start blocks until ctx is cancelled or the input ends.
	Start(ctx context.Context, submitter Submitter) error
	Close() error
}

type sourceNameKey struct{}

// UnknownSource labels lines submitted without a source name.
const UnknownSource = "unknown"

// WithSourceName returns a context labelling submitted lines with the source name.
func WithSourceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, sourceNameKey{}, name)
}

// SourceNameFromContext returns the source name set by WithSourceName.
func SourceNameFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(sourceNameKey{}).(string); ok && name != "" {
		return name
	}
	return UnknownSource
}

// SubmitLines submits every newline separated line of data. Malformed lines are
// counted as rejected and skipped. The returned error is non nil only when the
// submitter no longer accepts input, e.g. the engine stopped or ctx is done.
func SubmitLines(ctx context.Context, submitter Submitter, data []byte, log *zap.SugaredLogger) (accepted, rejected int, err error) {
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := submitter.Submit(ctx, line); err != nil {
			if errors.Is(err, event.ErrMalformedEvent) {
				rejected++
				log.Debugw("Rejected a malformed reading", zap.Error(err))
				continue
			}
			return accepted, rejected, err
		}
		accepted++
	}
	return accepted, rejected, nil
}
