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

package logger

import (
	"context"

	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

// ToLog prints every summary as a structured log line.
type ToLog struct {
	logger *zap.SugaredLogger
}

type Option func(*ToLog) error

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToLog) error {
		t.logger = log
		return nil
	}
}

// NewToLog returns ToLog type.
func NewToLog(opts ...Option) (*ToLog, error) {
	toLog := new(ToLog)
	for _, o := range opts {
		if err := o(toLog); err != nil {
			return nil, err
		}
	}
	if toLog.logger == nil {
		toLog.logger = logging.NewLogger()
	}
	toLog.logger = toLog.logger.Named("summaries")
	return toLog, nil
}

// Name returns the name.
func (t *ToLog) Name() string {
	return "log"
}

// Write logs the summary with its fields.
func (t *ToLog) Write(_ context.Context, s summary.Summary) error {
	payload, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	t.logger.Infow("Window summary",
		zap.String("kind", s.Kind().String()),
		zap.Time("windowStart", s.WindowStart()),
		zap.Time("windowEnd", s.WindowEnd()),
		zap.ByteString("payload", payload))
	return nil
}

func (t *ToLog) Close() error {
	_ = t.logger.Sync()
	return nil
}
