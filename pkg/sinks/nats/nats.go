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

package nats

import (
	"context"

	"go.uber.org/zap"

	natsclient "github.com/aqiflow/aqiflow/pkg/shared/clients/nats"
	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

// ToNATS publishes every summary to "<prefix>.<kind>".
type ToNATS struct {
	client *natsclient.Client
	prefix string
	log    *zap.SugaredLogger
}

type Option func(*ToNATS)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToNATS) {
		t.log = log
	}
}

// NewToNATS returns a sink publishing through client. The sink owns the client and closes it.
func NewToNATS(client *natsclient.Client, subjectPrefix string, opts ...Option) *ToNATS {
	t := &ToNATS{client: client, prefix: subjectPrefix}
	for _, o := range opts {
		o(t)
	}
	if t.log == nil {
		t.log = logging.NewLogger()
	}
	t.log = t.log.With("sinkType", "nats")
	return t
}

func (t *ToNATS) Name() string {
	return "nats"
}

// Subject returns the subject of a summary kind.
func (t *ToNATS) Subject(k summary.Kind) string {
	return t.prefix + "." + k.String()
}

func (t *ToNATS) Write(ctx context.Context, s summary.Summary) error {
	payload, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	if err := t.client.Publish(t.Subject(s.Kind()), payload); err != nil {
		return err
	}
	return t.client.Flush(ctx)
}

func (t *ToNATS) Close() error {
	t.log.Info("Closing nats connection...")
	t.client.Close()
	return nil
}
