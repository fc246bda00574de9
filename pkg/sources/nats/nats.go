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

package nats

import (
	"context"
	"fmt"

	natslib "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	natsclient "github.com/aqiflow/aqiflow/pkg/shared/clients/nats"
	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/sources"
)

const sourceName = "nats"

// NATSSource submits the payload of every message on a subject. A payload may carry
// several NDJSON lines.
type NATSSource struct {
	client     *natsclient.Client
	subject    string
	queue      string
	bufferSize int
	logger     *zap.SugaredLogger
}

var _ sources.Source = (*NATSSource)(nil)

type Option func(*NATSSource)

// WithLogger is used to return logger information
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *NATSSource) {
		o.logger = l
	}
}

// WithBufferSize sets the buffer size for storing the messages from nats
func WithBufferSize(s int) Option {
	return func(o *NATSSource) {
		o.bufferSize = s
	}
}

// New returns a source subscribing to subject through client, as a member of queue
// when queue is set. The source owns the client and closes it.
func New(client *natsclient.Client, subject, queue string, opts ...Option) *NATSSource {
	n := &NATSSource{
		client:     client,
		subject:    subject,
		queue:      queue,
		bufferSize: 1000, // default size
	}
	for _, o := range opts {
		o(n)
	}
	if n.logger == nil {
		n.logger = logging.NewLogger()
	}
	n.logger = n.logger.With("source", sourceName, "subject", subject)
	return n
}

func (ns *NATSSource) Name() string {
	return sourceName
}

func (ns *NATSSource) Start(ctx context.Context, submitter sources.Submitter) error {
	ctx = sources.WithSourceName(ctx, sourceName)
	messages := make(chan []byte, ns.bufferSize)
	sub, err := ns.client.QueueSubscribe(ns.subject, ns.queue, func(msg *natslib.Msg) {
		select {
		case messages <- msg.Data:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("failed to QueueSubscribe nats messages, %w", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			ns.logger.Errorw("Failed to unsubscribe nats subscription", zap.Error(err))
		}
	}()
	ns.logger.Infow("Nats source started", zap.String("queue", ns.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-messages:
			if _, _, err := sources.SubmitLines(ctx, submitter, data, ns.logger); err != nil {
				ns.logger.Infow("Stopped submitting nats messages", zap.Error(err))
				return nil
			}
		}
	}
}

func (ns *NATSSource) Close() error {
	ns.logger.Info("Shutting down nats source...")
	ns.client.Close()
	return nil
}
