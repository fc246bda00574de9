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

package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/shared/util"
	"github.com/aqiflow/aqiflow/pkg/sources"
)

const (
	sourceName = "kafka"
	clientID   = "aqiflow-source"
)

// KafkaSource consumes a topic as a member of a consumer group. Offsets are marked
// after the message was submitted, a message the engine never saw is redelivered.
type KafkaSource struct {
	brokers    []string
	topic      string
	groupName  string
	config     *sarama.Config
	group      sarama.ConsumerGroup
	bufferSize int
	logger     *zap.SugaredLogger
}

var _ sources.Source = (*KafkaSource)(nil)

type Option func(*KafkaSource)

// WithLogger is used to return logger information
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *KafkaSource) {
		o.logger = l
	}
}

// WithBufferSize sets the size of the channel between the claims and the submitter
func WithBufferSize(s int) Option {
	return func(o *KafkaSource) {
		o.bufferSize = s
	}
}

// WithConsumerGroup uses g instead of connecting to the brokers
func WithConsumerGroup(g sarama.ConsumerGroup) Option {
	return func(o *KafkaSource) {
		o.group = g
	}
}

// New returns a source for topic. yamlConfig is an optional sarama config in YAML.
func New(brokers []string, topic, groupName, yamlConfig string, opts ...Option) (*KafkaSource, error) {
	config, err := util.GetSaramaConfigFromYAMLString(yamlConfig, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the kafka source config, %w", err)
	}
	ks := &KafkaSource{
		brokers:    brokers,
		topic:      topic,
		groupName:  groupName,
		config:     config,
		bufferSize: 100,
	}
	for _, o := range opts {
		o(ks)
	}
	if ks.logger == nil {
		ks.logger = logging.NewLogger()
	}
	ks.logger = ks.logger.With("source", sourceName, "topic", topic, "consumerGroupName", groupName)
	return ks, nil
}

func (ks *KafkaSource) Name() string {
	return sourceName
}

func (ks *KafkaSource) Start(ctx context.Context, submitter sources.Submitter) error {
	if ks.group == nil {
		ks.logger.Infow("Creating NewConsumerGroup", zap.Strings("brokers", ks.brokers))
		group, err := sarama.NewConsumerGroup(ks.brokers, ks.groupName, ks.config)
		if err != nil {
			return fmt.Errorf("failed to create the kafka consumer group, %w", err)
		}
		ks.group = group
	}
	ctx, cancel := context.WithCancel(sources.WithSourceName(ctx, sourceName))
	handler := newConsumerHandler(ks.bufferSize, ks.logger)

	wg := new(sync.WaitGroup)
	defer func() {
		cancel()
		wg.Wait()
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case cErr, ok := <-ks.group.Errors():
				if !ok {
					return
				}
				ks.logger.Errorw("Kafka consumer error", zap.Error(cErr))
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			// `Consume` should be called inside an infinite loop; when a
			// server-side re-balance happens, the consumer session will need to be
			// recreated to get the new claims
			if err := ks.group.Consume(ctx, []string{ks.topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				ks.logger.Errorw("Kafka consumer failed, retrying", zap.Error(err))
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
			// check if context was cancelled, signaling that the consumer should stop
			if ctx.Err() != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-handler.messages:
			if _, _, err := sources.SubmitLines(ctx, submitter, m.msg.Value, ks.logger); err != nil {
				ks.logger.Infow("Stopped submitting kafka messages", zap.Error(err))
				return nil
			}
			m.sess.MarkMessage(m.msg, "")
		}
	}
}

func (ks *KafkaSource) Close() error {
	ks.logger.Info("Closing kafka source...")
	if ks.group == nil {
		return nil
	}
	return ks.group.Close()
}
