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

package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/shared/util"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

const (
	headerWindowStart = "window_start"
	headerWindowEnd   = "window_end"
)

// ToKafka produces every summary to a kafka topic, keyed by its kind.
type ToKafka struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.SugaredLogger
}

type Option func(*ToKafka) error

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToKafka) error {
		t.log = log
		return nil
	}
}

// WithProducer uses an existing producer instead of connecting to the brokers.
func WithProducer(p sarama.SyncProducer) Option {
	return func(t *ToKafka) error {
		t.producer = p
		return nil
	}
}

// NewToKafka returns ToKafka type. config is a sarama yaml config, it may be empty.
func NewToKafka(brokers []string, topic string, config string, opts ...Option) (*ToKafka, error) {
	toKafka := &ToKafka{topic: topic}
	for _, o := range opts {
		if err := o(toKafka); err != nil {
			return nil, err
		}
	}
	if toKafka.log == nil {
		toKafka.log = logging.NewLogger()
	}
	toKafka.log = toKafka.log.With("sinkType", "kafka").With("topic", topic)
	if toKafka.producer != nil {
		return toKafka, nil
	}
	cfg, err := util.GetSaramaConfigFromYAMLString(config, "aqiflow-sink")
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer. %w", err)
	}
	toKafka.producer = producer
	return toKafka, nil
}

func (tk *ToKafka) Name() string {
	return "kafka"
}

// Write sends the summary and waits for the broker acknowledgement.
func (tk *ToKafka) Write(_ context.Context, s summary.Summary) error {
	payload, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	message := &sarama.ProducerMessage{
		Topic: tk.topic,
		Key:   sarama.StringEncoder(s.Kind().String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerWindowStart), Value: []byte(summary.FormatTime(s.WindowStart()))},
			{Key: []byte(headerWindowEnd), Value: []byte(summary.FormatTime(s.WindowEnd()))},
		},
		Timestamp: s.WindowEnd(),
	}
	partition, offset, err := tk.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send the %s summary, %w", s.Kind(), err)
	}
	tk.log.Debugw("Summary produced", zap.String("kind", s.Kind().String()), zap.Int32("partition", partition), zap.Int64("offset", offset))
	return nil
}

func (tk *ToKafka) Close() error {
	tk.log.Info("Closing kafka producer...")
	return tk.producer.Close()
}
