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
	"testing"
	"time"

	"github.com/goccy/go-json"
	natslib "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqiflow/aqiflow/pkg/classifier"
	natsclient "github.com/aqiflow/aqiflow/pkg/shared/clients/nats"
	natstest "github.com/aqiflow/aqiflow/pkg/shared/clients/nats/test"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

func TestToNATS_Write(t *testing.T) {
	s := natstest.RunNatsServer(t)
	defer natstest.ShutdownNatsServer(t, s)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub := natsclient.NewTestClientWithServer(t, s)
	defer sub.Close()
	msgs := make(chan *natslib.Msg, 4)
	subscription, err := sub.QueueSubscribe("aqiflow.summaries.*", "", func(m *natslib.Msg) { msgs <- m })
	require.NoError(t, err)
	defer func() { _ = subscription.Unsubscribe() }()
	require.NoError(t, sub.Flush(ctx))

	sink := NewToNATS(natsclient.NewTestClientWithServer(t, s), "aqiflow.summaries")
	assert.Equal(t, "aqiflow.summaries.histogram", sink.Subject(summary.KindHistogram))

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Write(ctx, &summary.HistogramSummary{Start: start, End: start.Add(5 * time.Minute), Counts: classifier.Counts{0, 1}}))

	select {
	case m := <-msgs:
		assert.Equal(t, "aqiflow.summaries.histogram", m.Subject)
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(m.Data, &decoded))
		assert.Equal(t, 1.0, decoded["Fair"])
	case <-ctx.Done():
		t.Fatal("summary not published")
	}
	assert.NoError(t, sink.Close())
}
