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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	natsclient "github.com/aqiflow/aqiflow/pkg/shared/clients/nats"
	natstest "github.com/aqiflow/aqiflow/pkg/shared/clients/nats/test"
	"github.com/aqiflow/aqiflow/pkg/sources"
)

const (
	first  = `{"timestamp":"2024-03-01T10:00:00Z","aqi":2,"co":201.9}`
	second = `{"timestamp":"2024-03-01T10:00:05Z","aqi":3,"co":250.3}`
)

func TestNATSSource(t *testing.T) {
	s := natstest.RunNatsServer(t)
	defer natstest.ShutdownNatsServer(t, s)

	src := New(natsclient.NewTestClientWithServer(t, s), "readings", "aqiflow", WithLogger(zaptest.NewLogger(t).Sugar()))
	assert.Equal(t, "nats", src.Name())

	rec := sources.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Start(ctx, rec) }()

	publisher := natsclient.NewTestClientWithServer(t, s)
	defer publisher.Close()
	// the subscription is created asynchronously, publish until it is there
	assert.Eventually(t, func() bool {
		_ = publisher.Publish("readings", []byte(first))
		return len(rec.Lines()) > 0
	}, 5*time.Second, 20*time.Millisecond)

	before := len(rec.Lines())
	require.NoError(t, publisher.Publish("readings", []byte(second+"\n"+"not json\n"+second)))
	require.NoError(t, publisher.Flush(context.Background()))
	assert.Eventually(t, func() bool { return len(rec.Lines()) == before+2 }, 5*time.Second, 10*time.Millisecond)
	for _, name := range rec.Sources() {
		assert.Equal(t, "nats", name)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("source did not stop")
	}
	assert.NoError(t, src.Close())
}
