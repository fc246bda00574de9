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
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/shared/logging"
)

// Client is a NATS connection shared by the source and the sink.
type Client struct {
	nc  *nats.Conn
	log *zap.SugaredLogger
}

// NewNATSClient connects to url. The connection reconnects forever and logs its state changes.
func NewNATSClient(ctx context.Context, url string, natsOptions ...nats.Option) (*Client, error) {
	log := logging.FromContext(ctx).With("url", url)
	opts := []nats.Option{
		// if max reconnects is set to -1, it will try to reconnect forever
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		// every three seconds we will try to ping the server, if we don't get a pong back
		// after two attempts, we will consider the connection lost and try to reconnect
		nats.PingInterval(3 * time.Second),
		nats.MaxPingsOutstanding(2),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Errorw("Nats: error occurred for subscription", zap.Error(err))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("Nats: connection closed")
		}),
		// retry on failed connect should be true, else it wont try to reconnect during initial connect
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Errorw("Nats: disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Nats: reconnected")
		}),
		nats.FlusherTimeout(10 * time.Second),
	}
	opts = append(opts, natsOptions...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats url=%s: %w", url, err)
	}
	return &Client{nc: nc, log: log}, nil
}

// Publish sends data to subject.
func (c *Client) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

// Flush waits until the server has processed every buffered publish.
func (c *Client) Flush(ctx context.Context) error {
	return c.nc.FlushWithContext(ctx)
}

// QueueSubscribe subscribes to subject as a member of queue. An empty queue subscribes plainly.
func (c *Client) QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error) {
	if queue == "" {
		return c.nc.Subscribe(subject, cb)
	}
	return c.nc.QueueSubscribe(subject, queue, cb)
}

// Conn returns the underlying connection.
func (c *Client) Conn() *nats.Conn {
	return c.nc
}

// Close drains and closes the connection.
func (c *Client) Close() {
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
	}
}

// NewTestClient creates a new NATS client for testing
// only use this for testing
func NewTestClient(t *testing.T, url string) *Client {
	t.Helper()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("failed to connect to %s, %v", url, err)
	}
	return &Client{nc: nc, log: logging.NewLogger()}
}

// NewTestClientWithServer is used to get a testing client of s
func NewTestClientWithServer(t *testing.T, s *server.Server) *Client {
	return NewTestClient(t, s.ClientURL())
}
