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

package influxdb

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

// ToInfluxDB writes one point per summary. The measurement is the summary kind and the
// point time is the window start.
type ToInfluxDB struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      *zap.SugaredLogger
}

type Option func(*ToInfluxDB)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToInfluxDB) {
		t.log = log
	}
}

// NewToInfluxDB returns a sink writing to bucket of org.
func NewToInfluxDB(url, token, org, bucket string, opts ...Option) *ToInfluxDB {
	client := influxdb2.NewClient(url, token)
	t := &ToInfluxDB{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
	}
	for _, o := range opts {
		o(t)
	}
	if t.log == nil {
		t.log = logging.NewLogger()
	}
	t.log = t.log.With("sinkType", "influxdb", "bucket", bucket)
	return t
}

func (t *ToInfluxDB) Name() string {
	return "influxdb"
}

// Point converts a summary.
func Point(s summary.Summary) *write.Point {
	p := influxdb2.NewPointWithMeasurement(s.Kind().String())
	p.SetTime(s.WindowStart())
	p.AddTag("window_end", summary.FormatTime(s.WindowEnd()))
	for k, v := range s.Fields() {
		p.AddField(k, v)
	}
	return p
}

func (t *ToInfluxDB) Write(ctx context.Context, s summary.Summary) error {
	if err := t.writeAPI.WritePoint(ctx, Point(s)); err != nil {
		return fmt.Errorf("failed to write the %s point, %w", s.Kind(), err)
	}
	return nil
}

// IsHealthy checks the server health endpoint.
func (t *ToInfluxDB) IsHealthy(ctx context.Context) error {
	h, err := t.client.Health(ctx)
	if err != nil {
		return err
	}
	if h.Status != "pass" {
		return fmt.Errorf("influxdb is not healthy, status %s", h.Status)
	}
	return nil
}

func (t *ToInfluxDB) Close() error {
	t.client.Close()
	return nil
}
