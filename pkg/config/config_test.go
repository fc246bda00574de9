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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqiflow/aqiflow/pkg/event"
)

const testYAML = `
engine:
  allowed_lateness: 120s
  statistics_window_size: 1m
  statistics_metrics: [co, o3]
  filter: "aqi >= 2"
sinks:
  file:
    enabled: true
    dir: /tmp/aqiflow
  redis:
    enabled: true
    addr: localhost:6379
    ttl: 1h
sources:
  kafka:
    enabled: true
    brokers: [b1:9092, b2:9092]
    topic: readings
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aqiflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Engine.StatisticsWindowSize)
	assert.Equal(t, 5*time.Minute, cfg.Engine.DistributionWindowSize)
	assert.Equal(t, 10*time.Minute, cfg.Engine.AllowedLateness)
	assert.Equal(t, 5*time.Second, cfg.Engine.IdleFlushInterval)
	assert.Equal(t, time.Duration(0), cfg.Engine.IdleThreshold)
	assert.Equal(t, 4096, cfg.Engine.QueueSize)
	assert.Equal(t, 100.0, cfg.Engine.SketchCompression)
	assert.False(t, cfg.Engine.HourlyEnabled)
	assert.Equal(t, []string{"co", "no2", "pm2_5", "pm10"}, cfg.Engine.StatisticsMetrics)
	assert.Equal(t, 10, cfg.Rolling.Size)
	assert.Equal(t, 2.0, cfg.Rolling.OutlierThreshold)
	assert.True(t, cfg.Sinks.Log.Enabled)
	assert.False(t, cfg.Sinks.File.Enabled)
	assert.Equal(t, "./output", cfg.Sinks.File.Dir)
	assert.Equal(t, 1024, cfg.Sinks.Memory.Size)
	assert.Equal(t, ":9999", cfg.Sources.Socket.Address)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, ":8490", cfg.Server.Address)

	ps, err := cfg.Engine.Pollutants()
	require.NoError(t, err)
	assert.Equal(t, []event.Pollutant{event.CO, event.NO2, event.PM2_5, event.PM10}, ps)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML), nil)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Engine.AllowedLateness)
	assert.Equal(t, time.Minute, cfg.Engine.StatisticsWindowSize)
	assert.Equal(t, 5*time.Minute, cfg.Engine.DistributionWindowSize)
	assert.Equal(t, []string{"co", "o3"}, cfg.Engine.StatisticsMetrics)
	assert.Equal(t, "aqi >= 2", cfg.Engine.Filter)
	assert.Equal(t, "/tmp/aqiflow", cfg.Sinks.File.Dir)
	assert.Equal(t, time.Hour, cfg.Sinks.Redis.TTL)
	assert.Equal(t, int64(10000), cfg.Sinks.Redis.MaxLen)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Sources.Kafka.Brokers)
	assert.Equal(t, "aqiflow", cfg.Sources.Kafka.Group)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, testYAML)
	t.Setenv("AQIFLOW_ENGINE_ALLOWED_LATENESS", "30s")
	t.Setenv("AQIFLOW_ENGINE_QUEUE_SIZE", "64")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Engine.AllowedLateness)
	assert.Equal(t, 64, cfg.Engine.QueueSize)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--allowed-lateness=1m", "--socket", "--output-dir=/data", "--hourly"}))
	cfg, err = Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Engine.AllowedLateness)
	// not set on the command line, the environment still wins
	assert.Equal(t, 64, cfg.Engine.QueueSize)
	assert.True(t, cfg.Sources.Socket.Enabled)
	assert.Equal(t, "/data", cfg.Sinks.File.Dir)
	assert.True(t, cfg.Engine.HourlyEnabled)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("", nil)
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero statistics window", func(c *Config) { c.Engine.StatisticsWindowSize = 0 }},
		{"negative distribution window", func(c *Config) { c.Engine.DistributionWindowSize = -time.Second }},
		{"negative lateness", func(c *Config) { c.Engine.AllowedLateness = -time.Second }},
		{"zero idle interval", func(c *Config) { c.Engine.IdleFlushInterval = 0 }},
		{"idle threshold without increment", func(c *Config) { c.Engine.IdleThreshold = time.Minute }},
		{"zero queue", func(c *Config) { c.Engine.QueueSize = 0 }},
		{"unknown metric", func(c *Config) { c.Engine.StatisticsMetrics = []string{"co", "dust"} }},
		{"duplicate metric", func(c *Config) { c.Engine.StatisticsMetrics = []string{"co", "no2", " co"} }},
		{"tiny rolling window", func(c *Config) { c.Rolling.Size = 1 }},
		{"file source without path", func(c *Config) { c.Sources.File.Enabled = true }},
		{"http source without server", func(c *Config) {
			c.Sources.HTTP.Enabled = true
			c.Server.Enabled = false
		}},
		{"nats source without subject", func(c *Config) {
			c.Sources.NATS.Enabled = true
			c.Sources.NATS.URL = "nats://localhost:4222"
		}},
		{"kafka source without brokers", func(c *Config) {
			c.Sources.Kafka.Enabled = true
			c.Sources.Kafka.Topic = "t"
		}},
		{"kafka sink without topic", func(c *Config) {
			c.Sinks.Kafka.Enabled = true
			c.Sinks.Kafka.Brokers = []string{"b:9092"}
		}},
		{"nats sink without url", func(c *Config) { c.Sinks.NATS.Enabled = true }},
		{"redis sink without addr", func(c *Config) { c.Sinks.Redis.Enabled = true }},
		{"influxdb sink without bucket", func(c *Config) {
			c.Sinks.InfluxDB.Enabled = true
			c.Sinks.InfluxDB.URL = "http://localhost:8086"
			c.Sinks.InfluxDB.Org = "o"
		}},
		{"zero memory", func(c *Config) { c.Sinks.Memory.Size = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := validConfig(t)
	cfg.Engine.IdleThreshold = time.Minute
	cfg.Engine.IdleIncrement = time.Second
	cfg.Sources.HTTP.Enabled = true
	assert.NoError(t, cfg.Validate())
}
