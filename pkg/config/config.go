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

// Package config loads the aqiflow configuration.
//
// Values are resolved by viper, from the highest precedence: command line flags,
// AQIFLOW_ environment variables, the config file, and the defaults below.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/aqiflow/aqiflow/pkg/event"
)

const EnvPrefix = "AQIFLOW"

type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Rolling RollingConfig `mapstructure:"rolling"`
	Sources SourcesConfig `mapstructure:"sources"`
	Sinks   SinksConfig   `mapstructure:"sinks"`
	Server  ServerConfig  `mapstructure:"server"`
}

type EngineConfig struct {
	StatisticsWindowSize   time.Duration `mapstructure:"statistics_window_size"`
	DistributionWindowSize time.Duration `mapstructure:"distribution_window_size"`
	AllowedLateness        time.Duration `mapstructure:"allowed_lateness"`
	IdleFlushInterval      time.Duration `mapstructure:"idle_flush_interval"`
	// IdleThreshold of 0 disables idle watermark progression.
	IdleThreshold     time.Duration `mapstructure:"idle_threshold"`
	IdleIncrement     time.Duration `mapstructure:"idle_increment"`
	QueueSize         int           `mapstructure:"queue_size"`
	StatisticsMetrics []string      `mapstructure:"statistics_metrics"`
	SketchCompression float64       `mapstructure:"sketch_compression"`
	// HourlyEnabled adds the one hour statistics windows.
	HourlyEnabled bool `mapstructure:"hourly_enabled"`
	// Filter is an optional boolean expression over the normalized event.
	Filter string `mapstructure:"filter"`
}

// Pollutants resolves StatisticsMetrics.
func (e EngineConfig) Pollutants() ([]event.Pollutant, error) {
	out := make([]event.Pollutant, 0, len(e.StatisticsMetrics))
	seen := make(map[event.Pollutant]bool, len(e.StatisticsMetrics))
	for _, m := range e.StatisticsMetrics {
		p, ok := event.ParsePollutant(strings.TrimSpace(m))
		if !ok {
			return nil, fmt.Errorf("unknown statistics metric %q", m)
		}
		if seen[p] {
			return nil, fmt.Errorf("duplicate statistics metric %q", m)
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

type RollingConfig struct {
	Size             int     `mapstructure:"size"`
	OutlierThreshold float64 `mapstructure:"outlier_threshold"`
}

type SourcesConfig struct {
	Socket SocketSourceConfig `mapstructure:"socket"`
	File   FileSourceConfig   `mapstructure:"file"`
	HTTP   HTTPSourceConfig   `mapstructure:"http"`
	NATS   NATSSourceConfig   `mapstructure:"nats"`
	Kafka  KafkaSourceConfig  `mapstructure:"kafka"`
}

type SocketSourceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type FileSourceConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path "-" reads stdin.
	Path string `mapstructure:"path"`
}

type HTTPSourceConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AuthToken string `mapstructure:"auth_token"`
}

type NATSSourceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Queue   string `mapstructure:"queue"`
}

type KafkaSourceConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Group   string   `mapstructure:"group"`
	// Config is a sarama config in YAML.
	Config string `mapstructure:"config"`
}

type SinksConfig struct {
	Log      LogSinkConfig      `mapstructure:"log"`
	File     FileSinkConfig     `mapstructure:"file"`
	Kafka    KafkaSinkConfig    `mapstructure:"kafka"`
	NATS     NATSSinkConfig     `mapstructure:"nats"`
	Redis    RedisSinkConfig    `mapstructure:"redis"`
	InfluxDB InfluxDBSinkConfig `mapstructure:"influxdb"`
	Memory   MemorySinkConfig   `mapstructure:"memory"`
}

type LogSinkConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type FileSinkConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type KafkaSinkConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Config  string   `mapstructure:"config"`
}

type NATSSinkConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type RedisSinkConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Stream   string        `mapstructure:"stream"`
	MaxLen   int64         `mapstructure:"max_len"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type InfluxDBSinkConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

type MemorySinkConfig struct {
	Size int `mapstructure:"size"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Pprof   bool   `mapstructure:"pprof"`
}

// flagKeys maps the flags registered by AddFlags to their config keys.
var flagKeys = map[string]string{
	"statistics-window-size":   "engine.statistics_window_size",
	"distribution-window-size": "engine.distribution_window_size",
	"allowed-lateness":         "engine.allowed_lateness",
	"idle-flush-interval":      "engine.idle_flush_interval",
	"queue-size":               "engine.queue_size",
	"hourly":                   "engine.hourly_enabled",
	"filter":                   "engine.filter",
	"socket":                   "sources.socket.enabled",
	"socket-address":           "sources.socket.address",
	"output-dir":               "sinks.file.dir",
	"server-address":           "server.address",
	"pprof":                    "server.pprof",
}

// AddFlags registers the command line overrides on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.Duration("statistics-window-size", 5*time.Minute, "Size of the statistics and histogram windows")
	fs.Duration("distribution-window-size", 5*time.Minute, "Size of the quartile windows")
	fs.Duration("allowed-lateness", 10*time.Minute, "How far the watermark trails the max event time")
	fs.Duration("idle-flush-interval", 5*time.Second, "Interval of the idle emit tick")
	fs.Int("queue-size", 4096, "Capacity of the dispatch queue, the oldest reading is dropped on overflow")
	fs.Bool("hourly", false, "Also publish one hour statistics windows")
	fs.String("filter", "", "Expression a reading must satisfy to be aggregated, e.g. \"aqi >= 3\"")
	fs.Bool("socket", false, "Enable the TCP socket source")
	fs.String("socket-address", ":9999", "Address of the TCP socket source")
	fs.String("output-dir", "./output", "Directory of the file sink")
	fs.String("server-address", ":8490", "Address of the API server")
	fs.Bool("pprof", false, "Mount the pprof handlers on the API server")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.statistics_window_size", "300s")
	v.SetDefault("engine.distribution_window_size", "300s")
	v.SetDefault("engine.allowed_lateness", "600s")
	v.SetDefault("engine.idle_flush_interval", "5s")
	v.SetDefault("engine.idle_threshold", "0s")
	v.SetDefault("engine.idle_increment", "0s")
	v.SetDefault("engine.queue_size", 4096)
	v.SetDefault("engine.statistics_metrics", []string{"co", "no2", "pm2_5", "pm10"})
	v.SetDefault("engine.sketch_compression", 100)
	v.SetDefault("engine.hourly_enabled", false)
	v.SetDefault("engine.filter", "")

	v.SetDefault("rolling.size", 10)
	v.SetDefault("rolling.outlier_threshold", 2.0)

	v.SetDefault("sources.socket.enabled", false)
	v.SetDefault("sources.socket.address", ":9999")
	v.SetDefault("sources.file.enabled", false)
	v.SetDefault("sources.file.path", "")
	v.SetDefault("sources.http.enabled", false)
	v.SetDefault("sources.http.auth_token", "")
	v.SetDefault("sources.nats.enabled", false)
	v.SetDefault("sources.nats.url", "")
	v.SetDefault("sources.nats.subject", "")
	v.SetDefault("sources.nats.queue", "")
	v.SetDefault("sources.kafka.enabled", false)
	v.SetDefault("sources.kafka.brokers", []string{})
	v.SetDefault("sources.kafka.topic", "")
	v.SetDefault("sources.kafka.group", "aqiflow")
	v.SetDefault("sources.kafka.config", "")

	v.SetDefault("sinks.log.enabled", true)
	v.SetDefault("sinks.file.enabled", false)
	v.SetDefault("sinks.file.dir", "./output")
	v.SetDefault("sinks.kafka.enabled", false)
	v.SetDefault("sinks.kafka.brokers", []string{})
	v.SetDefault("sinks.kafka.topic", "")
	v.SetDefault("sinks.kafka.config", "")
	v.SetDefault("sinks.nats.enabled", false)
	v.SetDefault("sinks.nats.url", "")
	v.SetDefault("sinks.nats.subject_prefix", "aqiflow")
	v.SetDefault("sinks.redis.enabled", false)
	v.SetDefault("sinks.redis.addr", "")
	v.SetDefault("sinks.redis.password", "")
	v.SetDefault("sinks.redis.db", 0)
	v.SetDefault("sinks.redis.stream", "aqiflow")
	v.SetDefault("sinks.redis.max_len", 10000)
	v.SetDefault("sinks.redis.ttl", "0s")
	v.SetDefault("sinks.influxdb.enabled", false)
	v.SetDefault("sinks.influxdb.url", "")
	v.SetDefault("sinks.influxdb.token", "")
	v.SetDefault("sinks.influxdb.org", "")
	v.SetDefault("sinks.influxdb.bucket", "")
	v.SetDefault("sinks.memory.size", 1024)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.address", ":8490")
	v.SetDefault("server.pprof", false)
}

// Load reads the config file at path, if any, and applies the environment and the
// flags in fs that were set on the command line. The result is validated.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q, %w", path, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			// unset flags must not shadow the file or the environment.
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %q, %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config, reporting every problem found.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	e := c.Engine
	if e.StatisticsWindowSize <= 0 {
		fail("engine.statistics_window_size must be positive, got %s", e.StatisticsWindowSize)
	}
	if e.DistributionWindowSize <= 0 {
		fail("engine.distribution_window_size must be positive, got %s", e.DistributionWindowSize)
	}
	if e.AllowedLateness < 0 {
		fail("engine.allowed_lateness must not be negative, got %s", e.AllowedLateness)
	}
	if e.IdleFlushInterval <= 0 {
		fail("engine.idle_flush_interval must be positive, got %s", e.IdleFlushInterval)
	}
	if e.IdleThreshold < 0 || e.IdleIncrement < 0 {
		fail("engine.idle_threshold and engine.idle_increment must not be negative")
	}
	if e.IdleThreshold > 0 && e.IdleIncrement == 0 {
		fail("engine.idle_increment is required when engine.idle_threshold is set")
	}
	if e.QueueSize <= 0 {
		fail("engine.queue_size must be positive, got %d", e.QueueSize)
	}
	if e.SketchCompression <= 0 {
		fail("engine.sketch_compression must be positive, got %v", e.SketchCompression)
	}
	if _, err := e.Pollutants(); err != nil {
		fail("engine.statistics_metrics: %w", err)
	}

	if c.Rolling.Size < 2 {
		fail("rolling.size must be at least 2, got %d", c.Rolling.Size)
	}
	if c.Rolling.OutlierThreshold <= 0 {
		fail("rolling.outlier_threshold must be positive, got %v", c.Rolling.OutlierThreshold)
	}

	s := c.Sources
	if s.Socket.Enabled && s.Socket.Address == "" {
		fail("sources.socket.address is required when the socket source is enabled")
	}
	if s.File.Enabled && s.File.Path == "" {
		fail("sources.file.path is required when the file source is enabled")
	}
	if s.HTTP.Enabled && !c.Server.Enabled {
		fail("the http source is served by the API server, server.enabled must be true")
	}
	if s.NATS.Enabled && (s.NATS.URL == "" || s.NATS.Subject == "") {
		fail("sources.nats.url and sources.nats.subject are required when the nats source is enabled")
	}
	if s.Kafka.Enabled && (len(s.Kafka.Brokers) == 0 || s.Kafka.Topic == "" || s.Kafka.Group == "") {
		fail("sources.kafka.brokers, sources.kafka.topic and sources.kafka.group are required when the kafka source is enabled")
	}

	k := c.Sinks
	if k.File.Enabled && k.File.Dir == "" {
		fail("sinks.file.dir is required when the file sink is enabled")
	}
	if k.Kafka.Enabled && (len(k.Kafka.Brokers) == 0 || k.Kafka.Topic == "") {
		fail("sinks.kafka.brokers and sinks.kafka.topic are required when the kafka sink is enabled")
	}
	if k.NATS.Enabled && (k.NATS.URL == "" || k.NATS.SubjectPrefix == "") {
		fail("sinks.nats.url and sinks.nats.subject_prefix are required when the nats sink is enabled")
	}
	if k.Redis.Enabled && k.Redis.Addr == "" {
		fail("sinks.redis.addr is required when the redis sink is enabled")
	}
	if k.Redis.MaxLen < 0 || k.Redis.TTL < 0 {
		fail("sinks.redis.max_len and sinks.redis.ttl must not be negative")
	}
	if k.InfluxDB.Enabled && (k.InfluxDB.URL == "" || k.InfluxDB.Org == "" || k.InfluxDB.Bucket == "") {
		fail("sinks.influxdb.url, sinks.influxdb.org and sinks.influxdb.bucket are required when the influxdb sink is enabled")
	}
	if k.Memory.Size <= 0 {
		fail("sinks.memory.size must be positive, got %d", k.Memory.Size)
	}

	if c.Server.Enabled && c.Server.Address == "" {
		fail("server.address is required when the server is enabled")
	}
	if err := multierr.Combine(errs...); err != nil {
		return fmt.Errorf("invalid config, %w", err)
	}
	return nil
}
