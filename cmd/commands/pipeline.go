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

package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aqiflow/aqiflow/pkg/apiserver"
	"github.com/aqiflow/aqiflow/pkg/config"
	"github.com/aqiflow/aqiflow/pkg/engine"
	natsclient "github.com/aqiflow/aqiflow/pkg/shared/clients/nats"
	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/sinks"
	filesink "github.com/aqiflow/aqiflow/pkg/sinks/file"
	"github.com/aqiflow/aqiflow/pkg/sinks/influxdb"
	kafkasink "github.com/aqiflow/aqiflow/pkg/sinks/kafka"
	logsink "github.com/aqiflow/aqiflow/pkg/sinks/logger"
	"github.com/aqiflow/aqiflow/pkg/sinks/memory"
	natssink "github.com/aqiflow/aqiflow/pkg/sinks/nats"
	redissink "github.com/aqiflow/aqiflow/pkg/sinks/redis"
	"github.com/aqiflow/aqiflow/pkg/sources"
	filesource "github.com/aqiflow/aqiflow/pkg/sources/file"
	httpsource "github.com/aqiflow/aqiflow/pkg/sources/http"
	kafkasource "github.com/aqiflow/aqiflow/pkg/sources/kafka"
	natssource "github.com/aqiflow/aqiflow/pkg/sources/nats"
	"github.com/aqiflow/aqiflow/pkg/sources/socket"
)

const stopTimeout = 30 * time.Second

// buildSinks creates every enabled sink. The memory store is always built, it backs
// the summaries API.
func buildSinks(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (_ []sinks.Sink, _ *memory.Store, err error) {
	var built []sinks.Sink
	defer func() {
		if err != nil {
			for _, s := range built {
				err = multierr.Append(err, s.Close())
			}
		}
	}()

	store, err := memory.NewStore(cfg.Sinks.Memory.Size)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create the memory sink, %w", err)
	}
	built = append(built, store)

	sc := cfg.Sinks
	if sc.Log.Enabled {
		s, err := logsink.NewToLog(logsink.WithLogger(log))
		if err != nil {
			return nil, nil, err
		}
		built = append(built, s)
	}
	if sc.File.Enabled {
		s, err := filesink.NewToFile(sc.File.Dir, filesink.WithLogger(log))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create the file sink, %w", err)
		}
		built = append(built, s)
	}
	if sc.Kafka.Enabled {
		s, err := kafkasink.NewToKafka(sc.Kafka.Brokers, sc.Kafka.Topic, sc.Kafka.Config, kafkasink.WithLogger(log))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create the kafka sink, %w", err)
		}
		built = append(built, s)
	}
	if sc.NATS.Enabled {
		client, err := natsclient.NewNATSClient(ctx, sc.NATS.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create the nats sink, %w", err)
		}
		built = append(built, natssink.NewToNATS(client, sc.NATS.SubjectPrefix, natssink.WithLogger(log)))
	}
	if sc.Redis.Enabled {
		s, err := redissink.NewRedisSink(&redis.UniversalOptions{
			Addrs:    []string{sc.Redis.Addr},
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		},
			redissink.WithLogger(log),
			redissink.WithStream(sc.Redis.Stream),
			redissink.WithMaxLen(sc.Redis.MaxLen),
			redissink.WithTTL(sc.Redis.TTL))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create the redis sink, %w", err)
		}
		built = append(built, s)
	}
	if sc.InfluxDB.Enabled {
		built = append(built, influxdb.NewToInfluxDB(sc.InfluxDB.URL, sc.InfluxDB.Token, sc.InfluxDB.Org, sc.InfluxDB.Bucket, influxdb.WithLogger(log)))
	}
	return built, store, nil
}

// buildSources creates every enabled source except http, which is served by the API server.
func buildSources(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (_ []sources.Source, err error) {
	var built []sources.Source
	defer func() {
		if err != nil {
			err = multierr.Append(err, closeSources(built))
		}
	}()

	sc := cfg.Sources
	if sc.Socket.Enabled {
		built = append(built, socket.New(sc.Socket.Address, socket.WithLogger(log)))
	}
	if sc.File.Enabled {
		built = append(built, filesource.New(sc.File.Path, filesource.WithLogger(log)))
	}
	if sc.NATS.Enabled {
		client, err := natsclient.NewNATSClient(ctx, sc.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create the nats source, %w", err)
		}
		built = append(built, natssource.New(client, sc.NATS.Subject, sc.NATS.Queue, natssource.WithLogger(log)))
	}
	if sc.Kafka.Enabled {
		s, err := kafkasource.New(sc.Kafka.Brokers, sc.Kafka.Topic, sc.Kafka.Group, sc.Kafka.Config, kafkasource.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("failed to create the kafka source, %w", err)
		}
		built = append(built, s)
	}
	return built, nil
}

func closeSources(srcs []sources.Source) error {
	var err error
	for _, s := range srcs {
		err = multierr.Append(err, s.Close())
	}
	return err
}

// run feeds the engine from srcs and serves the API if enabled, until ctx is done
// or every task returned. It then stops the engine, flushing all open windows.
func run(ctx context.Context, cfg *config.Config, srcs []sources.Source) error {
	log := logging.FromContext(ctx)
	defer func() {
		if err := closeSources(srcs); err != nil {
			log.Warnw("Failed to close the sources", zap.Error(err))
		}
	}()

	sinkList, store, err := buildSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	// the engine outlives ctx so that Stop can drain it.
	eng, err := engine.Start(context.WithoutCancel(ctx), cfg, engine.WithLogger(log), engine.WithSinks(sinkList...))
	if err != nil {
		return multierr.Append(err, sinks.NewFanout(sinkList).Close())
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range srcs {
		src := src
		g.Go(func() error {
			if err := src.Start(gctx, eng); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("source %s failed, %w", src.Name(), err)
			}
			return nil
		})
	}
	if cfg.Server.Enabled {
		opts := []apiserver.Option{
			apiserver.WithLogger(log.Named("api-server")),
			apiserver.WithHealthCheckers(eng),
			apiserver.WithPprof(cfg.Server.Pprof),
		}
		if cfg.Sources.HTTP.Enabled {
			opts = append(opts, apiserver.WithReadings(httpsource.New(eng,
				httpsource.WithLogger(log),
				httpsource.WithAuthToken(cfg.Sources.HTTP.AuthToken))))
		}
		server := apiserver.New(cfg.Server.Address, eng, store, opts...)
		g.Go(func() error {
			return server.Start(gctx)
		})
	}
	runErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	stopErr := eng.Stop(stopCtx)
	stats := eng.Stats()
	log.Infow("Engine stopped",
		zap.Uint64("received", stats.Received),
		zap.Uint64("accepted", stats.Accepted),
		zap.Uint64("malformed", stats.Malformed),
		zap.Uint64("late", stats.Late),
		zap.Uint64("dropped", stats.Dropped),
		zap.Uint64("emitted", stats.Emitted))
	return multierr.Append(runErr, stopErr)
}
