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

// Package apiserver serves the health, metrics and query endpoints of a running
// engine, and accepts readings over HTTP when the http source is enabled.
package apiserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/engine"
	"github.com/aqiflow/aqiflow/pkg/metrics"
	"github.com/aqiflow/aqiflow/pkg/rolling"
	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	httpsource "github.com/aqiflow/aqiflow/pkg/sources/http"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

const shutdownTimeout = 5 * time.Second

// Engine is the part of a running engine the server reads.
type Engine interface {
	Stats() engine.Stats
	Rolling() *rolling.Window
}

// SummaryStore keeps the latest summaries of every kind.
type SummaryStore interface {
	Latest(kind summary.Kind, limit int) []summary.Summary
}

type Server struct {
	address  string
	engine   Engine
	store    SummaryStore
	checkers []metrics.HealthChecker
	readings *httpsource.HTTPSource
	pprof    bool
	logger   *zap.SugaredLogger
}

type Option func(*Server)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithHealthCheckers adds the checkers consulted by /readyz.
func WithHealthCheckers(checkers ...metrics.HealthChecker) Option {
	return func(s *Server) {
		s.checkers = append(s.checkers, checkers...)
	}
}

// WithPprof mounts the profiling handlers under /debug/pprof.
func WithPprof(enabled bool) Option {
	return func(s *Server) {
		s.pprof = enabled
	}
}

// WithReadings mounts POST /api/v1/readings.
func WithReadings(h *httpsource.HTTPSource) Option {
	return func(s *Server) {
		s.readings = h
	}
}

func New(address string, eng Engine, store SummaryStore, opts ...Option) *Server {
	s := &Server{address: address, engine: eng, store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger().Named("api-server")
	}
	return s
}

// Router builds the gin engine serving every route.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{SkipPaths: []string{"/livez", "/readyz", "/metrics"}}))
	router.Use(gin.Recovery())
	router.RedirectTrailingSlash = true

	router.GET("/livez", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/readyz", s.readyz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handler{engine: s.engine, store: s.store}
	v1 := router.Group("/api/v1")
	v1.GET("/status", h.GetStatus)
	v1.GET("/summaries/:kind", h.ListSummaries)
	v1.GET("/rolling", h.GetRolling)
	v1.GET("/outliers", h.ListOutliers)
	if s.readings != nil {
		v1.POST("/readings", s.readings.Handle)
	}

	if s.pprof {
		router.GET("/debug/pprof/*name", profile)
		router.POST("/debug/pprof/*name", profile)
	}
	return router
}

func (s *Server) readyz(c *gin.Context) {
	for _, hc := range s.checkers {
		if err := hc.IsHealthy(c.Request.Context()); err != nil {
			s.logger.Warnw("Not ready", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, errorResponse(err.Error()))
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func profile(c *gin.Context) {
	switch c.Param("name") {
	case "/cmdline":
		pprof.Cmdline(c.Writer, c.Request)
	case "/profile":
		pprof.Profile(c.Writer, c.Request)
	case "/symbol":
		pprof.Symbol(c.Writer, c.Request)
	case "/trace":
		pprof.Trace(c.Writer, c.Request)
	default:
		pprof.Index(c.Writer, c.Request)
	}
}

// Start serves until ctx is done, then shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("Starting the API server", zap.String("address", s.address))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("API server stopped")
	return nil
}
