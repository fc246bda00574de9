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

// Package http accepts readings POSTed to the API server. The body holds one NDJSON
// reading or many.
package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/sources"
)

const (
	sourceName = "http"
	// KeyMetaID lets the client pick the request id, a uuid is generated otherwise.
	KeyMetaID = "X-Aqiflow-Id"

	defaultMaxBodySize = 10 << 20
)

// Result is the 202 response body.
type Result struct {
	ID       string `json:"id"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
}

type HTTPSource struct {
	submitter   sources.Submitter
	auth        string
	maxBodySize int64
	logger      *zap.SugaredLogger
}

type Option func(*HTTPSource)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *HTTPSource) {
		o.logger = l
	}
}

// WithAuthToken requires "Authorization: Bearer <token>" on every request.
func WithAuthToken(token string) Option {
	return func(o *HTTPSource) {
		o.auth = token
	}
}

// WithMaxBodySize caps the request body, larger bodies are rejected with 413.
func WithMaxBodySize(n int64) Option {
	return func(o *HTTPSource) {
		o.maxBodySize = n
	}
}

func New(submitter sources.Submitter, opts ...Option) *HTTPSource {
	h := &HTTPSource{submitter: submitter, maxBodySize: defaultMaxBodySize}
	for _, o := range opts {
		o(h)
	}
	if h.logger == nil {
		h.logger = logging.NewLogger()
	}
	h.logger = h.logger.With("source", sourceName)
	return h
}

func (h *HTTPSource) Name() string {
	return sourceName
}

// Handle is the gin handler of POST /api/v1/readings.
func (h *HTTPSource) Handle(c *gin.Context) {
	if h.auth != "" && c.GetHeader("Authorization") != "Bearer "+h.auth {
		c.JSON(http.StatusForbidden, gin.H{"errMessage": "request not authorized"})
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize))
	_ = c.Request.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"errMessage": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"errMessage": err.Error()})
		return
	}

	id := c.GetHeader(KeyMetaID)
	if id == "" {
		id = uuid.New().String()
	}
	log := h.logger.With("id", id)
	ctx := sources.WithSourceName(logging.WithLogger(c.Request.Context(), log), sourceName)
	accepted, rejected, err := sources.SubmitLines(ctx, h.submitter, body, log)
	if err != nil {
		log.Warnw("Failed to submit the readings", zap.Int("accepted", accepted), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"errMessage": err.Error(), "id": id, "accepted": accepted})
		return
	}
	log.Debugw("Readings received", zap.Int("accepted", accepted), zap.Int("rejected", rejected))
	c.JSON(http.StatusAccepted, Result{ID: id, Accepted: accepted, Rejected: rejected})
}
