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

// Package idlehandler advances the watermark when no event has been accepted for a while.
//
// Without new events the watermark stands still and the last windows are never
// finalized. When the input has been idle for longer than the threshold, every step
// the handler moves the watermark forward.
//
// What to publish as the idle watermark?
//
//	The current watermark + Config.IncrementBy. We will ensure that the increment
//	will never cross (time.Now() - Config.MaxDelay).
package idlehandler

import (
	"time"

	"github.com/aqiflow/aqiflow/pkg/watermark/wmb"
)

// Config of the idle handler. A zero Threshold disables it.
type Config struct {
	// Threshold is how long the input must be idle before the watermark is advanced.
	Threshold time.Duration
	// StepInterval is the minimum interval between two idle advances.
	StepInterval time.Duration
	// IncrementBy is how much each idle advance adds to the watermark.
	IncrementBy time.Duration
	// MaxDelay keeps the idle watermark at least this far behind the wall clock, usually the allowed lateness.
	MaxDelay time.Duration
}

// Enabled reports whether idle progression is on.
func (c Config) Enabled() bool {
	return c.Threshold > 0 && c.IncrementBy > 0
}

// WatermarkAdvancer is the watermark the handler moves.
type WatermarkAdvancer interface {
	Current() (wmb.Watermark, bool)
	AdvanceTo(w wmb.Watermark) bool
}

// SourceIdleHandler handles operations related to idle watermarks for the input.
type SourceIdleHandler struct {
	config                  Config
	clock                   WatermarkAdvancer
	now                     func() time.Time
	lastIdleWmPublishedTime time.Time
	updatedTS               time.Time
}

type Option func(*SourceIdleHandler)

// WithNow sets the wall clock.
func WithNow(now func() time.Time) Option {
	return func(h *SourceIdleHandler) {
		h.now = now
	}
}

// NewSourceIdleHandler creates a new instance of SourceIdleHandler.
func NewSourceIdleHandler(config Config, clock WatermarkAdvancer, opts ...Option) *SourceIdleHandler {
	h := &SourceIdleHandler{
		config:                  config,
		clock:                   clock,
		now:                     time.Now,
		lastIdleWmPublishedTime: time.UnixMilli(-1),
	}
	for _, o := range opts {
		o(h)
	}
	h.updatedTS = h.now()
	return h
}

// IsSourceIdling will return true if the input has been idling and the step interval has passed.
func (iw *SourceIdleHandler) IsSourceIdling() bool {
	return iw.isSourceIdling() && iw.hasStepIntervalPassed()
}

func (iw *SourceIdleHandler) isSourceIdling() bool {
	if !iw.config.Enabled() {
		return false
	}
	return iw.now().Sub(iw.updatedTS) >= iw.config.Threshold
}

// hasStepIntervalPassed verifies if the step interval has passed.
func (iw *SourceIdleHandler) hasStepIntervalPassed() bool {
	// -1 means nothing was published since the last reset, so the first idle watermark
	// is published as soon as the threshold has passed.
	if iw.lastIdleWmPublishedTime.Equal(time.UnixMilli(-1)) {
		return true
	}
	return iw.now().Sub(iw.lastIdleWmPublishedTime) >= iw.config.StepInterval
}

// PublishSourceIdleWatermark advances the watermark by IncrementBy, capped at now - MaxDelay.
// It reports the new watermark and whether it moved. Nothing is published before the
// first event.
func (iw *SourceIdleHandler) PublishSourceIdleWatermark() (wmb.Watermark, bool) {
	current, ok := iw.clock.Current()
	if !ok {
		return current, false
	}
	nextIdleWM := current.Add(iw.config.IncrementBy)
	ceiling := iw.now().Add(-1 * iw.config.MaxDelay)
	// if the next idle watermark is after the current time, then set the next idle watermark to the current time.
	if nextIdleWM.After(ceiling) {
		nextIdleWM = ceiling
	}
	iw.lastIdleWmPublishedTime = iw.now()
	moved := iw.clock.AdvanceTo(wmb.Watermark(nextIdleWM))
	w, _ := iw.clock.Current()
	return w, moved
}

// Reset is called on every accepted event.
func (iw *SourceIdleHandler) Reset() {
	iw.updatedTS = iw.now()
	iw.lastIdleWmPublishedTime = time.UnixMilli(-1)
}
