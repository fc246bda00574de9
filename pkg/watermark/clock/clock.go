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

// Package clock derives the event-time watermark from the events observed so far.
//
// watermark = max(event time seen) - allowed lateness
//
// The watermark never regresses. Besides Observe, the watermark can be pushed
// forward by AdvanceTo (idle progression) and by Infinite (shutdown). Both move
// it forward only.
package clock

import (
	"sync"
	"time"

	"github.com/aqiflow/aqiflow/pkg/watermark/wmb"
)

// DefaultAllowedLateness is the default event-time tolerance.
const DefaultAllowedLateness = 10 * time.Minute

// Clock is safe for concurrent use, although in the engine only the dispatch
// loop mutates it.
type Clock struct {
	lock            sync.RWMutex
	allowedLateness time.Duration
	maxSeen         time.Time
	watermark       wmb.Watermark
	// set is false until the watermark is first assigned
	set  bool
	seen bool
}

// New returns a clock with the given allowed lateness. Negative lateness is treated as zero.
func New(allowedLateness time.Duration) *Clock {
	if allowedLateness < 0 {
		allowedLateness = 0
	}
	return &Clock{
		allowedLateness: allowedLateness,
		watermark:       wmb.InitialWatermark,
	}
}

// AllowedLateness returns the configured tolerance.
func (c *Clock) AllowedLateness() time.Duration {
	return c.allowedLateness
}

// Observe records an event time and returns the resulting watermark.
func (c *Clock) Observe(eventTime time.Time) wmb.Watermark {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.seen || eventTime.After(c.maxSeen) {
		c.maxSeen = eventTime
	}
	c.seen = true
	c.forward(wmb.Watermark(c.maxSeen.Add(-c.allowedLateness)))
	return c.watermark
}

// Current returns the watermark, and false if no event has been observed and the
// watermark was never advanced.
func (c *Clock) Current() (wmb.Watermark, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if !c.set {
		return wmb.InitialWatermark, false
	}
	return c.watermark, true
}

// MaxSeen returns the largest event time observed.
func (c *Clock) MaxSeen() (time.Time, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.maxSeen, c.seen
}

// AdvanceTo moves the watermark to w if w is ahead of it. It reports whether the watermark moved.
func (c *Clock) AdvanceTo(w wmb.Watermark) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.forward(w)
}

// Infinite moves the watermark past every possible window end.
func (c *Clock) Infinite() wmb.Watermark {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.forward(wmb.MaxWatermark)
	return c.watermark
}

func (c *Clock) forward(w wmb.Watermark) bool {
	if !c.set || w.AfterWatermark(c.watermark) {
		c.watermark = w
		c.set = true
		return true
	}
	return false
}
