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

package engine

import (
	"time"
)

// Stats is a point in time view of the engine.
type Stats struct {
	// Watermark is nil until the first reading.
	Watermark     *time.Time     `json:"watermark,omitempty"`
	MaxEventTime  *time.Time     `json:"maxEventTime,omitempty"`
	ActiveWindows map[string]int `json:"activeWindows"`
	QueueLength   int            `json:"queueLength"`
	Received      uint64         `json:"received"`
	Accepted      uint64         `json:"accepted"`
	Malformed     uint64         `json:"malformed"`
	Filtered      uint64         `json:"filtered"`
	Late          uint64         `json:"late"`
	Dropped       uint64         `json:"dropped"`
	Emitted       uint64         `json:"emitted"`
	Stopping      bool           `json:"stopping"`
}

// Stats returns the current counters, watermark and active window counts.
func (h *Handle) Stats() Stats {
	s := Stats{
		ActiveWindows: make(map[string]int, len(h.manager.Families())),
		QueueLength:   h.queue.Len(),
		Received:      h.received.Load(),
		Accepted:      h.accepted.Load(),
		Malformed:     h.malformed.Load(),
		Filtered:      h.filtered.Load(),
		Late:          h.late.Load(),
		Dropped:       h.dropped.Load(),
		Emitted:       h.emitted.Load(),
		Stopping:      h.stopping.Load(),
	}
	for _, f := range h.manager.Families() {
		s.ActiveWindows[f.Name] = h.manager.Active(f.Name)
	}
	if wm, ok := h.clock.Current(); ok {
		t := wm.Time().UTC()
		s.Watermark = &t
	}
	if t, ok := h.clock.MaxSeen(); ok {
		t = t.UTC()
		s.MaxEventTime = &t
	}
	return s
}
