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

package window

import (
	"fmt"
	"sort"

	"github.com/aqiflow/aqiflow/pkg/event"
	"github.com/aqiflow/aqiflow/pkg/sketch"
	"github.com/aqiflow/aqiflow/pkg/watermark/wmb"
	"github.com/aqiflow/aqiflow/pkg/window/strategy/fixed"
)

// Manager owns the active windows of every family.
//
// Assign, Evict and Update on returned windows must be called from a single
// goroutine. Read-only accessors such as Active are safe to call concurrently.
type Manager struct {
	families []*Family
	index    map[string]int
	active   []*SortedWindowList[*Window]
	opts     *Options
}

// NewManager validates the families and returns a manager tracking them in the given order.
func NewManager(families []*Family, opts ...Option) (*Manager, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if len(families) == 0 {
		return nil, fmt.Errorf("at least one window family is required")
	}
	m := &Manager{
		families: families,
		index:    make(map[string]int, len(families)),
		active:   make([]*SortedWindowList[*Window], len(families)),
		opts:     o,
	}
	for i, f := range families {
		if _, dup := m.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate window family %q", f.Name)
		}
		fx, err := fixed.NewFixed(f.Size)
		if err != nil {
			return nil, fmt.Errorf("window family %q: %w", f.Name, err)
		}
		f.fixed = fx
		f.sketchOpts = m.sketchOptions(f.Name)
		m.index[f.Name] = i
		m.active[i] = NewSortedWindowList[*Window]()
	}
	return m, nil
}

func (m *Manager) sketchOptions(family string) []sketch.Option {
	opts := []sketch.Option{sketch.WithCompression(m.opts.sketchCompression)}
	if m.opts.maxCentroids > 0 {
		opts = append(opts, sketch.WithMaxCentroids(m.opts.maxCentroids))
	}
	if f := m.opts.onSketchDegrade; f != nil {
		opts = append(opts, sketch.WithDegradeHandler(func(float64) { f(family) }))
	}
	return opts
}

// Families returns the tracked families in order.
func (m *Manager) Families() []*Family {
	return m.families
}

// Family looks up a family by name.
func (m *Manager) Family(name string) (*Family, bool) {
	i, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return m.families[i], true
}

// Assign returns the window of family f for ev, creating it on first touch.
//
// If the watermark has already reached the end of that window, the event is late
// for f and a *LateEventError is returned. Lateness is decided per family, so
// the caller may still assign the event to the other families.
func (m *Manager) Assign(f *Family, ev event.Event, wm wmb.Watermark) (*Window, error) {
	i, ok := m.index[f.Name]
	if !ok || m.families[i] != f {
		return nil, fmt.Errorf("unknown window family %q", f.Name)
	}
	start, end := f.Bounds(ev.EventTime)
	if wm.Reached(end) {
		return nil, &LateEventError{Family: f.Name, EventTime: ev.EventTime, WindowEnd: end, Watermark: wm}
	}
	list := m.active[i]
	if w, ok := list.Get(start); ok {
		return w, nil
	}
	w, _ := list.InsertIfNotPresent(newWindow(f, start, end))
	return w, nil
}

// Finalizable returns the active windows of all families whose end is at or below
// the watermark, ordered by start time and then by family order. The windows stay
// active until evicted.
func (m *Manager) Finalizable(wm wmb.Watermark) []*Window {
	var out []*Window
	for _, list := range m.active {
		out = append(out, list.WindowsEndingBy(wm.Time())...)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].start.Equal(out[b].start) {
			return out[a].start.Before(out[b].start)
		}
		return m.index[out[a].family.Name] < m.index[out[b].family.Name]
	})
	return out
}

// Evict removes the window from the active set and marks it finalized. It reports
// false if no such window is active.
func (m *Manager) Evict(id ID) bool {
	i, ok := m.index[id.Family]
	if !ok {
		return false
	}
	w, ok := m.active[i].Delete(id.Start)
	if !ok {
		return false
	}
	w.status = Finalized
	return true
}

// Active returns the number of open windows of a family.
func (m *Manager) Active(family string) int {
	i, ok := m.index[family]
	if !ok {
		return 0
	}
	return m.active[i].Len()
}

// ActiveWindows returns the open windows of a family in start order.
func (m *Manager) ActiveWindows(family string) []*Window {
	i, ok := m.index[family]
	if !ok {
		return nil
	}
	return m.active[i].Items()
}
