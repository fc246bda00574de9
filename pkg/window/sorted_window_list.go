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

package window

import (
	"sort"
	"sync"
	"time"
)

// TimedWindow is a window with a start and an end time.
type TimedWindow interface {
	StartTime() time.Time
	EndTime() time.Time
}

// SortedWindowList is a thread safe list implementation, which is sorted by window start time
// from lowest to highest. Windows of one list never overlap, so the start time identifies a window.
type SortedWindowList[W TimedWindow] struct {
	windows []W
	lock    *sync.RWMutex
}

// NewSortedWindowList implements a window list ordered by the start time. The Front/Head of the list will always have the smallest
// element while the End/Tail will have the largest element (start time).
func NewSortedWindowList[W TimedWindow]() *SortedWindowList[W] {
	return &SortedWindowList[W]{
		windows: make([]W, 0),
		lock:    &sync.RWMutex{},
	}
}

// InsertIfNotPresent inserts a window to the list of active windows if not present and returns the window.
// The boolean reports whether a window with the same start time was already present.
func (s *SortedWindowList[W]) InsertIfNotPresent(window W) (W, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	index := s.search(window.StartTime())
	if index < len(s.windows) && s.windows[index].StartTime().Equal(window.StartTime()) {
		return s.windows[index], true
	}

	s.windows = append(s.windows, window)
	copy(s.windows[index+1:], s.windows[index:])
	s.windows[index] = window
	return window, false
}

// Get returns the window starting at start.
func (s *SortedWindowList[W]) Get(start time.Time) (W, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	index := s.search(start)
	if index < len(s.windows) && s.windows[index].StartTime().Equal(start) {
		return s.windows[index], true
	}
	var empty W
	return empty, false
}

// Delete deletes the window starting at start from the list.
func (s *SortedWindowList[W]) Delete(start time.Time) (W, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	index := s.search(start)
	if index < len(s.windows) && s.windows[index].StartTime().Equal(start) {
		w := s.windows[index]
		s.windows = append(s.windows[:index], s.windows[index+1:]...)
		return w, true
	}
	var empty W
	return empty, false
}

// WindowsEndingBy returns, without removing them, the windows whose end time is smaller than or equal to t,
// in ascending start order.
func (s *SortedWindowList[W]) WindowsEndingBy(t time.Time) []W {
	s.lock.RLock()
	defer s.lock.RUnlock()

	index := sort.Search(len(s.windows), func(i int) bool {
		return s.windows[i].EndTime().After(t)
	})
	out := make([]W, index)
	copy(out, s.windows[:index])
	return out
}

// Len returns the length of the window.
func (s *SortedWindowList[W]) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.windows)
}

// Items returns the entire window list.
func (s *SortedWindowList[W]) Items() []W {
	s.lock.RLock()
	defer s.lock.RUnlock()

	items := make([]W, len(s.windows))
	copy(items, s.windows)

	return items
}

func (s *SortedWindowList[W]) search(start time.Time) int {
	return sort.Search(len(s.windows), func(i int) bool {
		return !s.windows[i].StartTime().Before(start)
	})
}
