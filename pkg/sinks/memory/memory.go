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

// Package memory keeps the most recent summaries of each kind for the API server.
package memory

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aqiflow/aqiflow/pkg/summary"
)

const DefaultSize = 1024

// windowKey is a window start. Seconds and nanoseconds are kept apart so that any
// representable time is a distinct key.
type windowKey struct {
	sec  int64
	nsec int
}

// Store is a sink holding an LRU of summaries per kind, keyed by window start.
// It is safe for concurrent use.
type Store struct {
	caches map[summary.Kind]*lru.Cache[windowKey, summary.Summary]
}

// NewStore returns a store keeping at most size summaries of each kind.
func NewStore(size int) (*Store, error) {
	s := &Store{caches: make(map[summary.Kind]*lru.Cache[windowKey, summary.Summary])}
	for _, k := range summary.Kinds() {
		c, err := lru.New[windowKey, summary.Summary](size)
		if err != nil {
			return nil, fmt.Errorf("failed to create the %s cache, %w", k, err)
		}
		s.caches[k] = c
	}
	return s, nil
}

func (s *Store) Name() string {
	return "memory"
}

func (s *Store) Write(_ context.Context, sum summary.Summary) error {
	c, ok := s.caches[sum.Kind()]
	if !ok {
		return fmt.Errorf("unknown summary kind %q", sum.Kind())
	}
	start := sum.WindowStart()
	c.Add(windowKey{sec: start.Unix(), nsec: start.Nanosecond()}, sum)
	return nil
}

// Latest returns up to limit summaries of kind, newest window first. A non-positive
// limit returns all of them.
func (s *Store) Latest(kind summary.Kind, limit int) []summary.Summary {
	c, ok := s.caches[kind]
	if !ok {
		return nil
	}
	out := c.Values()
	sort.Slice(out, func(i, j int) bool {
		return out[i].WindowStart().After(out[j].WindowStart())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len returns the number of summaries of kind.
func (s *Store) Len(kind summary.Kind) int {
	if c, ok := s.caches[kind]; ok {
		return c.Len()
	}
	return 0
}

func (s *Store) Close() error {
	for _, c := range s.caches {
		c.Purge()
	}
	return nil
}
