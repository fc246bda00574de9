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

package queue

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Push after Close.
var ErrQueueClosed = errors.New("dispatch queue is closed")

// DispatchQueue is a bounded multi-producer single-consumer queue. When full,
// Push drops the oldest pending element instead of blocking the producer.
//
// The consumer waits on Ready and then calls Pop until it reports false.
type DispatchQueue[T any] struct {
	lock    sync.Mutex
	r       *ring[T]
	closed  bool
	dropped uint64
	ready   chan struct{}
}

// NewDispatchQueue returns a queue holding at most size pending elements.
func NewDispatchQueue[T any](size int) *DispatchQueue[T] {
	return &DispatchQueue[T]{
		r:     newRing[T](size),
		ready: make(chan struct{}, 1),
	}
}

// Push enqueues v. It reports whether an older element was dropped to make room.
func (q *DispatchQueue[T]) Push(v T) (bool, error) {
	q.lock.Lock()
	if q.closed {
		q.lock.Unlock()
		return false, ErrQueueClosed
	}
	_, dropped := q.r.push(v)
	if dropped {
		q.dropped++
	}
	q.lock.Unlock()
	q.signal()
	return dropped, nil
}

// Pop dequeues the oldest element, if any.
func (q *DispatchQueue[T]) Pop() (T, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.r.pop()
}

// Ready is signalled after a Push or Close. A single signal may cover many pushes.
func (q *DispatchQueue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Close stops accepting new elements. Pending elements stay poppable.
func (q *DispatchQueue[T]) Close() {
	q.lock.Lock()
	q.closed = true
	q.lock.Unlock()
	q.signal()
}

// Done reports whether the queue is closed and fully drained.
func (q *DispatchQueue[T]) Done() bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.closed && q.r.size == 0
}

// Len returns the number of pending elements.
func (q *DispatchQueue[T]) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.r.size
}

// Dropped returns how many elements overflowed since creation.
func (q *DispatchQueue[T]) Dropped() uint64 {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.dropped
}

func (q *DispatchQueue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
