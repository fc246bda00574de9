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

package queue

import "sync"

// OverflowQueue is a thread safe queue with a max size where the oldest elements automatically overflow.
type OverflowQueue[T any] struct {
	r    *ring[T]
	lock *sync.RWMutex
}

func New[T any](size int) *OverflowQueue[T] {
	return &OverflowQueue[T]{
		r:    newRing[T](size),
		lock: new(sync.RWMutex),
	}
}

// Append adds an element to the queue and reports whether the oldest element overflowed.
func (q *OverflowQueue[T]) Append(value T) bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	_, overflowed := q.r.push(value)
	return overflowed
}

// Items returns a copy of the elements in the queue, oldest first.
func (q *OverflowQueue[T]) Items() []T {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return q.r.items()
}

// Length returns the current length of the queue
func (q *OverflowQueue[T]) Length() int {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return q.r.size
}

// Capacity returns the max size of the queue.
func (q *OverflowQueue[T]) Capacity() int {
	return len(q.r.buf)
}
