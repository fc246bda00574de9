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

package sources

import (
	"context"
	"sync"

	"github.com/aqiflow/aqiflow/pkg/event"
)

// Recorder is a Submitter keeping every valid line it receives, with the name of
// the source that sent it. Sources are tested against it.
type Recorder struct {
	lock    sync.Mutex
	lines   []string
	sources []string
	closed  bool
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Submit(ctx context.Context, line []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := event.DecodeAndNormalize(line); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return context.Canceled
	}
	r.lines = append(r.lines, string(line))
	r.sources = append(r.sources, SourceNameFromContext(ctx))
	return nil
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.lines...)
}

// Sources returns the source name of each recorded line.
func (r *Recorder) Sources() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.sources...)
}

// Close makes further submissions fail.
func (r *Recorder) Close() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.closed = true
}
