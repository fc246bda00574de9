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
	"errors"
	"fmt"
	"time"

	"github.com/aqiflow/aqiflow/pkg/watermark/wmb"
)

var (
	// ErrLateEvent matches every LateEventError.
	ErrLateEvent = errors.New("late event")
	// ErrEvicted is the panic value when an evicted window is mutated.
	ErrEvicted = errors.New("window already evicted")
)

// LateEventError reports an event whose window in Family had already been reached by the watermark.
type LateEventError struct {
	Family    string
	EventTime time.Time
	WindowEnd time.Time
	Watermark wmb.Watermark
}

func (e *LateEventError) Error() string {
	return fmt.Sprintf("%s: family %s, event time %s, window end %s, watermark %s",
		ErrLateEvent, e.Family, e.EventTime.UTC().Format(time.RFC3339Nano), e.WindowEnd.UTC().Format(time.RFC3339Nano), e.Watermark)
}

func (e *LateEventError) Is(target error) bool {
	return target == ErrLateEvent
}
