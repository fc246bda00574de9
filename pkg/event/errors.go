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

package event

import (
	"errors"
	"fmt"
)

// ErrMalformedEvent matches every rejection produced by Decode and Normalize.
var ErrMalformedEvent = errors.New("malformed event")

// Reason classifies a rejection. It is used as a metric label.
type Reason string

const (
	ReasonDecode    Reason = "decode"
	ReasonTimestamp Reason = "timestamp"
	ReasonAQI       Reason = "aqi"
	ReasonComponent Reason = "component"
	ReasonLocation  Reason = "location"
)

// MalformedEventError describes why a record was rejected.
type MalformedEventError struct {
	Reason Reason
	Field  string
	Err    error
}

func (e *MalformedEventError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s %q: %v", ErrMalformedEvent, e.Reason, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrMalformedEvent, e.Reason, e.Err)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}

func (e *MalformedEventError) Is(target error) bool {
	return target == ErrMalformedEvent
}

func malformed(reason Reason, field string, err error) error {
	return &MalformedEventError{Reason: reason, Field: field, Err: err}
}

// ReasonOf returns the rejection reason of err, or an empty string when err is
// not a malformed event error.
func ReasonOf(err error) Reason {
	var me *MalformedEventError
	if errors.As(err, &me) {
		return me.Reason
	}
	return ""
}
