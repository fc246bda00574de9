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

// Package window manages the active event-time windows of the aggregation engine.
//
// Events are bucketed by event time into fixed (tumbling) windows. Several window
// families may exist side by side, each with its own size and its own state, but
// all of them are driven by the same watermark. A window is materialized on the
// first event that maps to it and stays OPEN until the watermark reaches its end.
// At that point it is handed out by Finalizable, summarized by the emitter and
// evicted. An evicted window is never reopened: an event that maps to a window
// whose end is at or below the watermark is reported as late instead.
//
// The Manager is the only owner of window membership. Per-window accumulators,
// quantile sketches and the AQI histogram are reachable only through the *Window
// handle it returns.
package window
