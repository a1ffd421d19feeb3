/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"log/slog"
)

// Recorder observes entity lifecycle events (layer added, edit queued,
// merge finished, ...). Documents and layers receive one at construction
// instead of consulting a global debug switch. compose only calls Record
// from the goroutine that invoked the operation, including Merge.
type Recorder interface {
	Record(event string, attrs ...slog.Attr)
}

// Discard is a Recorder that drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(string, ...slog.Attr) {}

// SlogRecorder forwards events to a slog.Logger at a fixed level.
type SlogRecorder struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewRecorder returns a Recorder writing debug records for the given component.
func NewRecorder(component string) *SlogRecorder {
	return &SlogRecorder{Logger: WithComponent(component), Level: slog.LevelDebug}
}

func (r *SlogRecorder) Record(event string, attrs ...slog.Attr) {
	l := r.Logger
	if l == nil {
		l = L()
	}
	l.LogAttrs(context.Background(), r.Level, event, attrs...)
}

// Func adapts a plain function to the Recorder interface.
type Func func(event string, attrs ...slog.Attr)

func (f Func) Record(event string, attrs ...slog.Attr) { f(event, attrs...) }

// Tee returns a Recorder forwarding every event to each non-nil r.
func Tee(rs ...Recorder) Recorder {
	var out tee
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type tee []Recorder

func (t tee) Record(event string, attrs ...slog.Attr) {
	for _, r := range t {
		r.Record(event, attrs...)
	}
}
