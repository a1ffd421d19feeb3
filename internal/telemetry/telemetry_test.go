/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu      sync.Mutex
	events  [][]byte
	crashes [][]byte
}

func (s *sink) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.events = append(s.events, b)
		s.mu.Unlock()
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.crashes = append(s.crashes, b)
		s.mu.Unlock()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (s *sink) waitEvents(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		got := len(s.events)
		s.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.events...)
}

func TestClient_EventAndUploadCrash(t *testing.T) {
	var s sink
	srv := s.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()

	require.True(t, c.Enabled())
	c.Event("started", map[string]any{"k": "v"})
	c.Flush(context.Background())
	events := s.waitEvents(t, 1)
	require.NotEmpty(t, events, "expected at least one event to be sent")
	var m map[string]any
	require.NoError(t, json.Unmarshal(events[0], &m))
	assert.Equal(t, "started", m["name"])
	assert.Equal(t, "v", m["k"])
	assert.IsType(t, "", m["ts"])

	c.UploadCrash([]byte("STACKTRACE"))
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.crashes, 1)
	assert.Equal(t, "STACKTRACE", string(s.crashes[0]))
}

func TestClient_RecordDropsNames(t *testing.T) {
	var s sink
	srv := s.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: 2 * time.Second})
	defer c.Close()

	c.Record("layer.render",
		slog.String("layer", "secret holiday photo"),
		slog.String("kind", "image"),
		slog.Int("w", 40),
		slog.Bool("copy", true),
	)
	events := s.waitEvents(t, 1)
	require.Len(t, events, 1)
	var m map[string]any
	require.NoError(t, json.Unmarshal(events[0], &m))
	assert.NotContains(t, m, "layer", "layer name must not be sent")
	assert.Equal(t, "layer.render", m["name"])
	assert.Equal(t, "image", m["kind"])
	assert.Equal(t, float64(40), m["w"])
	assert.Equal(t, true, m["copy"])
}

func TestClient_DisabledAndEmptyEventName(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: time.Second})
	defer c.Close()
	assert.False(t, c.Enabled())
	c.Event("ignored", nil)
	c.Record("ignored")
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(nil)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&hits), "expected no requests")
}

func TestClient_SendErrorsAreSwallowed(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()
	c.Event("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LK_TELEMETRY_OPT_IN", "true")
	t.Setenv("LK_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("LK_CRASH_UPLOAD_URL", "")
	t.Setenv("LK_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	assert.True(t, cfg.OptIn)
	assert.NotEmpty(t, cfg.EventsURL)
	assert.Equal(t, 100*time.Millisecond, cfg.Timeout)
}
