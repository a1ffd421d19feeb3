/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry is an opt-in sender of anonymous usage events and
// crash reports. A Client is also a log.Recorder, so compositing events
// can be forwarded without the compose package knowing about it.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "layerkit/internal/log"
	"layerkit/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
// Everything is disabled unless OptIn is set and a URL is configured.
//
// Environment variables (read by FromEnv):
//   - LK_TELEMETRY_OPT_IN: 1|true|yes|on
//   - LK_TELEMETRY_URL: endpoint receiving JSON events
//   - LK_CRASH_UPLOAD_URL: endpoint receiving crash reports
//   - LK_TELEMETRY_TIMEOUT_MS: request timeout, default 1500
//   - LK_TELEMETRY_DEBUG: log send attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("LK_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("LK_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("LK_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("LK_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("LK_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client sends events from a bounded queue on a background goroutine and
// drops them on errors or when the queue is full.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan map[string]any
	once   sync.Once
	closed chan struct{}
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// Default returns the process client, configured from the environment on
// first use.
func Default() *Client {
	defaultOnce.Do(func() { defaultClient = New(FromEnv()) })
	return defaultClient
}

// New constructs a client.
func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a small JSON event. Props must not carry personal data.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	select {
	case c.q <- payload:
	default:
	}
}

// Record implements log.Recorder. Only numeric, boolean and enum-like
// attributes are kept; layer and document names are dropped.
func (c *Client) Record(event string, attrs ...slog.Attr) {
	if !c.Enabled() {
		return
	}
	props := map[string]any{}
	for _, a := range attrs {
		v := a.Value.Resolve()
		switch v.Kind() {
		case slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindBool:
			props[a.Key] = v.Any()
		case slog.KindString:
			switch a.Key {
			case "kind", "type", "reason":
				props[a.Key] = v.String()
			}
		}
	}
	c.Event(event, props)
}

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for len(c.q) > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the background goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			buf, _ := json.Marshal(item)
			c.post(c.cfg.EventsURL, "application/json", buf, "event")
		}
	}
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("what", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("what", what), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a crash report when crash uploads are opted in. It
// returns once the upload finished or timed out.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", report, "crash")
}
