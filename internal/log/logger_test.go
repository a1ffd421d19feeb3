/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInitAndStructuredLoggingToFile verifies that Init with a file handler writes JSON logs
// and that static and contextual attributes are present.
func TestInitAndStructuredLoggingToFile(t *testing.T) {
	fpath := filepath.Join(os.TempDir(), fmt.Sprintf("lk_log_%d.json", time.Now().UnixNano()))
	t.Cleanup(func() { _ = os.Remove(fpath) })

	Init(Options{Level: "debug", Format: "json", File: fpath})
	t.Cleanup(func() { Init(Options{}) })

	l := WithOperation(WithComponent("testcomp"), "op1")
	l.Info("hello world", slog.String("k", "v"))

	b, err := os.ReadFile(fpath)
	require.NoError(t, err, "read log file")
	var last string
	sc := bufio.NewScanner(strings.NewReader(string(b)))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	require.NotEmpty(t, last, "no log lines found")
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(last), &m))
	assert.Equal(t, "layerkit", m["app"])
	assert.IsType(t, "", m["ver"])
	assert.Equal(t, "testcomp", m["component"])
	assert.Equal(t, "op1", m["op"])
	assert.Equal(t, "hello world", m["msg"])
	assert.Equal(t, "v", m["k"])
}

func TestSlogRecorderWritesEvents(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "events.json")
	Init(Options{Level: "debug", Format: "json", File: fpath})
	t.Cleanup(func() { Init(Options{}) })

	rec := NewRecorder("compose")
	rec.Record("layer.added", slog.String("layer", "bg"), slog.Int("position", 0))

	b, err := os.ReadFile(fpath)
	require.NoError(t, err, "read log file")
	assert.Contains(t, string(b), `"msg":"layer.added"`)
	assert.Contains(t, string(b), `"layer":"bg"`)
}

func TestFuncRecorder(t *testing.T) {
	var got []string
	var r Recorder = Func(func(event string, attrs ...slog.Attr) {
		got = append(got, event)
	})
	r.Record("a")
	r.Record("b", slog.Int("n", 1))
	Discard.Record("ignored")
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestTeeRecorder(t *testing.T) {
	var a, b []string
	r := Tee(
		Func(func(event string, _ ...slog.Attr) { a = append(a, event) }),
		nil,
		Func(func(event string, _ ...slog.Attr) { b = append(b, event) }),
	)
	r.Record("x")
	r.Record("y")
	assert.Equal(t, []string{"x", "y"}, a)
	assert.Equal(t, []string{"x", "y"}, b)
}
