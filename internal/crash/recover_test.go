/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecover_Panic ensures Recover handles a panic, writes a report and
// does not terminate the test process due to injected exitFn.
func TestRecover_Panic(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	func() {
		defer Recover(dir)
		panic("boom")
	}()

	var found string
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "layerkit-crash-") && strings.HasSuffix(f.Name(), ".log") {
			found = filepath.Join(dir, f.Name())
			break
		}
	}
	require.NotEmpty(t, found, "expected crash report file in %s", dir)
	b, err := os.ReadFile(found)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Panic: boom")
	assert.Equal(t, 2, called)
}

func TestRecover_NoPanic(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover(t.TempDir())
	}()
	assert.False(t, called, "exit must not be called without a panic")
}
