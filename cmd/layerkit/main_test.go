/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layerkit/internal/compose"
	"layerkit/internal/config"
	applog "layerkit/internal/log"
	"layerkit/internal/pack"
)

func testApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigFile, filepath.Join(dir, "config.yaml"))
	cfg := config.Defaults()
	cfg.Pack.ScratchDir = filepath.Join(dir, "scratch")
	var out bytes.Buffer
	return &app{cfg: cfg, out: &out, log: applog.WithComponent("cli")}, &out
}

func writeDoc(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 8, 8))))
	img, err := compose.NewImageLayer(ctx, "img", compose.Source{Data: buf.Bytes()})
	require.NoError(t, err)
	dot, err := compose.NewEllipseLayer("dot", 4, 4, compose.Shape{Fill: "#00ff00"})
	require.NoError(t, err)
	masked, err := dot.CircularMask("masked")
	require.NoError(t, err)
	d, err := compose.NewDocument("sample", 16, 12)
	require.NoError(t, err)
	require.NoError(t, d.Add(img))
	require.NoError(t, d.Add(masked))
	require.NoError(t, pack.WriteDocument(ctx, d, path))
}

func TestRunUsage(t *testing.T) {
	a, out := testApp(t)
	ctx := context.Background()
	require.ErrorIs(t, a.run(ctx, nil), errUsage)
	require.ErrorIs(t, a.run(ctx, []string{"frobnicate"}), errUsage)
	require.ErrorIs(t, a.run(ctx, []string{"info"}), errUsage)
	require.NoError(t, a.run(ctx, []string{"version"}))
	assert.NotEmpty(t, out.String())
}

func TestInfoAndFlatten(t *testing.T) {
	a, out := testApp(t)
	ctx := context.Background()
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.tar.gz")
	writeDoc(t, doc)

	require.NoError(t, a.run(ctx, []string{"info", doc}))
	assert.Contains(t, out.String(), `document "sample" 16x12, 2 layers`)
	assert.Contains(t, out.String(), `clippingMask "masked"`)

	dst := filepath.Join(dir, "flat.png")
	require.NoError(t, a.run(ctx, []string{"flatten", doc, dst}))
	f, err := os.Open(dst)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Width)
	assert.Equal(t, 12, cfg.Height)

	require.ErrorIs(t, a.run(ctx, []string{"flatten", doc, filepath.Join(dir, "x.bmp")}), compose.ErrInvalidArgument)
	require.NoError(t, a.run(ctx, []string{"pdf", doc, doc, filepath.Join(dir, "out.pdf")}))
	assert.FileExists(t, filepath.Join(dir, "out.pdf"))
}

func TestInfoOnLayerPackage(t *testing.T) {
	a, out := testApp(t)
	ctx := context.Background()
	l, err := compose.NewPolygonLayer("tri", 9, 9, compose.Shape{Fill: "#123456", Sides: 3})
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), "layer.tar.gz")
	require.NoError(t, pack.WriteLayer(ctx, l, p))

	require.NoError(t, a.run(ctx, []string{"info", p}))
	assert.True(t, strings.HasPrefix(out.String(), `0 polygon "tri"`))
}

func TestCatalogCommands(t *testing.T) {
	a, out := testApp(t)
	ctx := context.Background()
	doc := filepath.Join(t.TempDir(), "doc.tar.gz")
	writeDoc(t, doc)

	require.NoError(t, a.run(ctx, []string{"catalog", "add", doc}))
	id := strings.TrimSpace(out.String())
	require.NotEmpty(t, id)

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"catalog", "list"}))
	assert.Contains(t, out.String(), id)
	assert.Contains(t, out.String(), "sample")

	require.NoError(t, a.run(ctx, []string{"catalog", "rm", id}))
	out.Reset()
	require.NoError(t, a.run(ctx, []string{"catalog", "list"}))
	assert.Empty(t, out.String())
}
