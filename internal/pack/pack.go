/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pack reads and writes layer and document packages: a gzip
// compressed tar holding data/data.json and data/assets/<n>.<ext>, where
// n is the 1-based asset index referenced by inputImageID.
package pack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"layerkit/internal/compose"
	"layerkit/internal/log"
	"layerkit/internal/raster"
	"layerkit/internal/storage"
)

// ErrParse is the single error reported for any defect of an imported
// package.
var ErrParse = errors.New("cannot parse package")

var errUnknownEdit = errors.New("unknown edit type")

const (
	dataDir   = "data"
	metaName  = "data/data.json"
	assetsDir = "data/assets"
)

type asset struct {
	ext  string
	data []byte
}

// writer collects assets while walking the layer tree.
type writer struct {
	assets []asset
}

func (w *writer) layer(l *compose.Layer) (*layerMeta, error) {
	m := &layerMeta{
		Name:      l.Name,
		Type:      l.Kind().String(),
		Left:      l.Left(),
		Top:       l.Top(),
		Edits:     []editMeta{},
		Opacity:   l.Opacity(),
		BlendMode: string(l.BlendMode()),
	}
	for _, e := range l.Edits() {
		m.Edits = append(m.Edits, editToMeta(e))
	}
	switch l.Kind() {
	case compose.KindImage:
		m.InputImageID = w.add(l.Source())
	case compose.KindText:
		t := l.Text()
		m.Text = &t.Text
		m.Font, m.FontSize, m.FontWeight = t.Font, t.FontSize, t.FontWeight
		m.TextAlign, m.Color, m.LineHeight = t.TextAlign, t.Color, t.LineHeight
		m.MaxWidth = &t.MaxWidth
	case compose.KindPolygon, compose.KindEllipse:
		s := l.Shape()
		w, h := l.NaturalSize()
		m.Width, m.Height = &w, &h
		m.Fill, m.Stroke, m.StrokeWidth = s.Fill, s.Stroke, s.StrokeWidth
		if l.Kind() == compose.KindPolygon {
			m.Sides = &s.Sides
		}
	case compose.KindClippingMask:
		var err error
		if m.Mask, err = w.layer(l.MaskLayer()); err != nil {
			return nil, err
		}
		if m.Source, err = w.layer(l.SourceLayer()); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported layer kind %s", l.Kind())
	}
	return m, nil
}

// add appends the raw source of an image layer and returns its index.
func (w *writer) add(src *compose.Source) int {
	a := asset{ext: "png", data: src.Data}
	switch {
	case src.IsSVG():
		a = asset{ext: "svg", data: []byte(src.SVG)}
	case src.Path != "" && filepath.Ext(src.Path) != "":
		a.ext = strings.ToLower(strings.TrimPrefix(filepath.Ext(src.Path), "."))
	default:
		a.ext = raster.Extension(src.Data)
	}
	w.assets = append(w.assets, a)
	return len(w.assets)
}

func (w *writer) save(ctx context.Context, path string, meta any) error {
	if path == "" {
		return fmt.Errorf("%w: package path", compose.ErrMissingArgument)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	files := []archiveFile{{name: metaName, data: data}}
	for i, a := range w.assets {
		files = append(files, archiveFile{name: fmt.Sprintf("%s/%d.%s", assetsDir, i+1, a.ext), data: a.data})
	}
	err = storage.WriteAtomic(path, func(out io.Writer) error { return writeArchive(ctx, out, files) })
	if err != nil {
		return fmt.Errorf("write package %s: %w", path, err)
	}
	log.WithComponent("pack").Debug("package written", slog.String("path", path), slog.Int("assets", len(w.assets)))
	return nil
}

// WriteLayer stores a single layer package at path.
func WriteLayer(ctx context.Context, l *compose.Layer, path string) error {
	var w writer
	m, err := w.layer(l)
	if err != nil {
		return err
	}
	return w.save(ctx, path, m)
}

// WriteDocument stores a document package at path.
func WriteDocument(ctx context.Context, d *compose.Document, path string) error {
	var w writer
	meta := documentMeta{Name: d.Name, Width: d.Width(), Height: d.Height(), Layers: []*layerMeta{}}
	for _, l := range d.Layers() {
		m, err := w.layer(l)
		if err != nil {
			return err
		}
		meta.Layers = append(meta.Layers, m)
	}
	return w.save(ctx, path, meta)
}

// ReadOptions controls imports.
type ReadOptions struct {
	// AssetDir, when set, receives the package assets as files and image
	// layers are built from those paths instead of in-memory buffers.
	AssetDir string
	// ScratchDir is the parent of the temporary extraction directory;
	// os.TempDir when empty.
	ScratchDir string
	// Recorder is installed on imported documents before their layers are
	// attached, so every layer inherits it.
	Recorder log.Recorder
}

// ReadLayer imports a single layer package. The layer is detached.
func ReadLayer(ctx context.Context, path string, opt ReadOptions) (*compose.Layer, error) {
	var m layerMeta
	assets, err := load(ctx, path, opt, layerSchema, &m)
	if err != nil {
		return nil, err
	}
	l, err := build(ctx, &m, assets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return l, nil
}

// ReadDocument imports a document package.
func ReadDocument(ctx context.Context, path string, opt ReadOptions) (*compose.Document, error) {
	var m documentMeta
	assets, err := load(ctx, path, opt, documentSchema, &m)
	if err != nil {
		return nil, err
	}
	d, err := compose.NewDocument(m.Name, m.Width, m.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if opt.Recorder != nil {
		d.SetRecorder(opt.Recorder)
	}
	for i, lm := range m.Layers {
		l, err := build(ctx, lm, assets)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %w", ErrParse, i, err)
		}
		if err := d.Add(l); err != nil {
			return nil, fmt.Errorf("%w: layer %d: %w", ErrParse, i, err)
		}
	}
	return d, nil
}

// load extracts the archive to a scratch directory, validates the
// metadata and decodes it into meta, and reads the assets in index
// order. The scratch directory is gone when load returns.
func load(ctx context.Context, path string, opt ReadOptions, schema schemaKind, meta any) ([]compose.Source, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: package path", compose.ErrMissingArgument)
	}
	dir, cleanup, err := storage.Scratch(opt.ScratchDir, "layerkit-pack-*")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := extractArchive(ctx, path, dir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	raw, err := readFile(dir, metaName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if err := validate(schema, raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	assets, err := readAssets(dir, opt.AssetDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return assets, nil
}

// build constructs a layer from validated metadata: geometry first, then
// the edit queue in order, then opacity and blend mode.
func build(ctx context.Context, m *layerMeta, assets []compose.Source) (*compose.Layer, error) {
	kind, ok := compose.ParseKind(m.Type)
	if !ok {
		return nil, fmt.Errorf("layer type %q", m.Type)
	}
	var (
		l   *compose.Layer
		err error
	)
	switch kind {
	case compose.KindImage:
		if m.InputImageID < 1 || m.InputImageID > len(assets) {
			return nil, fmt.Errorf("inputImageID %d out of range (%d assets)", m.InputImageID, len(assets))
		}
		l, err = compose.NewImageLayer(ctx, m.Name, assets[m.InputImageID-1])
	case compose.KindText:
		t := compose.Text{
			Font: m.Font, FontSize: m.FontSize, FontWeight: m.FontWeight, TextAlign: m.TextAlign,
			Color: m.Color, LineHeight: m.LineHeight,
		}
		if m.Text != nil {
			t.Text = *m.Text
		}
		if m.MaxWidth != nil {
			t.MaxWidth = *m.MaxWidth
		}
		l, err = compose.NewTextLayer(m.Name, t)
	case compose.KindPolygon, compose.KindEllipse:
		s := compose.Shape{Fill: m.Fill, Stroke: m.Stroke, StrokeWidth: m.StrokeWidth}
		if m.Sides != nil {
			s.Sides = *m.Sides
		}
		w, h := deref(m.Width), deref(m.Height)
		if kind == compose.KindPolygon {
			l, err = compose.NewPolygonLayer(m.Name, w, h, s)
		} else {
			l, err = compose.NewEllipseLayer(m.Name, w, h, s)
		}
	case compose.KindClippingMask:
		if m.Mask == nil || m.Source == nil {
			return nil, errors.New("clipping mask without sub-layers")
		}
		mask, err := build(ctx, m.Mask, assets)
		if err != nil {
			return nil, fmt.Errorf("mask: %w", err)
		}
		src, err := build(ctx, m.Source, assets)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		l, err = compose.NewClippingMask(m.Name, mask, src)
		if err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}
	l.Translate(m.Top, m.Left)
	for i, e := range m.Edits {
		if err := replay(l, e); err != nil {
			return nil, fmt.Errorf("edit %d (%s): %w", i, e.Type, err)
		}
	}
	if err := l.SetOpacity(m.Opacity); err != nil {
		return nil, err
	}
	if err := l.SetBlendMode(raster.BlendMode(m.BlendMode)); err != nil {
		return nil, err
	}
	return l, nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
