/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync/atomic"

	"layerkit/internal/log"
	"layerkit/internal/raster"
)

var docSeq atomic.Uint64

// Document is an ordered stack of layers on a fixed-size canvas. Index 0
// is the bottom of the stack. A Document is not safe for concurrent
// mutation.
type Document struct {
	Name string

	id            uint64
	width, height int
	layers        []*Layer
	rec           log.Recorder
}

// NewDocument returns an empty document with a width×height canvas.
func NewDocument(name string, width, height int) (*Document, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrInvalidArgument, width, height)
	}
	return &Document{Name: name, id: docSeq.Add(1), width: width, height: height}, nil
}

func (d *Document) Width() int  { return d.width }
func (d *Document) Height() int { return d.height }

// SetRecorder installs an event observer. Layers added afterwards without
// their own recorder inherit it.
func (d *Document) SetRecorder(r log.Recorder) { d.rec = r }

func (d *Document) record(event string, attrs ...slog.Attr) {
	if d.rec == nil {
		return
	}
	d.rec.Record(event, append([]slog.Attr{slog.String("document", d.Name)}, attrs...)...)
}

// Len returns the number of stacked layers.
func (d *Document) Len() int { return len(d.layers) }

// Layers returns the stack bottom to top. The slice is a copy; the layers
// are not.
func (d *Document) Layers() []*Layer { return slices.Clone(d.layers) }

// Layer returns the layer at index i, or nil when out of range.
func (d *Document) Layer(i int) *Layer {
	if i < 0 || i >= len(d.layers) {
		return nil
	}
	return d.layers[i]
}

// Find returns the lowest layer with the given name.
func (d *Document) Find(name string) *Layer {
	for _, l := range d.layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// Position returns the stack index of l, or -1 when l does not belong to
// this document.
func (d *Document) Position(l *Layer) int {
	if l == nil || l.owner != d.id {
		return -1
	}
	return slices.Index(d.layers, l)
}

// Add pushes l on top of the stack.
func (d *Document) Add(l *Layer) error { return d.Insert(l, len(d.layers)) }

// Insert attaches l at index pos, clamped to the stack bounds.
func (d *Document) Insert(l *Layer, pos int) error {
	if l == nil {
		return fmt.Errorf("%w: %w", ErrMissingArgument, errNilLayer)
	}
	if l.Attached() {
		return fmt.Errorf("%w: layer %q already belongs to a document", ErrInvalidArgument, l.Name)
	}
	d.attach(l, pos)
	return nil
}

func (d *Document) attach(l *Layer, pos int) {
	pos = clampIndex(pos, len(d.layers))
	d.layers = slices.Insert(d.layers, pos, l)
	l.owner = d.id
	if l.rec == nil {
		l.rec = d.rec
	}
	l.bindWidth(d.width)
	d.record("layer.attach", slog.String("layer", l.Name), slog.Int("position", pos))
}

func (d *Document) detach(l *Layer) int {
	pos := d.unlink(l)
	if pos < 0 {
		return -1
	}
	l.bindWidth(0)
	d.record("layer.detach", slog.String("layer", l.Name), slog.Int("position", pos))
	return pos
}

// unlink removes l from the stack and clears its owner without touching
// its layout.
func (d *Document) unlink(l *Layer) int {
	pos := slices.Index(d.layers, l)
	if pos < 0 {
		return -1
	}
	d.layers = slices.Delete(d.layers, pos, pos+1)
	l.owner = 0
	return pos
}

func clampIndex(i, n int) int { return max(0, min(i, n)) }

// owns fails with ErrNotAttached unless l is in this document's stack.
func (d *Document) owns(l *Layer) error {
	if l == nil {
		return fmt.Errorf("%w: %w", ErrMissingArgument, errNilLayer)
	}
	if !l.Attached() {
		return fmt.Errorf("%w: %q", ErrNotAttached, l.Name)
	}
	if l.owner != d.id {
		return fmt.Errorf("%w: %q belongs to another document", ErrNotAttached, l.Name)
	}
	return nil
}

// Remove detaches l from the stack.
func (d *Document) Remove(l *Layer) error {
	if err := d.owns(l); err != nil {
		return err
	}
	d.detach(l)
	return nil
}

// Move relocates l to position, or by position steps when relative. The
// layer is extracted first, so the target index refers to the stack
// without it, and is clamped to the stack bounds.
func (d *Document) Move(l *Layer, position int, relative bool) error {
	if err := d.owns(l); err != nil {
		return err
	}
	from := slices.Index(d.layers, l)
	to := position
	if relative {
		to = from + position
	}
	d.layers = slices.Delete(d.layers, from, from+1)
	to = clampIndex(to, len(d.layers))
	d.layers = slices.Insert(d.layers, to, l)
	d.record("layer.move", slog.String("layer", l.Name), slog.Int("from", from), slog.Int("to", to))
	return nil
}

// Anchor is an alignment or canvas anchor on one axis. The zero value is
// AnchorCenter.
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorCenter Anchor = "center"
	AnchorEnd    Anchor = "end"
)

func (a Anchor) valid() bool {
	return a == "" || a == AnchorStart || a == AnchorCenter || a == AnchorEnd
}

// Units interprets alignment offsets.
type Units string

const (
	Pixels  Units = "pixels"
	Percent Units = "percent"
)

// AlignOptions places a layer relative to the canvas. Offsets are added
// after anchoring; percent offsets resolve against the canvas size.
type AlignOptions struct {
	Top, Left             Anchor
	TopOffset, LeftOffset float64
	Units                 Units
}

// Align moves l according to opt using its current bounding box.
func (d *Document) Align(l *Layer, opt AlignOptions) error {
	if err := d.owns(l); err != nil {
		return err
	}
	if err := l.requireSize("align"); err != nil {
		return err
	}
	if !opt.Top.valid() || !opt.Left.valid() {
		return fmt.Errorf("%w: anchors %q/%q", ErrInvalidArgument, string(opt.Top), string(opt.Left))
	}
	topOff, leftOff := opt.TopOffset, opt.LeftOffset
	switch opt.Units {
	case "", Pixels:
	case Percent:
		topOff = topOff * float64(d.height) / 100
		leftOff = leftOff * float64(d.width) / 100
	default:
		return fmt.Errorf("%w: offset units %q", ErrInvalidArgument, string(opt.Units))
	}
	top := anchorOffset(opt.Top, d.height-l.height) + int(math.Round(topOff))
	left := anchorOffset(opt.Left, d.width-l.width) + int(math.Round(leftOff))
	l.Translate(top, left)
	return nil
}

// anchorOffset maps an anchor to a shift within delta pixels of slack.
func anchorOffset(a Anchor, delta int) int {
	switch a {
	case AnchorStart:
		return 0
	case AnchorEnd:
		return delta
	}
	return int(math.Round(float64(delta) / 2))
}

// Duplicate inserts a deep copy of l directly above it.
func (d *Document) Duplicate(l *Layer, name string) (*Layer, error) {
	if err := d.owns(l); err != nil {
		return nil, err
	}
	return d.DuplicateAt(l, name, d.Position(l)+1)
}

// DuplicateAt inserts a deep copy of l at position.
func (d *Document) DuplicateAt(l *Layer, name string, position int) (*Layer, error) {
	if err := d.owns(l); err != nil {
		return nil, err
	}
	dup, err := l.Duplicate(name)
	if err != nil {
		return nil, err
	}
	d.attach(dup, position)
	return dup, nil
}

// CircularMask cuts l to an ellipse covering its bounding box. The mask
// takes l's place in the stack. With keepSource l stays where it is, the
// mask goes directly above it and embeds a duplicate of l.
func (d *Document) CircularMask(l *Layer, name string, keepSource bool) (*Layer, error) {
	if err := d.owns(l); err != nil {
		return nil, err
	}
	if err := l.requireSize("circular mask"); err != nil {
		return nil, err
	}
	if keepSource {
		dup, err := l.Duplicate("")
		if err != nil {
			return nil, err
		}
		dup.bindWidth(d.width)
		m, err := circularMask(name, dup)
		if err != nil {
			return nil, err
		}
		d.attach(m, d.Position(l)+1)
		return m, nil
	}
	pos := d.unlink(l)
	m, err := circularMask(name, l)
	if err != nil {
		d.attach(l, pos)
		return nil, err
	}
	d.attach(m, pos)
	return m, nil
}

// Rasterize replaces l in place with a flat image layer holding its
// rendered pixels.
func (d *Document) Rasterize(ctx context.Context, l *Layer, opt RenderOptions) (*Layer, error) {
	if err := d.owns(l); err != nil {
		return nil, err
	}
	flat, err := l.Rasterize(ctx, opt)
	if err != nil {
		return nil, err
	}
	pos := d.detach(l)
	d.attach(flat, pos)
	return flat, nil
}

// CanvasResize changes the canvas. Zero sizes keep the current value;
// anchors default to center.
type CanvasResize struct {
	Width, Height         int
	AnchorLeft, AnchorTop Anchor
}

// Resize changes the canvas size and shifts every layer so content stays
// put relative to the anchors: start does not move, center moves by half
// the size delta and end by the full delta.
func (d *Document) Resize(opt CanvasResize) error {
	w, h := opt.Width, opt.Height
	if w == 0 {
		w = d.width
	}
	if h == 0 {
		h = d.height
	}
	if w < 0 || h < 0 {
		return fmt.Errorf("%w: canvas %dx%d", ErrInvalidArgument, w, h)
	}
	if !opt.AnchorLeft.valid() || !opt.AnchorTop.valid() {
		return fmt.Errorf("%w: anchors %q/%q", ErrInvalidArgument, string(opt.AnchorLeft), string(opt.AnchorTop))
	}
	dx := anchorOffset(opt.AnchorLeft, w-d.width)
	dy := anchorOffset(opt.AnchorTop, h-d.height)
	for _, l := range d.layers {
		l.TranslateBy(dx, dy)
	}
	d.width, d.height = w, h
	for _, l := range d.layers {
		l.bindWidth(w)
	}
	d.record("document.resize", slog.Int("w", w), slog.Int("h", h), slog.Int("dx", dx), slog.Int("dy", dy))
	return nil
}

// Export flattens every layer onto the canvas and encodes the result.
// The stack is left untouched.
func (d *Document) Export(ctx context.Context, opt ExportOptions) (*Output, error) {
	if err := opt.check(raster.DocumentFormats); err != nil {
		return nil, err
	}
	img, err := d.flatten(ctx, d.layers, opt.Render)
	if err != nil {
		return nil, err
	}
	return encode(img, opt, raster.DocumentFormats)
}
