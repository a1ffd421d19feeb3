/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compose implements layers, their edit queues, the render
// pipeline and the document compositor.
//
// A Layer never points at its Document. Attachment is recorded as the
// owning document's id, and stack positions are always derived by
// scanning the document's layer slice, so removing a layer cannot leave
// stale references behind.
package compose

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"layerkit/internal/log"
	"layerkit/internal/raster"
)

// Kind tags the layer variant.
type Kind uint8

const (
	KindImage Kind = iota
	KindText
	KindPolygon
	KindEllipse
	KindClippingMask
)

var kindNames = [...]string{"image", "text", "polygon", "ellipse", "clippingMask"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// TracksSize reports whether layers of this kind carry their own
// width/height. Only clipping masks derive their bounds from sub-layers.
func (k Kind) TracksSize() bool { return k != KindClippingMask }

// Source is the raw input of an image layer: a file path, an encoded
// buffer or inline SVG markup. Path-backed sources keep the file bytes
// read at construction in Data (or SVG for .svg files).
type Source struct {
	Path string
	Data []byte
	SVG  string
}

// IsSVG reports whether the source renders through the SVG backend.
func (s Source) IsSVG() bool { return s.SVG != "" }

// Layer is one element of a document stack. The zero value is not usable;
// build layers with the New* constructors.
type Layer struct {
	Name string

	kind          Kind
	left, top     int
	width, height int // cached bounding box after queued rotate/resize
	natW, natH    int // size of the unedited visual source
	opacity       int
	blend         raster.BlendMode
	edits         []Edit
	lastID        int

	owner uint64 // id of the owning document, 0 when detached
	rec   log.Recorder

	source *Source
	text   *Text
	shape  *Shape
	docW   int // width of the owning document, 0 when detached
	mask   *Layer
	src    *Layer
}

func newLayer(kind Kind, name string) *Layer {
	return &Layer{Name: name, kind: kind, opacity: 100, blend: raster.BlendNormal}
}

// NewImageLayer reads and inspects src and returns a fully initialised
// image layer. Width and height come from the decoded header.
func NewImageLayer(ctx context.Context, name string, src Source) (*Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := src
	if s.Path != "" && s.Data == nil && s.SVG == "" {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("read image source: %w", err)
		}
		if strings.EqualFold(filepath.Ext(s.Path), ".svg") || raster.IsSVG(data) {
			s.SVG = string(data)
		} else {
			s.Data = data
		}
	}
	if s.SVG == "" && len(s.Data) > 0 && raster.IsSVG(s.Data) {
		s.SVG, s.Data = string(s.Data), nil
	}
	var w, h int
	switch {
	case s.SVG != "":
		var err error
		if w, h, err = raster.SVGSize(s.SVG); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
	case len(s.Data) > 0:
		cfg, _, err := raster.DecodeConfig(s.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		w, h = cfg.Width, cfg.Height
	default:
		return nil, fmt.Errorf("%w: image source is empty", ErrMissingArgument)
	}
	l := newLayer(KindImage, name)
	l.source = &s
	l.natW, l.natH = w, h
	l.width, l.height = w, h
	return l, nil
}

// newFlatLayer wraps an already rendered buffer as an image layer.
func newFlatLayer(name string, data []byte, w, h int) *Layer {
	l := newLayer(KindImage, name)
	l.source = &Source{Data: data}
	l.natW, l.natH = w, h
	l.width, l.height = w, h
	return l
}

// NewClippingMask combines two detached layers. The mask's coverage
// decides which source pixels stay visible. The container starts at the
// top-left corner of the union of both sub-layers.
func NewClippingMask(name string, mask, source *Layer) (*Layer, error) {
	if mask == nil || source == nil {
		return nil, fmt.Errorf("%w: clipping mask needs a mask and a source", ErrMissingArgument)
	}
	if mask == source {
		return nil, fmt.Errorf("%w: mask and source must be distinct layers", ErrInvalidArgument)
	}
	if mask.Attached() || source.Attached() {
		return nil, fmt.Errorf("%w: sub-layers of a clipping mask must be detached", ErrInvalidArgument)
	}
	l := newLayer(KindClippingMask, name)
	l.mask, l.src = mask, source
	l.left, l.top = min(mask.left, source.left), min(mask.top, source.top)
	return l, nil
}

// Kind returns the layer variant.
func (l *Layer) Kind() Kind { return l.kind }

func (l *Layer) Left() int { return l.left }
func (l *Layer) Top() int  { return l.top }

// Width is the cached bounding-box width. For clipping masks it is the
// width of the union of both sub-layers.
func (l *Layer) Width() int {
	if l.kind == KindClippingMask {
		return l.union().Dx()
	}
	return l.width
}

// Height is the cached bounding-box height; see Width.
func (l *Layer) Height() int {
	if l.kind == KindClippingMask {
		return l.union().Dy()
	}
	return l.height
}

// NaturalSize is the size of the unedited visual source: the decoded
// image, the laid out text or the authoritative shape box.
func (l *Layer) NaturalSize() (int, int) { return l.natW, l.natH }

func (l *Layer) Opacity() int                { return l.opacity }
func (l *Layer) BlendMode() raster.BlendMode { return l.blend }

// Attached reports whether the layer currently belongs to a document.
func (l *Layer) Attached() bool { return l.owner != 0 }

// Source returns the image payload, or nil for other kinds. The returned
// bytes are shared and must not be modified.
func (l *Layer) Source() *Source {
	if l.source == nil {
		return nil
	}
	s := *l.source
	return &s
}

// MaskLayer and SourceLayer return the sub-layers of a clipping mask.
func (l *Layer) MaskLayer() *Layer   { return l.mask }
func (l *Layer) SourceLayer() *Layer { return l.src }

// SetRecorder installs an event observer for this layer.
func (l *Layer) SetRecorder(r log.Recorder) { l.rec = r }

func (l *Layer) record(event string, attrs ...slog.Attr) {
	if l.rec == nil {
		return
	}
	l.rec.Record(event, append([]slog.Attr{slog.String("layer", l.Name), slog.String("kind", l.kind.String())}, attrs...)...)
}

// Translate sets the absolute offset of the layer.
func (l *Layer) Translate(top, left int) {
	l.top, l.left = top, left
}

// TranslateBy shifts the layer by dx, dy pixels.
func (l *Layer) TranslateBy(dx, dy int) {
	l.left += dx
	l.top += dy
}

// SetOpacity sets the layer opacity in percent.
func (l *Layer) SetOpacity(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: opacity %d outside [0,100]", ErrInvalidArgument, percent)
	}
	l.opacity = percent
	return nil
}

// SetBlendMode sets the compositing mode; the empty name resets to normal.
func (l *Layer) SetBlendMode(mode raster.BlendMode) error {
	m, ok := raster.ParseBlendMode(string(mode))
	if !ok {
		return fmt.Errorf("%w: unknown blend mode %q", ErrInvalidArgument, string(mode))
	}
	l.blend = m
	return nil
}

// union is the bounding box of a clipping mask's sub-layers.
func (l *Layer) union() image.Rectangle {
	return l.mask.bounds().Union(l.src.bounds())
}

// bounds is the placed bounding box in the parent's coordinates.
func (l *Layer) bounds() image.Rectangle {
	return image.Rect(l.left, l.top, l.left+l.Width(), l.top+l.Height())
}
