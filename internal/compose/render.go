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
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"layerkit/internal/raster"
	"layerkit/internal/storage"
	"layerkit/internal/textlayout"
	"layerkit/internal/vector"
)

// RenderOptions tunes the render pipeline.
type RenderOptions struct {
	// Materialize commits every intermediate step to a lossless PNG and
	// decodes it again before the next edit.
	Materialize bool
}

// Render replays the layer's edit queue over its visual source and
// applies its opacity. The result is sized to the rendered content.
func Render(ctx context.Context, l *Layer, opt RenderOptions) (*image.NRGBA, error) {
	var ev renderLog
	img, err := render(ctx, l, opt, &ev)
	ev.emit()
	return img, err
}

// renderLog holds recorder events produced while rendering so that they
// can be emitted from a single goroutine.
type renderLog []renderEvent

type renderEvent struct {
	layer *Layer
	attrs []slog.Attr
}

func (r *renderLog) add(l *Layer, attrs ...slog.Attr) {
	*r = append(*r, renderEvent{layer: l, attrs: attrs})
}

func (r renderLog) emit() {
	for _, e := range r {
		e.layer.record("layer.render", e.attrs...)
	}
}

func render(ctx context.Context, l *Layer, opt RenderOptions, ev *renderLog) (*image.NRGBA, error) {
	img, err := l.base(ctx, opt, ev)
	if err != nil {
		return nil, err
	}
	for _, e := range l.edits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img = apply(img, e)
		if opt.Materialize {
			if img, err = raster.Snapshot(img); err != nil {
				return nil, fmt.Errorf("render %q: %w", l.Name, err)
			}
		}
	}
	img = raster.ApplyOpacity(img, l.opacity)
	ev.add(l, slog.Int("edits", len(l.edits)), slog.Int("w", img.Rect.Dx()), slog.Int("h", img.Rect.Dy()))
	return img, nil
}

func apply(img *image.NRGBA, e Edit) *image.NRGBA {
	switch e.Type {
	case EditRotate:
		return raster.Rotate(img, e.Degrees)
	case EditResize:
		w, h := img.Rect.Dx(), img.Rect.Dy()
		if e.Width != nil {
			w = *e.Width
		}
		if e.Height != nil {
			h = *e.Height
		}
		return raster.Resize(img, w, h)
	case EditReflect:
		if e.Direction == Vertical {
			return raster.Flip(img)
		}
		return raster.Flop(img)
	case EditHue:
		return raster.Hue(img, e.Degrees)
	case EditSaturation:
		return raster.Saturation(img, e.Amount)
	case EditBrightness:
		return raster.Brightness(img, e.Amount)
	case EditInvert:
		return raster.Negate(img)
	case EditBlur:
		return raster.Blur(img, e.Sigma)
	}
	return img
}

// base resolves the unedited visual source of the layer.
func (l *Layer) base(ctx context.Context, opt RenderOptions, ev *renderLog) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch l.kind {
	case KindImage:
		if l.source.IsSVG() {
			return raster.RasterizeSVG(l.source.SVG, l.natW, l.natH)
		}
		img, _, err := raster.Decode(l.source.Data)
		return img, err
	case KindText:
		return textlayout.Draw(fontProvider(), l.text.block(l.wrapWidth()))
	case KindPolygon, KindEllipse:
		if l.natW == 0 || l.natH == 0 || (l.kind == KindPolygon && l.shape.Sides == 0) {
			return raster.Blank(l.natW, l.natH), nil
		}
		markup := vector.EllipseSVG(l.natW, l.natH, l.shape.style())
		if l.kind == KindPolygon {
			markup = vector.PolygonSVG(l.natW, l.natH, l.shape.Sides, l.shape.style())
		}
		return raster.RasterizeSVG(markup, l.natW, l.natH)
	case KindClippingMask:
		return l.clip(ctx, opt, ev)
	}
	return nil, fmt.Errorf("%w: render %s layer", ErrUnsupported, l.kind)
}

// clip renders both sub-layers into their union box and keeps source
// pixels where the mask has coverage.
func (l *Layer) clip(ctx context.Context, opt RenderOptions, ev *renderLog) (*image.NRGBA, error) {
	mask, err := render(ctx, l.mask, opt, ev)
	if err != nil {
		return nil, fmt.Errorf("render mask of %q: %w", l.Name, err)
	}
	src, err := render(ctx, l.src, opt, ev)
	if err != nil {
		return nil, fmt.Errorf("render source of %q: %w", l.Name, err)
	}
	mb := mask.Rect.Add(image.Pt(l.mask.left, l.mask.top))
	sb := src.Rect.Add(image.Pt(l.src.left, l.src.top))
	u := mb.Union(sb)
	if u.Empty() {
		return raster.Blank(0, 0), nil
	}
	mc := raster.Blank(u.Dx(), u.Dy())
	raster.Composite(mc, mask, mb.Min.Sub(u.Min), raster.BlendNormal)
	sc := raster.Blank(u.Dx(), u.Dy())
	raster.Composite(sc, src, sb.Min.Sub(u.Min), raster.BlendNormal)
	return raster.Mask(sc, mc), nil
}

// Target selects where an export goes.
type Target string

const (
	TargetBuffer Target = "buffer"
	TargetFile   Target = "file"
)

// ExportOptions controls Export. The zero Target is TargetBuffer.
type ExportOptions struct {
	Format      string
	Target      Target
	Path        string // required for TargetFile
	JPEGQuality int
	Render      RenderOptions
}

// Output is a buffer export with the pixel size of the encoded image.
type Output struct {
	Data   []byte
	Width  int
	Height int
}

// Export renders l and encodes it. File exports return a nil Output.
func Export(ctx context.Context, l *Layer, opt ExportOptions) (*Output, error) {
	if err := opt.check(raster.LayerFormats); err != nil {
		return nil, err
	}
	img, err := Render(ctx, l, opt.Render)
	if err != nil {
		return nil, err
	}
	return encode(img, opt, raster.LayerFormats)
}

func (o ExportOptions) check(set raster.FormatSet) error {
	if _, err := set.Parse(o.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	switch o.Target {
	case "", TargetBuffer:
	case TargetFile:
		if o.Path == "" {
			return fmt.Errorf("%w: file export needs a path", ErrMissingArgument)
		}
	default:
		return fmt.Errorf("%w: export target %q", ErrInvalidArgument, string(o.Target))
	}
	return nil
}

func encode(img *image.NRGBA, opt ExportOptions, set raster.FormatSet) (*Output, error) {
	f, _ := set.Parse(opt.Format)
	eo := raster.EncodeOptions{JPEGQuality: opt.JPEGQuality}
	if opt.Target == TargetFile {
		err := storage.WriteAtomic(opt.Path, func(w io.Writer) error { return raster.Encode(w, img, f, eo) })
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", opt.Path, err)
		}
		return nil, nil
	}
	data, err := raster.EncodeBytes(img, f, eo)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return &Output{Data: data, Width: img.Rect.Dx(), Height: img.Rect.Dy()}, nil
}

// Rasterize bakes the layer's edits and opacity into a new detached image
// layer at the same offset. Blend mode and name carry over.
func (l *Layer) Rasterize(ctx context.Context, opt RenderOptions) (*Layer, error) {
	img, err := Render(ctx, l, opt)
	if err != nil {
		return nil, err
	}
	data, err := raster.EncodeBytes(img, raster.PNG, raster.EncodeOptions{})
	if err != nil {
		return nil, fmt.Errorf("rasterize %q: %w", l.Name, err)
	}
	flat := newFlatLayer(l.Name, data, img.Rect.Dx(), img.Rect.Dy())
	flat.left, flat.top = l.left, l.top
	flat.blend = l.blend
	flat.rec = l.rec
	return flat, nil
}

var errNilLayer = errors.New("nil layer")
