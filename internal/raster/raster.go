/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package raster adapts the image engine used by the render pipeline:
// decoding, SVG rasterization, the per-edit transforms, blend-mode
// compositing and format encoding. Every operation returns a fresh
// *image.NRGBA anchored at the origin; inputs are never modified.
package raster

import (
	"errors"
	"image"
	"image/draw"
)

var (
	// ErrUnknownFormat is returned for a format name outside the requested set.
	ErrUnknownFormat = errors.New("unknown image format")
	// ErrNoEncoder is returned for accepted format names that have no encoder.
	ErrNoEncoder = errors.New("no encoder for image format")
	// ErrDecode wraps failures to read image or SVG sources.
	ErrDecode = errors.New("decode image")
)

// NRGBA returns img as a non-premultiplied image whose bounds start at (0,0).
// An *image.NRGBA that already satisfies this is returned as is.
func NRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}

// Clone returns a deep copy of img.
func Clone(img *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	draw.Draw(out, out.Rect, img, img.Rect.Min, draw.Src)
	return out
}

// Blank returns a fully transparent w×h canvas.
func Blank(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
}
