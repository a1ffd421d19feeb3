/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/transform"
)

// Rotate turns img clockwise by deg, growing the canvas to the rotated
// bounding box and filling uncovered corners with transparency.
func Rotate(img image.Image, deg float64) *image.NRGBA {
	if math.Mod(deg, 360) == 0 {
		return Clone(NRGBA(img))
	}
	return NRGBA(transform.Rotate(img, deg, &transform.RotationOptions{ResizeBounds: true}))
}

// Resize stretches img to exactly w×h.
func Resize(img image.Image, w, h int) *image.NRGBA {
	b := img.Bounds()
	if w == b.Dx() && h == b.Dy() {
		return Clone(NRGBA(img))
	}
	return NRGBA(transform.Resize(img, max(w, 1), max(h, 1), transform.Linear))
}

// Flip mirrors img top to bottom.
func Flip(img image.Image) *image.NRGBA { return NRGBA(transform.FlipV(img)) }

// Flop mirrors img left to right.
func Flop(img image.Image) *image.NRGBA { return NRGBA(transform.FlipH(img)) }

// Hue shifts the hue by deg degrees.
func Hue(img image.Image, deg float64) *image.NRGBA {
	d := int(math.Round(math.Mod(deg, 360)))
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return NRGBA(adjust.Hue(img, d))
}

// Saturation scales saturation; percent 100 keeps the image unchanged.
func Saturation(img image.Image, percent float64) *image.NRGBA {
	return NRGBA(adjust.Saturation(img, percent/100-1))
}

// Brightness multiplies the colour channels by percent/100, saturating at
// full intensity; percent 100 keeps the image unchanged.
func Brightness(img image.Image, percent float64) *image.NRGBA {
	return NRGBA(adjust.Brightness(img, percent/100-1))
}

// Negate inverts the colour channels and keeps alpha.
func Negate(img image.Image) *image.NRGBA { return NRGBA(effect.Invert(img)) }

// Blur applies a gaussian blur of the given sigma.
func Blur(img image.Image, sigma float64) *image.NRGBA {
	if sigma <= 0 {
		return Clone(NRGBA(img))
	}
	return NRGBA(blur.Gaussian(img, sigma))
}

// ApplyOpacity multiplies every alpha value by percent/100 (destination-in
// against a uniform alpha tile).
func ApplyOpacity(img image.Image, percent int) *image.NRGBA {
	src := NRGBA(img)
	if percent >= 100 {
		return Clone(src)
	}
	out := image.NewNRGBA(src.Rect)
	if percent <= 0 {
		return out
	}
	a := uint8(math.Round(255 * float64(percent) / 100))
	draw.DrawMask(out, out.Rect, src, image.Point{}, image.NewUniform(color.Alpha{A: a}), image.Point{}, draw.Src)
	return out
}

// Mask keeps src pixels only where mask has coverage. Both images are
// placed in the same coordinate space.
func Mask(src, mask image.Image) *image.NRGBA {
	s := NRGBA(src)
	out := image.NewNRGBA(s.Rect)
	draw.DrawMask(out, out.Rect, s, image.Point{}, NRGBA(mask), image.Point{}, draw.Src)
	return out
}

