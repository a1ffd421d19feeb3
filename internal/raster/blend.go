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
	"image/draw"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/fcolor"
)

// BlendMode selects how a layer mixes with the pixels beneath it.
type BlendMode string

const (
	BlendNormal     BlendMode = "normal"
	BlendMultiply   BlendMode = "multiply"
	BlendScreen     BlendMode = "screen"
	BlendOverlay    BlendMode = "overlay"
	BlendDarken     BlendMode = "darken"
	BlendLighten    BlendMode = "lighten"
	BlendColorDodge BlendMode = "color-dodge"
	BlendColorBurn  BlendMode = "color-burn"
	BlendHardLight  BlendMode = "hard-light"
	BlendSoftLight  BlendMode = "soft-light"
	BlendDifference BlendMode = "difference"
	BlendExclusion  BlendMode = "exclusion"
	BlendAdd        BlendMode = "add"
)

// BlendModes lists every supported mode in declaration order.
var BlendModes = []BlendMode{
	BlendNormal, BlendMultiply, BlendScreen, BlendOverlay, BlendDarken,
	BlendLighten, BlendColorDodge, BlendColorBurn, BlendHardLight,
	BlendSoftLight, BlendDifference, BlendExclusion, BlendAdd,
}

// Valid reports whether m is one of BlendModes.
func (m BlendMode) Valid() bool {
	_, ok := mixers[m]
	return ok || m == BlendNormal
}

// ParseBlendMode resolves a mode name; the empty name is normal.
func ParseBlendMode(name string) (BlendMode, bool) {
	if name == "" {
		return BlendNormal, true
	}
	m := BlendMode(name)
	return m, m.Valid()
}

type mixer func(bg, fg image.Image) *image.RGBA

var mixers = map[BlendMode]mixer{
	BlendMultiply:   blend.Multiply,
	BlendScreen:     blend.Screen,
	BlendOverlay:    blend.Overlay,
	BlendDarken:     blend.Darken,
	BlendLighten:    blend.Lighten,
	BlendColorDodge: blend.ColorDodge,
	BlendColorBurn:  blend.ColorBurn,
	BlendHardLight:  hardLight,
	BlendSoftLight:  blend.SoftLight,
	BlendDifference: blend.Difference,
	BlendExclusion:  blend.Exclusion,
	BlendAdd:        blend.Add,
}

func hardLight(bg, fg image.Image) *image.RGBA {
	ch := func(b, s float64) float64 {
		if s <= 0.5 {
			return 2 * b * s
		}
		return 1 - 2*(1-b)*(1-s)
	}
	return blend.Blend(bg, fg, func(c0, c1 fcolor.RGBAF64) fcolor.RGBAF64 {
		return fcolor.RGBAF64{R: ch(c0.R, c1.R), G: ch(c0.G, c1.G), B: ch(c0.B, c1.B), A: 1}
	})
}

// Composite blends src onto dst with its top-left corner at `at`, using
// mode. Parts of src outside dst are cropped. It reports whether any
// pixel of src landed on dst.
//
// The mode's mixing function only sees opaque colours; coverage is then
// resolved with source-over, so a translucent or partially covered
// backdrop blends the way the normal mode does.
func Composite(dst *image.NRGBA, src image.Image, at image.Point, mode BlendMode) bool {
	s := NRGBA(src)
	r := s.Rect.Add(at).Intersect(dst.Rect)
	if r.Empty() {
		return false
	}
	sp := r.Min.Sub(at)
	mix, ok := mixers[mode]
	if !ok {
		draw.Draw(dst, r, s, sp, draw.Over)
		return true
	}
	w, h := r.Dx(), r.Dy()
	mixed := mix(opaque(dst, r.Min, w, h), opaque(s, sp, w, h))

	// per W3C compositing: Cs' = (1 - ab)·Cs + ab·B(Cb, Cs), then source-over
	layer := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			so := s.PixOffset(sp.X+x, sp.Y+y)
			do := dst.PixOffset(r.Min.X+x, r.Min.Y+y)
			mo := mixed.PixOffset(x, y)
			lo := layer.PixOffset(x, y)
			ab := uint32(dst.Pix[do+3])
			for c := 0; c < 3; c++ {
				cs := uint32(s.Pix[so+c])
				b := uint32(mixed.Pix[mo+c])
				layer.Pix[lo+c] = uint8(((255-ab)*cs + ab*b + 127) / 255)
			}
			layer.Pix[lo+3] = s.Pix[so+3]
		}
	}
	draw.Draw(dst, r, layer, image.Point{}, draw.Over)
	return true
}

// opaque copies a w×h window of img starting at p with alpha forced to 255.
func opaque(img *image.NRGBA, p image.Point, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		si := img.PixOffset(p.X, p.Y+y)
		di := out.PixOffset(0, y)
		for x := 0; x < w; x++ {
			copy(out.Pix[di:di+3], img.Pix[si:si+3])
			out.Pix[di+3] = 0xff
			si += 4
			di += 4
		}
	}
	return out
}
