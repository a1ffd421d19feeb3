/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFormatSets(t *testing.T) {
	f, err := DocumentFormats.Parse("JPG")
	require.NoError(t, err)
	assert.Equal(t, JPEG, f)

	_, err = LayerFormats.Parse("bmp")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	for _, name := range []string{"png", "jpeg", "webp", "gif", "tiff", "heif", "raw", "tile"} {
		_, err := LayerFormats.Parse(name)
		assert.NoError(t, err, name)
	}
}

func TestEncodeDecode(t *testing.T) {
	img := solid(3, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	for _, f := range []Format{PNG, JPEG, GIF, TIFF} {
		data, err := EncodeBytes(img, f, EncodeOptions{})
		require.NoError(t, err, f)
		cfg, _, err := DecodeConfig(data)
		require.NoError(t, err, f)
		assert.Equal(t, 3, cfg.Width, f)
		assert.Equal(t, 2, cfg.Height, f)
	}
	raw, err := EncodeBytes(img, RAW, EncodeOptions{})
	require.NoError(t, err)
	assert.Len(t, raw, 3*2*4)
	assert.Equal(t, []byte{10, 20, 30, 255}, raw[:4])

	for _, f := range []Format{WEBP, HEIF, TILE} {
		_, err := EncodeBytes(img, f, EncodeOptions{})
		assert.ErrorIs(t, err, ErrNoEncoder, f)
	}
	_, _, err = Decode([]byte("not an image"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestExtensionSniffing(t *testing.T) {
	assert.Equal(t, "png", Extension(pngBytes(t, solid(1, 1, color.NRGBA{A: 255}))))
	assert.Equal(t, "svg", Extension([]byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"/>`)))
	assert.Equal(t, "png", Extension([]byte{1, 2, 3}))
	assert.True(t, IsImage(pngBytes(t, solid(1, 1, color.NRGBA{}))))
}

func TestRotateAndResize(t *testing.T) {
	img := solid(40, 20, color.NRGBA{R: 255, A: 255})
	r := Rotate(img, 90)
	assert.Equal(t, 20, r.Rect.Dx())
	assert.Equal(t, 40, r.Rect.Dy())

	s := Resize(img, 30, 15)
	assert.Equal(t, image.Rect(0, 0, 30, 15), s.Rect)
}

func TestFlipFlop(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})

	fl := Flop(img)
	assert.Equal(t, uint8(255), fl.NRGBAAt(1, 0).R)
	fv := Flip(img)
	assert.Equal(t, uint8(255), fv.NRGBAAt(0, 1).R)
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 0).R, "input must stay untouched")
}

func TestNegate(t *testing.T) {
	out := Negate(solid(1, 1, color.NRGBA{R: 255, G: 0, B: 100, A: 255}))
	assert.Equal(t, color.NRGBA{R: 0, G: 255, B: 155, A: 255}, out.NRGBAAt(0, 0))
}

func TestBrightnessScalesBeyondDouble(t *testing.T) {
	img := solid(1, 1, color.NRGBA{R: 40, G: 20, B: 100, A: 255})
	assert.Equal(t, color.NRGBA{R: 120, G: 60, B: 255, A: 255}, Brightness(img, 300).NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 255, A: 255}, Brightness(img, 500).NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 20, G: 10, B: 50, A: 255}, Brightness(img, 50).NRGBAAt(0, 0))
}

func TestApplyOpacity(t *testing.T) {
	img := solid(2, 2, color.NRGBA{R: 200, A: 255})
	half := ApplyOpacity(img, 50)
	assert.InDelta(t, 128, int(half.NRGBAAt(0, 0).A), 1)
	assert.InDelta(t, 200, int(half.NRGBAAt(0, 0).R), 1)

	none := ApplyOpacity(img, 0)
	assert.Equal(t, uint8(0), none.NRGBAAt(1, 1).A)
	full := ApplyOpacity(img, 100)
	assert.Equal(t, img.Pix, full.Pix)
}

func TestCompositeNormalCropsAndSkips(t *testing.T) {
	dst := Blank(4, 4)
	src := solid(2, 2, color.NRGBA{G: 255, A: 255})

	assert.True(t, Composite(dst, src, image.Pt(3, 3), BlendNormal))
	assert.Equal(t, uint8(255), dst.NRGBAAt(3, 3).G)
	assert.Equal(t, uint8(0), dst.NRGBAAt(2, 2).A)

	assert.False(t, Composite(dst, src, image.Pt(10, 0), BlendNormal))
	assert.False(t, Composite(dst, src, image.Pt(-2, 0), BlendNormal))
}

func TestCompositeMultiply(t *testing.T) {
	dst := solid(1, 1, color.NRGBA{R: 255, G: 128, B: 0, A: 255})
	src := solid(1, 1, color.NRGBA{R: 128, G: 128, B: 255, A: 255})
	Composite(dst, src, image.Point{}, BlendMultiply)
	got := dst.NRGBAAt(0, 0)
	assert.InDelta(t, 128, int(got.R), 2)
	assert.InDelta(t, 64, int(got.G), 2)
	assert.InDelta(t, 0, int(got.B), 2)
	assert.Equal(t, uint8(255), got.A)
}

func TestCompositeBlendOnTransparentBehavesLikeNormal(t *testing.T) {
	dst := Blank(1, 1)
	src := solid(1, 1, color.NRGBA{R: 40, G: 80, B: 120, A: 255})
	Composite(dst, src, image.Point{}, BlendDifference)
	assert.Equal(t, color.NRGBA{R: 40, G: 80, B: 120, A: 255}, dst.NRGBAAt(0, 0))
}

func TestBlendModes(t *testing.T) {
	assert.Len(t, BlendModes, 13)
	for _, m := range BlendModes {
		assert.True(t, m.Valid(), m)
	}
	m, ok := ParseBlendMode("")
	assert.True(t, ok)
	assert.Equal(t, BlendNormal, m)
	_, ok = ParseBlendMode("luminosity")
	assert.False(t, ok)
}

func TestRasterizeSVG(t *testing.T) {
	markup := `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="10" viewBox="0 0 20 10"><rect x="0" y="0" width="20" height="10" fill="#ff0000"/></svg>`
	w, h, err := SVGSize(markup)
	require.NoError(t, err)
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)

	img, err := RasterizeSVG(markup, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Rect)
	c := img.NRGBAAt(10, 5)
	assert.Equal(t, uint8(255), c.R)
	assert.Equal(t, uint8(255), c.A)

	_, err = RasterizeSVG("<nope", 0, 0)
	assert.Error(t, err)
}
