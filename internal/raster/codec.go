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
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"slices"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format names an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WEBP Format = "webp"
	GIF  Format = "gif"
	TIFF Format = "tiff"
	HEIF Format = "heif"
	RAW  Format = "raw"
	TILE Format = "tile"
)

// FormatSet is an ordered list of accepted output formats.
type FormatSet []Format

var (
	// DocumentFormats is accepted when exporting a flattened document.
	DocumentFormats = FormatSet{PNG, JPEG, WEBP, GIF, TIFF, HEIF, RAW, TILE}
	// LayerFormats is accepted when exporting a single layer.
	LayerFormats = FormatSet{PNG, JPEG, WEBP, GIF, TIFF, HEIF, RAW, TILE}
)

// Parse resolves name (case-insensitive, "jpg" accepted) against the set.
func (s FormatSet) Parse(name string) (Format, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "jpg" {
		n = "jpeg"
	}
	f := Format(n)
	if !slices.Contains(s, f) {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return f, nil
}

// EncodeOptions tunes lossy encoders.
type EncodeOptions struct {
	JPEGQuality int // 1..100, default 90
}

// Encode writes img to w in format f. RAW emits the non-premultiplied
// RGBA bytes row by row with no header.
func Encode(w io.Writer, img image.Image, f Format, opt EncodeOptions) error {
	switch f {
	case PNG:
		return png.Encode(w, img)
	case JPEG:
		q := opt.JPEGQuality
		if q <= 0 || q > 100 {
			q = 90
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	case GIF:
		return gif.Encode(w, img, nil)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case RAW:
		n := NRGBA(img)
		row := n.Rect.Dx() * 4
		for y := 0; y < n.Rect.Dy(); y++ {
			off := y * n.Stride
			if _, err := w.Write(n.Pix[off : off+row]); err != nil {
				return err
			}
		}
		return nil
	case WEBP, HEIF, TILE:
		return fmt.Errorf("%w: %s", ErrNoEncoder, f)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(img image.Image, f Format, opt EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f, opt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads any registered raster format.
func Decode(data []byte) (*image.NRGBA, string, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return NRGBA(img), name, nil
}

// DecodeConfig reads only the header of a raster source.
func DecodeConfig(data []byte) (image.Config, string, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg, name, nil
}

// Snapshot commits img to a lossless PNG and decodes it again.
func Snapshot(img image.Image) (*image.NRGBA, error) {
	data, err := EncodeBytes(img, PNG, EncodeOptions{})
	if err != nil {
		return nil, fmt.Errorf("snapshot encode: %w", err)
	}
	out, _, err := Decode(data)
	return out, err
}

// IsSVG reports whether data looks like SVG markup.
func IsSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	s := strings.TrimSpace(string(head))
	return strings.HasPrefix(s, "<") && strings.Contains(s, "<svg")
}

// Extension infers a file extension (without dot) for an asset payload.
// Unknown binary payloads fall back to "png".
func Extension(data []byte) string {
	if IsSVG(data) {
		return "svg"
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "png"
	}
	return kind.Extension
}

// IsImage reports whether data is a raster image type known to the sniffer.
func IsImage(data []byte) bool { return filetype.IsImage(data) }
