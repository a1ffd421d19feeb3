/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package colors normalizes the color representations accepted by layer
// setters (hex strings, rgb()/rgba() functions, CSS names, packed 0xRRGGBBAA integers, component
// structs and image/color values) into one canonical lower-case hex form:
// "#rrggbb" for opaque colors and "#rrggbbaa" otherwise.
package colors

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ErrInvalid is returned for values that do not describe a color.
var ErrInvalid = errors.New("invalid color")

// RGBA is the component form of a color. A is the straight (non-premultiplied) alpha.
type RGBA struct {
	R, G, B, A uint8
}

// Normalize converts v to its canonical hex string.
func Normalize(v any) (string, error) {
	c, err := ToNRGBA(v)
	if err != nil {
		return "", err
	}
	return Hex(c), nil
}

// ToNRGBA converts any accepted representation to a straight-alpha color.
func ToNRGBA(v any) (color.NRGBA, error) {
	switch x := v.(type) {
	case string:
		return Parse(x)
	case uint32:
		return unpack(x), nil
	case int:
		if x < 0 || int64(x) > 0xFFFFFFFF {
			return color.NRGBA{}, fmt.Errorf("%w: packed value %d out of range", ErrInvalid, x)
		}
		return unpack(uint32(x)), nil
	case int64:
		if x < 0 || x > 0xFFFFFFFF {
			return color.NRGBA{}, fmt.Errorf("%w: packed value %d out of range", ErrInvalid, x)
		}
		return unpack(uint32(x)), nil
	case RGBA:
		return color.NRGBA{R: x.R, G: x.G, B: x.B, A: x.A}, nil
	case *RGBA:
		if x == nil {
			return color.NRGBA{}, fmt.Errorf("%w: nil components", ErrInvalid)
		}
		return color.NRGBA{R: x.R, G: x.G, B: x.B, A: x.A}, nil
	case color.Color:
		if x == nil {
			return color.NRGBA{}, fmt.Errorf("%w: nil color", ErrInvalid)
		}
		return color.NRGBAModel.Convert(x).(color.NRGBA), nil
	default:
		return color.NRGBA{}, fmt.Errorf("%w: unsupported type %T", ErrInvalid, v)
	}
}

// Parse accepts "#rgb", "#rgba", "#rrggbb", "#rrggbbaa" (with or without '#'),
// "rgb(r, g, b)", "rgba(r, g, b, a)" with a in [0,1], and CSS color names.
func Parse(s string) (color.NRGBA, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	if str == "" {
		return color.NRGBA{}, fmt.Errorf("%w: empty string", ErrInvalid)
	}
	if str == "transparent" {
		return color.NRGBA{}, nil
	}
	switch {
	case strings.HasPrefix(str, "rgb("):
		return parseFunc(s, str[len("rgb("):], 3)
	case strings.HasPrefix(str, "rgba("):
		return parseFunc(s, str[len("rgba("):], 4)
	}
	if c, ok := colornames.Map[str]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	hex := strings.TrimPrefix(str, "#")
	switch len(hex) {
	case 3, 4:
		var sb strings.Builder
		for _, r := range hex {
			sb.WriteRune(r)
			sb.WriteRune(r)
		}
		hex = sb.String()
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return unpack(uint32(n)), nil
}

// Hex formats c canonically.
func Hex(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// parseFunc reads the comma separated arguments of rgb() or rgba().
func parseFunc(orig, args string, n int) (color.NRGBA, error) {
	body, ok := strings.CutSuffix(args, ")")
	if !ok {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, orig)
	}
	parts := strings.Split(body, ",")
	if len(parts) != n {
		return color.NRGBA{}, fmt.Errorf("%w: %q wants %d components", ErrInvalid, orig, n)
	}
	var c [3]uint8
	for i := range c {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return color.NRGBA{}, fmt.Errorf("%w: %q component %d", ErrInvalid, orig, i+1)
		}
		c[i] = uint8(v)
	}
	a := uint8(255)
	if n == 4 {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || f < 0 || f > 1 {
			return color.NRGBA{}, fmt.Errorf("%w: %q alpha", ErrInvalid, orig)
		}
		a = uint8(math.Round(f * 255))
	}
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: a}, nil
}

func unpack(n uint32) color.NRGBA {
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}
}
