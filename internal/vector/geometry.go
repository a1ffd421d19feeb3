/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package vector generates the declarative outlines used to synthesize shape
// layers: regular polygons as point lists, ellipses as cubic paths, and the
// SVG markup that the raster backend rasterizes.
package vector

import "math"

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

// Center returns the midpoint of r.
func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// RotatedBounds returns the size of the axis-aligned box enclosing a w×h
// rectangle rotated by deg degrees, rounded to whole pixels.
func RotatedBounds(w, h int, deg float64) (int, int) {
	th := deg * math.Pi / 180
	s, c := math.Abs(math.Sin(th)), math.Abs(math.Cos(th))
	fw, fh := float64(w), float64(h)
	return int(math.Round(fw*c + fh*s)), int(math.Round(fw*s + fh*c))
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
