/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// kappa is the cubic Bézier control distance approximating a quarter circle.
const kappa = 0.5522847498307936

// PolygonPoints returns the vertices of a regular polygon with the given
// number of sides inscribed in box, starting at the top and running
// clockwise. Fewer than three sides produce a degenerate outline: zero sides
// yield no points.
func PolygonPoints(box Rect, sides int) []Pt {
	if sides <= 0 {
		return nil
	}
	c := box.Center()
	rx, ry := box.W/2, box.H/2
	pts := make([]Pt, sides)
	for i := range pts {
		a := -math.Pi/2 + 2*math.Pi*float64(i)/float64(sides)
		pts[i] = Pt{X: c.X + rx*math.Cos(a), Y: c.Y + ry*math.Sin(a)}
	}
	return pts
}

// PolygonPath closes the polygon points into a path.
func PolygonPath(box Rect, sides int) Path {
	var p Path
	for i, pt := range PolygonPoints(box, sides) {
		if i == 0 {
			p.MoveTo(pt.X, pt.Y)
			continue
		}
		p.LineTo(pt.X, pt.Y)
	}
	if len(p.Cmds) > 0 {
		p.Close()
	}
	return p
}

// EllipsePath approximates the ellipse inscribed in box with four cubic arcs.
func EllipsePath(box Rect) Path {
	var p Path
	if box.Empty() {
		return p
	}
	c := box.Center()
	rx, ry := box.W/2, box.H/2
	ox, oy := rx*kappa, ry*kappa
	p.MoveTo(c.X, c.Y-ry)
	p.CubicTo(c.X+ox, c.Y-ry, c.X+rx, c.Y-oy, c.X+rx, c.Y)
	p.CubicTo(c.X+rx, c.Y+oy, c.X+ox, c.Y+ry, c.X, c.Y+ry)
	p.CubicTo(c.X-ox, c.Y+ry, c.X-rx, c.Y+oy, c.X-rx, c.Y)
	p.CubicTo(c.X-rx, c.Y-oy, c.X-ox, c.Y-ry, c.X, c.Y-ry)
	p.Close()
	return p
}

// strokeBox shrinks a w×h canvas so a centred stroke stays inside it.
func strokeBox(w, h float64, s Style) Rect {
	box := R(0, 0, w, h)
	if s.stroked() {
		box = box.Inset(s.StrokeWidth/2, s.StrokeWidth/2)
	}
	return box
}
