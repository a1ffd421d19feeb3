/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"strconv"
	"strings"
)

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	CubicTo // (cx1, cy1, cx2, cy2, x, y)
	Close
)

type PathCmd struct {
	Op   PathOp
	Data [6]float64
}

// Path is an ordered list of drawing commands.
type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [6]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [6]float64{x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [6]float64{cx1, cy1, cx2, cy2, x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// Bounds returns the bounding box of all on-curve and control points. For the
// closed ellipse arcs built here the control hull touches the true extremes.
func (p *Path) Bounds() Rect {
	first := true
	var minX, minY, maxX, maxY float64
	add := func(x, y float64) {
		if first {
			minX, maxX, minY, maxY = x, x, y, y
			first = false
			return
		}
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			add(c.Data[0], c.Data[1])
		case CubicTo:
			add(c.Data[0], c.Data[1])
			add(c.Data[2], c.Data[3])
			add(c.Data[4], c.Data[5])
		}
	}
	if first {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// SVGData renders the path as an SVG "d" attribute value.
func (p *Path) SVGData() string {
	var b strings.Builder
	for i, c := range p.Cmds {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch c.Op {
		case MoveTo:
			b.WriteString("M" + num(c.Data[0]) + " " + num(c.Data[1]))
		case LineTo:
			b.WriteString("L" + num(c.Data[0]) + " " + num(c.Data[1]))
		case CubicTo:
			b.WriteString("C" + num(c.Data[0]) + " " + num(c.Data[1]) + " " +
				num(c.Data[2]) + " " + num(c.Data[3]) + " " +
				num(c.Data[4]) + " " + num(c.Data[5]))
		case Close:
			b.WriteString("Z")
		}
	}
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(FloatRound(v, 3), 'f', -1, 64)
}
