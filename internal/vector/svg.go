/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// PolygonSVG returns a standalone SVG document of size w×h holding a regular polygon.
func PolygonSVG(w, h int, sides int, s Style) string {
	pts := PolygonPoints(strokeBox(float64(w), float64(h), s), sides)
	var list []string
	for _, p := range pts {
		list = append(list, num(p.X)+","+num(p.Y))
	}
	return document(w, h, fmt.Sprintf(`<polygon points="%s"%s/>`, strings.Join(list, " "), paint(s)))
}

// EllipseSVG returns a standalone SVG document of size w×h holding the inscribed ellipse.
func EllipseSVG(w, h int, s Style) string {
	p := EllipsePath(strokeBox(float64(w), float64(h), s))
	return document(w, h, fmt.Sprintf(`<path d="%s"%s/>`, p.SVGData(), paint(s)))
}

func document(w, h int, body string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" version="1.1" width="%d" height="%d" viewBox="0 0 %d %d">`, w, h, w, h)
	buf.WriteString(body)
	buf.WriteString("</svg>")
	return buf.String()
}

func paint(s Style) string {
	out := ` fill="none"`
	if s.Fill != "" {
		rgb, op := splitAlpha(s.Fill)
		out = ` fill="` + escAttr(rgb) + `"`
		if op != "" {
			out += ` fill-opacity="` + op + `"`
		}
	}
	if s.stroked() {
		rgb, op := splitAlpha(s.Stroke)
		out += fmt.Sprintf(` stroke="%s" stroke-width="%s"`, escAttr(rgb), num(s.StrokeWidth))
		if op != "" {
			out += ` stroke-opacity="` + op + `"`
		}
	}
	return out
}

// splitAlpha turns "#rrggbbaa" into "#rrggbb" plus an opacity attribute value,
// since not every SVG consumer reads eight-digit hex.
func splitAlpha(hex string) (string, string) {
	if len(hex) != 9 {
		return hex, ""
	}
	a, err := strconv.ParseUint(hex[7:], 16, 8)
	if err != nil {
		return hex[:7], ""
	}
	return hex[:7], num(float64(a) / 255)
}

func escAttr(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", "\n", " ", "\r", "")
	return r.Replace(s)
}
