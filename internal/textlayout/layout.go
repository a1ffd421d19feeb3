/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Abstractions for text measurement and line breaking. Everything that
// depends on a concrete font engine sits behind Provider so layout stays
// deterministic under test.

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePt float64
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Span is a run of text with the same font/style.
type Span struct {
	Text string
	Font FontSpec
}

// Line is a single laid out line. Width excludes trailing spaces.
type Line struct {
	Spans   []Span
	Width   float64
	Ascent  float64
	Descent float64
}

// Text joins the spans of the line.
func (l Line) Text() string {
	var b strings.Builder
	for _, sp := range l.Spans {
		b.WriteString(sp.Text)
	}
	return b.String()
}

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines   []Line
	Width   float64
	Height  float64
	Metrics Metrics
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// Layouter performs line-breaking and measurement.
type Layouter interface {
	Layout(spans []Span, maxWidth float64) (TextBox, error)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, faceMetrics(f)
}

// WordWrapLayouter breaks on spaces and newlines; it does not perform
// shaping or hyphenation. A word wider than maxWidth gets a line of its own.
type WordWrapLayouter struct{ Provider Provider }

func NewWordWrap(provider Provider) *WordWrapLayouter { return &WordWrapLayouter{Provider: provider} }

func (l *WordWrapLayouter) Layout(spans []Span, maxWidth float64) (TextBox, error) {
	if l.Provider == nil {
		l.Provider = BasicProvider{}
	}
	var first FontSpec
	if len(spans) > 0 {
		first = spans[0].Font
	}
	_, met := l.Provider.Resolve(first)
	box := TextBox{Metrics: met}
	cur := Line{Ascent: met.Ascent, Descent: met.Descent}
	pending := 0.0 // width of spaces not yet followed by a word
	addLine := func() {
		box.Lines = append(box.Lines, cur)
		box.Width = max(box.Width, cur.Width)
		box.Height += met.Ascent + met.Descent + met.LineGap
		cur = Line{Ascent: met.Ascent, Descent: met.Descent}
		pending = 0
	}
	for _, sp := range spans {
		if sp.Text == "" {
			continue
		}
		face, _ := l.Provider.Resolve(sp.Font)
		drawer := &font.Drawer{Face: face}
		start := 0
		for i := 0; i <= len(sp.Text); i++ {
			if i < len(sp.Text) && sp.Text[i] != ' ' && sp.Text[i] != '\n' {
				continue
			}
			word := sp.Text[start:i]
			if word != "" {
				w := advance(drawer, word)
				if cur.Width > 0 && maxWidth > 0 && cur.Width+pending+w > maxWidth {
					addLine()
				}
				if len(cur.Spans) > 0 {
					cur.Width += pending
				}
				pending = 0
				cur.Spans = append(cur.Spans, Span{Text: word, Font: sp.Font})
				cur.Width += w
			}
			if i < len(sp.Text) {
				switch sp.Text[i] {
				case ' ':
					if len(cur.Spans) > 0 {
						cur.Spans = append(cur.Spans, Span{Text: " ", Font: sp.Font})
						pending += advance(drawer, " ")
					}
				case '\n':
					addLine()
				}
			}
			start = i + 1
		}
	}
	if len(cur.Spans) > 0 || len(box.Lines) == 0 {
		addLine()
	}
	for i := range box.Lines {
		box.Lines[i].Spans = trimTrailingSpaces(box.Lines[i].Spans)
	}
	return box, nil
}

func trimTrailingSpaces(spans []Span) []Span {
	for len(spans) > 0 && spans[len(spans)-1].Text == " " {
		spans = spans[:len(spans)-1]
	}
	return spans
}

func advance(d *font.Drawer, s string) float64 {
	return float64(d.MeasureString(s)) / 64 // fixed.Int26_6 to px
}

// Measure provides a quick way to measure text width/height without line-breaks.
func Measure(provider Provider, spans []Span) (w, h float64) {
	if provider == nil {
		provider = BasicProvider{}
	}
	var first FontSpec
	if len(spans) > 0 {
		first = spans[0].Font
	}
	_, met := provider.Resolve(first)
	for _, sp := range spans {
		face, _ := provider.Resolve(sp.Font)
		w += advance(&font.Drawer{Face: face}, sp.Text)
	}
	return w, met.Ascent + met.Descent
}
