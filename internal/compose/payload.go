/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"fmt"

	"layerkit/internal/colors"
	"layerkit/internal/textlayout"
	"layerkit/internal/vector"
)

var (
	// Fonts resolves text layer font families. Families that are not
	// loaded fall back to the bundled Go fonts.
	Fonts = textlayout.NewFontLibrary()
	// DefaultFontSize applies to text layers created with FontSize 0.
	DefaultFontSize = 24.0
	// DetachedTextWidth is the wrap width of a text layer with MaxWidth 0
	// that does not belong to a document.
	DetachedTextWidth = 400
)

const (
	WeightNormal = "normal"
	WeightBold   = "bold"
)

// Text is the payload of a text layer.
type Text struct {
	Text       string
	Font       string
	FontSize   float64
	FontWeight string // normal or bold
	TextAlign  string // left, center or right
	Color      string // canonical hex
	LineHeight float64
	MaxWidth   int // 0 wraps at the document width
}

func (t Text) normalized() (Text, error) {
	if t.FontSize < 0 || t.LineHeight < 0 || t.MaxWidth < 0 {
		return t, fmt.Errorf("%w: font size, line height and max width must not be negative", ErrInvalidArgument)
	}
	if t.FontSize == 0 {
		t.FontSize = DefaultFontSize
	}
	if t.LineHeight == 0 {
		t.LineHeight = 1.2
	}
	switch t.FontWeight {
	case "":
		t.FontWeight = WeightNormal
	case WeightNormal, WeightBold:
	default:
		return t, fmt.Errorf("%w: font weight %q", ErrInvalidArgument, t.FontWeight)
	}
	switch textlayout.Align(t.TextAlign) {
	case "":
		t.TextAlign = string(textlayout.AlignLeft)
	case textlayout.AlignLeft, textlayout.AlignCenter, textlayout.AlignRight:
	default:
		return t, fmt.Errorf("%w: text align %q", ErrInvalidArgument, t.TextAlign)
	}
	if t.Color == "" {
		t.Color = "#000000"
	}
	c, err := colors.Normalize(t.Color)
	if err != nil {
		return t, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	t.Color = c
	return t, nil
}

func (t Text) block(wrap int) textlayout.Block {
	weight := 400
	if t.FontWeight == WeightBold {
		weight = 700
	}
	col, _ := colors.Parse(t.Color)
	return textlayout.Block{
		Text:       t.Text,
		Font:       textlayout.FontSpec{Family: t.Font, SizePt: t.FontSize, Weight: weight},
		Align:      textlayout.Align(t.TextAlign),
		LineHeight: t.LineHeight,
		MaxWidth:   float64(wrap),
		Color:      col,
	}
}

func fontProvider() textlayout.Provider { return textlayout.OTProvider{Lib: Fonts} }

// NewTextLayer lays out t and returns a detached text layer sized to the
// laid out block.
func NewTextLayer(name string, t Text) (*Layer, error) {
	nt, err := t.normalized()
	if err != nil {
		return nil, err
	}
	l := newLayer(KindText, name)
	l.text = &nt
	if err := l.relayout(); err != nil {
		return nil, err
	}
	return l, nil
}

// Text returns a copy of the text payload, or nil for other kinds.
func (l *Layer) Text() *Text {
	if l.text == nil {
		return nil
	}
	t := *l.text
	return &t
}

// wrapWidth is the explicit MaxWidth, else the owning document's width,
// else DetachedTextWidth.
func (l *Layer) wrapWidth() int {
	switch {
	case l.text.MaxWidth > 0:
		return l.text.MaxWidth
	case l.docW > 0:
		return l.docW
	}
	return DetachedTextWidth
}

// relayout refreshes the natural and cached size of a text layer.
func (l *Layer) relayout() error {
	if l.kind != KindText {
		return nil
	}
	fr, err := textlayout.Lay(fontProvider(), l.text.block(l.wrapWidth()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	l.natW, l.natH = fr.Width, fr.Height
	l.refreshGeometry()
	return nil
}

// bindWidth records the width of the owning document (0 when detached).
func (l *Layer) bindWidth(docW int) {
	if l.kind == KindClippingMask {
		l.docW = docW
		l.mask.bindWidth(docW)
		l.src.bindWidth(docW)
		return
	}
	if l.docW == docW {
		return
	}
	l.docW = docW
	if l.kind == KindText && l.text.MaxWidth == 0 {
		_ = l.relayout()
	}
}

func (l *Layer) updateText(fn func(t *Text)) error {
	if l.kind != KindText {
		return fmt.Errorf("%w: %s layer has no text", ErrUnsupported, l.kind)
	}
	next := *l.text
	fn(&next)
	nt, err := next.normalized()
	if err != nil {
		return err
	}
	prev := l.text
	l.text = &nt
	if err := l.relayout(); err != nil {
		l.text = prev
		return err
	}
	return nil
}

func (l *Layer) SetText(s string) error        { return l.updateText(func(t *Text) { t.Text = s }) }
func (l *Layer) SetFont(family string) error   { return l.updateText(func(t *Text) { t.Font = family }) }
func (l *Layer) SetFontWeight(w string) error  { return l.updateText(func(t *Text) { t.FontWeight = w }) }
func (l *Layer) SetTextAlign(a string) error   { return l.updateText(func(t *Text) { t.TextAlign = a }) }
func (l *Layer) SetLineHeight(h float64) error { return l.updateText(func(t *Text) { t.LineHeight = h }) }
func (l *Layer) SetMaxWidth(px int) error      { return l.updateText(func(t *Text) { t.MaxWidth = px }) }

// SetFontSize changes the font size; it must be positive.
func (l *Layer) SetFontSize(size float64) error {
	if size <= 0 {
		return fmt.Errorf("%w: font size %v", ErrInvalidArgument, size)
	}
	return l.updateText(func(t *Text) { t.FontSize = size })
}

// SetColor accepts any colour representation understood by colors.Normalize.
func (l *Layer) SetColor(c any) error {
	hex, err := colors.Normalize(c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return l.updateText(func(t *Text) { t.Color = hex })
}

// Shape is the payload of polygon and ellipse layers. Empty Fill or
// Stroke means none. Sides only applies to polygons.
type Shape struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
	Sides       int
}

func (s Shape) normalized() (Shape, error) {
	if s.StrokeWidth < 0 || s.Sides < 0 {
		return s, fmt.Errorf("%w: stroke width and sides must not be negative", ErrInvalidArgument)
	}
	var err error
	if s.Fill, err = normColor(s.Fill); err != nil {
		return s, err
	}
	if s.Stroke, err = normColor(s.Stroke); err != nil {
		return s, err
	}
	return s, nil
}

func (s Shape) style() vector.Style {
	return vector.Style{Fill: s.Fill, Stroke: s.Stroke, StrokeWidth: s.StrokeWidth}
}

func normColor(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok && s == "" {
		return "", nil
	}
	hex, err := colors.Normalize(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return hex, nil
}

// NewPolygonLayer returns a regular polygon inscribed in a width×height box.
func NewPolygonLayer(name string, width, height int, s Shape) (*Layer, error) {
	return newShapeLayer(KindPolygon, name, width, height, s)
}

// NewEllipseLayer returns an ellipse filling a width×height box.
func NewEllipseLayer(name string, width, height int, s Shape) (*Layer, error) {
	s.Sides = 0
	return newShapeLayer(KindEllipse, name, width, height, s)
}

func newShapeLayer(kind Kind, name string, width, height int, s Shape) (*Layer, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: shape size %dx%d", ErrInvalidArgument, width, height)
	}
	ns, err := s.normalized()
	if err != nil {
		return nil, err
	}
	l := newLayer(kind, name)
	l.shape = &ns
	l.natW, l.natH = width, height
	l.width, l.height = width, height
	return l, nil
}

// Shape returns a copy of the shape payload, or nil for other kinds.
func (l *Layer) Shape() *Shape {
	if l.shape == nil {
		return nil
	}
	s := *l.shape
	return &s
}

func (l *Layer) updateShape(fn func(s *Shape)) error {
	if l.shape == nil {
		return fmt.Errorf("%w: %s layer has no shape", ErrUnsupported, l.kind)
	}
	next := *l.shape
	fn(&next)
	ns, err := next.normalized()
	if err != nil {
		return err
	}
	l.shape = &ns
	return nil
}

// SetFill sets the fill colour; nil or "" removes it.
func (l *Layer) SetFill(c any) error {
	hex, err := normColor(c)
	if err != nil {
		return err
	}
	return l.updateShape(func(s *Shape) { s.Fill = hex })
}

// SetStroke sets the stroke colour; nil or "" removes it.
func (l *Layer) SetStroke(c any) error {
	hex, err := normColor(c)
	if err != nil {
		return err
	}
	return l.updateShape(func(s *Shape) { s.Stroke = hex })
}

func (l *Layer) SetStrokeWidth(w float64) error {
	return l.updateShape(func(s *Shape) { s.StrokeWidth = w })
}

// SetSides changes the polygon side count. Zero is accepted and renders
// nothing.
func (l *Layer) SetSides(n int) error {
	if l.kind != KindPolygon {
		return fmt.Errorf("%w: sides on %s layer", ErrUnsupported, l.kind)
	}
	return l.updateShape(func(s *Shape) { s.Sides = n })
}

// SetSize changes the authoritative size of a shape layer. Queued
// rotate/resize edits are re-applied to the cached bounding box.
func (l *Layer) SetSize(width, height int) error {
	if l.shape == nil {
		return fmt.Errorf("%w: %s layer size is derived", ErrUnsupported, l.kind)
	}
	if width < 0 || height < 0 {
		return fmt.Errorf("%w: shape size %dx%d", ErrInvalidArgument, width, height)
	}
	l.natW, l.natH = width, height
	l.refreshGeometry()
	return nil
}
