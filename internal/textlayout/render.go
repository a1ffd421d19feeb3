/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"errors"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Align positions each line inside the block width.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Block is a paragraph of single-style text.
type Block struct {
	Text       string
	Font       FontSpec
	Align      Align
	LineHeight float64 // multiple of the font size, default 1.2
	MaxWidth   float64 // wrap width in px, 0 disables wrapping
	Color      color.Color
}

// Frame is a laid out block ready to draw.
type Frame struct {
	Box    TextBox
	Width  int
	Height int
	lineH  float64
}

func (b Block) lineHeight() float64 {
	lh := b.LineHeight
	if lh <= 0 {
		lh = 1.2
	}
	size := b.Font.SizePt
	if size <= 0 {
		size = 12
	}
	return lh * size
}

// Lay wraps the block and computes its pixel size: the widest line by
// the line count times the line height.
func Lay(p Provider, b Block) (Frame, error) {
	if b.LineHeight < 0 || b.MaxWidth < 0 || b.Font.SizePt < 0 {
		return Frame{}, errors.New("text metrics must not be negative")
	}
	box, err := NewWordWrap(p).Layout([]Span{{Text: b.Text, Font: b.Font}}, b.MaxWidth)
	if err != nil {
		return Frame{}, err
	}
	lh := b.lineHeight()
	return Frame{
		Box:    box,
		Width:  max(int(math.Ceil(box.Width)), 1),
		Height: max(int(math.Ceil(lh*float64(len(box.Lines)))), 1),
		lineH:  lh,
	}, nil
}

// Draw lays out the block and paints it onto a transparent canvas.
func Draw(p Provider, b Block) (*image.NRGBA, error) {
	fr, err := Lay(p, b)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = BasicProvider{}
	}
	col := b.Color
	if col == nil {
		col = color.Black
	}
	rgba := image.NewRGBA(image.Rect(0, 0, fr.Width, fr.Height))
	face, met := p.Resolve(b.Font)
	d := &font.Drawer{Dst: rgba, Src: image.NewUniform(col), Face: face}
	// centre the glyph box vertically inside each line slot
	pad := (fr.lineH - (met.Ascent + met.Descent)) / 2
	for i, ln := range fr.Box.Lines {
		x := 0.0
		switch b.Align {
		case AlignCenter:
			x = (float64(fr.Width) - ln.Width) / 2
		case AlignRight:
			x = float64(fr.Width) - ln.Width
		}
		y := float64(i)*fr.lineH + pad + met.Ascent
		d.Dot = fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
		d.DrawString(ln.Text())
	}
	out := image.NewNRGBA(rgba.Rect)
	for i := 0; i < len(rgba.Pix); i += 4 {
		a := rgba.Pix[i+3]
		if a == 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			out.Pix[i+c] = uint8(uint32(rgba.Pix[i+c]) * 255 / uint32(a))
		}
		out.Pix[i+3] = a
	}
	return out, nil
}
