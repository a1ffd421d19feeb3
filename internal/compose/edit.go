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
	"log/slog"
	"math"

	"layerkit/internal/vector"
)

// EditType tags a queued edit.
type EditType string

const (
	EditRotate     EditType = "rotate"
	EditResize     EditType = "resize"
	EditReflect    EditType = "reflect"
	EditHue        EditType = "hue"
	EditSaturation EditType = "saturation"
	EditBrightness EditType = "brightness"
	EditInvert     EditType = "invert"
	EditBlur       EditType = "blur"
)

// Direction is the mirror axis of a reflect edit.
type Direction string

const (
	Vertical   Direction = "vertical"
	Horizontal Direction = "horizontal"
)

// Edit is one deferred transform. Only the fields of its Type are set:
// Degrees for rotate and hue, Amount for saturation and brightness,
// Sigma for blur, Width/Height for resize (nil keeps that axis) and
// Direction for reflect.
type Edit struct {
	ID        int
	Type      EditType
	Degrees   float64
	Amount    float64
	Sigma     float64
	Width     *int
	Height    *int
	Direction Direction
}

func (e Edit) clone() Edit {
	if e.Width != nil {
		w := *e.Width
		e.Width = &w
	}
	if e.Height != nil {
		h := *e.Height
		e.Height = &h
	}
	return e
}

// Edits returns a copy of the queue in application order.
func (l *Layer) Edits() []Edit {
	out := make([]Edit, len(l.edits))
	for i, e := range l.edits {
		out[i] = e.clone()
	}
	return out
}

func (l *Layer) push(e Edit) int {
	l.lastID++
	e.ID = l.lastID
	l.edits = append(l.edits, e)
	l.record("layer.edit", slog.String("type", string(e.Type)), slog.Int("id", e.ID))
	return e.ID
}

// RemoveEdit drops the queued edit with the given id. The cached bounding
// box is not recomputed.
func (l *Layer) RemoveEdit(id int) bool {
	for i, e := range l.edits {
		if e.ID == id {
			l.edits = append(l.edits[:i:i], l.edits[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Layer) requireSize(op string) error {
	if !l.kind.TracksSize() {
		return fmt.Errorf("%w: %s on %s layer", ErrUnsupported, op, l.kind)
	}
	return nil
}

// Rotate queues a clockwise rotation and grows the cached bounding box.
func (l *Layer) Rotate(degrees float64) (int, error) {
	if err := l.requireSize("rotate"); err != nil {
		return 0, err
	}
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return 0, fmt.Errorf("%w: rotation %v", ErrInvalidArgument, degrees)
	}
	l.width, l.height = vector.RotatedBounds(l.width, l.height, degrees)
	return l.push(Edit{Type: EditRotate, Degrees: degrees}), nil
}

// Extent is one dimension of a resize: omitted (the zero value) scales
// proportionally to the other dimension, Keep leaves the axis unscaled
// and Px sets it.
type Extent struct {
	set  bool
	keep bool
	px   int
}

// Keep leaves the axis at its current size.
func Keep() Extent { return Extent{set: true, keep: true} }

// Px sets the axis to n pixels.
func Px(n int) Extent { return Extent{set: true, px: n} }

// Resize queues a resize. Passing one dimension and omitting the other
// keeps the pre-resize aspect ratio.
func (l *Layer) Resize(width, height Extent) (int, error) {
	if err := l.requireSize("resize"); err != nil {
		return 0, err
	}
	if !width.set && !height.set {
		return 0, fmt.Errorf("%w: resize needs a width or a height", ErrInvalidArgument)
	}
	if (width.set && !width.keep && width.px < 0) || (height.set && !height.keep && height.px < 0) {
		return 0, fmt.Errorf("%w: negative resize", ErrInvalidArgument)
	}
	var w, h *int
	if width.set && !width.keep {
		w = &width.px
	}
	if height.set && !height.keep {
		h = &height.px
	}
	switch {
	case w != nil && !height.set:
		v := l.height
		if l.width > 0 {
			v = int(math.Round(float64(width.px) * float64(l.height) / float64(l.width)))
		}
		h = &v
	case h != nil && !width.set:
		v := l.width
		if l.height > 0 {
			v = int(math.Round(float64(height.px) * float64(l.width) / float64(l.height)))
		}
		w = &v
	}
	if w != nil {
		l.width = *w
	}
	if h != nil {
		l.height = *h
	}
	return l.push(Edit{Type: EditResize, Width: w, Height: h}), nil
}

// ResizeBy resizes relative to the current size: percentages when scale
// is set, pixel deltas otherwise. A nil argument is omitted.
func (l *Layer) ResizeBy(width, height *float64, scale bool) (int, error) {
	target := func(d *float64, cur int) Extent {
		if d == nil {
			return Extent{}
		}
		if scale {
			return Px(int(math.Round(float64(cur) * *d / 100)))
		}
		return Px(cur + int(math.Round(*d)))
	}
	return l.Resize(target(width, l.width), target(height, l.height))
}

// Reflect queues a mirror along the given axis.
func (l *Layer) Reflect(dir Direction) (int, error) {
	if dir != Vertical && dir != Horizontal {
		return 0, fmt.Errorf("%w: reflect direction %q", ErrInvalidArgument, string(dir))
	}
	return l.push(Edit{Type: EditReflect, Direction: dir}), nil
}

// Hue queues a hue rotation. Multiples of 360 are a no-op and return id 0.
func (l *Layer) Hue(degrees float64) (int, error) {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return 0, fmt.Errorf("%w: hue %v", ErrInvalidArgument, degrees)
	}
	if math.Mod(degrees, 360) == 0 {
		return 0, nil
	}
	return l.push(Edit{Type: EditHue, Degrees: degrees}), nil
}

// Saturation queues a saturation change in percent. 100 is a no-op.
func (l *Layer) Saturation(amount float64) (int, error) {
	return l.modulate(EditSaturation, amount)
}

// Brightness queues a brightness change in percent. 100 is a no-op.
func (l *Layer) Brightness(amount float64) (int, error) {
	return l.modulate(EditBrightness, amount)
}

func (l *Layer) modulate(t EditType, amount float64) (int, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: %s %v", ErrInvalidArgument, t, amount)
	}
	if amount == 100 {
		return 0, nil
	}
	return l.push(Edit{Type: t, Amount: amount}), nil
}

// Invert queues a colour negation. Repeated inverts are all kept.
func (l *Layer) Invert() int { return l.push(Edit{Type: EditInvert}) }

// Blur queues a gaussian blur.
func (l *Layer) Blur(sigma float64) (int, error) {
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return 0, fmt.Errorf("%w: blur sigma %v", ErrInvalidArgument, sigma)
	}
	return l.push(Edit{Type: EditBlur, Sigma: sigma}), nil
}

// refreshGeometry recomputes the cached size from the natural size and
// the queued rotate/resize edits.
func (l *Layer) refreshGeometry() {
	w, h := l.natW, l.natH
	for _, e := range l.edits {
		switch e.Type {
		case EditRotate:
			w, h = vector.RotatedBounds(w, h, e.Degrees)
		case EditResize:
			if e.Width != nil {
				w = *e.Width
			}
			if e.Height != nil {
				h = *e.Height
			}
		}
	}
	l.width, l.height = w, h
}
