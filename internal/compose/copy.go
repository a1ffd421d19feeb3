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

	"github.com/jinzhu/copier"
)

// Duplicate returns a detached deep copy of the layer: geometry, edit
// queue, opacity, blend mode, payload and sub-layers. An empty name keeps
// the original name.
func (l *Layer) Duplicate(name string) (*Layer, error) {
	dup := &Layer{Name: l.Name, kind: l.kind}
	dup.left, dup.top = l.left, l.top
	dup.width, dup.height = l.width, l.height
	dup.natW, dup.natH = l.natW, l.natH
	dup.opacity, dup.blend = l.opacity, l.blend
	dup.edits = l.Edits()
	dup.lastID = l.lastID
	dup.rec = l.rec
	if err := l.copyPayload(dup); err != nil {
		return nil, err
	}
	if l.kind == KindClippingMask {
		var err error
		if dup.mask, err = l.mask.Duplicate(""); err != nil {
			return nil, err
		}
		if dup.src, err = l.src.Duplicate(""); err != nil {
			return nil, err
		}
	}
	if name != "" {
		dup.Name = name
	}
	dup.owner, dup.docW = 0, 0
	if dup.kind == KindText && dup.text.MaxWidth == 0 && l.docW != 0 {
		if err := dup.relayout(); err != nil {
			return nil, err
		}
	}
	return dup, nil
}

// copyPayload deep-copies the variant payload; copier only reaches
// exported fields, so the unexported payload pointers are handled here.
func (l *Layer) copyPayload(dup *Layer) error {
	opt := copier.Option{DeepCopy: true}
	switch {
	case l.source != nil:
		dup.source = &Source{}
		if err := copier.CopyWithOption(dup.source, l.source, opt); err != nil {
			return fmt.Errorf("duplicate source: %w", err)
		}
	case l.text != nil:
		dup.text = &Text{}
		if err := copier.CopyWithOption(dup.text, l.text, opt); err != nil {
			return fmt.Errorf("duplicate text: %w", err)
		}
	case l.shape != nil:
		dup.shape = &Shape{}
		if err := copier.CopyWithOption(dup.shape, l.shape, opt); err != nil {
			return fmt.Errorf("duplicate shape: %w", err)
		}
	}
	return nil
}

// CircularMask wraps a detached layer in a clipping mask whose mask is an
// opaque ellipse covering the layer's current bounding box.
func (l *Layer) CircularMask(name string) (*Layer, error) {
	if err := l.requireSize("circular mask"); err != nil {
		return nil, err
	}
	if l.Attached() {
		return nil, fmt.Errorf("%w: layer %q is attached, use Document.CircularMask", ErrInvalidArgument, l.Name)
	}
	return circularMask(name, l)
}

func circularMask(name string, src *Layer) (*Layer, error) {
	ell, err := NewEllipseLayer(name+" mask", src.width, src.height, Shape{Fill: "#ffffff"})
	if err != nil {
		return nil, err
	}
	ell.left, ell.top = src.left, src.top
	m, err := NewClippingMask(name, ell, src)
	if err != nil {
		return nil, err
	}
	m.rec = src.rec
	return m, nil
}
