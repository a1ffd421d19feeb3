/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pack

import (
	"encoding/json"

	"layerkit/internal/compose"
)

// layerMeta is one record of data/data.json. Variant fields are only
// present for their layer type.
type layerMeta struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Left      int        `json:"left"`
	Top       int        `json:"top"`
	Edits     []editMeta `json:"edits"`
	Opacity   int        `json:"opacity"`
	BlendMode string     `json:"blendMode"`

	InputImageID int `json:"inputImageID,omitempty"`

	Text       *string `json:"text,omitempty"`
	Font       string  `json:"font,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"`
	TextAlign  string  `json:"textAlign,omitempty"`
	Color      string  `json:"color,omitempty"`
	LineHeight float64 `json:"lineHeight,omitempty"`
	MaxWidth   *int    `json:"maxWidth,omitempty"`

	Width       *int    `json:"width,omitempty"`
	Height      *int    `json:"height,omitempty"`
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Sides       *int    `json:"sides,omitempty"`

	Mask   *layerMeta `json:"mask,omitempty"`
	Source *layerMeta `json:"source,omitempty"`
}

type documentMeta struct {
	Name   string       `json:"name"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Layers []*layerMeta `json:"layers"`
}

// editMeta carries the tag and parameters of one queued edit. Resize
// always writes both dimensions, null standing for an unscaled axis.
type editMeta struct {
	Type      string   `json:"type"`
	Degrees   *float64 `json:"degrees,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
	Sigma     *float64 `json:"sigma,omitempty"`
	Width     *int     `json:"width,omitempty"`
	Height    *int     `json:"height,omitempty"`
	Direction string   `json:"direction,omitempty"`
}

func (e editMeta) MarshalJSON() ([]byte, error) {
	type plain editMeta
	if e.Type != string(compose.EditResize) {
		return json.Marshal(plain(e))
	}
	return json.Marshal(struct {
		Type   string `json:"type"`
		Width  *int   `json:"width"`
		Height *int   `json:"height"`
	}{e.Type, e.Width, e.Height})
}

func editToMeta(e compose.Edit) editMeta {
	m := editMeta{Type: string(e.Type)}
	switch e.Type {
	case compose.EditRotate, compose.EditHue:
		m.Degrees = &e.Degrees
	case compose.EditSaturation, compose.EditBrightness:
		m.Amount = &e.Amount
	case compose.EditBlur:
		m.Sigma = &e.Sigma
	case compose.EditResize:
		m.Width, m.Height = e.Width, e.Height
	case compose.EditReflect:
		m.Direction = string(e.Direction)
	}
	return m
}

// replay re-invokes the edit operation described by m on l.
func replay(l *compose.Layer, m editMeta) error {
	var err error
	f := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}
	ext := func(p *int) compose.Extent {
		if p == nil {
			return compose.Keep()
		}
		return compose.Px(*p)
	}
	switch compose.EditType(m.Type) {
	case compose.EditRotate:
		_, err = l.Rotate(f(m.Degrees))
	case compose.EditResize:
		_, err = l.Resize(ext(m.Width), ext(m.Height))
	case compose.EditReflect:
		_, err = l.Reflect(compose.Direction(m.Direction))
	case compose.EditHue:
		_, err = l.Hue(f(m.Degrees))
	case compose.EditSaturation:
		_, err = l.Saturation(f(m.Amount))
	case compose.EditBrightness:
		_, err = l.Brightness(f(m.Amount))
	case compose.EditInvert:
		l.Invert()
	case compose.EditBlur:
		_, err = l.Blur(f(m.Sigma))
	default:
		return errUnknownEdit
	}
	return err
}
