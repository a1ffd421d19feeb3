/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"errors"
	"fmt"

	"layerkit/internal/colors"
)

// Style is the paint applied to a shape outline. Fill and Stroke hold
// canonical hex colors; empty means "none".
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
}

// NewStyle normalizes fill and stroke (nil leaves them unset) and validates the width.
func NewStyle(fill, stroke any, strokeWidth float64) (Style, error) {
	var s Style
	if strokeWidth < 0 {
		return s, errors.New("stroke width must not be negative")
	}
	s.StrokeWidth = strokeWidth
	if fill != nil {
		hex, err := colors.Normalize(fill)
		if err != nil {
			return s, fmt.Errorf("fill: %w", err)
		}
		s.Fill = hex
	}
	if stroke != nil {
		hex, err := colors.Normalize(stroke)
		if err != nil {
			return s, fmt.Errorf("stroke: %w", err)
		}
		s.Stroke = hex
	}
	return s, nil
}

// stroked reports whether the outline gets a visible stroke.
func (s Style) stroked() bool { return s.Stroke != "" && s.StrokeWidth > 0 }
