/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package raster

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

func readIcon(markup string) (*oksvg.SvgIcon, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(markup), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: svg: %v", ErrDecode, err)
	}
	return icon, nil
}

// SVGSize returns the intrinsic pixel size of the markup's view box.
func SVGSize(markup string) (int, int, error) {
	icon, err := readIcon(markup)
	if err != nil {
		return 0, 0, err
	}
	w, h := int(math.Round(icon.ViewBox.W)), int(math.Round(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: svg has no usable view box", ErrDecode)
	}
	return w, h, nil
}

// RasterizeSVG draws markup into a w×h canvas. A zero dimension falls
// back to the view box size.
func RasterizeSVG(markup string, w, h int) (*image.NRGBA, error) {
	icon, err := readIcon(markup)
	if err != nil {
		return nil, err
	}
	if w <= 0 {
		w = int(math.Round(icon.ViewBox.W))
	}
	if h <= 0 {
		h = int(math.Round(icon.ViewBox.H))
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: svg has no usable view box", ErrDecode)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return NRGBA(rgba), nil
}
