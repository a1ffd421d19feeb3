/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontLibrary stores loaded OpenType fonts mapped by family/weight/italic.
// Family lookups are case-insensitive. It is safe for concurrent use.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[fontKey]*opentype.Font
}

type fontKey struct {
	family string
	weight int
	italic bool
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]*opentype.Font)} }

// LoadTTF loads a font file into the library under the given family/weight/italic.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	if err := fl.Add(family, weight, italic, data); err != nil {
		return fmt.Errorf("parse font %s: %w", path, err)
	}
	return nil
}

// Add parses font data and registers it.
func (fl *FontLibrary) Add(family string, weight int, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return err
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	fl.fonts[fontKey{family: strings.ToLower(family), weight: weight, italic: italic}] = f
	return nil
}

func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	fam := strings.ToLower(spec.Family)
	if f, ok := fl.fonts[fontKey{family: fam, weight: spec.Weight, italic: spec.Italic}]; ok {
		return f
	}
	// same family, closest weight
	var best *opentype.Font
	bestDist := -1
	for k, f := range fl.fonts {
		if k.family != fam {
			continue
		}
		d := abs(k.weight - spec.Weight)
		if bestDist < 0 || d < bestDist {
			best, bestDist = f, d
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var (
	goOnce    sync.Once
	goRegular *opentype.Font
	goBold    *opentype.Font
)

func goFonts() (*opentype.Font, *opentype.Font) {
	goOnce.Do(func() {
		goRegular, _ = opentype.Parse(goregular.TTF)
		goBold, _ = opentype.Parse(gobold.TTF)
	})
	return goRegular, goBold
}

// OTProvider resolves FontSpec using a FontLibrary. Unknown families
// fall back to the bundled Go fonts, then to Fallback.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 72 if zero
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	f := p.Lib.find(spec)
	if f == nil {
		reg, bold := goFonts()
		f = reg
		if spec.Weight >= 600 {
			f = bold
		}
	}
	if f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.SizePt, DPI: dpi, Hinting: font.HintingFull})
		if err == nil {
			return face, faceMetrics(face)
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}

func faceMetrics(face font.Face) Metrics {
	m := face.Metrics()
	return Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}
