/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"layerkit/internal/raster"
)

// Selector picks a layer for Merge by identity, name or stack index.
type Selector struct {
	layer *Layer
	name  string
	index int
	by    selectBy
}

type selectBy uint8

const (
	selectLayer selectBy = iota
	selectName
	selectIndex
)

func ByLayer(l *Layer) Selector   { return Selector{layer: l, by: selectLayer} }
func ByName(name string) Selector { return Selector{name: name, by: selectName} }
func ByIndex(i int) Selector      { return Selector{index: i, by: selectIndex} }

func (s Selector) String() string {
	switch s.by {
	case selectName:
		return fmt.Sprintf("name %q", s.name)
	case selectIndex:
		return fmt.Sprintf("index %d", s.index)
	}
	if s.layer == nil {
		return "layer <nil>"
	}
	return fmt.Sprintf("layer %q", s.layer.Name)
}

// MergeOptions controls Merge.
type MergeOptions struct {
	// Copy keeps the selected layers in the stack.
	Copy bool
	// Name of the merged layer, "merged" when empty.
	Name   string
	Render RenderOptions
}

// resolve maps selectors to distinct stack positions in ascending order.
// Name selectors match the lowest layer with that name.
func (d *Document) resolve(sel []Selector) ([]int, error) {
	if len(sel) == 0 {
		all := make([]int, len(d.layers))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	var pos []int
	for i, s := range sel {
		p := -1
		switch s.by {
		case selectLayer:
			if s.layer == nil {
				return nil, fmt.Errorf("%w: selector %d: nil layer", ErrResolution, i)
			}
			if !s.layer.Attached() {
				return nil, fmt.Errorf("%w: selector %d: %s", ErrNotAttached, i, s)
			}
			p = d.Position(s.layer)
		case selectName:
			p = slices.IndexFunc(d.layers, func(l *Layer) bool { return l.Name == s.name })
		case selectIndex:
			if s.index >= 0 && s.index < len(d.layers) {
				p = s.index
			}
		}
		if p < 0 {
			return nil, fmt.Errorf("%w: selector %d: %s is not in document %q", ErrResolution, i, s, d.Name)
		}
		if j := slices.Index(pos, p); j >= 0 {
			return nil, fmt.Errorf("%w: selector %d: %s repeats selector %d", ErrResolution, i, s, j)
		}
		pos = append(pos, p)
	}
	slices.Sort(pos)
	return pos, nil
}

// Merge flattens the selected layers (all layers when sel is empty) into
// one image layer the size of the canvas. The result is inserted directly
// above the highest selected layer; the selected layers are then removed
// unless opt.Copy is set.
func (d *Document) Merge(ctx context.Context, sel []Selector, opt MergeOptions) (*Layer, error) {
	pos, err := d.resolve(sel)
	if err != nil {
		return nil, err
	}
	if len(pos) == 0 {
		return nil, fmt.Errorf("%w: nothing to merge", ErrInvalidArgument)
	}
	picked := make([]*Layer, len(pos))
	for i, p := range pos {
		picked[i] = d.layers[p]
	}
	img, err := d.flatten(ctx, picked, opt.Render)
	if err != nil {
		return nil, err
	}
	data, err := raster.EncodeBytes(img, raster.PNG, raster.EncodeOptions{})
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	name := opt.Name
	if name == "" {
		name = "merged"
	}
	merged := newFlatLayer(name, data, d.width, d.height)
	d.attach(merged, pos[len(pos)-1]+1)
	if !opt.Copy {
		for _, l := range picked {
			d.detach(l)
		}
	}
	d.record("document.merge", slog.Int("layers", len(picked)), slog.Bool("copy", opt.Copy), slog.Int("position", d.Position(merged)))
	return merged, nil
}

// flatten renders layers concurrently and composites them bottom to top
// onto a transparent canvas. Off-canvas parts are cropped and layers
// entirely outside the canvas contribute nothing.
func (d *Document) flatten(ctx context.Context, layers []*Layer, opt RenderOptions) (*image.NRGBA, error) {
	frames := make([]*image.NRGBA, len(layers))
	logs := make([]renderLog, len(layers))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range layers {
		g.Go(func() error {
			img, err := render(gctx, l, opt, &logs[i])
			if err != nil {
				return fmt.Errorf("render %q: %w", l.Name, err)
			}
			frames[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Recorders are not required to be safe for concurrent use.
	for _, ev := range logs {
		ev.emit()
	}
	canvas := raster.Blank(d.width, d.height)
	for i, l := range layers {
		if !raster.Composite(canvas, frames[i], image.Pt(l.left, l.top), l.blend) {
			d.record("layer.skip", slog.String("layer", l.Name), slog.String("reason", "off canvas"))
		}
	}
	return canvas, nil
}
