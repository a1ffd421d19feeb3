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
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layerkit/internal/log"
	"layerkit/internal/raster"
)

func TestStackOrdering(t *testing.T) {
	a := imageLayer(t, "A", 2, 2, color.NRGBA{A: 255})
	b := imageLayer(t, "B", 2, 2, color.NRGBA{A: 255})
	c := imageLayer(t, "C", 2, 2, color.NRGBA{A: 255})
	d := newDoc(t, 10, 10, a, b, c)

	require.NoError(t, d.Move(b, 0, false))
	assert.Equal(t, []string{"B", "A", "C"}, names(d))

	require.NoError(t, d.Remove(c))
	assert.Equal(t, []string{"B", "A"}, names(d))
	assert.Equal(t, -1, d.Position(c))
	assert.False(t, c.Attached())

	assert.ErrorIs(t, d.Remove(c), ErrNotAttached)
	assert.ErrorIs(t, d.Move(c, 0, false), ErrNotAttached)
	assert.ErrorIs(t, d.Align(c, AlignOptions{}), ErrNotAttached)
}

func TestMoveRelativeAndClamped(t *testing.T) {
	a := imageLayer(t, "A", 2, 2, color.NRGBA{A: 255})
	b := imageLayer(t, "B", 2, 2, color.NRGBA{A: 255})
	c := imageLayer(t, "C", 2, 2, color.NRGBA{A: 255})
	d := newDoc(t, 10, 10, a, b, c)

	require.NoError(t, d.Move(a, 1, true))
	assert.Equal(t, []string{"B", "A", "C"}, names(d))
	require.NoError(t, d.Move(a, 99, false))
	assert.Equal(t, []string{"B", "C", "A"}, names(d))
	require.NoError(t, d.Move(a, -10, true))
	assert.Equal(t, []string{"A", "B", "C"}, names(d))
}

func TestLayerBelongsToOneDocument(t *testing.T) {
	a := imageLayer(t, "A", 2, 2, color.NRGBA{A: 255})
	d1 := newDoc(t, 10, 10, a)
	d2 := newDoc(t, 10, 10)

	assert.ErrorIs(t, d2.Add(a), ErrInvalidArgument)
	assert.ErrorIs(t, d2.Remove(a), ErrNotAttached)
	assert.Equal(t, -1, d2.Position(a))
	assert.Equal(t, 0, d1.Position(a))

	require.NoError(t, d1.Remove(a))
	require.NoError(t, d2.Add(a))
	assert.Equal(t, 0, d2.Position(a))
}

func TestMergeDestructive(t *testing.T) {
	a := imageLayer(t, "A", 2, 2, color.NRGBA{R: 255, A: 255})
	b := imageLayer(t, "B", 2, 2, color.NRGBA{G: 255, A: 255})
	c := imageLayer(t, "C", 2, 2, color.NRGBA{B: 255, A: 255})
	c.Translate(5, 5)
	d := newDoc(t, 10, 10, a, b, c)

	m, err := d.Merge(context.Background(), []Selector{ByLayer(a), ByLayer(b)}, MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"merged", "C"}, names(d))
	assert.False(t, a.Attached())
	assert.False(t, b.Attached())
	assert.Equal(t, 10, m.Width())
	assert.Equal(t, 10, m.Height())
}

func TestMergeCopy(t *testing.T) {
	a := imageLayer(t, "A", 2, 2, color.NRGBA{R: 255, A: 255})
	b := imageLayer(t, "B", 2, 2, color.NRGBA{G: 255, A: 255})
	c := imageLayer(t, "C", 2, 2, color.NRGBA{B: 255, A: 255})
	d := newDoc(t, 10, 10, a, b, c)

	m, err := d.Merge(context.Background(), []Selector{ByName("B"), ByIndex(0)}, MergeOptions{Copy: true, Name: "AB"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "AB", "C"}, names(d))
	assert.Equal(t, 2, d.Position(m))
}

func TestMergeCompositesInStackOrder(t *testing.T) {
	bottom := imageLayer(t, "bottom", 4, 4, color.NRGBA{R: 255, A: 255})
	top := imageLayer(t, "top", 2, 2, color.NRGBA{G: 255, A: 255})
	top.Translate(2, 2)
	off := imageLayer(t, "off", 2, 2, color.NRGBA{B: 255, A: 255})
	off.Translate(100, 100)
	partly := imageLayer(t, "partly", 4, 4, color.NRGBA{R: 255, G: 255, A: 255})
	partly.Translate(-3, -3)
	d := newDoc(t, 4, 4, bottom, top, off, partly)

	m, err := d.Merge(context.Background(), nil, MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())

	img, err := Render(context.Background(), m, RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.NRGBAAt(3, 3))
}

func TestMergeBlendAndOpacity(t *testing.T) {
	bg := imageLayer(t, "bg", 2, 2, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	fg := imageLayer(t, "fg", 2, 2, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
	require.NoError(t, fg.SetOpacity(50))
	d := newDoc(t, 2, 2, bg, fg)

	m, err := d.Merge(context.Background(), nil, MergeOptions{})
	require.NoError(t, err)
	img, err := Render(context.Background(), m, RenderOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 100, int(img.NRGBAAt(0, 0).R), 2)

	white := imageLayer(t, "w", 2, 2, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	mul := imageLayer(t, "m", 2, 2, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	require.NoError(t, mul.SetBlendMode(raster.BlendMultiply))
	d2 := newDoc(t, 2, 2, white, mul)
	m2, err := d2.Merge(context.Background(), nil, MergeOptions{})
	require.NoError(t, err)
	img2, err := Render(context.Background(), m2, RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img2.NRGBAAt(1, 1))
}

func TestMergeResolutionErrors(t *testing.T) {
	a := imageLayer(t, "A", 2, 2, color.NRGBA{A: 255})
	d := newDoc(t, 10, 10, a)
	other := imageLayer(t, "X", 2, 2, color.NRGBA{A: 255})
	newDoc(t, 10, 10, other)
	loose := imageLayer(t, "L", 2, 2, color.NRGBA{A: 255})

	_, err := d.Merge(context.Background(), []Selector{ByName("nope")}, MergeOptions{})
	assert.ErrorIs(t, err, ErrResolution)
	assert.Contains(t, err.Error(), `name "nope"`)

	_, err = d.Merge(context.Background(), []Selector{ByLayer(a), ByIndex(7)}, MergeOptions{})
	assert.ErrorIs(t, err, ErrResolution)
	assert.Contains(t, err.Error(), "selector 1")

	_, err = d.Merge(context.Background(), []Selector{ByLayer(a), ByName("A")}, MergeOptions{})
	assert.ErrorIs(t, err, ErrResolution)
	assert.Contains(t, err.Error(), "selector 1")
	assert.Contains(t, err.Error(), "repeats selector 0")

	_, err = d.Merge(context.Background(), []Selector{ByLayer(other)}, MergeOptions{})
	assert.ErrorIs(t, err, ErrResolution)

	_, err = d.Merge(context.Background(), []Selector{ByLayer(loose)}, MergeOptions{})
	assert.ErrorIs(t, err, ErrNotAttached)

	empty := newDoc(t, 5, 5)
	_, err = empty.Merge(context.Background(), nil, MergeOptions{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, []string{"A"}, names(d), "failed merges leave the stack alone")
}

func TestCanvasResizeAnchors(t *testing.T) {
	a := imageLayer(t, "A", 2, 2, color.NRGBA{A: 255})
	b := imageLayer(t, "B", 2, 2, color.NRGBA{A: 255})
	b.Translate(10, 20)
	d := newDoc(t, 1920, 1080, a, b)

	require.NoError(t, d.Resize(CanvasResize{Width: 2500, Height: 1500, AnchorLeft: AnchorEnd, AnchorTop: AnchorEnd}))
	assert.Equal(t, 2500, d.Width())
	assert.Equal(t, 1500, d.Height())
	assert.Equal(t, 580, a.Left())
	assert.Equal(t, 420, a.Top())
	assert.Equal(t, 600, b.Left())
	assert.Equal(t, 430, b.Top())

	require.NoError(t, d.Resize(CanvasResize{Width: 2500, Height: 1500}))
	assert.Equal(t, 580, a.Left())

	require.NoError(t, d.Resize(CanvasResize{Width: 2600, AnchorLeft: AnchorStart, AnchorTop: AnchorStart}))
	assert.Equal(t, 580, a.Left())
	assert.Equal(t, 1500, d.Height())

	require.NoError(t, d.Resize(CanvasResize{Width: 2700}))
	assert.Equal(t, 630, a.Left())
	assert.Equal(t, 420, a.Top())
}

func TestAlign(t *testing.T) {
	l := imageLayer(t, "A", 100, 50, color.NRGBA{A: 255})
	d := newDoc(t, 1000, 500, l)

	require.NoError(t, d.Align(l, AlignOptions{}))
	assert.Equal(t, 450, l.Left())
	assert.Equal(t, 225, l.Top())

	require.NoError(t, d.Align(l, AlignOptions{Top: AnchorEnd, Left: AnchorStart, LeftOffset: 10, TopOffset: -10}))
	assert.Equal(t, 10, l.Left())
	assert.Equal(t, 440, l.Top())

	require.NoError(t, d.Align(l, AlignOptions{Top: AnchorStart, Left: AnchorStart, LeftOffset: 10, TopOffset: 20, Units: Percent}))
	assert.Equal(t, 100, l.Left())
	assert.Equal(t, 100, l.Top())

	assert.ErrorIs(t, d.Align(l, AlignOptions{Top: "middle"}), ErrInvalidArgument)
}

func TestAlignStartScenario(t *testing.T) {
	ctx := context.Background()
	bg := imageLayer(t, "background", 1920, 1080, color.NRGBA{A: 255})
	asset := quadPNG(t, 64, 32)
	pic, err := NewImageLayer(ctx, "picture", Source{Data: asset})
	require.NoError(t, err)
	pic.Translate(100, 100)
	d := newDoc(t, 1920, 1080, bg, pic)

	require.NoError(t, d.Align(pic, AlignOptions{Top: AnchorStart, Left: AnchorStart}))
	assert.Equal(t, 0, pic.Top())
	assert.Equal(t, 0, pic.Left())

	out, err := d.Export(ctx, ExportOptions{Format: "png"})
	require.NoError(t, err)
	assert.Equal(t, 1920, out.Width)
	assert.Equal(t, 1080, out.Height)
	flat := decodePNG(t, out.Data)
	src := decodePNG(t, asset)
	assert.Equal(t, src.NRGBAAt(0, 0), flat.NRGBAAt(0, 0))
	assert.Equal(t, src.NRGBAAt(63, 31), flat.NRGBAAt(63, 31))
	assert.Equal(t, color.NRGBA{A: 255}, flat.NRGBAAt(64, 0))
	assert.Equal(t, 2, d.Len(), "export leaves the stack alone")
}

func TestDocumentDuplicateAndRasterize(t *testing.T) {
	ctx := context.Background()
	a := imageLayer(t, "A", 4, 4, color.NRGBA{R: 255, A: 255})
	b := imageLayer(t, "B", 4, 4, color.NRGBA{A: 255})
	d := newDoc(t, 10, 10, a, b)

	dup, err := d.Duplicate(a, "A2")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A2", "B"}, names(d))
	assert.True(t, dup.Attached())

	_, err = d.DuplicateAt(b, "B0", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"B0", "A", "A2", "B"}, names(d))

	_, _ = a.Blur(1)
	flat, err := d.Rasterize(ctx, a, RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Position(flat))
	assert.False(t, a.Attached())
	assert.Empty(t, flat.Edits())
}

func TestDocumentCircularMask(t *testing.T) {
	a := imageLayer(t, "A", 4, 4, color.NRGBA{A: 255})
	b := imageLayer(t, "B", 4, 4, color.NRGBA{A: 255})
	d := newDoc(t, 10, 10, a, b)

	m, err := d.CircularMask(a, "round", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"round", "B"}, names(d))
	assert.Same(t, a, m.SourceLayer())
	assert.False(t, a.Attached())

	m2, err := d.CircularMask(b, "round b", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"round", "B", "round b"}, names(d))
	assert.NotSame(t, b, m2.SourceLayer())
	assert.True(t, b.Attached())

	_, err = d.CircularMask(m, "nested", false)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestTextLayerWrapsAtDocumentWidth(t *testing.T) {
	long := "lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor incididunt ut labore et dolore magna aliqua"
	l, err := NewTextLayer("t", Text{Text: long})
	require.NoError(t, err)
	txt := l.Text()
	assert.Equal(t, 24.0, txt.FontSize)
	assert.Equal(t, "#000000", txt.Color)
	assert.Equal(t, 1.2, txt.LineHeight)
	assert.LessOrEqual(t, l.Width(), DetachedTextWidth)
	detachedH := l.Height()

	d := newDoc(t, 2000, 500, l)
	assert.Less(t, l.Height(), detachedH, "wider document wraps into fewer lines")

	require.NoError(t, d.Remove(l))
	assert.Equal(t, detachedH, l.Height())

	require.NoError(t, l.SetMaxWidth(200))
	assert.LessOrEqual(t, l.Width(), 200)
	assert.ErrorIs(t, l.SetFontSize(0), ErrInvalidArgument)
	assert.ErrorIs(t, l.SetFontWeight("heavy"), ErrInvalidArgument)
	assert.ErrorIs(t, l.SetColor("not-a-colour"), ErrInvalidArgument)
	require.NoError(t, l.SetColor("red"))
	assert.Equal(t, "#ff0000", l.Text().Color)

	img, err := Render(context.Background(), l, RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, l.Width(), img.Rect.Dx())
	assert.Equal(t, l.Height(), img.Rect.Dy())
}

func TestShapeLayers(t *testing.T) {
	_, err := NewPolygonLayer("p", 10, 10, Shape{Sides: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewEllipseLayer("e", -1, 10, Shape{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewEllipseLayer("e", 10, 10, Shape{StrokeWidth: -2})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	p, err := NewPolygonLayer("p", 20, 20, Shape{Fill: "blue", Sides: 0})
	require.NoError(t, err)
	img, err := Render(context.Background(), p, RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), img.NRGBAAt(10, 10).A, "zero sides draws nothing")

	require.NoError(t, p.SetSides(4))
	assert.ErrorIs(t, p.SetSides(-1), ErrInvalidArgument)
	img, err = Render(context.Background(), p, RenderOptions{})
	require.NoError(t, err)
	c := img.NRGBAAt(10, 10)
	assert.Equal(t, uint8(255), c.B)
	assert.Equal(t, uint8(255), c.A)
	assert.Equal(t, "#0000ff", p.Shape().Fill)

	e, err := NewEllipseLayer("e", 30, 10, Shape{Fill: "#00ff00"})
	require.NoError(t, err)
	assert.ErrorIs(t, e.SetSides(3), ErrUnsupported)
	require.NoError(t, e.SetStroke(uint32(0x000000ff)))
	require.NoError(t, e.SetStrokeWidth(2))
	assert.Equal(t, "#000000", e.Shape().Stroke)
	_, err = e.Resize(Px(60), Extent{})
	require.NoError(t, err)
	require.NoError(t, e.SetSize(10, 10))
	assert.Equal(t, 60, e.Width())
	assert.Equal(t, 20, e.Height())
}

func TestExportTargets(t *testing.T) {
	ctx := context.Background()
	l := imageLayer(t, "a", 3, 3, color.NRGBA{R: 1, A: 255})

	_, err := Export(ctx, l, ExportOptions{Format: "bmp"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Export(ctx, l, ExportOptions{Format: "png", Target: "socket"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Export(ctx, l, ExportOptions{Format: "png", Target: TargetFile})
	assert.ErrorIs(t, err, ErrMissingArgument)
	_, err = Export(ctx, l, ExportOptions{Format: "webp"})
	assert.ErrorIs(t, err, raster.ErrNoEncoder)

	out, err := Export(ctx, l, ExportOptions{Format: "raw"})
	require.NoError(t, err)
	assert.Len(t, out.Data, 3*3*4)
	assert.Equal(t, 3, out.Width)

	path := filepath.Join(t.TempDir(), "a.jpeg")
	out, err = Export(ctx, l, ExportOptions{Format: "jpeg", Target: TargetFile, Path: path})
	require.NoError(t, err)
	assert.Nil(t, out)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, fi.Size())

	d := newDoc(t, 4, 4, l)
	bad := filepath.Join(t.TempDir(), "d.heif")
	_, err = d.Export(ctx, ExportOptions{Format: "heif", Target: TargetFile, Path: bad})
	assert.ErrorIs(t, err, raster.ErrNoEncoder)
	_, statErr := os.Stat(bad)
	assert.True(t, os.IsNotExist(statErr), "failed export leaves no file")
}

func TestNewDocumentValidation(t *testing.T) {
	_, err := NewDocument("d", 0, 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewImageLayer(context.Background(), "x", Source{})
	assert.ErrorIs(t, err, ErrMissingArgument)
	_, err = NewImageLayer(context.Background(), "x", Source{Data: []byte("garbage")})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRecorderReceivesEvents(t *testing.T) {
	var events []string
	d := newDoc(t, 4, 4)
	d.SetRecorder(log.Func(func(e string, _ ...slog.Attr) { events = append(events, e) }))
	l := imageLayer(t, "a", 2, 2, color.NRGBA{A: 255})
	require.NoError(t, d.Add(l))
	_, _ = l.Blur(1)
	assert.Contains(t, events, "layer.attach")
	assert.Contains(t, events, "layer.edit")
}

func TestMergeRecordsRenderEventsInStackOrder(t *testing.T) {
	var rendered []string
	d := newDoc(t, 8, 8)
	d.SetRecorder(log.Func(func(e string, attrs ...slog.Attr) {
		if e != "layer.render" {
			return
		}
		for _, a := range attrs {
			if a.Key == "layer" {
				rendered = append(rendered, a.Value.String())
			}
		}
	}))
	want := []string{"L0", "L1", "L2", "L3", "L4", "L5", "L6", "L7"}
	for i, name := range want {
		l := imageLayer(t, name, 2, 2, color.NRGBA{R: uint8(i * 30), A: 255})
		l.Translate(i, i)
		require.NoError(t, d.Add(l))
	}

	merged, err := d.Merge(context.Background(), nil, MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, want, rendered)
	assert.Equal(t, []string{merged.Name}, names(d))
}
