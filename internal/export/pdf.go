/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes flattened documents into print formats.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"layerkit/internal/colors"
	"layerkit/internal/compose"
	applog "layerkit/internal/log"
	"layerkit/internal/raster"
	"layerkit/internal/storage"
)

// PDFOptions controls PDF export. Page sizes are derived from the canvas
// size in pixels at DPI, so 72 maps one pixel to one point.
type PDFOptions struct {
	DPI   float64 // default 72
	Title string
	// IncludeGuides draws a hairline around the bounds of every layer.
	IncludeGuides bool
	GuideColor    string // default #ff0000
	Render        compose.RenderOptions
}

// WritePDF writes one page per document to path. Each page carries the
// flattened canvas as a PNG image filling the page.
func WritePDF(ctx context.Context, path string, docs []*compose.Document, opt PDFOptions) error {
	if path == "" {
		return fmt.Errorf("%w: pdf path", compose.ErrMissingArgument)
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no documents", compose.ErrMissingArgument)
	}
	pdf, err := buildPDF(ctx, docs, opt)
	if err != nil {
		return err
	}
	if err := storage.WriteAtomic(path, pdf.Output); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	applog.WithComponent("export").Info("pdf written", slog.String("path", path), slog.Int("pages", len(docs)))
	return nil
}

// PDFBytes is WritePDF into memory.
func PDFBytes(ctx context.Context, docs []*compose.Document, opt PDFOptions) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents", compose.ErrMissingArgument)
	}
	pdf, err := buildPDF(ctx, docs, opt)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func buildPDF(ctx context.Context, docs []*compose.Document, opt PDFOptions) (*gofpdf.Fpdf, error) {
	dpi := opt.DPI
	if dpi == 0 {
		dpi = 72
	}
	if dpi < 0 {
		return nil, fmt.Errorf("%w: dpi %v", compose.ErrInvalidArgument, dpi)
	}
	guide := opt.GuideColor
	if guide == "" {
		guide = "#ff0000"
	}
	gc, err := colors.Parse(guide)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", compose.ErrInvalidArgument, err)
	}
	scale := 72 / dpi

	first := docs[0]
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: float64(first.Width()) * scale, Ht: float64(first.Height()) * scale},
	})
	title := opt.Title
	if title == "" {
		title = first.Name
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("layerkit", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	for i, d := range docs {
		if d == nil {
			return nil, fmt.Errorf("%w: document %d is nil", compose.ErrMissingArgument, i)
		}
		out, err := d.Export(ctx, compose.ExportOptions{Format: string(raster.PNG), Render: opt.Render})
		if err != nil {
			return nil, fmt.Errorf("flatten %q: %w", d.Name, err)
		}
		w, h := float64(d.Width())*scale, float64(d.Height())*scale
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: w, Ht: h})

		name := "page-" + strconv.Itoa(i)
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(out.Data))
		pdf.ImageOptions(name, 0, 0, w, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

		if opt.IncludeGuides {
			pdf.SetDrawColor(int(gc.R), int(gc.G), int(gc.B))
			pdf.SetLineWidth(0.2)
			for _, l := range d.Layers() {
				pdf.Rect(float64(l.Left())*scale, float64(l.Top())*scale, float64(l.Width())*scale, float64(l.Height())*scale, "D")
			}
		}
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("pdf page %d: %w", i, err)
		}
	}
	return pdf, nil
}
