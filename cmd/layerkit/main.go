/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"layerkit/internal/catalog"
	"layerkit/internal/compose"
	"layerkit/internal/config"
	"layerkit/internal/crash"
	"layerkit/internal/export"
	applog "layerkit/internal/log"
	"layerkit/internal/pack"
	"layerkit/internal/telemetry"
	"layerkit/internal/version"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "layerkit %s\n\n", version.String())
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  layerkit version|-v|--version               Show version")
	_, _ = fmt.Fprintln(w, "  layerkit info <pkg>                          Describe a layer or document package")
	_, _ = fmt.Fprintln(w, "  layerkit flatten <doc> <out> [format]        Export a document package as an image")
	_, _ = fmt.Fprintln(w, "  layerkit pdf <doc>... <out.pdf>              Write one PDF page per document package")
	_, _ = fmt.Fprintln(w, "  layerkit catalog add <doc>                   Record a document package")
	_, _ = fmt.Fprintln(w, "  layerkit catalog list                        List recorded packages")
	_, _ = fmt.Fprintln(w, "  layerkit catalog rm <id>                     Forget a recorded package")
}

var errUsage = errors.New("usage")

// app carries the loaded configuration into the subcommands.
type app struct {
	cfg config.AppConfig
	out io.Writer
	log *slog.Logger
	rec applog.Recorder
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Defaults()
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	defer crash.Recover(cfg.Pack.ScratchDir)

	tm := telemetry.Default()
	a := &app{
		cfg: cfg,
		out: os.Stdout,
		log: applog.WithComponent("cli"),
		rec: applog.Tee(applog.NewRecorder("compose"), tm),
	}
	if err := a.configure(); err != nil {
		a.log.Warn("font setup incomplete", slog.Any("err", err))
	}
	a.log.Debug("start", slog.Int("args", len(os.Args)))

	code := 0
	err = a.run(context.Background(), os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		code = 2
	default:
		a.log.Error("command failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		code = 1
	}
	tm.Flush(context.Background())
	tm.Close()
	if code != 0 {
		os.Exit(code)
	}
}

// configure applies render settings to the compositing package.
func (a *app) configure() error {
	r := a.cfg.Render
	if r.DefaultFontSize > 0 {
		compose.DefaultFontSize = r.DefaultFontSize
	}
	if r.DetachedTextWidth > 0 {
		compose.DetachedTextWidth = r.DetachedTextWidth
	}
	var errs []error
	for _, f := range r.Fonts {
		if err := compose.Fonts.LoadTTF(f.Family, f.Weight, f.Italic, f.Path); err != nil {
			errs = append(errs, fmt.Errorf("font %s: %w", f.Path, err))
		}
	}
	return errors.Join(errs...)
}

func (a *app) renderOptions() compose.RenderOptions {
	return compose.RenderOptions{Materialize: a.cfg.Render.MaterializeSteps}
}

func (a *app) readOptions() pack.ReadOptions {
	return pack.ReadOptions{ScratchDir: a.cfg.Pack.ScratchDir, Recorder: a.rec}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(a.out, version.String())
		return nil
	case "help", "-h", "--help":
		usage(a.out)
		return nil
	case "info":
		if len(args) != 2 {
			return errUsage
		}
		return a.info(ctx, args[1])
	case "flatten":
		if len(args) < 3 || len(args) > 4 {
			return errUsage
		}
		format := strings.TrimPrefix(filepath.Ext(args[2]), ".")
		if len(args) == 4 {
			format = args[3]
		}
		return a.flatten(ctx, args[1], args[2], format)
	case "pdf":
		if len(args) < 3 {
			return errUsage
		}
		return a.pdf(ctx, args[1:len(args)-1], args[len(args)-1])
	case "catalog":
		if len(args) < 2 {
			return errUsage
		}
		return a.catalog(ctx, args[1], args[2:])
	}
	return errUsage
}

func (a *app) info(ctx context.Context, path string) error {
	d, err := pack.ReadDocument(ctx, path, a.readOptions())
	if err == nil {
		_, _ = fmt.Fprintf(a.out, "document %q %dx%d, %d layers\n", d.Name, d.Width(), d.Height(), d.Len())
		for i, l := range d.Layers() {
			a.describe(l, i, 1)
		}
		return nil
	}
	l, lerr := pack.ReadLayer(ctx, path, a.readOptions())
	if lerr != nil {
		return err
	}
	a.describe(l, 0, 0)
	return nil
}

func (a *app) describe(l *compose.Layer, i, depth int) {
	_, _ = fmt.Fprintf(a.out, "%s%d %s %q at %d,%d size %dx%d opacity %d blend %s edits %d\n",
		strings.Repeat("  ", depth), i, l.Kind(), l.Name, l.Left(), l.Top(), l.Width(), l.Height(),
		l.Opacity(), l.BlendMode(), len(l.Edits()))
	if l.Kind() == compose.KindClippingMask {
		a.describe(l.MaskLayer(), 0, depth+1)
		a.describe(l.SourceLayer(), 1, depth+1)
	}
}

func (a *app) flatten(ctx context.Context, src, dst, format string) error {
	d, err := pack.ReadDocument(ctx, src, a.readOptions())
	if err != nil {
		return err
	}
	_, err = d.Export(ctx, compose.ExportOptions{
		Format:      format,
		Target:      compose.TargetFile,
		Path:        dst,
		JPEGQuality: a.cfg.Render.JPEGQuality,
		Render:      a.renderOptions(),
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "wrote %s (%dx%d)\n", dst, d.Width(), d.Height())
	return nil
}

func (a *app) pdf(ctx context.Context, srcs []string, dst string) error {
	docs := make([]*compose.Document, 0, len(srcs))
	for _, s := range srcs {
		d, err := pack.ReadDocument(ctx, s, a.readOptions())
		if err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
		docs = append(docs, d)
	}
	if err := export.WritePDF(ctx, dst, docs, export.PDFOptions{Render: a.renderOptions()}); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "wrote %s (%d pages)\n", dst, len(docs))
	return nil
}

// openCatalog resolves the DSN (next to the config file for sqlite by
// default) and the keyring password.
func (a *app) openCatalog(ctx context.Context) (*catalog.Catalog, error) {
	c := a.cfg.Catalog
	opt := catalog.Options{Driver: c.Driver, DSN: c.DSN}
	if opt.DSN == "" && (opt.Driver == "" || opt.Driver == catalog.DriverSQLite) {
		p, err := config.Path()
		if err != nil {
			return nil, err
		}
		opt.DSN = filepath.Join(filepath.Dir(p), "catalog.sqlite")
	}
	if c.UseKeyring {
		pw, err := config.CatalogPassword()
		if err != nil {
			a.log.Warn("keyring lookup failed", slog.Any("err", err))
		}
		opt.Password = pw
	}
	return catalog.Open(ctx, opt)
}

func (a *app) catalog(ctx context.Context, sub string, args []string) error {
	cat, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	switch sub {
	case "add":
		if len(args) != 1 {
			return errUsage
		}
		d, err := pack.ReadDocument(ctx, args[0], a.readOptions())
		if err != nil {
			return err
		}
		e, err := cat.Record(ctx, args[0], d)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(a.out, e.ID)
	case "list":
		entries, err := cat.List(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			_, _ = fmt.Fprintf(a.out, "%s  %-20s %5dx%-5d %3d layers  %s\n", e.ID, e.Name, e.Width, e.Height, e.Layers, e.Path)
		}
	case "rm":
		if len(args) != 1 {
			return errUsage
		}
		return cat.Delete(ctx, args[0])
	default:
		return errUsage
	}
	return nil
}
