/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"layerkit/internal/compose"
	"layerkit/internal/raster"
)

// ThumbSize bounds the longer edge of stored thumbnails.
var ThumbSize = 256

// Entry is one recorded package.
type Entry struct {
	ID        string
	Path      string
	Name      string
	Width     int
	Height    int
	Layers    int
	Thumb     []byte // PNG, nil when listed
	CreatedAt time.Time
}

// Record adds the package at path holding d and returns the new entry.
func (c *Catalog) Record(ctx context.Context, path string, d *compose.Document) (Entry, error) {
	if path == "" || d == nil {
		return Entry{}, fmt.Errorf("%w: package path and document", compose.ErrMissingArgument)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Entry{}, err
	}
	thumb, err := Thumbnail(ctx, d, ThumbSize)
	if err != nil {
		return Entry{}, fmt.Errorf("thumbnail: %w", err)
	}
	e := Entry{
		ID:        uuid.NewString(),
		Path:      abs,
		Name:      d.Name,
		Width:     d.Width(),
		Height:    d.Height(),
		Layers:    d.Len(),
		Thumb:     thumb,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	q := c.rebind(`INSERT INTO entries (id, path, name, width, height, layers, thumb, created_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := c.db.ExecContext(ctx, q, e.ID, e.Path, e.Name, e.Width, e.Height, e.Layers, e.Thumb, e.CreatedAt.Format(time.RFC3339)); err != nil {
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	c.log.Info("recorded", slog.String("id", e.ID), slog.String("path", e.Path))
	return e, nil
}

// List returns all entries, oldest first, without thumbnails.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, path, name, width, height, layers, created_at FROM entries ORDER BY created_at, name, id`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ts string
		)
		if err := rows.Scan(&e.ID, &e.Path, &e.Name, &e.Width, &e.Height, &e.Layers, &ts); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the entry with its thumbnail.
func (c *Catalog) Get(ctx context.Context, id string) (Entry, error) {
	key, err := parseID(id)
	if err != nil {
		return Entry{}, err
	}
	var (
		e  Entry
		ts string
	)
	q := c.rebind(`SELECT id, path, name, width, height, layers, thumb, created_at FROM entries WHERE id=?`)
	err = c.db.QueryRowContext(ctx, q, key).Scan(&e.ID, &e.Path, &e.Name, &e.Width, &e.Height, &e.Layers, &e.Thumb, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get entry: %w", err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, ts)
	return e, nil
}

// Delete removes an entry. The package file itself is left alone.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM entries WHERE id=?`), key)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	c.log.Info("deleted", slog.String("id", key))
	return nil
}

// Thumbnail flattens d and scales it so the longer edge is at most edge
// pixels, then encodes it as PNG. Smaller canvases are kept as is.
func Thumbnail(ctx context.Context, d *compose.Document, edge int) ([]byte, error) {
	out, err := d.Export(ctx, compose.ExportOptions{Format: string(raster.PNG)})
	if err != nil {
		return nil, err
	}
	w, h := out.Width, out.Height
	if edge <= 0 || (w <= edge && h <= edge) {
		return out.Data, nil
	}
	img, _, err := raster.Decode(out.Data)
	if err != nil {
		return nil, err
	}
	if w >= h {
		w, h = edge, max(1, h*edge/w)
	} else {
		w, h = max(1, w*edge/h), edge
	}
	return raster.EncodeBytes(raster.Resize(img, w, h), raster.PNG, raster.EncodeOptions{})
}
