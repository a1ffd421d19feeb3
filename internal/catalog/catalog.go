/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package catalog keeps a small database of written document packages:
// where they live, their canvas size and a PNG thumbnail. SQLite is the
// default store; a shared Postgres database can be used through pgx.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	applog "layerkit/internal/log"
	"layerkit/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"

	// schemaVersion tracks the catalog schema. Bump it together with a new
	// step in runMigrations.
	schemaVersion = 2
)

var (
	ErrNotFound      = errors.New("catalog entry not found")
	ErrInvalidID     = errors.New("invalid catalog id")
	ErrUnknownDriver = errors.New("unknown catalog driver")
)

// Options selects and configures the backing database.
type Options struct {
	Driver string // sqlite (default) or pgx
	// DSN is a file path for sqlite and a connection string for pgx.
	DSN string
	// Password overrides the password of a pgx connection string.
	Password string
}

// Catalog is an open catalog database.
type Catalog struct {
	db     *sql.DB
	driver string
	log    *slog.Logger
}

// Open connects to the catalog and brings its schema up to date.
func Open(ctx context.Context, opt Options) (*Catalog, error) {
	driver := strings.ToLower(strings.TrimSpace(opt.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	l := applog.WithOperation(applog.WithComponent("catalog"), "open").With(slog.String("driver", driver))

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = openSQLite(opt.DSN)
	case DriverPgx:
		db, err = openPgx(opt.DSN, opt.Password)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opt.Driver)
	}
	if err != nil {
		l.Error("open failed", slog.Any("err", err))
		return nil, err
	}
	c := &Catalog{db: db, driver: driver, log: applog.WithComponent("catalog")}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}
	if err := c.ensureSchema(ctx); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := c.runMigrations(ctx); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("catalog ready")
	return c, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite catalog path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func openPgx(dsn, password string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx dsn: %w", err)
	}
	if password != "" {
		cfg.Password = password
	}
	return stdlib.OpenDB(*cfg), nil
}

// Close releases the database handle.
func (c *Catalog) Close() error { return c.db.Close() }

// rebind rewrites ? placeholders into $n for Postgres.
func (c *Catalog) rebind(q string) string {
	if c.driver != DriverPgx {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (c *Catalog) blobType() string {
	if c.driver == DriverPgx {
		return "BYTEA"
	}
	return "BLOB"
}

func (c *Catalog) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS catalog_version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			id          TEXT PRIMARY KEY,
			path        TEXT NOT NULL,
			name        TEXT NOT NULL,
			width       INTEGER NOT NULL,
			height      INTEGER NOT NULL,
			created_at  TEXT NOT NULL
		)`,
	}
	for _, q := range ddl {
		if _, err := c.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := c.db.QueryRowContext(ctx, `SELECT schema FROM catalog_version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at version 1 and migrates forward.
		q := c.rebind(`INSERT INTO catalog_version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`)
		if _, err := c.db.ExecContext(ctx, q, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		q := c.rebind(`UPDATE catalog_version SET app=?, updated_at=? WHERE id=1`)
		if _, err := c.db.ExecContext(ctx, q, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema steps up to schemaVersion.
func (c *Catalog) runMigrations(ctx context.Context) error {
	var cur int
	if err := c.db.QueryRowContext(ctx, `SELECT schema FROM catalog_version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// Layer count and thumbnail columns, plus a lookup index on path.
			stmts = []string{
				`ALTER TABLE entries ADD COLUMN layers INTEGER NOT NULL DEFAULT 0`,
				`ALTER TABLE entries ADD COLUMN thumb ` + c.blobType(),
				`CREATE INDEX IF NOT EXISTS idx_entries_path ON entries(path)`,
			}
		}
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		q := c.rebind(`UPDATE catalog_version SET schema=?, updated_at=? WHERE id=1`)
		if _, err := tx.ExecContext(ctx, q, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		c.log.Debug("migrated", slog.Int("schema", next))
		cur = next
	}
	return nil
}

// SchemaVersion reports the stored schema version.
func (c *Catalog) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := c.db.QueryRowContext(ctx, `SELECT schema FROM catalog_version WHERE id=1`).Scan(&v)
	return v, err
}

func parseID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return u.String(), nil
}
