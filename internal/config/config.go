/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration: YAML defaults persisted in the
// user scope, merged with LK_* environment overrides. Secrets (the catalog
// database password) are kept in the OS keyring, never in the YAML file.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// FontConfig registers an OpenType font file under a family name.
type FontConfig struct {
	Family string `yaml:"family"`
	Weight int    `yaml:"weight"`
	Italic bool   `yaml:"italic"`
	Path   string `yaml:"path"`
}

type RenderConfig struct {
	// MaterializeSteps commits every edit step to a lossless snapshot before the next one.
	MaterializeSteps  bool         `yaml:"materialize_steps"`
	JPEGQuality       int          `yaml:"jpeg_quality"`
	DefaultFontSize   float64      `yaml:"default_font_size"`
	DetachedTextWidth int          `yaml:"detached_text_width"`
	Fonts             []FontConfig `yaml:"fonts"`
}

type PackConfig struct {
	// ScratchDir is where archives are unpacked; empty means os.TempDir().
	ScratchDir string `yaml:"scratch_dir"`
}

type CatalogConfig struct {
	Driver     string `yaml:"driver"` // "sqlite" | "pgx"
	DSN        string `yaml:"dsn"`
	UseKeyring bool   `yaml:"use_keyring"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Logging       LoggingConfig `yaml:"logging"`
	Render        RenderConfig  `yaml:"render"`
	Pack          PackConfig    `yaml:"pack"`
	Catalog       CatalogConfig `yaml:"catalog"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Render:        RenderConfig{JPEGQuality: 90, DefaultFontSize: 24, DetachedTextWidth: 400},
		Catalog:       CatalogConfig{Driver: "sqlite"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile     = "LK_CONFIG"
	EnvLogLevel       = "LK_LOG_LEVEL"
	EnvLogFormat      = "LK_LOG_FORMAT"
	EnvLogSource      = "LK_LOG_SOURCE"
	EnvLogFile        = "LK_LOG_FILE"
	EnvMaterialize    = "LK_RENDER_MATERIALIZE"
	EnvJPEGQuality    = "LK_RENDER_JPEG_QUALITY"
	EnvScratchDir     = "LK_SCRATCH_DIR"
	EnvCatalogDriver  = "LK_CATALOG_DRIVER"
	EnvCatalogDSN     = "LK_CATALOG_DSN"
	EnvCatalogKeyring = "LK_CATALOG_KEYRING"
)

const (
	keyringService = "layerkit"
	keyringCatalog = "catalog_password"
)

// TokenStore abstracts the OS keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// Path returns the per-user config file path. LK_CONFIG overrides it.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "layerkit")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "layerkit")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(os.Getenv("HOME"), ".config")
		}
		base = filepath.Join(base, "layerkit")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. A malformed file is ignored in favour of defaults.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg as YAML to the user config path.
func Save(cfg AppConfig) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// CatalogPassword returns the catalog password stored in the keyring.
// A missing entry yields "" and no error.
func CatalogPassword() (string, error) {
	pw, err := tokenStore.Get(keyringService, keyringCatalog)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return pw, err
}

// SetCatalogPassword stores (or, when empty, deletes) the catalog password.
func SetCatalogPassword(pw string) error {
	if pw == "" {
		err := tokenStore.Delete(keyringService, keyringCatalog)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return tokenStore.Set(keyringService, keyringCatalog, pw)
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}

	dst.Render.MaterializeSteps = src.Render.MaterializeSteps
	if src.Render.JPEGQuality > 0 && src.Render.JPEGQuality <= 100 {
		dst.Render.JPEGQuality = src.Render.JPEGQuality
	}
	if src.Render.DefaultFontSize > 0 {
		dst.Render.DefaultFontSize = src.Render.DefaultFontSize
	}
	if src.Render.DetachedTextWidth > 0 {
		dst.Render.DetachedTextWidth = src.Render.DetachedTextWidth
	}
	if len(src.Render.Fonts) > 0 {
		dst.Render.Fonts = append([]FontConfig(nil), src.Render.Fonts...)
	}

	if v := strings.TrimSpace(src.Pack.ScratchDir); v != "" {
		dst.Pack.ScratchDir = v
	}

	if v := strings.ToLower(strings.TrimSpace(src.Catalog.Driver)); v != "" {
		dst.Catalog.Driver = v
	}
	if v := strings.TrimSpace(src.Catalog.DSN); v != "" {
		dst.Catalog.DSN = v
	}
	dst.Catalog.UseKeyring = src.Catalog.UseKeyring
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaterialize)); v != "" {
		cfg.Render.MaterializeSteps = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvJPEGQuality)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			cfg.Render.JPEGQuality = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvScratchDir)); v != "" {
		cfg.Pack.ScratchDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogDriver)); v != "" {
		cfg.Catalog.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogDSN)); v != "" {
		cfg.Catalog.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogKeyring)); v != "" {
		cfg.Catalog.UseKeyring = truthy(v)
	}
}

// EnvOverrideFor reports which environment variable, if any, overrides the dotted config key.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
		"render.materialize_steps": EnvMaterialize,
		"render.jpeg_quality":      EnvJPEGQuality,
		"pack.scratch_dir":         EnvScratchDir,
		"catalog.driver":           EnvCatalogDriver,
		"catalog.dsn":              EnvCatalogDSN,
		"catalog.use_keyring":      EnvCatalogKeyring,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
