/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pack

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"layerkit/internal/compose"
	"layerkit/internal/storage"
)

// maxEntry bounds a single archive member.
const maxEntry = 512 << 20

type archiveFile struct {
	name string
	data []byte
}

func writeArchive(ctx context.Context, out io.Writer, files []archiveFile) error {
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	now := time.Now()
	dirs := []string{dataDir + "/", assetsDir + "/"}
	for _, d := range dirs {
		if err := tw.WriteHeader(&tar.Header{Typeflag: tar.TypeDir, Name: d, Mode: 0o755, ModTime: now}); err != nil {
			return err
		}
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr := &tar.Header{Typeflag: tar.TypeReg, Name: f.name, Mode: 0o644, Size: int64(len(f.data)), ModTime: now}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(f.data); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// extractArchive unpacks regular files below dir. Members escaping dir
// are rejected.
func extractArchive(ctx context.Context, src, dir string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()
	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}
		name := path.Clean(strings.TrimPrefix(hdr.Name, "./"))
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return fmt.Errorf("illegal member %q", hdr.Name)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if hdr.Size > maxEntry {
				return fmt.Errorf("member %q too large", hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			data, err := io.ReadAll(io.LimitReader(tr, maxEntry))
			if err != nil {
				return fmt.Errorf("read %q: %w", hdr.Name, err)
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return err
			}
		}
	}
}

func readFile(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("missing %s: %w", name, err)
	}
	return data, nil
}

type assetFile struct {
	index int
	name  string
}

// readAssets returns the sources under data/assets ordered by their
// numeric stem, so asset i+1 sits at slice index i. With copyTo set the
// files are copied there and referenced by path.
func readAssets(dir, copyTo string) ([]compose.Source, error) {
	root := filepath.Join(dir, filepath.FromSlash(assetsDir))
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var files []assetFile
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		n, err := strconv.Atoi(stem)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("asset name %q", e.Name())
		}
		files = append(files, assetFile{index: n, name: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].index < files[j].index })
	out := make([]compose.Source, 0, len(files))
	for i, f := range files {
		if f.index != i+1 {
			return nil, fmt.Errorf("asset %d missing", i+1)
		}
		p := filepath.Join(root, f.name)
		if copyTo != "" {
			if err := os.MkdirAll(copyTo, 0o755); err != nil {
				return nil, err
			}
			dst := filepath.Join(copyTo, f.name)
			if err := storage.CopyFile(p, dst); err != nil {
				return nil, err
			}
			out = append(out, compose.Source{Path: dst})
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(filepath.Ext(f.name), ".svg") {
			out = append(out, compose.Source{SVG: string(data)})
			continue
		}
		out = append(out, compose.Source{Data: data})
	}
	return out, nil
}
