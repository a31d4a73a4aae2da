/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bundle packs a project's app payload into a portable .zip archive
// and imports such archives back into a project. Bundles carry the files a
// native wrapper would ship (the www/ payload) plus a small human-readable
// manifest, so projects can be shared without the catalog.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"appstudio/internal/domain"
	applog "appstudio/internal/log"
	"appstudio/internal/project"
)

const (
	manifestName = "bundle.manifest.txt"
	payloadDir   = "www"

	// maxEntryBytes caps a single extracted file; a bundle is app markup
	// and scripts, never media.
	maxEntryBytes = 8 * 1024 * 1024
)

// Export writes the project's files into destZipPath under www/, preceded by
// a manifest describing the bundle.
func Export(p *domain.Project, destZipPath string) error {
	l := applog.WithOperation(applog.WithComponent("bundle"), "export").With(slog.String("project", p.Name))
	if strings.TrimSpace(destZipPath) == "" {
		return errors.New("destZipPath is required")
	}
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)
	defer func() { _ = zw.Close() }()

	manifest := fmt.Sprintf("App Studio Bundle\nCreated: %s\nProject: %s\nVersion: %d\nFiles: %d\n\nContents mirror the project's app payload under /www.\n",
		time.Now().Format(time.RFC3339), p.Name, p.Version, len(p.Files))
	w, err := zw.Create(manifestName)
	if err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write([]byte(manifest)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	paths := make([]string, 0, len(p.Files))
	for path := range p.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		fw, err := zw.Create(payloadDir + "/" + path)
		if err != nil {
			return fmt.Errorf("add %s: %w", path, err)
		}
		if _, err := io.WriteString(fw, p.Files[path].Content); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	l.Info("bundle exported", slog.Int("files", len(paths)), slog.String("zip", destZipPath))
	return nil
}

// Import reads a bundle archive and applies its payload to the store as one
// versioned change. Files outside www/ and the manifest are ignored; entries
// that escape the payload root are rejected. Returns the number of files
// applied.
func Import(store *project.Store, zipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "import").With(slog.String("zip", zipPath))
	if strings.TrimSpace(zipPath) == "" {
		return 0, errors.New("zipPath is required")
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	existing := store.Current().Files
	var updates, additions []domain.AppFile
	for _, f := range r.File {
		name := filepath.ToSlash(f.Name)
		if name == manifestName || f.FileInfo().IsDir() {
			continue
		}
		if !strings.HasPrefix(name, payloadDir+"/") {
			l.Warn("skip entry outside payload", slog.String("entry", name))
			continue
		}
		rel := strings.TrimPrefix(name, payloadDir+"/")
		if rel == "" || rel != filepath.ToSlash(filepath.Clean(rel)) || strings.HasPrefix(rel, "../") {
			return 0, fmt.Errorf("unsafe entry path: %s", f.Name)
		}
		if f.UncompressedSize64 > maxEntryBytes {
			return 0, fmt.Errorf("entry too large: %s", f.Name)
		}
		rc, err := f.Open()
		if err != nil {
			return 0, fmt.Errorf("open entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
		_ = rc.Close()
		if err != nil {
			return 0, fmt.Errorf("read entry %s: %w", f.Name, err)
		}
		if len(data) > maxEntryBytes {
			return 0, fmt.Errorf("entry too large: %s", f.Name)
		}
		af := domain.NewFile(rel, string(data))
		if _, ok := existing[rel]; ok {
			updates = append(updates, af)
		} else {
			additions = append(additions, af)
		}
	}
	count := len(updates) + len(additions)
	if count == 0 {
		return 0, errors.New("bundle carries no payload files")
	}
	err = store.ApplyPatch(project.Patch{
		Explanation:   fmt.Sprintf("Imported app bundle %s", filepath.Base(zipPath)),
		FilesToUpdate: updates,
		NewFiles:      additions,
	})
	if err != nil {
		return 0, err
	}
	l.Info("bundle imported", slog.Int("files", count))
	return count, nil
}
