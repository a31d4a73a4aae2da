/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"appstudio/internal/domain"
)

const (
	// CatalogFileName stores every project as one JSON blob. The suffix is
	// the on-disk schema version; bump it for incompatible changes so old
	// builds never misread a new blob.
	CatalogFileName = "projects-v1.json"
	BackupsDirName  = "backups"
)

// Catalog is the serialized set of all projects plus the id of the one the
// user had open last.
type Catalog struct {
	Projects []*domain.Project `json:"projects"`
	ActiveID string            `json:"activeProjectId,omitempty"`
}

// CatalogPath returns the blob path under the given data root.
func CatalogPath(root string) string {
	return filepath.Join(root, CatalogFileName)
}

// Load reads the catalog from root. A missing file yields an empty catalog;
// an unreadable or unparsable one falls back to the latest backup.
func Load(root string) (*Catalog, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("data root is required")
	}
	path := CatalogPath(root)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{}, nil
		}
		c, berr := loadFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("read catalog: %w; backup attempt: %v", err, berr)
		}
		return c, nil
	}
	var c Catalog
	if uerr := json.Unmarshal(b, &c); uerr != nil {
		bc, berr := loadFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("parse catalog: %w; backup attempt: %v", uerr, berr)
		}
		return bc, nil
	}
	return &c, nil
}

// Save writes the catalog with transactional semantics: the previous blob is
// copied to a timestamped backup, the new one lands via temp file, fsync and
// rename.
func Save(root string, c *Catalog) error {
	if c == nil {
		return errors.New("nil catalog")
	}
	if strings.TrimSpace(root) == "" {
		return errors.New("data root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create data root: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	path := CatalogPath(root)
	if _, statErr := os.Stat(path); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", CatalogFileName, stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current catalog: %w", cerr)
		}
	}

	temp := filepath.Join(root, fmt.Sprintf(".%s.tmp-%d-%d", CatalogFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp catalog: %w", werr)
	}
	// Windows cannot rename over an existing file
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace catalog: %w", rerr)
	}
	return nil
}

// Get returns the project with the given id, or nil.
func (c *Catalog) Get(id string) *domain.Project {
	for _, p := range c.Projects {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

// Put inserts or replaces a project by id and marks it active.
func (c *Catalog) Put(p *domain.Project) {
	if p == nil {
		return
	}
	for i, cur := range c.Projects {
		if cur != nil && cur.ID == p.ID {
			c.Projects[i] = p
			c.ActiveID = p.ID
			return
		}
	}
	c.Projects = append(c.Projects, p)
	c.ActiveID = p.ID
}

// Remove drops a project by id, clearing the active marker when it pointed
// at the removed project.
func (c *Catalog) Remove(id string) {
	for i, p := range c.Projects {
		if p != nil && p.ID == id {
			c.Projects = append(c.Projects[:i], c.Projects[i+1:]...)
			break
		}
	}
	if c.ActiveID == id {
		c.ActiveID = ""
	}
}

// Active resolves the project to open at boot: the explicitly active one
// when present, otherwise the most recently saved, otherwise nil.
func (c *Catalog) Active() *domain.Project {
	if c.ActiveID != "" {
		if p := c.Get(c.ActiveID); p != nil {
			return p
		}
	}
	var best *domain.Project
	for _, p := range c.Projects {
		if p == nil {
			continue
		}
		if best == nil || p.LastSaved > best.LastSaved {
			best = p
		}
	}
	return best
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}

// loadFromLatestBackup tries to parse the newest timestamped backup.
func loadFromLatestBackup(root string) (*Catalog, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, CatalogFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &c, nil
}
