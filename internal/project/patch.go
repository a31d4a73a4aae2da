/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package project

import (
	"log/slog"
	"time"

	"appstudio/internal/domain"
)

// Patch is a validated structured edit produced by the orchestrator client.
// BasedOnVersion records the project version the request was issued against;
// a mismatch at apply time is logged before the last-writer-wins apply.
type Patch struct {
	Explanation    string
	FilesToUpdate  []domain.AppFile
	NewFiles       []domain.AppFile
	DeleteFiles    []string
	Collections    []domain.BackendCollection
	BasedOnVersion int
}

// ApplyPatch commits a model patch: upserts, deletions and backend
// collection merges in one version bump authored by the model.
func (s *Store) ApplyPatch(p Patch) error {
	if p.BasedOnVersion > 0 {
		if cur := s.Current().Version; cur != p.BasedOnVersion {
			s.logger.Warn("patch based on stale version, applying last-writer-wins",
				slog.Int("basedOn", p.BasedOnVersion), slog.Int("current", cur))
		}
	}
	desc := p.Explanation
	if desc == "" {
		desc = "Model orchestration update"
	}
	return s.commit(desc, domain.AuthorAI, func(next *domain.Project) error {
		now := time.Now().UnixMilli()
		for _, f := range append(append([]domain.AppFile(nil), p.FilesToUpdate...), p.NewFiles...) {
			if f.Language == "" {
				f.Language = domain.LanguageForPath(f.Path)
			}
			f.LastModified = now
			next.Files[f.Path] = f
		}
		for _, path := range p.DeleteFiles {
			delete(next.Files, path)
		}
		mergeCollections(next, p.Collections)
		return nil
	})
}

// mergeCollections folds model-declared backend collections into the
// connected backend state. Schemas merge key-wise; new collections start
// empty. Without a connected backend the updates are dropped.
func mergeCollections(next *domain.Project, updates []domain.BackendCollection) {
	if next.Backend == nil || len(updates) == 0 {
		return
	}
	b := *next.Backend
	b.Collections = append([]domain.BackendCollection(nil), b.Collections...)
	for _, u := range updates {
		idx := -1
		for i, c := range b.Collections {
			if c.Name == u.Name {
				idx = i
				break
			}
		}
		if idx >= 0 {
			merged := make(map[string]string, len(b.Collections[idx].Schema)+len(u.Schema))
			for k, v := range b.Collections[idx].Schema {
				merged[k] = v
			}
			for k, v := range u.Schema {
				merged[k] = v
			}
			b.Collections[idx].Schema = merged
		} else {
			b.Collections = append(b.Collections, domain.BackendCollection{Name: u.Name, Schema: u.Schema})
		}
	}
	next.Backend = &b
}
