/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package project is the single mutation surface for a project's file map,
// screen placements and navigation connections. Every commit produces a
// fresh immutable Project value: new file map, version bumped by one, one
// HistoryEntry prepended whose snapshot is the full path -> content
// projection. Readers only ever observe fully-formed values; there is no
// partial-commit state.
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"appstudio/internal/domain"
	applog "appstudio/internal/log"
	"appstudio/internal/navgraph"
)

// ErrRollbackNotConfirmed is returned when a rollback is requested without
// the explicit confirmation gate.
var ErrRollbackNotConfirmed = errors.New("rollback not confirmed")

// Store owns the current Project value. Mutations derive a new value from
// the latest snapshot at call time (last-writer-wins, no optimistic check);
// the mutex only guards against torn swaps.
type Store struct {
	mu        sync.Mutex
	cur       *domain.Project
	listeners []func(*domain.Project)
	logger    *slog.Logger
}

// New wraps an existing project value in a store.
func New(p *domain.Project) *Store {
	return &Store{cur: p, logger: applog.WithComponent("project")}
}

// Initialize builds a fresh project at version 1 with an initialization
// entry authored by the system.
func Initialize(name, packageName string, files map[string]domain.AppFile) *domain.Project {
	p := &domain.Project{
		ID:          newID(),
		Name:        name,
		PackageName: packageName,
		Files:       files,
		Version:     1,
		Positions:   map[string]domain.ScreenPos{},
		LastSaved:   time.Now().UnixMilli(),
	}
	p.History = []domain.HistoryEntry{{
		ID:          newID(),
		Timestamp:   time.Now().UnixMilli(),
		Description: "Project initialized",
		Author:      domain.AuthorSystem,
		Snapshot:    domain.SnapshotFiles(files),
	}}
	return p
}

// Current returns the latest committed project value. Callers must treat it
// as read-only.
func (s *Store) Current() *domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Subscribe registers fn to run after every committed change, in commit
// order. Used by persistence autosave and the UI refresh path.
func (s *Store) Subscribe(fn func(*domain.Project)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// commit runs the shared pipeline: clone the latest snapshot, let mutate
// shape it, bump the version, prepend one history entry and swap.
func (s *Store) commit(description string, author domain.Author, mutate func(next *domain.Project) error) error {
	s.mu.Lock()
	next := *s.cur
	next.Files = s.cur.CloneFiles()
	next.Positions = clonePositions(s.cur.Positions)
	next.Connections = append([]domain.NavigationConnection(nil), s.cur.Connections...)

	if err := mutate(&next); err != nil {
		s.mu.Unlock()
		return err
	}

	next.Version++
	entry := domain.HistoryEntry{
		ID:          newID(),
		Timestamp:   time.Now().UnixMilli(),
		Description: description,
		Author:      author,
		Snapshot:    domain.SnapshotFiles(next.Files),
	}
	next.History = append([]domain.HistoryEntry{entry}, s.cur.History...)
	next.LastSaved = entry.Timestamp

	s.cur = &next
	listeners := append([]func(*domain.Project){}, s.listeners...)
	s.mu.Unlock()

	s.logger.Debug("committed", slog.Int("version", next.Version), slog.String("author", string(author)), slog.String("description", description))
	for _, fn := range listeners {
		fn(&next)
	}
	return nil
}

// DirectEdit replaces (or creates) one file's content as a user commit.
func (s *Store) DirectEdit(path, content string) error {
	return s.commit(fmt.Sprintf("Direct edit of %s", path), domain.AuthorUser, func(next *domain.Project) error {
		if f, ok := next.Files[path]; ok {
			f.Content = content
			f.LastModified = time.Now().UnixMilli()
			next.Files[path] = f
			return nil
		}
		next.Files[path] = domain.NewFile(path, content)
		return nil
	})
}

// AddScreen commits a new screen file named after the current screen count
// and returns its path.
func (s *Store) AddScreen(content string) (string, error) {
	path := fmt.Sprintf("screen%d.html", len(s.Current().HTMLFiles())+1)
	err := s.commit(fmt.Sprintf("Added direct screen: %s", path), domain.AuthorUser, func(next *domain.Project) error {
		next.Files[path] = domain.NewFile(path, content)
		return nil
	})
	return path, err
}

// SetScreenPosition commits a screen frame's world placement.
func (s *Store) SetScreenPosition(path string, pos domain.ScreenPos) error {
	return s.commit(fmt.Sprintf("Moved %s", path), domain.AuthorUser, func(next *domain.Project) error {
		next.Positions[path] = pos
		return nil
	})
}

// AddConnection inserts a navigation connection and regenerates the source
// screen's glue file. Duplicate triples are silently ignored: no commit, no
// error, the connection set is unchanged.
func (s *Store) AddConnection(conn domain.NavigationConnection) error {
	if navgraph.IsDuplicate(s.Current().Connections, conn) {
		s.logger.Debug("duplicate connection ignored",
			slog.String("from", conn.FromScreen), slog.String("element", conn.FromElementID), slog.String("to", conn.ToScreen))
		return nil
	}
	if conn.ID == "" {
		conn.ID = newID()
	}
	desc := fmt.Sprintf("Connected %s in %s → %s", conn.FromElementLabel, conn.FromScreen, conn.ToScreen)
	return s.commit(desc, domain.AuthorUser, func(next *domain.Project) error {
		if navgraph.IsDuplicate(next.Connections, conn) {
			return nil
		}
		next.Connections = append(next.Connections, conn)
		regenerateGlue(next, conn.FromScreen)
		return nil
	})
}

// RemoveConnection deletes a connection by id and regenerates (or removes)
// the affected screen's glue file. Unknown ids are a no-op.
func (s *Store) RemoveConnection(id string) error {
	var removed *domain.NavigationConnection
	for i := range s.Current().Connections {
		if s.Current().Connections[i].ID == id {
			c := s.Current().Connections[i]
			removed = &c
			break
		}
	}
	if removed == nil {
		return nil
	}
	desc := fmt.Sprintf("Removed connection from %s", removed.FromScreen)
	return s.commit(desc, domain.AuthorUser, func(next *domain.Project) error {
		kept := next.Connections[:0]
		for _, c := range next.Connections {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		next.Connections = kept
		regenerateGlue(next, removed.FromScreen)
		return nil
	})
}

// regenerateGlue rebuilds the companion navigation script for screen from
// its outgoing connections, deleting the file when none remain.
func regenerateGlue(next *domain.Project, screen string) {
	outgoing := navgraph.OutgoingFrom(next.Connections, screen)
	gluePath := navgraph.GluePath(screen)
	if len(outgoing) == 0 {
		delete(next.Files, gluePath)
		return
	}
	next.Files[gluePath] = domain.NewFile(gluePath, navgraph.GenerateGlue(outgoing))
}

// Rollback restores the file map recorded in entry as a normal forward
// commit: language tags are re-derived from each path's extension and the
// timestamps are fresh. History is never rewound, so redoing a rollback
// means rolling back again. confirmed carries the UI's explicit gate.
func (s *Store) Rollback(entry domain.HistoryEntry, confirmed bool) error {
	if !confirmed {
		return ErrRollbackNotConfirmed
	}
	when := time.UnixMilli(entry.Timestamp).Format("15:04:05")
	return s.commit(fmt.Sprintf("Rollback to %s", when), domain.AuthorUser, func(next *domain.Project) error {
		files := make(map[string]domain.AppFile, len(entry.Snapshot))
		for path, content := range entry.Snapshot {
			files[path] = domain.NewFile(path, content)
		}
		next.Files = files
		return nil
	})
}

// SetInstructions updates the persistent model instructions. Metadata only,
// not a versioned commit.
func (s *Store) SetInstructions(text string) {
	s.mu.Lock()
	next := *s.cur
	next.Instructions = text
	s.cur = &next
	listeners := append([]func(*domain.Project){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(&next)
	}
}

// SetBackend replaces the connected-backend state. Metadata only.
func (s *Store) SetBackend(b *domain.BackendState) {
	s.mu.Lock()
	next := *s.cur
	next.Backend = b
	s.cur = &next
	listeners := append([]func(*domain.Project){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(&next)
	}
}

func clonePositions(in map[string]domain.ScreenPos) map[string]domain.ScreenPos {
	out := make(map[string]domain.ScreenPos, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var idCounter uint64
var idMu sync.Mutex

// newID yields ids unique within a process; wall time keeps them roughly
// sortable across runs.
func newID() string {
	idMu.Lock()
	idCounter++
	n := idCounter
	idMu.Unlock()
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + strconv.FormatUint(n, 36)
}
