/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot represents a reversible content blob for one project file.
// Blob content is opaque to the manager; size is estimated as len(Blob).
// TS is when the snapshot was captured.
type Snapshot struct {
	Path string
	Blob []byte
	TS   time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerFile limits number of snapshots per file kept in memory (0 means unlimited).
	MaxPerFile int
	// MinInterval coalesces snapshots captured within the interval for the same file,
	// replacing the previous one instead of pushing a new entry.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per file with performance
// safeguards, driving the direct editor. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-file stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	// Set conservative defaults if not provided
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// PushSnapshot records a snapshot for a file. If within MinInterval from the
// last snapshot on the same file, it replaces the last one. Clears the redo
// stack for that file.
func (m *Manager) PushSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.Path]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if s.TS.Sub(last.TS) < m.cfg.MinInterval {
			// Coalesce: adjust accounting and replace
			m.totalBytes -= len(last.Blob)
			m.totalBytes += len(s.Blob)
			stack[n-1] = s
			m.undo[s.Path] = stack
			m.redo[s.Path] = nil
			m.enforceCapsLocked(s.Path)
			return
		}
	}
	// Push new
	stack = append(stack, s)
	m.undo[s.Path] = stack
	m.totalBytes += len(s.Blob)
	// Any new change invalidates redo for the file
	m.redo[s.Path] = nil
	m.enforceCapsLocked(s.Path)
}

// Undo pops from the file's undo stack and pushes to redo, returning the snapshot.
func (m *Manager) Undo(path string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[path]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[path] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[path] = append(m.redo[path], s)
	return s, true
}

// Redo pops from redo and pushes back to undo.
func (m *Manager) Redo(path string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[path]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[path] = r[:len(r)-1]
	m.undo[path] = append(m.undo[path], s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(path)
	return s, true
}

// ClearFile clears undo/redo stacks for a file to free memory.
func (m *Manager) ClearFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[path] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, path)
	delete(m.redo, path)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, files int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	files = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, files, totalSnapshots
}

func (m *Manager) enforceCapsLocked(path string) {
	// Per-file depth cap
	if m.cfg.MaxPerFile > 0 {
		stack := m.undo[path]
		if len(stack) > m.cfg.MaxPerFile {
			// drop the oldest extras
			toDrop := len(stack) - m.cfg.MaxPerFile
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[path] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all files
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestPath := ""
		oldestIdx := -1
		var oldestTS time.Time
		for p, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if oldestIdx == -1 || stack[0].TS.Before(oldestTS) {
				oldestPath = p
				oldestIdx = 0
				oldestTS = stack[0].TS
			}
		}
		if oldestIdx == -1 {
			break
		}
		stack := m.undo[oldestPath]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestPath] = stack[1:]
		if len(m.undo[oldestPath]) == 0 {
			delete(m.undo, oldestPath)
		}
	}
}
