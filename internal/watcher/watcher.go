/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package watcher mirrors a project's files to a directory on disk and feeds
// external edits back into the store as direct-edit commits. The mirror lets
// users open the generated files in their own editor while the studio keeps
// both sides converged: store commits are written out, file writes are read
// back in. Echoes are suppressed by content comparison, a write that matches
// the store is never committed.
package watcher

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"appstudio/internal/domain"
	applog "appstudio/internal/log"
	"appstudio/internal/project"
)

// DefaultDebounce is how long a file must stay quiet before its content is
// read back. Editors often write in bursts (truncate, write, rename).
const DefaultDebounce = 200 * time.Millisecond

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("watcher: already started")

// Option configures a Workspace.
type Option func(*Workspace)

// WithDebounce sets the quiet period before an external edit is committed.
func WithDebounce(d time.Duration) Option {
	return func(w *Workspace) { w.debounce = d }
}

// WithOnError sets the callback invoked on watch errors.
func WithOnError(fn func(error)) Option {
	return func(w *Workspace) { w.onError = fn }
}

// Workspace is the two-way mirror between a project store and a directory.
type Workspace struct {
	root     string
	store    *project.Store
	logger   *slog.Logger
	debounce time.Duration
	onError  func(error)

	mu         sync.Mutex
	started    bool
	subscribed bool
	fsw        *fsnotify.Watcher
	timers     map[string]*time.Timer
	done       chan struct{}
}

// New creates a workspace mirror rooted at dir. The directory is created if
// missing.
func New(dir string, store *project.Store, opts ...Option) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	w := &Workspace{
		root:     abs,
		store:    store,
		logger:   applog.WithComponent("watcher"),
		debounce: DefaultDebounce,
		onError:  func(error) {},
		timers:   map[string]*time.Timer{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the mirror directory.
func (w *Workspace) Root() string { return w.root }

// Sync writes every project file to the mirror directory and removes mirror
// files the project no longer has. Safe to call while watching: reads after
// a sync compare equal and are dropped.
func (w *Workspace) Sync() error {
	p := w.store.Current()
	for path, f := range p.Files {
		if !mirrored(path) {
			continue
		}
		dst := filepath.Join(w.root, filepath.FromSlash(path))
		if cur, err := os.ReadFile(dst); err == nil && string(cur) == f.Content {
			continue
		}
		if err := os.WriteFile(dst, []byte(f.Content), 0o644); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(w.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !mirrored(e.Name()) {
			continue
		}
		if _, ok := p.Files[e.Name()]; !ok {
			if err := os.Remove(filepath.Join(w.root, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// Start begins watching the mirror directory and subscribes to store commits
// so future project changes are synced out.
func (w *Workspace) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.root); err != nil {
		_ = fsw.Close()
		return err
	}
	w.fsw = fsw
	w.done = make(chan struct{})
	w.started = true

	// Store listeners cannot be removed, so subscribe once and let the
	// callback drop commits that land after Stop.
	if !w.subscribed {
		w.subscribed = true
		w.store.Subscribe(func(*domain.Project) {
			w.mu.Lock()
			active := w.started
			w.mu.Unlock()
			if !active {
				return
			}
			if err := w.Sync(); err != nil {
				w.logger.Warn("mirror sync failed", slog.String("error", err.Error()))
				w.onError(err)
			}
		})
	}

	go w.loop(fsw.Events, fsw.Errors)
	return nil
}

// Stop ends watching. Pending debounce timers are cancelled; an edit inside
// the last quiet window is lost, matching how the mirror treats edits made
// while the studio is closed.
func (w *Workspace) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	_ = w.fsw.Close()
	w.fsw = nil
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = map[string]*time.Timer{}
	done := w.done
	w.mu.Unlock()
	<-done
}

func (w *Workspace) loop(events chan fsnotify.Event, errs chan error) {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			name := filepath.Base(ev.Name)
			if !mirrored(name) || filepath.Dir(ev.Name) != w.root {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(name)
		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// schedule arms (or re-arms) the per-file debounce timer.
func (w *Workspace) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.absorb(path) })
}

// absorb reads one mirror file and commits it when it differs from the
// store's copy.
func (w *Workspace) absorb(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}

	data, err := os.ReadFile(filepath.Join(w.root, filepath.FromSlash(path)))
	if err != nil {
		if !os.IsNotExist(err) {
			w.onError(err)
		}
		return
	}
	content := string(data)

	p := w.store.Current()
	if f, ok := p.Files[path]; ok && f.Content == content {
		return
	}
	w.logger.Info("absorbing external edit", slog.String("path", path))
	if err := w.store.DirectEdit(path, content); err != nil {
		w.onError(err)
	}
}

// mirrored reports whether a file name takes part in the mirror. Hidden
// files and editor droppings stay out.
func mirrored(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".js", ".json", ".css":
		return true
	}
	return false
}
