/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the App Studio workspace: the
// project aggregate, its file map, the screen layout metadata and the
// navigation connection set. Values are plain structs with JSON tags so the
// whole aggregate serializes to a human-readable blob.

import (
	"sort"
	"strings"
	"time"
)

// Project is the aggregate root. A Project value is immutable per version:
// every mutation goes through the store, which produces a fresh value with
// the version bumped and one HistoryEntry prepended.
type Project struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	PackageName  string                 `json:"packageName"`
	Files        map[string]AppFile     `json:"files"`
	Version      int                    `json:"version"`
	History      []HistoryEntry         `json:"history"`
	Positions    map[string]ScreenPos   `json:"screenPositions,omitempty"`
	Connections  []NavigationConnection `json:"connections,omitempty"`
	Backend      *BackendState          `json:"backend,omitempty"`
	Instructions string                 `json:"persistentInstructions,omitempty"`
	LastSaved    int64                  `json:"lastSaved,omitempty"`
}

// AppFile is one file of the app under construction, keyed by its path.
type AppFile struct {
	Path         string `json:"path"`
	Content      string `json:"content"`
	Language     string `json:"language"`
	LastModified int64  `json:"lastModified"`
}

// HistoryEntry is an immutable commit record. Snapshot holds the full
// path -> content projection of the file map at commit time; rollback is a
// plain copy, never a patch replay.
type HistoryEntry struct {
	ID          string            `json:"id"`
	Timestamp   int64             `json:"timestamp"`
	Description string            `json:"description"`
	Author      Author            `json:"author"`
	Snapshot    map[string]string `json:"snapshot"`
}

// Author identifies who produced a commit.
type Author string

const (
	AuthorUser   Author = "user"
	AuthorAI     Author = "ai"
	AuthorSystem Author = "system"
)

// ScreenPos is a screen frame's world-space placement on the canvas.
type ScreenPos struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// NavAction describes how a navigation connection presents its target.
type NavAction string

const (
	ActionNavigate NavAction = "navigate"
	ActionModal    NavAction = "modal"
	ActionReplace  NavAction = "replace"
)

// NavigationConnection is a directed edge from an element on one screen to
// another screen. The (FromScreen, FromElementID, ToScreen) triple is unique
// within a project; duplicates are suppressed on insert.
type NavigationConnection struct {
	ID               string    `json:"id"`
	FromScreen       string    `json:"fromScreen"`
	FromElementID    string    `json:"fromElementId"`
	FromElementLabel string    `json:"fromElementLabel"`
	ToScreen         string    `json:"toScreen"`
	Action           NavAction `json:"action"`
}

// RectPx is a pixel rectangle in whatever coordinate space the producer
// documents (sandbox space for UIElementRef, host space for the overlay).
type RectPx struct {
	Top    float32 `json:"top"`
	Left   float32 `json:"left"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// UIElementRef is an ephemeral snapshot of a clicked element inside a
// preview sandbox. It is never persisted; a fresh one is produced per click.
type UIElementRef struct {
	ID             string            `json:"id"`
	TagName        string            `json:"tagName"`
	Text           string            `json:"text"`
	ClassName      string            `json:"className"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Rect           RectPx            `json:"rect"`
	ComputedStyles map[string]string `json:"computedStyles,omitempty"`
}

// BackendState mirrors the optional connected-backend collaborator.
type BackendState struct {
	Status      BackendStatus       `json:"status"`
	ProjectID   string              `json:"projectId,omitempty"`
	Collections []BackendCollection `json:"collections,omitempty"`
	LastSync    int64               `json:"lastSyncTimestamp,omitempty"`
}

type BackendStatus string

const (
	BackendDisconnected BackendStatus = "disconnected"
	BackendConnecting   BackendStatus = "connecting"
	BackendConnected    BackendStatus = "connected"
)

// BackendCollection is one declared data collection on the connected backend.
type BackendCollection struct {
	Name        string            `json:"name"`
	Schema      map[string]string `json:"schema"`
	RecordCount int               `json:"recordCount"`
}

// ChatMessage is one entry of the orchestrator conversation.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"` // "user" or "assistant"
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// LanguageForPath derives a file's language tag from its extension.
// Paths without an extension are tagged "text".
func LanguageForPath(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 || i == len(path)-1 {
		return "text"
	}
	return path[i+1:]
}

// HTMLFiles returns the project's screen paths in deterministic (sorted)
// order. The sorted order is what default canvas placement indexes into.
func (p *Project) HTMLFiles() []string {
	var out []string
	for path := range p.Files {
		if strings.HasSuffix(path, ".html") {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// ScreenIndex returns the position of path within HTMLFiles, or -1.
func (p *Project) ScreenIndex(path string) int {
	for i, f := range p.HTMLFiles() {
		if f == path {
			return i
		}
	}
	return -1
}

// CloneFiles returns a shallow-copied file map. AppFile values are plain
// data, so a map copy is enough for commit isolation.
func (p *Project) CloneFiles() map[string]AppFile {
	out := make(map[string]AppFile, len(p.Files))
	for k, v := range p.Files {
		out[k] = v
	}
	return out
}

// SnapshotFiles projects a file map down to path -> content for history.
func SnapshotFiles(files map[string]AppFile) map[string]string {
	out := make(map[string]string, len(files))
	for path, f := range files {
		out[path] = f.Content
	}
	return out
}

// NewFile builds an AppFile for path with the language derived and the
// modification time stamped now.
func NewFile(path, content string) AppFile {
	return AppFile{
		Path:         path,
		Content:      content,
		Language:     LanguageForPath(path),
		LastModified: time.Now().UnixMilli(),
	}
}
