/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package project

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"appstudio/internal/domain"
)

func bareProject() *domain.Project {
	return &domain.Project{
		ID:      "p1",
		Name:    "Demo",
		Version: 1,
		Files: map[string]domain.AppFile{
			"index.html": domain.NewFile("index.html", "<html><body><button id=\"go\">Go</button></body></html>"),
			"app.js":     domain.NewFile("app.js", "// app"),
		},
		Positions: map[string]domain.ScreenPos{},
	}
}

func TestCommitCountersAndHistoryLength(t *testing.T) {
	s := New(bareProject())
	const n = 5
	for i := 0; i < n; i++ {
		if err := s.DirectEdit("index.html", fmt.Sprintf("<html>%d</html>", i)); err != nil {
			t.Fatalf("edit %d: %v", i, err)
		}
	}
	p := s.Current()
	if p.Version != n+1 {
		t.Fatalf("version = %d after %d commits, want %d", p.Version, n, n+1)
	}
	if len(p.History) != n {
		t.Fatalf("history length = %d, want %d", len(p.History), n)
	}
	// Most recent first.
	if !strings.Contains(p.History[0].Description, "Direct edit") {
		t.Fatalf("unexpected newest entry: %q", p.History[0].Description)
	}
}

func TestCommitDoesNotMutatePriorValue(t *testing.T) {
	s := New(bareProject())
	before := s.Current()
	beforeContent := before.Files["index.html"].Content
	if err := s.DirectEdit("index.html", "<html>new</html>"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if before.Files["index.html"].Content != beforeContent {
		t.Fatalf("previous project value was mutated in place")
	}
	if before.Version == s.Current().Version {
		t.Fatalf("expected a fresh value with a bumped version")
	}
}

func TestInitialize(t *testing.T) {
	files := map[string]domain.AppFile{"index.html": domain.NewFile("index.html", "<html></html>")}
	p := Initialize("Demo", "com.example.demo", files)
	if p.Version != 1 {
		t.Fatalf("version = %d, want 1", p.Version)
	}
	if len(p.History) != 1 || p.History[0].Description != "Project initialized" || p.History[0].Author != domain.AuthorSystem {
		t.Fatalf("unexpected init history: %+v", p.History)
	}
	if p.History[0].Snapshot["index.html"] != "<html></html>" {
		t.Fatalf("init snapshot missing file content")
	}
}

func TestDirectEditCreatesMissingFile(t *testing.T) {
	s := New(bareProject())
	if err := s.DirectEdit("styles.css", "body {}"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	f, ok := s.Current().Files["styles.css"]
	if !ok || f.Language != "css" || f.Content != "body {}" {
		t.Fatalf("created file wrong: %+v", f)
	}
}

func TestAddScreenNamesByCount(t *testing.T) {
	s := New(bareProject()) // one .html file
	path, err := s.AddScreen("<html>two</html>")
	if err != nil {
		t.Fatalf("add screen: %v", err)
	}
	if path != "screen2.html" {
		t.Fatalf("path = %q, want screen2.html", path)
	}
	if _, ok := s.Current().Files["screen2.html"]; !ok {
		t.Fatalf("screen file not committed")
	}
	if got := s.Current().History[0].Description; got != "Added direct screen: screen2.html" {
		t.Fatalf("description = %q", got)
	}
}

func TestSetScreenPositionCommits(t *testing.T) {
	s := New(bareProject())
	v := s.Current().Version
	if err := s.SetScreenPosition("index.html", domain.ScreenPos{X: 120, Y: -40}); err != nil {
		t.Fatalf("set position: %v", err)
	}
	p := s.Current()
	if p.Version != v+1 {
		t.Fatalf("position update must be a versioned commit")
	}
	if p.Positions["index.html"] != (domain.ScreenPos{X: 120, Y: -40}) {
		t.Fatalf("position not stored: %+v", p.Positions)
	}
}

func TestAddConnectionGeneratesGlue(t *testing.T) {
	s := New(bareProject())
	if _, err := s.AddScreen("<html>two</html>"); err != nil {
		t.Fatalf("add screen: %v", err)
	}
	err := s.AddConnection(domain.NavigationConnection{
		FromScreen:       "index.html",
		FromElementID:    "go",
		FromElementLabel: "Go",
		ToScreen:         "screen2.html",
		Action:           domain.ActionNavigate,
	})
	if err != nil {
		t.Fatalf("add connection: %v", err)
	}
	p := s.Current()
	if len(p.Connections) != 1 {
		t.Fatalf("connections = %d, want 1", len(p.Connections))
	}
	c := p.Connections[0]
	if c.FromScreen != "index.html" || c.ToScreen != "screen2.html" || c.FromElementLabel != "Go" {
		t.Fatalf("unexpected connection: %+v", c)
	}
	if c.ID == "" {
		t.Fatalf("connection id not assigned")
	}
	glue, ok := p.Files["index.nav.js"]
	if !ok {
		t.Fatalf("index.nav.js not generated")
	}
	if !strings.Contains(glue.Content, "getElementById('go')") {
		t.Fatalf("glue does not reference source element:\n%s", glue.Content)
	}
}

func TestAddConnectionDuplicateIgnored(t *testing.T) {
	s := New(bareProject())
	conn := domain.NavigationConnection{
		FromScreen: "index.html", FromElementID: "go", ToScreen: "screen2.html",
	}
	if err := s.AddConnection(conn); err != nil {
		t.Fatalf("first add: %v", err)
	}
	v := s.Current().Version
	if err := s.AddConnection(conn); err != nil {
		t.Fatalf("duplicate add should be silent, got %v", err)
	}
	p := s.Current()
	if len(p.Connections) != 1 {
		t.Fatalf("duplicate was inserted: %d entries", len(p.Connections))
	}
	if p.Version != v {
		t.Fatalf("duplicate add must not commit")
	}
}

func TestRemoveConnectionRegeneratesOrDeletesGlue(t *testing.T) {
	s := New(bareProject())
	c1 := domain.NavigationConnection{ID: "c1", FromScreen: "index.html", FromElementID: "go", FromElementLabel: "Go", ToScreen: "screen2.html"}
	c2 := domain.NavigationConnection{ID: "c2", FromScreen: "index.html", FromElementID: "back", FromElementLabel: "Back", ToScreen: "screen3.html"}
	if err := s.AddConnection(c1); err != nil {
		t.Fatalf("add c1: %v", err)
	}
	if err := s.AddConnection(c2); err != nil {
		t.Fatalf("add c2: %v", err)
	}

	if err := s.RemoveConnection("c1"); err != nil {
		t.Fatalf("remove c1: %v", err)
	}
	glue, ok := s.Current().Files["index.nav.js"]
	if !ok {
		t.Fatalf("glue must survive while a connection remains")
	}
	if strings.Contains(glue.Content, "getElementById('go')") {
		t.Fatalf("removed connection's handler still present")
	}
	if !strings.Contains(glue.Content, "getElementById('back')") {
		t.Fatalf("remaining connection's handler missing")
	}

	if err := s.RemoveConnection("c2"); err != nil {
		t.Fatalf("remove c2: %v", err)
	}
	if _, ok := s.Current().Files["index.nav.js"]; ok {
		t.Fatalf("glue file must be deleted with the last outgoing connection")
	}
}

func TestRemoveConnectionUnknownIDIsNoop(t *testing.T) {
	s := New(bareProject())
	v := s.Current().Version
	if err := s.RemoveConnection("nope"); err != nil {
		t.Fatalf("unknown id should be a no-op, got %v", err)
	}
	if s.Current().Version != v {
		t.Fatalf("no-op removal must not commit")
	}
}

func TestRollbackRestoresSnapshot(t *testing.T) {
	s := New(bareProject())
	if err := s.DirectEdit("index.html", "<html>v2</html>"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	target := s.Current().History[0] // snapshot of v2 state
	if err := s.DirectEdit("index.html", "<html>v3</html>"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := s.DirectEdit("notes", "plain"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	v := s.Current().Version
	if err := s.Rollback(target, true); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	p := s.Current()
	if p.Version != v+1 {
		t.Fatalf("rollback must be a forward commit")
	}
	if len(p.Files) != len(target.Snapshot) {
		t.Fatalf("file map size = %d, want %d", len(p.Files), len(target.Snapshot))
	}
	for path, content := range target.Snapshot {
		f, ok := p.Files[path]
		if !ok || f.Content != content {
			t.Fatalf("file %s not restored", path)
		}
		if f.Language != domain.LanguageForPath(path) {
			t.Fatalf("language for %s = %q, want %q", path, f.Language, domain.LanguageForPath(path))
		}
	}
}

func TestRollbackRequiresConfirmation(t *testing.T) {
	s := New(bareProject())
	entry := domain.HistoryEntry{Snapshot: map[string]string{"index.html": "old"}}
	before := s.Current()
	if err := s.Rollback(entry, false); err != ErrRollbackNotConfirmed {
		t.Fatalf("err = %v, want ErrRollbackNotConfirmed", err)
	}
	if s.Current() != before {
		t.Fatalf("declined rollback must leave state untouched")
	}
}

func TestSubscribeSeesEveryCommit(t *testing.T) {
	s := New(bareProject())
	var versions []int
	s.Subscribe(func(p *domain.Project) { versions = append(versions, p.Version) })
	if err := s.DirectEdit("index.html", "a"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := s.AddScreen("<html></html>"); err != nil {
		t.Fatalf("add screen: %v", err)
	}
	if len(versions) != 2 || versions[0] != 2 || versions[1] != 3 {
		t.Fatalf("listener saw %v", versions)
	}
}

func TestMetadataUpdatesNotifyWithoutVersionBump(t *testing.T) {
	s := New(bareProject())
	var seen int
	s.Subscribe(func(p *domain.Project) { seen++ })
	s.SetInstructions("keep the header orange")
	s.SetBackend(&domain.BackendState{Status: domain.BackendConnected})
	if seen != 2 {
		t.Fatalf("listener ran %d times, want 2", seen)
	}
	if got := s.Current(); got.Version != 1 || len(got.History) != 1 {
		t.Fatalf("metadata updates must not commit: v%d, %d history entries", got.Version, len(got.History))
	}
	if s.Current().Instructions != "keep the header orange" {
		t.Fatalf("instructions not applied")
	}
}

func TestVersionCounterProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := New(bareProject())
		n := rapid.IntRange(0, 20).Draw(t, "n")
		for i := 0; i < n; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				if err := s.DirectEdit("index.html", rapid.String().Draw(t, "content")); err != nil {
					t.Fatalf("edit: %v", err)
				}
			case 1:
				if _, err := s.AddScreen("<html></html>"); err != nil {
					t.Fatalf("add screen: %v", err)
				}
			default:
				if err := s.SetScreenPosition("index.html", domain.ScreenPos{X: float32(i)}); err != nil {
					t.Fatalf("position: %v", err)
				}
			}
		}
		p := s.Current()
		if p.Version != n+1 {
			t.Fatalf("version = %d after %d commits, want %d", p.Version, n, n+1)
		}
		if len(p.History) != n {
			t.Fatalf("history length = %d, want %d", len(p.History), n)
		}
	})
}
