/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"testing"
)

func TestLanguageForPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"index.html", "html"},
		{"app.js", "js"},
		{"screen2.nav.js", "js"},
		{"manifest.json", "json"},
		{"README", "text"},
		{"trailingdot.", "text"},
	}
	for _, c := range cases {
		if got := LanguageForPath(c.path); got != c.want {
			t.Errorf("LanguageForPath(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestHTMLFilesSortedAndFiltered(t *testing.T) {
	p := &Project{Files: map[string]AppFile{
		"screen2.html": {Path: "screen2.html"},
		"app.js":       {Path: "app.js"},
		"index.html":   {Path: "index.html"},
	}}
	got := p.HTMLFiles()
	if len(got) != 2 || got[0] != "index.html" || got[1] != "screen2.html" {
		t.Fatalf("HTMLFiles = %v", got)
	}
	if idx := p.ScreenIndex("screen2.html"); idx != 1 {
		t.Errorf("ScreenIndex(screen2.html) = %d, want 1", idx)
	}
	if idx := p.ScreenIndex("missing.html"); idx != -1 {
		t.Errorf("ScreenIndex(missing) = %d, want -1", idx)
	}
}

func TestCloneFilesIsolation(t *testing.T) {
	p := &Project{Files: map[string]AppFile{"a.html": {Path: "a.html", Content: "x"}}}
	clone := p.CloneFiles()
	clone["a.html"] = AppFile{Path: "a.html", Content: "y"}
	clone["b.html"] = AppFile{Path: "b.html"}
	if p.Files["a.html"].Content != "x" {
		t.Fatalf("clone mutation leaked into original")
	}
	if _, ok := p.Files["b.html"]; ok {
		t.Fatalf("clone insert leaked into original")
	}
}

func TestProjectSerializesRoundTrip(t *testing.T) {
	p := Project{
		ID:      "p1",
		Name:    "Demo",
		Files:   map[string]AppFile{"index.html": NewFile("index.html", "<html></html>")},
		Version: 1,
		Positions: map[string]ScreenPos{
			"index.html": {X: 12, Y: -8},
		},
		Connections: []NavigationConnection{{
			ID: "c1", FromScreen: "index.html", FromElementID: "main-btn",
			FromElementLabel: "Go", ToScreen: "screen2.html", Action: ActionNavigate,
		}},
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Project
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "Demo" || got.Files["index.html"].Language != "html" {
		t.Fatalf("round trip lost data: %+v", got)
	}
	if got.Connections[0].Action != ActionNavigate {
		t.Fatalf("connection action lost: %+v", got.Connections[0])
	}
}
