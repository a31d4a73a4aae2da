/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package navgraph

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"appstudio/internal/domain"
)

func TestGluePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"index.html", "index.nav.js"},
		{"screen2.html", "screen2.nav.js"},
		{"nested/detail.html", "nested/detail.nav.js"},
	}
	for _, c := range cases {
		if got := GluePath(c.in); got != c.want {
			t.Fatalf("GluePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGenerateGlueEmpty(t *testing.T) {
	if got := GenerateGlue(nil); got != "" {
		t.Fatalf("empty connection set should yield empty output, got %q", got)
	}
}

func TestGenerateGlueHandlerContent(t *testing.T) {
	out := GenerateGlue([]domain.NavigationConnection{{
		ID:               "c1",
		FromScreen:       "index.html",
		FromElementID:    "go-btn",
		FromElementLabel: "Go",
		ToScreen:         "screen2.html",
		Action:           domain.ActionNavigate,
	}})

	for _, want := range []string{
		"document.getElementById('go-btn')",
		"document.querySelector('.go-btn')",
		"e.preventDefault();",
		"window.location.href = 'screen2.html';",
		"// Navigation: Go -> screen2.html",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("glue output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateGlueEscapesQuotes(t *testing.T) {
	out := GenerateGlue([]domain.NavigationConnection{{
		FromElementID: "it's", ToScreen: "screen2.html",
	}})
	if !strings.Contains(out, `getElementById('it\'s')`) {
		t.Fatalf("element id quotes not escaped:\n%s", out)
	}
}

func TestGenerateGlueOneHandlerPerConnection(t *testing.T) {
	out := GenerateGlue([]domain.NavigationConnection{
		{FromElementID: "a", ToScreen: "screen2.html"},
		{FromElementID: "b", ToScreen: "screen3.html"},
	})
	if got := strings.Count(out, "addEventListener('click'"); got != 2 {
		t.Fatalf("expected 2 click handlers, got %d", got)
	}
}

func TestGenerateGlueIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		conns := make([]domain.NavigationConnection, n)
		for i := range conns {
			conns[i] = domain.NavigationConnection{
				FromElementID:    rapid.StringMatching(`[a-z][a-z0-9-]{0,12}`).Draw(t, "id"),
				FromElementLabel: rapid.StringMatching(`[A-Za-z ]{0,16}`).Draw(t, "label"),
				ToScreen:         rapid.StringMatching(`[a-z]{1,8}\.html`).Draw(t, "to"),
			}
		}
		if GenerateGlue(conns) != GenerateGlue(conns) {
			t.Fatalf("regeneration from an unchanged subset must be byte-identical")
		}
	})
}

func TestOutgoingFromPreservesOrder(t *testing.T) {
	conns := []domain.NavigationConnection{
		{ID: "1", FromScreen: "index.html"},
		{ID: "2", FromScreen: "screen2.html"},
		{ID: "3", FromScreen: "index.html"},
	}
	got := OutgoingFrom(conns, "index.html")
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
}

func TestIsDuplicate(t *testing.T) {
	existing := []domain.NavigationConnection{
		{FromScreen: "index.html", FromElementID: "go", ToScreen: "screen2.html"},
	}
	dup := domain.NavigationConnection{FromScreen: "index.html", FromElementID: "go", ToScreen: "screen2.html", ID: "other"}
	if !IsDuplicate(existing, dup) {
		t.Fatalf("same triple should be a duplicate regardless of id")
	}
	other := domain.NavigationConnection{FromScreen: "index.html", FromElementID: "go", ToScreen: "screen3.html"}
	if IsDuplicate(existing, other) {
		t.Fatalf("different target screen is not a duplicate")
	}
}
