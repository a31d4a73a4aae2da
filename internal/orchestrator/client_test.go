/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"appstudio/internal/config"
	"appstudio/internal/domain"
)

func testClient(url string) *Client {
	return NewClient(config.OrchestratorConfig{BaseURL: url, Model: "m1", TimeoutMs: 5000}, "secret")
}

// chunkServer streams the given pieces with a flush between each, so the
// client sees the body grow incrementally.
func chunkServer(t *testing.T, pieces ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fl, ok := w.(http.Flusher)
		if !ok {
			t.Fatalf("test server must support flushing")
		}
		for _, p := range pieces {
			if _, err := w.Write([]byte(p)); err != nil {
				return
			}
			fl.Flush()
		}
	}))
}

func TestSendParsesStreamedPatch(t *testing.T) {
	body := `{"explanation":"Adds a settings screen","newFiles":[{"path":"settings.html","content":"<html></html>"}],"filesToUpdate":[{"path":"app.js","content":"// v2","language":"js"}],"deleteFiles":["old.html"]}`
	srv := chunkServer(t, body[:40], body[40:])
	defer srv.Close()

	var deltas []string
	patch, err := testClient(srv.URL).Send(context.Background(),
		Request{Command: "add settings", Scope: ScopeGeneral, BasedOnVersion: 3},
		func(s string) { deltas = append(deltas, s) })
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if patch.Explanation != "Adds a settings screen" {
		t.Fatalf("explanation = %q", patch.Explanation)
	}
	if len(patch.NewFiles) != 1 || patch.NewFiles[0].Path != "settings.html" {
		t.Fatalf("new files = %+v", patch.NewFiles)
	}
	if len(patch.FilesToUpdate) != 1 || patch.FilesToUpdate[0].Language != "js" {
		t.Fatalf("updates = %+v", patch.FilesToUpdate)
	}
	if len(patch.DeleteFiles) != 1 || patch.DeleteFiles[0] != "old.html" {
		t.Fatalf("deletes = %+v", patch.DeleteFiles)
	}
	if patch.BasedOnVersion != 3 {
		t.Fatalf("based-on = %d", patch.BasedOnVersion)
	}
	if len(deltas) == 0 || deltas[len(deltas)-1] != "Adds a settings screen" {
		t.Fatalf("deltas = %v", deltas)
	}
}

func TestSendExtractsExplanationMidStream(t *testing.T) {
	// The explanation closes in the first chunk; the rest of the document
	// is still outstanding when the first delta fires.
	srv := chunkServer(t,
		`{"explanation":"Working on it","filesToUpdate`,
		`":[]}`)
	defer srv.Close()

	var first string
	_, err := testClient(srv.URL).Send(context.Background(), Request{Command: "x"}, func(s string) {
		if first == "" {
			first = s
		}
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if first != "Working on it" {
		t.Fatalf("first delta = %q", first)
	}
}

func TestSendRejectsInvalidJSON(t *testing.T) {
	srv := chunkServer(t, `{"explanation":"oops"`)
	defer srv.Close()
	if _, err := testClient(srv.URL).Send(context.Background(), Request{Command: "x"}, nil); err == nil {
		t.Fatalf("truncated stream must fail")
	}
}

func TestSendRejectsSchemaViolations(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing explanation", `{"filesToUpdate":[]}`},
		{"file without path", `{"explanation":"x","newFiles":[{"content":"y"}]}`},
		{"delete of non-string", `{"explanation":"x","deleteFiles":[42]}`},
		{"collection without name", `{"explanation":"x","backendUpdates":{"collections":[{"schema":{}}]}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := chunkServer(t, tc.body)
			defer srv.Close()
			if _, err := testClient(srv.URL).Send(context.Background(), Request{Command: "x"}, nil); err == nil {
				t.Fatalf("payload %q must be rejected", tc.body)
			}
		})
	}
}

func TestSendSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	if _, err := testClient(srv.URL).Send(context.Background(), Request{Command: "x"}, nil); err == nil {
		t.Fatalf("5xx must fail")
	}
}

func TestSendCarriesAuthAndModel(t *testing.T) {
	var gotAuth string
	var gotReq Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"explanation":"ok"}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Send(context.Background(), Request{Command: "x", Scope: ScopePrecise}, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotReq.Model != "m1" {
		t.Fatalf("model not defaulted: %q", gotReq.Model)
	}
	if gotReq.Scope != ScopePrecise {
		t.Fatalf("scope = %q", gotReq.Scope)
	}
}

func TestSendConvertsBackendCollections(t *testing.T) {
	srv := chunkServer(t, `{"explanation":"x","backendUpdates":{"collections":[{"name":"users","schema":{"email":"string"}}],"configSync":true}}`)
	defer srv.Close()
	patch, err := testClient(srv.URL).Send(context.Background(), Request{Command: "x"}, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(patch.Collections) != 1 || patch.Collections[0].Name != "users" {
		t.Fatalf("collections = %+v", patch.Collections)
	}
}

func TestExtractExplanation(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"explanation":"done"}`, "done"},
		{`{"explanation": "spaced"`, "spaced"},
		{`{"explanation":"partial`, ""},
		{`{"files":[]}`, ""},
		{`{"explanation":""}`, ""},
	}
	for _, tc := range cases {
		if got := ExtractExplanation(tc.in); got != tc.want {
			t.Errorf("ExtractExplanation(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildRequestContext(t *testing.T) {
	p := &domain.Project{
		Version: 7,
		Files: map[string]domain.AppFile{
			"index.html": domain.NewFile("index.html", "<html></html>"),
			"app.js":     domain.NewFile("app.js", "// app"),
		},
		Connections: []domain.NavigationConnection{
			{FromScreen: "index.html", FromElementLabel: "Go", ToScreen: "screen2.html"},
		},
		Backend: &domain.BackendState{
			Status: domain.BackendConnected,
			Collections: []domain.BackendCollection{
				{Name: "users", Schema: map[string]string{"email": "string"}, RecordCount: 12},
			},
		},
		Instructions: "keep it dark themed",
	}
	req := BuildRequest(p, "do it", ScopeWide)
	if req.BasedOnVersion != 7 {
		t.Fatalf("based-on = %d", req.BasedOnVersion)
	}
	if len(req.ProjectFiles) != 2 || req.ProjectFiles[0].Path != "app.js" {
		t.Fatalf("files not sorted: %+v", req.ProjectFiles)
	}
	if req.NavSummary != "index.html [Go] -> screen2.html" {
		t.Fatalf("nav summary = %q", req.NavSummary)
	}
	if req.BackendSummary != "users (1 fields, 12 records)" {
		t.Fatalf("backend summary = %q", req.BackendSummary)
	}
	if req.Instructions != "keep it dark themed" {
		t.Fatalf("instructions = %q", req.Instructions)
	}
}

func TestBuildRequestSkipsDisconnectedBackend(t *testing.T) {
	p := &domain.Project{
		Files: map[string]domain.AppFile{},
		Backend: &domain.BackendState{
			Status:      domain.BackendDisconnected,
			Collections: []domain.BackendCollection{{Name: "users"}},
		},
	}
	if got := BuildRequest(p, "x", ScopeGeneral).BackendSummary; got != "" {
		t.Fatalf("disconnected backend must not be summarized, got %q", got)
	}
}
