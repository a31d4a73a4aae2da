/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package orchestrator talks to the generative-model service. A command goes
// out with the full project context; the answer streams back as a growing
// text buffer that must ultimately parse as one JSON patch document. While
// the stream is in flight the explanation field is re-extracted best-effort
// for live display; nothing is committed until the final payload validates.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"appstudio/internal/config"
	"appstudio/internal/domain"
	"appstudio/internal/project"
)

// Scope hints how broad a requested change should be.
type Scope string

const (
	ScopePrecise Scope = "precise"
	ScopeGeneral Scope = "general"
	ScopeWide    Scope = "wide"
	ScopeFullApp Scope = "full-app"
)

// Request is the wire form of one orchestration command.
type Request struct {
	Command        string           `json:"command"`
	Scope          Scope            `json:"scope"`
	Model          string           `json:"model,omitempty"`
	ProjectFiles   []domain.AppFile `json:"projectFiles"`
	BackendSummary string           `json:"connectedBackendSummary,omitempty"`
	NavSummary     string           `json:"navigationSummary,omitempty"`
	Instructions   string           `json:"persistentInstructions,omitempty"`
	BasedOnVersion int              `json:"basedOnVersion"`
}

// responseDoc is the final payload shape after the stream completes.
type responseDoc struct {
	Explanation    string           `json:"explanation"`
	FilesToUpdate  []domain.AppFile `json:"filesToUpdate"`
	NewFiles       []domain.AppFile `json:"newFiles"`
	DeleteFiles    []string         `json:"deleteFiles"`
	BackendUpdates *struct {
		Collections []domain.BackendCollection `json:"collections"`
		ConfigSync  bool                       `json:"configSync"`
	} `json:"backendUpdates"`
}

// responseSchema gates the final payload before anything is applied. A
// stream that ends in text violating this document is a hard failure.
const responseSchema = `{
  "type": "object",
  "required": ["explanation"],
  "properties": {
    "explanation": {"type": "string"},
    "filesToUpdate": {"$ref": "#/definitions/files"},
    "newFiles": {"$ref": "#/definitions/files"},
    "deleteFiles": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "backendUpdates": {
      "type": "object",
      "properties": {
        "collections": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["name"],
            "properties": {
              "name": {"type": "string", "minLength": 1},
              "schema": {"type": "object", "additionalProperties": {"type": "string"}},
              "rules": {"type": "string"}
            }
          }
        },
        "configSync": {"type": "boolean"}
      }
    }
  },
  "definitions": {
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "content"],
        "properties": {
          "path": {"type": "string", "minLength": 1},
          "content": {"type": "string"},
          "language": {"type": "string"}
        }
      }
    }
  }
}`

var explanationRe = regexp.MustCompile(`"explanation":\s*"([^"]*)"`)

// ExtractExplanation pulls the explanation out of a partially received
// buffer. Empty until the opening of the field has streamed in.
func ExtractExplanation(buf string) string {
	m := explanationRe.FindStringSubmatch(buf)
	if m == nil {
		return ""
	}
	return m[1]
}

// Client sends orchestration commands over HTTP.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewClient builds a client from the orchestrator section of the config.
// baseURL may include a trailing slash; it will be normalized.
func NewClient(cfg config.OrchestratorConfig, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: cfg.EffectiveTimeout()},
	}
}

// Send posts the request and consumes the response stream. onDelta, when
// non-nil, receives each new best-effort explanation extraction as the
// buffer grows. The returned patch is only valid when err is nil; any
// failure leaves the project untouched by construction.
func (c *Client) Send(ctx context.Context, req Request, onDelta func(string)) (project.Patch, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	body, err := json.Marshal(req)
	if err != nil {
		return project.Patch{}, err
	}
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orchestrate", bytes.NewReader(body))
	if err != nil {
		return project.Patch{}, err
	}
	hr.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		hr.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(hr)
	if err != nil {
		return project.Patch{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return project.Patch{}, fmt.Errorf("orchestrator POST /v1/orchestrate: %s", resp.Status)
	}

	buf, err := c.consume(resp.Body, onDelta)
	if err != nil {
		return project.Patch{}, err
	}
	return parsePatch(buf, req.BasedOnVersion)
}

// consume reads the chunked body, growing one buffer and surfacing
// explanation deltas as they appear.
func (c *Client) consume(r io.Reader, onDelta func(string)) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)
	last := ""
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if onDelta != nil {
				if exp := ExtractExplanation(buf.String()); exp != "" && exp != last {
					last = exp
					onDelta(exp)
				}
			}
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("orchestrator stream: %w", err)
		}
	}
}

// parsePatch validates the completed buffer against the response schema and
// converts it into an applicable patch.
func parsePatch(data []byte, basedOn int) (project.Patch, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(responseSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return project.Patch{}, fmt.Errorf("orchestrator response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return project.Patch{}, fmt.Errorf("orchestrator response rejected: %s", strings.Join(problems, "; "))
	}
	var doc responseDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return project.Patch{}, fmt.Errorf("orchestrator response decode: %w", err)
	}
	p := project.Patch{
		Explanation:    doc.Explanation,
		FilesToUpdate:  doc.FilesToUpdate,
		NewFiles:       doc.NewFiles,
		DeleteFiles:    doc.DeleteFiles,
		BasedOnVersion: basedOn,
	}
	if doc.BackendUpdates != nil {
		p.Collections = doc.BackendUpdates.Collections
	}
	return p, nil
}

// BuildRequest assembles the full project context for a command.
func BuildRequest(p *domain.Project, command string, scope Scope) Request {
	files := make([]domain.AppFile, 0, len(p.Files))
	for _, path := range sortedPaths(p.Files) {
		files = append(files, p.Files[path])
	}
	return Request{
		Command:        command,
		Scope:          scope,
		ProjectFiles:   files,
		BackendSummary: backendSummary(p.Backend),
		NavSummary:     navSummary(p.Connections),
		Instructions:   p.Instructions,
		BasedOnVersion: p.Version,
	}
}

func sortedPaths(files map[string]domain.AppFile) []string {
	out := make([]string, 0, len(files))
	for path := range files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func backendSummary(b *domain.BackendState) string {
	if b == nil || b.Status != domain.BackendConnected {
		return ""
	}
	var sb strings.Builder
	for i, c := range b.Collections {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s (%d fields, %d records)", c.Name, len(c.Schema), c.RecordCount)
	}
	return sb.String()
}

func navSummary(conns []domain.NavigationConnection) string {
	var sb strings.Builder
	for i, c := range conns {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s [%s] -> %s", c.FromScreen, c.FromElementLabel, c.ToScreen)
	}
	return sb.String()
}
