/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package amateur turns app source into plain-English logic nodes for users
// who do not read code. The scan is a heuristic line classifier, not an AST;
// it only surfaces values that are safe to edit by direct text replacement.
package amateur

import (
	"bufio"
	"regexp"
	"sort"
	"strings"

	"appstudio/internal/domain"
)

// NodeType classifies a surfaced logic node.
type NodeType int

const (
	NodeUnknown NodeType = iota
	NodeColor
	NodeText
	NodeLogic
)

// Node is one editable fact extracted from a source line.
// Value is what the user sees and may rewrite; Line is the raw source line
// it came from, kept for replacement disambiguation.
type Node struct {
	Label  string
	Value  string
	Type   NodeType
	Line   string
	LineNo int // 1-based
}

const (
	labelStyle       = "Visual Style"
	labelText        = "Display Text"
	labelInteraction = "User Interaction"

	interactionValue = "Performs an action when clicked"
)

// Patterns
var (
	reUtilityColor = regexp.MustCompile(`(bg|text)-[a-z]+-[0-9]+`)
	reInnerText    = regexp.MustCompile(`>([^<]+)<`)
)

// Scan extracts logic nodes from one file, in source order. A line can
// produce more than one node (a heading with a color class yields both a
// style and a text node).
func Scan(f domain.AppFile) []Node {
	var nodes []Node
	scanner := bufio.NewScanner(strings.NewReader(f.Content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)

		if strings.Contains(trimmed, "bg-") || strings.Contains(trimmed, "text-") {
			if m := reUtilityColor.FindString(trimmed); m != "" {
				nodes = append(nodes, Node{Label: labelStyle, Value: m, Type: NodeColor, Line: raw, LineNo: lineNo})
			}
		}

		if strings.Contains(trimmed, "<h") || strings.Contains(trimmed, "<p") || strings.Contains(trimmed, "title") {
			if m := reInnerText.FindStringSubmatch(trimmed); m != nil {
				if text := strings.TrimSpace(m[1]); text != "" {
					nodes = append(nodes, Node{Label: labelText, Value: text, Type: NodeText, Line: raw, LineNo: lineNo})
				}
			}
		}

		if strings.Contains(trimmed, "addEventListener") || strings.Contains(trimmed, "onclick") {
			nodes = append(nodes, Node{Label: labelInteraction, Value: interactionValue, Type: NodeLogic, Line: raw, LineNo: lineNo})
		}
	}
	return nodes
}

// ScanProject scans every markup and script file, keyed by path. Files
// without nodes are omitted. Paths lists the keys in sorted order for
// deterministic presentation.
func ScanProject(p *domain.Project) (map[string][]Node, []string) {
	out := make(map[string][]Node)
	var paths []string
	for path, f := range p.Files {
		if !strings.HasSuffix(path, ".html") && !strings.HasSuffix(path, ".js") {
			continue
		}
		if nodes := Scan(f); len(nodes) > 0 {
			out[path] = nodes
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return out, paths
}

// Matches reports whether a node should highlight for a search query.
// Empty queries match nothing.
func Matches(n Node, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return strings.Contains(strings.ToLower(n.Label), q) ||
		strings.Contains(strings.ToLower(n.Value), q)
}

// Sentence renders the node as the phrase shown next to its value field.
func Sentence(n Node) string {
	switch n.Type {
	case NodeColor:
		return "The element color is set to"
	case NodeText:
		return "The visible text reads"
	default:
		return "Logic rule:"
	}
}
