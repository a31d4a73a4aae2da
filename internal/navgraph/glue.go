/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package navgraph

import (
	"fmt"
	"strings"

	"appstudio/internal/domain"
)

// GluePath derives the companion navigation script path for a screen by
// suffix swap: index.html -> index.nav.js.
func GluePath(screen string) string {
	return strings.Replace(screen, ".html", ".nav.js", 1)
}

// GenerateGlue emits the navigation script for one source screen from its
// outgoing connections. The output is a plain browser script with one
// immediately-invoked click handler per connection; element lookup tries the
// id first, then a class of the same name. Generation is byte-idempotent for
// an unchanged connection subset, and an empty subset yields the empty
// string (the caller deletes the file instead of writing a stub).
func GenerateGlue(conns []domain.NavigationConnection) string {
	if len(conns) == 0 {
		return ""
	}
	handlers := make([]string, 0, len(conns))
	for _, c := range conns {
		id := strings.ReplaceAll(c.FromElementID, "'", "\\'")
		handlers = append(handlers, fmt.Sprintf(`
// Navigation: %s -> %s
(function() {
  var el = document.getElementById('%s') || document.querySelector('.%s');
  if (el) {
    el.addEventListener('click', function(e) {
      e.preventDefault();
      window.location.href = '%s';
    });
  }
})();`, c.FromElementLabel, c.ToScreen, id, id, c.ToScreen))
	}
	return "\n// === Auto-generated Navigation (App Studio) ===\n" +
		strings.Join(handlers, "\n") +
		"\n// === End Navigation ===\n"
}

// OutgoingFrom filters conns down to those originating at screen, preserving
// set order so regeneration stays deterministic.
func OutgoingFrom(conns []domain.NavigationConnection, screen string) []domain.NavigationConnection {
	var out []domain.NavigationConnection
	for _, c := range conns {
		if c.FromScreen == screen {
			out = append(out, c)
		}
	}
	return out
}

// IsDuplicate reports whether conns already holds an entry with the same
// (fromScreen, fromElementId, toScreen) triple. Linear scan; connection
// counts stay small.
func IsDuplicate(conns []domain.NavigationConnection, c domain.NavigationConnection) bool {
	for _, e := range conns {
		if e.FromScreen == c.FromScreen && e.FromElementID == c.FromElementID && e.ToScreen == c.ToScreen {
			return true
		}
	}
	return false
}
