/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

// Studio event names. Props carry counts and flags only, never file
// contents, commands, or project names.
const (
	EventScreenAdded           = "screen_added"
	EventConnectionAdded       = "connection_added"
	EventConnectionRemoved     = "connection_removed"
	EventOrchestratorRoundTrip = "orchestrator_round_trip"
	EventRollback              = "rollback"
	EventBuildFinished         = "build_finished"
)

// ScreenAdded records that a screen was added, with the resulting count.
func ScreenAdded(screenCount int) {
	Event(EventScreenAdded, map[string]any{"screens": screenCount})
}

// ConnectionAdded records a new navigation connection and its action kind.
func ConnectionAdded(action string, total int) {
	Event(EventConnectionAdded, map[string]any{"action": action, "connections": total})
}

// ConnectionRemoved records a navigation connection removal.
func ConnectionRemoved(total int) {
	Event(EventConnectionRemoved, map[string]any{"connections": total})
}

// Rollback records a history rollback to an earlier version.
func Rollback(versionsBack int) {
	Event(EventRollback, map[string]any{"versions_back": versionsBack})
}

// BuildFinished records a simulated build outcome.
func BuildFinished(flavor string, ok bool) {
	Event(EventBuildFinished, map[string]any{"flavor": flavor, "ok": ok})
}

// EventRecorder adapts the package-level sender for callers that accept an
// event sink interface instead of importing telemetry directly.
type EventRecorder struct{}

// Event implements the sink: it forwards to the default client.
func (EventRecorder) Event(name string, props map[string]any) { Event(name, props) }
