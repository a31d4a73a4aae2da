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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"appstudio/internal/domain"
	applog "appstudio/internal/log"
	"appstudio/internal/project"
)

// FailureNotice replaces the in-progress assistant message when a stream
// fails for any reason.
const FailureNotice = "I encountered an error."

// ErrBusy is returned when a command arrives while another is in flight.
// The session holds at most one open stream.
var ErrBusy = errors.New("orchestrator request already in flight")

// Recorder receives round-trip events; nil disables reporting.
type Recorder interface {
	Event(name string, fields map[string]any)
}

// Session owns the chat transcript and drives commands through the client
// into the project store. All methods are safe for concurrent use.
type Session struct {
	store    *project.Store
	client   *Client
	recorder Recorder
	logger   *slog.Logger

	mu       sync.Mutex
	busy     bool
	messages []domain.ChatMessage
	nextID   int
}

// NewSession wires a session over the store and client. recorder may be nil.
func NewSession(store *project.Store, client *Client, recorder Recorder) *Session {
	return &Session{
		store:    store,
		client:   client,
		recorder: recorder,
		logger:   applog.WithComponent("orchestrator"),
	}
}

// Messages returns a copy of the transcript, oldest first.
func (s *Session) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatMessage(nil), s.messages...)
}

// Busy reports whether a command stream is open.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Run sends one command and blocks until the stream resolves. The user
// message and a placeholder assistant message are appended up front; the
// placeholder fills in as explanation text streams and is replaced by the
// failure notice on any error. On success the resulting patch is committed;
// on failure the project version is untouched.
func (s *Session) Run(ctx context.Context, command string, scope Scope) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	s.append(domain.ChatMessage{Role: "user", Content: command})
	assistantID := s.append(domain.ChatMessage{Role: "assistant", Content: ""})
	s.mu.Unlock()

	start := time.Now()
	req := BuildRequest(s.store.Current(), command, scope)
	patch, err := s.client.Send(ctx, req, func(explanation string) {
		s.setContent(assistantID, explanation)
	})
	if err == nil {
		err = s.store.ApplyPatch(patch)
	}

	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()

	if err != nil {
		s.setContent(assistantID, FailureNotice)
		s.logger.Error("orchestration failed",
			slog.String("scope", string(scope)), slog.Any("error", err))
		s.record("orchestrator_round_trip", false, start)
		return err
	}
	s.setContent(assistantID, patch.Explanation)
	s.record("orchestrator_round_trip", true, start)
	return nil
}

// append adds a message and returns its id. Callers hold s.mu.
func (s *Session) append(m domain.ChatMessage) string {
	s.nextID++
	m.ID = fmt.Sprintf("msg-%d", s.nextID)
	m.Timestamp = time.Now().UnixMilli()
	s.messages = append(s.messages, m)
	return m.ID
}

func (s *Session) setContent(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Content = content
			return
		}
	}
}

func (s *Session) record(name string, ok bool, start time.Time) {
	if s.recorder == nil {
		return
	}
	s.recorder.Event(name, map[string]any{
		"ok":          ok,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}
