/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"appstudio/internal/domain"
	"appstudio/internal/storage"
)

func TestHandleWritesReportAndFlushesCatalog(t *testing.T) {
	root := t.TempDir()
	cat := &storage.Catalog{
		Projects: []*domain.Project{{
			ID:      "p1",
			Name:    "A",
			Files:   map[string]domain.AppFile{"index.html": domain.NewFile("index.html", "<html></html>")},
			Version: 1,
		}},
		ActiveID: "p1",
	}

	exitCode := -1
	exitFn = func(code int) { exitCode = code }
	defer func() { exitFn = os.Exit }()

	// Reaching the assertions below proves the deferred handler contained
	// the panic instead of letting it escape the closure.
	func() {
		defer func() { Handle(root, cat, recover()) }()
		panic("boom")
	}()

	if exitCode != 2 {
		t.Errorf("exit code = %d, want 2", exitCode)
	}

	reports, err := filepath.Glob(filepath.Join(root, storage.BackupsDirName, "crash-*.log"))
	if err != nil || len(reports) != 1 {
		t.Fatalf("reports = %v, err = %v", reports, err)
	}
	data, err := os.ReadFile(reports[0])
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)
	for _, want := range []string{"Panic: boom", "Stack:", "DataRoot: " + root} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing %q", want)
		}
	}

	loaded, err := storage.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.Get("p1"); got == nil || got.Name != "A" {
		t.Errorf("catalog not flushed: %+v", got)
	}
}

func TestHandleNilIsNoOp(t *testing.T) {
	called := false
	exitFn = func(int) { called = true }
	defer func() { exitFn = os.Exit }()

	func() {
		defer func() { Handle("", nil, recover()) }()
	}()

	if called {
		t.Error("exit called without a panic")
	}
}

func TestHandleWithoutRootUsesTempDir(t *testing.T) {
	exitFn = func(int) {}
	defer func() { exitFn = os.Exit }()

	before, _ := filepath.Glob(filepath.Join(os.TempDir(), "crash-*.log"))
	func() {
		defer func() { Handle("", nil, recover()) }()
		panic("nowhere to go")
	}()
	after, _ := filepath.Glob(filepath.Join(os.TempDir(), "crash-*.log"))
	if len(after) <= len(before) {
		t.Error("no crash report written to temp dir")
	}
	for _, p := range after {
		_ = os.Remove(p)
	}
}
