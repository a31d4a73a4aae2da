/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeStore keeps secrets in memory for tests.
type fakeStore struct{ m map[string]string }

func (f *fakeStore) Get(service, key string) (string, error) {
	v, ok := f.m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (f *fakeStore) Set(service, key, value string) error {
	f.m[service+"/"+key] = value
	return nil
}
func (f *fakeStore) Delete(service, key string) error {
	delete(f.m, service+"/"+key)
	return nil
}

func withFakeHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AppData", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Orchestrator.Model == "" || cfg.Orchestrator.TimeoutMs <= 0 {
		t.Fatalf("bad orchestrator defaults: %+v", cfg.Orchestrator)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("default log level = %q", cfg.Logging.Level)
	}
	if cfg.General.TelemetryOptIn {
		t.Fatalf("telemetry must be opt-in")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	withFakeHome(t)
	old := tokenStore
	tokenStore = &fakeStore{m: map[string]string{}}
	defer func() { tokenStore = old }()

	cfg := Defaults()
	cfg.Orchestrator.BaseURL = "https://models.example.net"
	cfg.General.WorkspaceDir = "/tmp/studio-ws"
	if err := Save(cfg, "sk-secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	p, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("config file missing: %v", err)
	}

	got, key, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Orchestrator.BaseURL != "https://models.example.net" {
		t.Errorf("base url = %q", got.Orchestrator.BaseURL)
	}
	if got.General.WorkspaceDir != "/tmp/studio-ws" {
		t.Errorf("workspace dir = %q", got.General.WorkspaceDir)
	}
	if key != "sk-secret" {
		t.Errorf("api key = %q", key)
	}
}

func TestAPIKeyNeverWrittenToDisk(t *testing.T) {
	withFakeHome(t)
	old := tokenStore
	tokenStore = &fakeStore{m: map[string]string{}}
	defer func() { tokenStore = old }()

	if err := Save(Defaults(), "sk-should-not-leak"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p, _ := ConfigPath()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if contains := string(b); len(contains) > 0 && filepath.Ext(p) == ".yaml" {
		if stringsContains(contains, "sk-should-not-leak") {
			t.Fatalf("api key leaked into config file")
		}
	}
}

func stringsContains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func TestEnvOverrides(t *testing.T) {
	withFakeHome(t)
	old := tokenStore
	tokenStore = &fakeStore{m: map[string]string{}}
	defer func() { tokenStore = old }()

	t.Setenv(EnvOrchestratorURL, "http://override:9999")
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Orchestrator.BaseURL != "http://override:9999" {
		t.Errorf("env override ignored: %q", cfg.Orchestrator.BaseURL)
	}
	if !cfg.General.TelemetryOptIn {
		t.Errorf("telemetry opt-in env override ignored")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if name, ok := EnvOverrideFor("orchestrator.base_url"); !ok || name != EnvOrchestratorURL {
		t.Errorf("EnvOverrideFor = %q, %v", name, ok)
	}
}

func TestEffectiveTimeout(t *testing.T) {
	o := OrchestratorConfig{TimeoutMs: 1500}
	if o.EffectiveTimeout() != 1500*time.Millisecond {
		t.Fatalf("EffectiveTimeout = %v", o.EffectiveTimeout())
	}
	zero := OrchestratorConfig{}
	if zero.EffectiveTimeout() <= 0 {
		t.Fatalf("zero timeout must fall back to default")
	}
}
