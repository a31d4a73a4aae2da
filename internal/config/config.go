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
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user
// scope. Environment variables act as read-only overrides at runtime. The
// orchestrator API key never touches disk; it lives in the OS keychain.
//
// config_version: bump when the structure changes incompatibly.

type OrchestratorConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// APIKey is not stored on disk; it lives in the OS keychain.
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
	WorkspaceDir   string `yaml:"workspace_dir,omitempty"`
	AutosaveSec    int    `yaml:"autosave_sec"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int                `yaml:"config_version"`
	General       GeneralConfig      `yaml:"general"`
	Orchestrator  OrchestratorConfig `yaml:"orchestrator"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system", AutosaveSec: 30},
		Orchestrator:  OrchestratorConfig{BaseURL: "http://localhost:8091", Model: "studio-orchestrator-1", TimeoutMs: 60000},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvOrchestratorURL   = "STUDIO_ORCHESTRATOR_URL"
	EnvOrchestratorModel = "STUDIO_ORCHESTRATOR_MODEL"
	EnvOrchestratorMs    = "STUDIO_ORCHESTRATOR_TIMEOUT_MS"
	EnvTelemetryOptIn    = "STUDIO_TELEMETRY_OPT_IN"
	EnvWorkspaceDir      = "STUDIO_WORKSPACE_DIR"
	EnvLogLevel          = "STUDIO_LOG_LEVEL"
	EnvLogFormat         = "STUDIO_LOG_FORMAT"
	EnvLogSource         = "STUDIO_LOG_SOURCE"
	EnvLogFile           = "STUDIO_LOG_FILE"
)

// Service/key names for the OS keyring.
const (
	keyringService = "AppStudio"
	keyringAPIKey  = "orchestrator_api_key"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// tokenStore is swapped for a fake in tests.
var tokenStore TokenStore = osKeyring{}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "AppStudio")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "AppStudio")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "appstudio")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The orchestrator API key comes from the keyring and
// is returned separately rather than kept in the struct.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	key, _ := tokenStore.Get(keyringService, keyringAPIKey)
	return cfg, key, nil
}

// Save writes the user config YAML and persists the API key into the OS
// keyring (when non-empty).
func Save(cfg AppConfig, apiKey string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if apiKey != "" {
		if err := tokenStore.Set(keyringService, keyringAPIKey, apiKey); err != nil {
			return err
		}
	}
	return nil
}

// ClearAPIKey removes the stored orchestrator key from the keyring.
func ClearAPIKey() error { return tokenStore.Delete(keyringService, keyringAPIKey) }

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from the file so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.General.WorkspaceDir) != "" {
		dst.General.WorkspaceDir = strings.TrimSpace(src.General.WorkspaceDir)
	}
	if src.General.AutosaveSec != 0 {
		dst.General.AutosaveSec = src.General.AutosaveSec
	}
	if src.Orchestrator.BaseURL != "" {
		dst.Orchestrator.BaseURL = src.Orchestrator.BaseURL
	}
	if src.Orchestrator.Model != "" {
		dst.Orchestrator.Model = src.Orchestrator.Model
	}
	if src.Orchestrator.TimeoutMs != 0 {
		dst.Orchestrator.TimeoutMs = src.Orchestrator.TimeoutMs
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvOrchestratorURL)); v != "" {
		cfg.Orchestrator.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOrchestratorModel)); v != "" {
		cfg.Orchestrator.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOrchestratorMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Orchestrator.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		lv := strings.ToLower(v)
		cfg.General.TelemetryOptIn = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkspaceDir)); v != "" {
		cfg.General.WorkspaceDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor reports which env var (if any) overrides the given key.
func EnvOverrideFor(key string) (string, bool) {
	switch key {
	case "orchestrator.base_url":
		if os.Getenv(EnvOrchestratorURL) != "" {
			return EnvOrchestratorURL, true
		}
	case "orchestrator.model":
		if os.Getenv(EnvOrchestratorModel) != "" {
			return EnvOrchestratorModel, true
		}
	case "orchestrator.timeout_ms":
		if os.Getenv(EnvOrchestratorMs) != "" {
			return EnvOrchestratorMs, true
		}
	case "general.telemetry_opt_in":
		if os.Getenv(EnvTelemetryOptIn) != "" {
			return EnvTelemetryOptIn, true
		}
	case "general.workspace_dir":
		if os.Getenv(EnvWorkspaceDir) != "" {
			return EnvWorkspaceDir, true
		}
	case "logging.level":
		if os.Getenv(EnvLogLevel) != "" {
			return EnvLogLevel, true
		}
	case "logging.format":
		if os.Getenv(EnvLogFormat) != "" {
			return EnvLogFormat, true
		}
	case "logging.source":
		if os.Getenv(EnvLogSource) != "" {
			return EnvLogSource, true
		}
	case "logging.file":
		if os.Getenv(EnvLogFile) != "" {
			return EnvLogFile, true
		}
	}
	return "", false
}

// EffectiveTimeout returns the orchestrator request timeout as a duration.
func (o OrchestratorConfig) EffectiveTimeout() time.Duration {
	if o.TimeoutMs <= 0 {
		return time.Duration(Defaults().Orchestrator.TimeoutMs) * time.Millisecond
	}
	return time.Duration(o.TimeoutMs) * time.Millisecond
}
