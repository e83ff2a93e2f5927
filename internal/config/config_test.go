// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.SiteName != "ChatSphere" {
		t.Errorf("SiteName = %q", cfg.API.SiteName)
	}
	if cfg.API.TimeoutSecs != 0 {
		t.Errorf("TimeoutSecs = %d, want 0 (no timeout)", cfg.API.TimeoutSecs)
	}
	if cfg.Chat.DefaultTemperature != 0.7 {
		t.Errorf("DefaultTemperature = %v", cfg.Chat.DefaultTemperature)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad base url", func(c *Config) { c.API.BaseURL = "not a url" }, "api.base_url"},
		{"negative timeout", func(c *Config) { c.API.TimeoutSecs = -1 }, "api.timeout_secs"},
		{"temperature too high", func(c *Config) { c.Chat.DefaultTemperature = 3 }, "chat.default_temperature"},
		{"unknown theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q does not name field %s", err, tc.field)
			}
		})
	}
}

func TestSaveAndLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Chat.DefaultModel = "vendor/model-x"
	cfg.UI.Theme = "light"
	cfg.Storage.Path = filepath.Join(dir, "store.db")

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}

	loaded := Default()
	if err := LoadTOML(loaded, path); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	if loaded.Chat.DefaultModel != "vendor/model-x" {
		t.Errorf("DefaultModel = %q", loaded.Chat.DefaultModel)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("Theme = %q", loaded.UI.Theme)
	}
	if loaded.Storage.Path != cfg.Storage.Path {
		t.Errorf("Storage.Path = %q", loaded.Storage.Path)
	}
}

func TestSaveAndLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.API.TimeoutSecs = 120

	if err := SaveJSON(cfg, path); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	loaded := Default()
	if err := LoadJSON(loaded, path); err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	if loaded.API.TimeoutSecs != 120 {
		t.Errorf("TimeoutSecs = %d", loaded.API.TimeoutSecs)
	}
}

func TestLoadFromPath_UnsupportedFormat(t *testing.T) {
	_, err := LoadFromPath("/tmp/config.yaml")
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestSetDefaults_FillsOmittedSections(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.API.BaseURL == "" {
		t.Error("BaseURL not filled")
	}
	if cfg.API.RatePerSec == 0 {
		t.Error("RatePerSec not filled")
	}
	if cfg.Chat.DefaultTemperature != 0.7 {
		t.Errorf("DefaultTemperature = %v", cfg.Chat.DefaultTemperature)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CHATSPHERE_DB", "/tmp/override.db")
	t.Setenv("CHATSPHERE_BASE_URL", "http://localhost:9999/api/v1")
	t.Setenv("CHATSPHERE_TIMEOUT_SECS", "45")
	t.Setenv("CHATSPHERE_MODEL", "vendor/model-y")
	t.Setenv("CHATSPHERE_NO_MARKDOWN", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Storage.Path != "/tmp/override.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.API.BaseURL != "http://localhost:9999/api/v1" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutSecs != 45 {
		t.Errorf("TimeoutSecs = %d", cfg.API.TimeoutSecs)
	}
	if cfg.Chat.DefaultModel != "vendor/model-y" {
		t.Errorf("DefaultModel = %q", cfg.Chat.DefaultModel)
	}
	if cfg.UI.Markdown {
		t.Error("Markdown should be disabled")
	}
}

func TestApplyEnvOverrides_InvalidTimeoutIgnored(t *testing.T) {
	t.Setenv("CHATSPHERE_TIMEOUT_SECS", "not-a-number")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.API.TimeoutSecs != 0 {
		t.Errorf("TimeoutSecs = %d, want untouched default", cfg.API.TimeoutSecs)
	}
}

func TestResolvePath_Explicit(t *testing.T) {
	s := StorageConfig{Path: "/var/lib/chatsphere/store.db"}
	got, err := s.ResolvePath()
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}
	if got != "/var/lib/chatsphere/store.db" {
		t.Errorf("path = %q", got)
	}
}

func TestResolvePath_TildeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	s := StorageConfig{Path: "~/data/store.db"}
	got, err := s.ResolvePath()
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}
	if got != filepath.Join(home, "data", "store.db") {
		t.Errorf("path = %q", got)
	}
}

func TestResolvePath_DefaultUnderConfigDir(t *testing.T) {
	dir, err := ConfigDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := StorageConfig{}.ResolvePath()
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}
	if got != filepath.Join(dir, "chatsphere.db") {
		t.Errorf("path = %q", got)
	}
}

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and
// ReloadGlobal() can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_GlobalInitialization(t *testing.T) {
	ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}
	if cfg.Version == "" {
		t.Error("Config version should not be empty")
	}
	if cfg.API.BaseURL == "" {
		t.Error("API base URL should not be empty")
	}
}
