// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/morganforge/chatsphere/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatsphere configuration.
type Config struct {
	// Version of the configuration schema.
	Version string `toml:"version" json:"version"`

	// Storage configuration (conversation store location).
	Storage StorageConfig `toml:"storage" json:"storage"`

	// API configuration (OpenRouter endpoint and request tuning).
	API APIConfig `toml:"api" json:"api"`

	// Chat configuration (defaults applied to new workspaces).
	Chat ChatConfig `toml:"chat" json:"chat"`

	// UI configuration.
	UI UIConfig `toml:"ui" json:"ui"`
}

// StorageConfig locates the conversation store.
type StorageConfig struct {
	// Path is the SQLite database file holding workspaces, threads, and
	// settings. Empty means <config dir>/chatsphere.db. A leading ~ expands
	// to the user's home directory.
	Path string `toml:"path" json:"path"`

	// HistoryFile is where the interactive prompt persists input history.
	// Empty means <config dir>/history.
	HistoryFile string `toml:"history_file" json:"history_file"`
}

// APIConfig contains OpenRouter transport configuration.
type APIConfig struct {
	// BaseURL is the OpenRouter API base URL.
	BaseURL string `toml:"base_url" json:"base_url"`

	// TimeoutSecs is the per-request timeout in seconds. 0 means no timeout,
	// which suits long streaming completions.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`

	// SiteURL is sent as the HTTP-Referer attribution header.
	SiteURL string `toml:"site_url" json:"site_url"`

	// SiteName is sent as the X-Title attribution header.
	SiteName string `toml:"site_name" json:"site_name"`

	// RatePerSec caps sustained requests per second to the API.
	RatePerSec float64 `toml:"rate_per_sec" json:"rate_per_sec"`

	// RateBurst is the rate limiter's burst allowance.
	RateBurst int `toml:"rate_burst" json:"rate_burst"`
}

// ChatConfig contains defaults applied when creating workspaces.
type ChatConfig struct {
	// DefaultModel preselects a model for newly created workspaces.
	DefaultModel string `toml:"default_model" json:"default_model"`

	// DefaultTemperature seeds new workspace settings. Clamped to [0, 2].
	DefaultTemperature float64 `toml:"default_temperature" json:"default_temperature"`
}

// UIConfig contains terminal front-end configuration.
type UIConfig struct {
	// Theme selects the color scheme: "dark" or "light".
	Theme string `toml:"theme" json:"theme"`

	// Markdown renders assistant replies through the markdown renderer.
	Markdown bool `toml:"markdown" json:"markdown"`

	// SidebarWidth is the workspace sidebar width in columns (TUI only).
	SidebarWidth int `toml:"sidebar_width" json:"sidebar_width"`

	// CompactMode reduces vertical padding in the TUI.
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Storage: StorageConfig{
			Path:        "", // resolved to <config dir>/chatsphere.db
			HistoryFile: "", // resolved to <config dir>/history
		},

		API: APIConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			TimeoutSecs: 0, // no timeout; completions can be slow
			SiteURL:     "https://chatsphere.local",
			SiteName:    "ChatSphere",
			RatePerSec:  5,
			RateBurst:   10,
		},

		Chat: ChatConfig{
			DefaultModel:       "",
			DefaultTemperature: 0.7,
		},

		UI: UIConfig{
			Theme:        "dark",
			Markdown:     true,
			SidebarWidth: 30,
			CompactMode:  false,
		},
	}
}

// Timeout returns the API timeout as a duration. Zero means no timeout.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSecs <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSecs) * time.Second
}

// ResolvePath returns the store path with defaults and ~ expansion applied.
func (s StorageConfig) ResolvePath() (string, error) {
	return resolveUnderConfigDir(s.Path, "chatsphere.db")
}

// ResolveHistoryFile returns the prompt history path with defaults applied.
func (s StorageConfig) ResolveHistoryFile() (string, error) {
	return resolveUnderConfigDir(s.HistoryFile, "history")
}

func resolveUnderConfigDir(path, fallback string) (string, error) {
	if path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, fallback), nil
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not expand ~ in %q: %w", path, err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the chatsphere configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatsphere"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all filesystems.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from an explicit path, choosing the
// decoder by extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = LoadTOML(cfg, path)
	case ".json":
		err = LoadJSON(cfg, path)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	if err != nil {
		return nil, err
	}
	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML config path.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# chatsphere configuration file\n")
	buf.WriteString("# Generated by chatsphere - edit with care\n")
	buf.WriteString("\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// Atomic write with fsync prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects all validation failures in one pass.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.BaseURL != "" {
		if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{"api.base_url", "must be a valid absolute URL"})
		}
	}
	if c.API.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{"api.timeout_secs", "must be >= 0"})
	}
	if c.API.RatePerSec < 0 {
		errs = append(errs, ValidationError{"api.rate_per_sec", "must be >= 0"})
	}
	if c.API.RateBurst < 0 {
		errs = append(errs, ValidationError{"api.rate_burst", "must be >= 0"})
	}
	if c.Chat.DefaultTemperature < 0 || c.Chat.DefaultTemperature > 2 {
		errs = append(errs, ValidationError{"chat.default_temperature", "must be between 0 and 2"})
	}
	if c.UI.Theme != "" && c.UI.Theme != "dark" && c.UI.Theme != "light" {
		errs = append(errs, ValidationError{"ui.theme", `must be "dark" or "light"`})
	}
	if c.UI.SidebarWidth < 0 {
		errs = append(errs, ValidationError{"ui.sidebar_width", "must be >= 0"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills any zero-valued fields that have non-zero defaults.
// Loaded files may omit entire sections; this keeps them usable.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	if c.API.SiteURL == "" {
		c.API.SiteURL = def.API.SiteURL
	}
	if c.API.SiteName == "" {
		c.API.SiteName = def.API.SiteName
	}
	if c.API.RatePerSec == 0 {
		c.API.RatePerSec = def.API.RatePerSec
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = def.API.RateBurst
	}
	if c.Chat.DefaultTemperature == 0 {
		c.Chat.DefaultTemperature = def.Chat.DefaultTemperature
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = def.UI.SidebarWidth
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies CHATSPHERE_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	// CHATSPHERE_DB
	if path := os.Getenv("CHATSPHERE_DB"); path != "" {
		c.Storage.Path = path
	}

	// CHATSPHERE_BASE_URL
	if base := os.Getenv("CHATSPHERE_BASE_URL"); base != "" {
		c.API.BaseURL = base
	}

	// CHATSPHERE_TIMEOUT_SECS
	if timeout := os.Getenv("CHATSPHERE_TIMEOUT_SECS"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs >= 0 {
			c.API.TimeoutSecs = secs
		}
	}

	// CHATSPHERE_MODEL
	if model := os.Getenv("CHATSPHERE_MODEL"); model != "" {
		c.Chat.DefaultModel = model
	}

	// CHATSPHERE_THEME
	if theme := os.Getenv("CHATSPHERE_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	// CHATSPHERE_NO_MARKDOWN
	if plain := os.Getenv("CHATSPHERE_NO_MARKDOWN"); plain != "" {
		if plain == "1" || strings.ToLower(plain) == "true" {
			c.UI.Markdown = false
		}
	}
}

// =============================================================================
// GLOBAL CONFIG INSTANCE
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
