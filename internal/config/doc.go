// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// chatsphere.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - StorageConfig: Conversation store location
//   - APIConfig: OpenRouter endpoint and request tuning
//   - UIConfig: Terminal front-end behavior
//   - Watcher: Reloads the global config when the file changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CHATSPHERE_*)
//   - ~/.chatsphere/config.toml
//   - ~/.chatsphere/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	dbPath, _ := cfg.Storage.ResolvePath()
//	timeout := cfg.API.Timeout()
//
// The OpenRouter API key is deliberately NOT part of this file; it lives in
// the conversation store's global settings. Config files are kept at 0600
// regardless.
package config
