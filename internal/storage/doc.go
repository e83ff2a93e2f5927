// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key-value store backing the
// conversation state manager.
//
// The store is a flat key to serialized-text mapping, mirroring the browser
// localStorage contract the client was designed around. The state manager is
// its sole writer.
//
// # Keys
//
//   - "workspaces"        JSON array of workspaces (threads and messages nested)
//   - "activeWorkspaceId" plain ID string, present only when set
//   - "activeThreadId"    plain ID string, present only when set
//   - "globalSettings"    JSON object with credential and system prompt
//
// # Implementations
//
//   - SQLiteStore: durable store backed by a single-table SQLite database
//   - MemoryStore: ephemeral in-process store for tests and dry runs
//
// # Usage
//
//	store, err := storage.OpenSQLite(path)
//	defer store.Close()
//	err = store.Set(storage.KeyWorkspaces, data)
//	data, ok, err := store.Get(storage.KeyWorkspaces)
package storage
