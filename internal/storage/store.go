// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

// Well-known store keys. The contract matches the original browser client:
// whole values are replaced on every write, never patched.
const (
	KeyWorkspaces        = "workspaces"
	KeyActiveWorkspaceID = "activeWorkspaceId"
	KeyActiveThreadID    = "activeThreadId"
	KeyGlobalSettings    = "globalSettings"
)

// Store is a flat key to serialized-text durable store.
//
// Get returns ok=false when the key is absent; absence is not an error.
// Set replaces the value wholesale. Delete of an absent key is a no-op.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore is an ephemeral Store for tests and dry runs.
// It is not safe for concurrent use; the state manager serializes access.
type MemoryStore struct {
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key, with ok=false when absent.
func (s *MemoryStore) Get(key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

// Set replaces the value for key.
func (s *MemoryStore) Set(key, value string) error {
	s.values[key] = value
	return nil
}

// Delete removes key if present.
func (s *MemoryStore) Delete(key string) error {
	delete(s.values, key)
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	return len(s.values)
}
