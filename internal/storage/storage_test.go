// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"
)

// =============================================================================
// STORE CONTRACT TESTS
// =============================================================================

// openStores returns one instance of every Store implementation.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestStore_GetAbsent(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := store.Get("missing")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if ok {
				t.Error("absent key should report ok=false")
			}
			if v != "" {
				t.Errorf("absent key value = %q, want empty", v)
			}
		})
	}
}

func TestStore_SetGetOverwrite(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(KeyWorkspaces, `[]`); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			v, ok, err := store.Get(KeyWorkspaces)
			if err != nil || !ok {
				t.Fatalf("Get after Set: v=%q ok=%v err=%v", v, ok, err)
			}
			if v != `[]` {
				t.Errorf("value = %q, want %q", v, `[]`)
			}

			// Overwrite replaces wholesale.
			if err := store.Set(KeyWorkspaces, `[{"id":"w1"}]`); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			v, _, _ = store.Get(KeyWorkspaces)
			if v != `[{"id":"w1"}]` {
				t.Errorf("value after overwrite = %q", v)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			store.Set(KeyActiveThreadID, "thread-1")
			if err := store.Delete(KeyActiveThreadID); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, ok, _ := store.Get(KeyActiveThreadID); ok {
				t.Error("key should be absent after Delete")
			}
			// Deleting an absent key is a no-op.
			if err := store.Delete(KeyActiveThreadID); err != nil {
				t.Errorf("Delete of absent key should not error: %v", err)
			}
		})
	}
}

// =============================================================================
// SQLITE-SPECIFIC TESTS
// =============================================================================

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	store.Set(KeyGlobalSettings, `{"openRouterApiKey":"sk-or-abc"}`)
	store.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.Get(KeyGlobalSettings)
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if v != `{"openRouterApiKey":"sk-or-abc"}` {
		t.Errorf("persisted value = %q", v)
	}
}

func TestOpenSQLite_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "store.db")

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	store.Close()
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Error("empty path should error")
	}
}
