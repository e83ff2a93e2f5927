// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/morganforge/chatsphere/internal/model"
	"github.com/morganforge/chatsphere/internal/storage"
)

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the conversation hierarchy, the selection cursor, and the
// global settings. See the package documentation for mutation semantics.
type Manager struct {
	mu sync.Mutex

	store storage.Store

	workspaces        []*model.Workspace
	activeWorkspaceID string
	activeThreadID    string
	global            model.GlobalSettings

	subscribers []func()
}

// NewManager creates a manager bound to the given store and loads any
// previously persisted state. Malformed or missing stored data falls back to
// an empty workspace list and default settings; loading never fails fatally.
func NewManager(store storage.Store) *Manager {
	m := &Manager{
		store:      store,
		workspaces: make([]*model.Workspace, 0),
		global:     model.DefaultGlobalSettings(),
	}
	m.load()
	return m
}

// Subscribe registers a callback invoked synchronously after every applied
// mutation. Callbacks run outside the manager's lock and must not block.
func (m *Manager) Subscribe(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Close performs a final synchronous flush and closes the store.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.persistLocked()
	m.mu.Unlock()
	return m.store.Close()
}

// =============================================================================
// WORKSPACE OPERATIONS
// =============================================================================

// CreateWorkspace appends a new workspace with a generated ID, default name,
// empty thread list, expanded state, and default settings. It returns a copy
// of the created workspace.
func (m *Manager) CreateWorkspace() model.Workspace {
	m.mu.Lock()
	ws := model.NewWorkspace()
	m.workspaces = append(m.workspaces, ws)
	m.persistLocked()
	m.mu.Unlock()

	m.notify()
	return *ws.Clone()
}

// RenameWorkspace replaces the workspace name. Unknown IDs are a no-op.
// Name emptiness is not validated here; callers reject blank names before
// invoking the operation.
func (m *Manager) RenameWorkspace(workspaceID, name string) {
	m.mutate(func() bool {
		ws := m.workspaceByIDLocked(workspaceID)
		if ws == nil {
			return false
		}
		ws.Name = name
		return true
	})
}

// ToggleWorkspaceExpanded flips the sidebar expansion flag. Unknown IDs are
// a no-op.
func (m *Manager) ToggleWorkspaceExpanded(workspaceID string) {
	m.mutate(func() bool {
		ws := m.workspaceByIDLocked(workspaceID)
		if ws == nil {
			return false
		}
		ws.IsExpanded = !ws.IsExpanded
		return true
	})
}

// DeleteWorkspace removes the workspace and cascades deletion of its threads
// and messages. If the deleted workspace was active, both cursor fields are
// cleared. Unknown IDs are a no-op.
func (m *Manager) DeleteWorkspace(workspaceID string) {
	m.mutate(func() bool {
		for i, ws := range m.workspaces {
			if ws.ID == workspaceID {
				m.workspaces = append(m.workspaces[:i], m.workspaces[i+1:]...)
				if m.activeWorkspaceID == workspaceID {
					m.activeWorkspaceID = ""
					m.activeThreadID = ""
				}
				return true
			}
		}
		return false
	})
}

// UpdateWorkspaceSettings replaces the workspace settings wholesale,
// clamping the temperature into [0, 2] even though callers are expected to
// have validated it. Unknown IDs are a no-op.
func (m *Manager) UpdateWorkspaceSettings(workspaceID string, settings model.WorkspaceSettings) {
	m.mutate(func() bool {
		ws := m.workspaceByIDLocked(workspaceID)
		if ws == nil {
			return false
		}
		ws.Settings = settings.Normalized()
		return true
	})
}

// =============================================================================
// THREAD OPERATIONS
// =============================================================================

// CreateThread appends a new empty thread to the workspace and moves the
// selection cursor to it: a freshly created thread is always the one the
// user sees next. Returns a copy of the thread, or nil if the workspace does
// not exist.
func (m *Manager) CreateThread(workspaceID string) *model.Thread {
	m.mu.Lock()
	ws := m.workspaceByIDLocked(workspaceID)
	if ws == nil {
		m.mu.Unlock()
		return nil
	}
	th := model.NewThread()
	ws.Threads = append(ws.Threads, th)
	m.activeWorkspaceID = workspaceID
	m.activeThreadID = th.ID
	m.persistLocked()
	m.mu.Unlock()

	m.notify()
	return th.Clone()
}

// RenameThread replaces the thread name. A no-op if either ID is unresolved.
func (m *Manager) RenameThread(workspaceID, threadID, name string) {
	m.mutate(func() bool {
		th := m.threadByIDLocked(workspaceID, threadID)
		if th == nil {
			return false
		}
		th.Name = name
		return true
	})
}

// DeleteThread removes the thread, cascading deletion of its messages. If
// the deleted thread was active, the active thread is cleared while the
// active workspace is left untouched; readers treat that cursor shape as
// "no conversation selected".
func (m *Manager) DeleteThread(workspaceID, threadID string) {
	m.mutate(func() bool {
		ws := m.workspaceByIDLocked(workspaceID)
		if ws == nil {
			return false
		}
		if !ws.RemoveThread(threadID) {
			return false
		}
		if m.activeThreadID == threadID {
			m.activeThreadID = ""
		}
		return true
	})
}

// =============================================================================
// SELECTION
// =============================================================================

// SetActiveSelection unconditionally sets both cursor fields. Existence is
// not validated: selecting a nonexistent pair is legal state, and read-time
// resolution falls back to "no conversation selected".
func (m *Manager) SetActiveSelection(workspaceID, threadID string) {
	m.mu.Lock()
	m.activeWorkspaceID = workspaceID
	m.activeThreadID = threadID
	m.persistLocked()
	m.mu.Unlock()

	m.notify()
}

// Selection returns the raw cursor fields.
func (m *Manager) Selection() (workspaceID, threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeWorkspaceID, m.activeThreadID
}

// ActiveWorkspace resolves the cursor to a workspace copy, or nil when the
// cursor is unset or dangling.
func (m *Manager) ActiveWorkspace() *model.Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := m.workspaceByIDLocked(m.activeWorkspaceID)
	if ws == nil {
		return nil
	}
	return ws.Clone()
}

// ActiveThread resolves the cursor to a thread copy, or nil when no thread
// is selected or the reference dangles.
func (m *Manager) ActiveThread() *model.Thread {
	m.mu.Lock()
	defer m.mu.Unlock()
	th := m.threadByIDLocked(m.activeWorkspaceID, m.activeThreadID)
	if th == nil {
		return nil
	}
	return th.Clone()
}

// =============================================================================
// MESSAGES
// =============================================================================

// AppendMessage appends a new message to the thread. A no-op returning nil
// if workspace or thread is not found.
//
// The target is resolved by identifier against current state at call time,
// never against a reference captured before an asynchronous wait. Combined
// with the manager's lock this makes back-to-back appends safe: a user
// message immediately followed by the assistant reply can never lose either
// append.
func (m *Manager) AppendMessage(workspaceID, threadID, content string, role model.Role) *model.Message {
	m.mu.Lock()
	th := m.threadByIDLocked(workspaceID, threadID)
	if th == nil {
		m.mu.Unlock()
		return nil
	}
	msg := model.NewMessage(role, content)
	th.Messages = append(th.Messages, msg)
	m.persistLocked()
	m.mu.Unlock()

	m.notify()
	return &msg
}

// ThreadMessages returns a copy of the thread's current message sequence.
// ok is false when either ID does not resolve.
func (m *Manager) ThreadMessages(workspaceID, threadID string) (messages []model.Message, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	th := m.threadByIDLocked(workspaceID, threadID)
	if th == nil {
		return nil, false
	}
	out := make([]model.Message, len(th.Messages))
	copy(out, th.Messages)
	return out, true
}

// =============================================================================
// SETTINGS
// =============================================================================

// GlobalSettings returns the current global settings.
func (m *Manager) GlobalSettings() model.GlobalSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.global
}

// UpdateGlobalSettings replaces the global settings wholesale.
func (m *Manager) UpdateGlobalSettings(settings model.GlobalSettings) {
	m.mu.Lock()
	m.global = settings
	m.persistLocked()
	m.mu.Unlock()

	m.notify()
}

// WorkspaceSettings returns the settings for the workspace, with ok=false
// when the ID does not resolve.
func (m *Manager) WorkspaceSettings(workspaceID string) (settings model.WorkspaceSettings, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := m.workspaceByIDLocked(workspaceID)
	if ws == nil {
		return model.WorkspaceSettings{}, false
	}
	return ws.Settings, true
}

// =============================================================================
// READ ACCESSORS
// =============================================================================

// Workspaces returns deep copies of all workspaces in creation order.
func (m *Manager) Workspaces() []*model.Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Workspace, len(m.workspaces))
	for i, ws := range m.workspaces {
		out[i] = ws.Clone()
	}
	return out
}

// WorkspaceByID returns a deep copy of the workspace, or nil if absent.
func (m *Manager) WorkspaceByID(workspaceID string) *model.Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := m.workspaceByIDLocked(workspaceID)
	if ws == nil {
		return nil
	}
	return ws.Clone()
}

// =============================================================================
// INTERNALS
// =============================================================================

// mutate runs fn under the lock and, when fn reports a change, persists and
// notifies. Mutations that touch the hierarchy but resolve nothing leave
// state byte-for-byte unchanged.
func (m *Manager) mutate(fn func() bool) {
	m.mu.Lock()
	changed := fn()
	if changed {
		m.persistLocked()
	}
	m.mu.Unlock()

	if changed {
		m.notify()
	}
}

func (m *Manager) workspaceByIDLocked(id string) *model.Workspace {
	if id == "" {
		return nil
	}
	for _, ws := range m.workspaces {
		if ws.ID == id {
			return ws
		}
	}
	return nil
}

func (m *Manager) threadByIDLocked(workspaceID, threadID string) *model.Thread {
	ws := m.workspaceByIDLocked(workspaceID)
	if ws == nil || threadID == "" {
		return nil
	}
	return ws.ThreadByID(threadID)
}

// notify invokes subscriber callbacks outside the lock.
func (m *Manager) notify() {
	m.mu.Lock()
	subs := make([]func(), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// persistLocked writes the full hierarchy, cursor, and settings to the
// store. The write is part of the same synchronous step as the mutation; a
// failure is logged, never propagated, because the in-memory mutation has
// already been applied.
func (m *Manager) persistLocked() {
	data, err := json.Marshal(m.workspaces)
	if err != nil {
		log.Printf("state: failed to serialize workspaces: %v", err)
	} else if err := m.store.Set(storage.KeyWorkspaces, string(data)); err != nil {
		log.Printf("state: failed to persist workspaces: %v", err)
	}

	m.persistCursorKey(storage.KeyActiveWorkspaceID, m.activeWorkspaceID)
	m.persistCursorKey(storage.KeyActiveThreadID, m.activeThreadID)

	gs, err := json.Marshal(m.global)
	if err != nil {
		log.Printf("state: failed to serialize settings: %v", err)
	} else if err := m.store.Set(storage.KeyGlobalSettings, string(gs)); err != nil {
		log.Printf("state: failed to persist settings: %v", err)
	}
}

// persistCursorKey writes a cursor ID when set and removes the key when
// cleared, so a cleared selection cannot resurrect from a stale stored value.
func (m *Manager) persistCursorKey(key, value string) {
	var err error
	if value == "" {
		err = m.store.Delete(key)
	} else {
		err = m.store.Set(key, value)
	}
	if err != nil {
		log.Printf("state: failed to persist %s: %v", key, err)
	}
}
