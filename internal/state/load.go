// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"encoding/json"
	"log"

	"github.com/morganforge/chatsphere/internal/model"
	"github.com/morganforge/chatsphere/internal/storage"
)

// storedSettings mirrors model.WorkspaceSettings with a pointer temperature
// so an absent field can be told apart from an explicit 0.0.
type storedSettings struct {
	SelectedModelID string   `json:"selectedModelId"`
	Temperature     *float64 `json:"temperature"`
}

// storedWorkspace mirrors model.Workspace for loading; settings may be
// missing entirely in data written by older versions.
type storedWorkspace struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Threads    []*model.Thread `json:"threads"`
	IsExpanded bool            `json:"isExpanded"`
	CreatedAt  int64           `json:"createdAt"`
	Settings   *storedSettings `json:"settings"`
}

// load reads the store once at startup. Malformed or missing data degrades
// to empty state; it never fails the process.
func (m *Manager) load() {
	m.loadWorkspaces()
	m.loadCursor()
	m.loadGlobalSettings()
}

func (m *Manager) loadWorkspaces() {
	raw, ok, err := m.store.Get(storage.KeyWorkspaces)
	if err != nil {
		log.Printf("state: failed to read workspaces: %v", err)
		return
	}
	if !ok {
		return
	}

	var stored []*storedWorkspace
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Printf("state: discarding malformed workspaces data: %v", err)
		return
	}

	workspaces := make([]*model.Workspace, 0, len(stored))
	for _, sw := range stored {
		if sw == nil || sw.ID == "" {
			continue
		}
		ws := &model.Workspace{
			ID:         sw.ID,
			Name:       sw.Name,
			IsExpanded: sw.IsExpanded,
			CreatedAt:  sw.CreatedAt,
			Settings:   normalizeSettings(sw.Settings),
		}
		threads := make([]*model.Thread, 0, len(sw.Threads))
		for _, th := range sw.Threads {
			if th == nil {
				continue
			}
			if th.Messages == nil {
				th.Messages = make([]model.Message, 0)
			}
			threads = append(threads, th)
		}
		ws.Threads = threads
		workspaces = append(workspaces, ws)
	}
	m.workspaces = workspaces
}

// normalizeSettings applies defaults for stored workspaces whose settings
// are missing a temperature or carry one outside [0, 2].
func normalizeSettings(s *storedSettings) model.WorkspaceSettings {
	out := model.DefaultWorkspaceSettings()
	if s == nil {
		return out
	}
	out.SelectedModelID = s.SelectedModelID
	if s.Temperature != nil {
		out.Temperature = model.ClampTemperature(*s.Temperature)
	}
	return out
}

func (m *Manager) loadCursor() {
	if id, ok, err := m.store.Get(storage.KeyActiveWorkspaceID); err == nil && ok {
		m.activeWorkspaceID = id
	}
	if id, ok, err := m.store.Get(storage.KeyActiveThreadID); err == nil && ok {
		m.activeThreadID = id
	}
	// A dangling cursor is legal state; resolution degrades at read time.
}

func (m *Manager) loadGlobalSettings() {
	raw, ok, err := m.store.Get(storage.KeyGlobalSettings)
	if err != nil {
		log.Printf("state: failed to read settings: %v", err)
		return
	}
	if !ok {
		return
	}

	var gs model.GlobalSettings
	if err := json.Unmarshal([]byte(raw), &gs); err != nil {
		log.Printf("state: discarding malformed settings data: %v", err)
		return
	}
	m.global = gs
}
