// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/morganforge/chatsphere/internal/state"
	"github.com/morganforge/chatsphere/internal/ui/styles"
	"github.com/morganforge/chatsphere/internal/util"
)

// =============================================================================
// SIDEBAR ROWS
// =============================================================================

type rowKind int

const (
	rowWorkspace rowKind = iota
	rowThread
)

// sidebarRow is one visible line in the workspace tree.
type sidebarRow struct {
	kind        rowKind
	workspaceID string
	threadID    string
	label       string
	expanded    bool
	active      bool
}

// Sidebar renders the workspace/thread tree and tracks its own cursor,
// independent of the conversation selection.
type Sidebar struct {
	manager *state.Manager
	theme   *styles.Theme

	// busy reports whether a thread has a submission in flight.
	busy func(threadID string) bool

	rows   []sidebarRow
	cursor int
	width  int
	height int
}

// NewSidebar creates a sidebar bound to the state manager. busy may be nil.
func NewSidebar(manager *state.Manager, theme *styles.Theme, busy func(threadID string) bool) *Sidebar {
	s := &Sidebar{manager: manager, theme: theme, busy: busy}
	s.Refresh()
	return s
}

// SetSize updates the sidebar dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// Refresh rebuilds the visible rows from the current state. Collapsed
// workspaces hide their threads. The cursor is clamped into range.
func (s *Sidebar) Refresh() {
	activeWorkspaceID, activeThreadID := s.manager.Selection()

	rows := make([]sidebarRow, 0)
	for _, ws := range s.manager.Workspaces() {
		rows = append(rows, sidebarRow{
			kind:        rowWorkspace,
			workspaceID: ws.ID,
			label:       ws.Name,
			expanded:    ws.IsExpanded,
			active:      ws.ID == activeWorkspaceID,
		})
		if !ws.IsExpanded {
			continue
		}
		for _, th := range ws.Threads {
			rows = append(rows, sidebarRow{
				kind:        rowThread,
				workspaceID: ws.ID,
				threadID:    th.ID,
				label:       th.Name,
				active:      th.ID == activeThreadID && ws.ID == activeWorkspaceID,
			})
		}
	}
	s.rows = rows

	if s.cursor >= len(rows) {
		s.cursor = len(rows) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// MoveUp moves the cursor one row up.
func (s *Sidebar) MoveUp() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// MoveDown moves the cursor one row down.
func (s *Sidebar) MoveDown() {
	if s.cursor < len(s.rows)-1 {
		s.cursor++
	}
}

// Selected returns the row under the cursor, or nil when the tree is empty.
func (s *Sidebar) Selected() *sidebarRow {
	if len(s.rows) == 0 {
		return nil
	}
	return &s.rows[s.cursor]
}

// Activate applies the row under the cursor: a thread row becomes the active
// selection, a workspace row toggles expansion.
func (s *Sidebar) Activate() {
	row := s.Selected()
	if row == nil {
		return
	}
	switch row.kind {
	case rowThread:
		s.manager.SetActiveSelection(row.workspaceID, row.threadID)
	case rowWorkspace:
		s.manager.ToggleWorkspaceExpanded(row.workspaceID)
	}
	s.Refresh()
}

// ToggleExpand collapses or expands the workspace under or above the cursor.
func (s *Sidebar) ToggleExpand() {
	row := s.Selected()
	if row == nil {
		return
	}
	s.manager.ToggleWorkspaceExpanded(row.workspaceID)
	s.Refresh()
}

// View renders the sidebar.
func (s *Sidebar) View(focused bool) string {
	var b strings.Builder

	if len(s.rows) == 0 {
		b.WriteString(s.theme.SidebarHint.Render("no workspaces"))
	}

	innerWidth := s.width - 3
	if innerWidth < 4 {
		innerWidth = 4
	}

	visible := s.rows
	offset := 0
	if s.height > 0 && len(visible) > s.height {
		// Keep the cursor in view.
		offset = s.cursor - s.height/2
		if offset < 0 {
			offset = 0
		}
		if offset+s.height > len(visible) {
			offset = len(visible) - s.height
		}
		visible = visible[offset : offset+s.height]
	}

	for i, row := range visible {
		idx := i + offset
		label := util.TruncateWidth(row.label, innerWidth)

		var line string
		switch row.kind {
		case rowWorkspace:
			chevron := "▸ "
			if row.expanded {
				chevron = "▾ "
			}
			style := s.theme.WorkspaceRow
			if row.active {
				style = s.theme.WorkspaceRowActive
			}
			line = style.Render(chevron + label)
		case rowThread:
			style := s.theme.ThreadRow
			if row.active {
				style = s.theme.ThreadRowActive
			}
			if s.busyThread(row.threadID) {
				style = s.theme.ThreadRowBusy
			}
			line = style.Render(label)
		}

		if focused && idx == s.cursor {
			line = "▌" + line
		} else {
			line = " " + line
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	frame := s.theme.Sidebar
	if focused {
		frame = s.theme.SidebarFocused
	}
	return frame.Width(s.width).Height(s.height).Render(strings.TrimRight(b.String(), "\n"))
}

func (s *Sidebar) busyThread(threadID string) bool {
	if s.busy == nil {
		return false
	}
	return s.busy(threadID)
}
