// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default names for newly created containers.
const (
	DefaultWorkspaceName = "New Workspace"
	DefaultThreadName    = "New Chat"
)

// =============================================================================
// THREAD TYPE
// =============================================================================

// Thread holds one conversation: an ordered, append-only message log.
type Thread struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"` // epoch millis
}

// NewThread creates an empty thread with a generated ID and default name.
func NewThread() *Thread {
	return &Thread{
		ID:        "thread-" + uuid.New().String(),
		Name:      DefaultThreadName,
		Messages:  make([]Message, 0),
		CreatedAt: time.Now().UnixMilli(),
	}
}

// MessageCount returns the number of messages.
func (t *Thread) MessageCount() int {
	return len(t.Messages)
}

// IsEmpty returns true if there are no messages.
func (t *Thread) IsEmpty() bool {
	return len(t.Messages) == 0
}

// LastMessage returns the most recent message, or nil if empty.
func (t *Thread) LastMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}

// Preview returns the first user message truncated for listing, or an empty
// string if no user message exists.
func (t *Thread) Preview(maxRunes int) string {
	for i := range t.Messages {
		if t.Messages[i].Role == RoleUser && t.Messages[i].Content != "" {
			content := strings.ReplaceAll(t.Messages[i].Content, "\n", " ")
			content = strings.ReplaceAll(content, "\r", "")
			runes := []rune(content)
			if len(runes) > maxRunes && maxRunes > 3 {
				return string(runes[:maxRunes-3]) + "..."
			}
			return content
		}
	}
	return ""
}

// Clone creates a deep copy of the thread.
func (t *Thread) Clone() *Thread {
	clone := &Thread{
		ID:        t.ID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
		Messages:  make([]Message, len(t.Messages)),
	}
	copy(clone.Messages, t.Messages)
	return clone
}

// ExportMarkdown renders the thread as a Markdown document with role labels
// and timestamps.
func (t *Thread) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + t.Name + "\n\n")
	sb.WriteString("Created: " + time.UnixMilli(t.CreatedAt).Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for i := range t.Messages {
		msg := &t.Messages[i]
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.Time().Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// =============================================================================
// WORKSPACE TYPE
// =============================================================================

// Workspace is a top-level named container of threads with its own settings.
type Workspace struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Threads    []*Thread         `json:"threads"`
	IsExpanded bool              `json:"isExpanded"`
	CreatedAt  int64             `json:"createdAt"` // epoch millis
	Settings   WorkspaceSettings `json:"settings"`
}

// NewWorkspace creates an empty, expanded workspace with default settings.
func NewWorkspace() *Workspace {
	return &Workspace{
		ID:         "workspace-" + uuid.New().String(),
		Name:       DefaultWorkspaceName,
		Threads:    make([]*Thread, 0),
		IsExpanded: true,
		CreatedAt:  time.Now().UnixMilli(),
		Settings:   DefaultWorkspaceSettings(),
	}
}

// ThreadByID returns the thread with the given ID, or nil if absent.
func (w *Workspace) ThreadByID(id string) *Thread {
	for _, t := range w.Threads {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// RemoveThread removes the thread with the given ID, cascading deletion of
// its messages. Returns true if a thread was removed.
func (w *Workspace) RemoveThread(id string) bool {
	for i, t := range w.Threads {
		if t.ID == id {
			w.Threads = append(w.Threads[:i], w.Threads[i+1:]...)
			return true
		}
	}
	return false
}

// Clone creates a deep copy of the workspace.
func (w *Workspace) Clone() *Workspace {
	clone := &Workspace{
		ID:         w.ID,
		Name:       w.Name,
		IsExpanded: w.IsExpanded,
		CreatedAt:  w.CreatedAt,
		Settings:   w.Settings,
		Threads:    make([]*Thread, len(w.Threads)),
	}
	for i, t := range w.Threads {
		clone.Threads[i] = t.Clone()
	}
	return clone
}
