// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
	if !strings.HasPrefix(msg.ID, "message-user-") {
		t.Errorf("ID should start with 'message-user-', got %q", msg.ID)
	}
	if msg.Timestamp == 0 {
		t.Error("Timestamp should be set")
	}
}

func TestNewMessage_DistinctIDs(t *testing.T) {
	// Two messages created back to back land in the same millisecond; the
	// random suffix must still keep their IDs distinct.
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		msg := NewMessage(RoleAssistant, "x")
		if seen[msg.ID] {
			t.Fatalf("duplicate message ID %q after %d messages", msg.ID, i+1)
		}
		seen[msg.ID] = true
	}
}

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{RoleSystem, "System"},
		{Role("other"), "other"},
	}

	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.role, got, tc.want)
		}
	}
}

func TestRole_IsValid(t *testing.T) {
	if !RoleUser.IsValid() || !RoleAssistant.IsValid() || !RoleSystem.IsValid() {
		t.Error("known roles should be valid")
	}
	if Role("tool").IsValid() {
		t.Error("unknown role should not be valid")
	}
}

// =============================================================================
// THREAD TESTS
// =============================================================================

func TestNewThread(t *testing.T) {
	th := NewThread()

	if th.Name != DefaultThreadName {
		t.Errorf("Name = %q, want %q", th.Name, DefaultThreadName)
	}
	if !strings.HasPrefix(th.ID, "thread-") {
		t.Errorf("ID should start with 'thread-', got %q", th.ID)
	}
	if th.MessageCount() != 0 {
		t.Errorf("MessageCount = %d, want 0", th.MessageCount())
	}
	if !th.IsEmpty() {
		t.Error("new thread should be empty")
	}
	if th.Messages == nil {
		t.Error("Messages should be initialized, not nil")
	}
}

func TestThread_Preview(t *testing.T) {
	th := NewThread()
	th.Messages = append(th.Messages, NewMessage(RoleAssistant, "greeting"))
	th.Messages = append(th.Messages, NewMessage(RoleUser, "first\nline question"))

	preview := th.Preview(80)
	if preview != "first line question" {
		t.Errorf("Preview = %q, want newlines flattened", preview)
	}

	long := strings.Repeat("a", 100)
	th2 := NewThread()
	th2.Messages = append(th2.Messages, NewMessage(RoleUser, long))
	if got := th2.Preview(50); len([]rune(got)) != 50 || !strings.HasSuffix(got, "...") {
		t.Errorf("Preview should truncate to 50 runes with ellipsis, got %q", got)
	}
}

func TestThread_Clone(t *testing.T) {
	th := NewThread()
	th.Messages = append(th.Messages, NewMessage(RoleUser, "hi"))

	clone := th.Clone()
	clone.Messages = append(clone.Messages, NewMessage(RoleAssistant, "hello"))
	clone.Name = "renamed"

	if th.MessageCount() != 1 {
		t.Errorf("original message count changed: %d", th.MessageCount())
	}
	if th.Name == "renamed" {
		t.Error("original name changed by clone mutation")
	}
}

func TestThread_ExportMarkdown(t *testing.T) {
	th := NewThread()
	th.Name = "Trip planning"
	th.Messages = append(th.Messages, NewMessage(RoleUser, "where to?"))
	th.Messages = append(th.Messages, NewMessage(RoleAssistant, "Lisbon"))

	md := th.ExportMarkdown()
	for _, want := range []string{"# Trip planning", "**You**", "**Assistant**", "where to?", "Lisbon"} {
		if !strings.Contains(md, want) {
			t.Errorf("ExportMarkdown missing %q", want)
		}
	}
}

// =============================================================================
// WORKSPACE TESTS
// =============================================================================

func TestNewWorkspace(t *testing.T) {
	ws := NewWorkspace()

	if ws.Name != DefaultWorkspaceName {
		t.Errorf("Name = %q, want %q", ws.Name, DefaultWorkspaceName)
	}
	if !ws.IsExpanded {
		t.Error("new workspace should be expanded")
	}
	if len(ws.Threads) != 0 {
		t.Errorf("Threads length = %d, want 0", len(ws.Threads))
	}
	if ws.Settings.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", ws.Settings.Temperature, DefaultTemperature)
	}
	if ws.Settings.SelectedModelID != "" {
		t.Errorf("SelectedModelID = %q, want empty", ws.Settings.SelectedModelID)
	}
}

func TestWorkspace_ThreadByID(t *testing.T) {
	ws := NewWorkspace()
	th := NewThread()
	ws.Threads = append(ws.Threads, th)

	if got := ws.ThreadByID(th.ID); got != th {
		t.Error("ThreadByID should return the owned thread")
	}
	if got := ws.ThreadByID("missing"); got != nil {
		t.Error("ThreadByID for unknown ID should return nil")
	}
}

func TestWorkspace_RemoveThread(t *testing.T) {
	ws := NewWorkspace()
	a, b := NewThread(), NewThread()
	ws.Threads = append(ws.Threads, a, b)

	if !ws.RemoveThread(a.ID) {
		t.Fatal("RemoveThread should report removal")
	}
	if len(ws.Threads) != 1 || ws.Threads[0].ID != b.ID {
		t.Error("remaining threads incorrect after removal")
	}
	if ws.RemoveThread(a.ID) {
		t.Error("second removal of same ID should report false")
	}
}

// =============================================================================
// SETTINGS TESTS
// =============================================================================

func TestClampTemperature(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-1, 0},
		{0, 0},
		{0.7, 0.7},
		{2, 2},
		{5, 2},
	}

	for _, tc := range tests {
		if got := ClampTemperature(tc.in); got != tc.want {
			t.Errorf("ClampTemperature(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDefaultGlobalSettings(t *testing.T) {
	gs := DefaultGlobalSettings()
	if gs.OpenRouterAPIKey != "" {
		t.Error("default credential should be empty")
	}
	if gs.SystemPrompt != DefaultSystemPrompt {
		t.Errorf("SystemPrompt = %q, want default", gs.SystemPrompt)
	}
}

// =============================================================================
// SERIALIZATION TESTS
// =============================================================================

func TestWorkspace_JSONRoundTrip(t *testing.T) {
	ws := NewWorkspace()
	ws.Name = "Research"
	ws.Settings.SelectedModelID = "vendor/model-x"
	ws.Settings.Temperature = 1.3
	th := NewThread()
	th.Messages = append(th.Messages, NewMessage(RoleUser, "hello"))
	th.Messages = append(th.Messages, NewMessage(RoleAssistant, "hi there"))
	ws.Threads = append(ws.Threads, th)

	data, err := json.Marshal([]*Workspace{ws})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded []*Workspace
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(decoded) != 1 {
		t.Fatalf("decoded %d workspaces, want 1", len(decoded))
	}
	got := decoded[0]
	if got.ID != ws.ID || got.Name != ws.Name {
		t.Error("workspace identity not preserved")
	}
	if got.Settings != ws.Settings {
		t.Errorf("settings not preserved: %+v vs %+v", got.Settings, ws.Settings)
	}
	if len(got.Threads) != 1 || got.Threads[0].ID != th.ID {
		t.Fatal("thread not preserved")
	}
	if len(got.Threads[0].Messages) != 2 {
		t.Fatalf("messages not preserved: %d", len(got.Threads[0].Messages))
	}
	if got.Threads[0].Messages[0] != th.Messages[0] {
		t.Error("message value not structurally equal after round trip")
	}
}
