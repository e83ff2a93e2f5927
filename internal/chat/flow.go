// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/morganforge/chatsphere/internal/model"
	"github.com/morganforge/chatsphere/internal/openrouter"
	"github.com/morganforge/chatsphere/internal/state"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyInput indicates the submitted text was empty after trimming.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoSelection indicates no workspace and thread are selected.
	ErrNoSelection = errors.New("no thread selected")

	// ErrThreadBusy indicates the thread already has a submission in flight.
	ErrThreadBusy = errors.New("thread busy")
)

// =============================================================================
// TYPES
// =============================================================================

// Completer sends a conversation to the completion API and returns the
// assistant's reply. *openrouter.Client satisfies it.
type Completer interface {
	SendCompletion(ctx context.Context, apiKey, modelID string, messages []openrouter.ChatMessage, systemPrompt string, temperature *float64) (string, error)
}

// Status reports where a thread's submission currently stands.
type Status int

const (
	// StatusIdle means no submission is in flight for the thread.
	StatusIdle Status = iota

	// StatusSending means a submission is awaiting the API's reply.
	StatusSending
)

// Flow orchestrates message submissions against the conversation state.
// It is safe for concurrent use; distinct threads may have submissions in
// flight simultaneously, but each thread at most one.
type Flow struct {
	manager   *state.Manager
	completer Completer

	mu   sync.Mutex
	busy map[string]bool // threadID -> submission in flight
}

// NewFlow creates a submission flow bound to the given state manager and
// completion transport.
func NewFlow(manager *state.Manager, completer Completer) *Flow {
	return &Flow{
		manager:   manager,
		completer: completer,
		busy:      make(map[string]bool),
	}
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit runs one full submission against the active thread: validate,
// append the user's message, send the conversation, append the reply.
//
// Validation failures (empty input, no selection, busy thread, bad
// credential, missing model) return before anything is appended or sent.
// After the user's message is appended it stays appended: a transport or
// API failure returns the classified error with the message still in the
// thread. An empty reply is recorded as an empty assistant message.
func (f *Flow) Submit(ctx context.Context, input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ErrEmptyInput
	}

	workspaceID, threadID := f.manager.Selection()
	if workspaceID == "" || threadID == "" {
		return ErrNoSelection
	}
	if _, ok := f.manager.ThreadMessages(workspaceID, threadID); !ok {
		return ErrNoSelection
	}

	global := f.manager.GlobalSettings()
	if err := openrouter.ValidateAPIKey(global.OpenRouterAPIKey); err != nil {
		return err
	}
	settings, _ := f.manager.WorkspaceSettings(workspaceID)
	modelID := strings.TrimSpace(settings.SelectedModelID)
	if modelID == "" {
		return openrouter.ErrMissingModel
	}

	if !f.acquire(threadID) {
		return ErrThreadBusy
	}
	defer f.release(threadID)

	f.manager.AppendMessage(workspaceID, threadID, trimmed, model.RoleUser)

	// Read the conversation back after the append so the payload reflects
	// everything recorded in the thread, not a stale snapshot.
	messages, ok := f.manager.ThreadMessages(workspaceID, threadID)
	if !ok {
		return ErrNoSelection
	}

	temp := settings.Normalized().Temperature
	reply, err := f.completer.SendCompletion(ctx, global.OpenRouterAPIKey, modelID,
		toChatMessages(messages), global.SystemPrompt, &temp)
	if err != nil {
		return err
	}

	f.manager.AppendMessage(workspaceID, threadID, reply, model.RoleAssistant)
	return nil
}

// ThreadStatus reports whether a submission is in flight for the thread.
func (f *Flow) ThreadStatus(threadID string) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy[threadID] {
		return StatusSending
	}
	return StatusIdle
}

// =============================================================================
// INTERNAL
// =============================================================================

func (f *Flow) acquire(threadID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy[threadID] {
		return false
	}
	f.busy[threadID] = true
	return true
}

func (f *Flow) release(threadID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.busy, threadID)
}

// toChatMessages converts stored messages to the API's wire shape.
func toChatMessages(messages []model.Message) []openrouter.ChatMessage {
	out := make([]openrouter.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, openrouter.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

// FriendlyError maps flow and API errors to short user-facing text.
func FriendlyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "Type a message first."
	case errors.Is(err, ErrNoSelection):
		return "Select or create a chat thread first."
	case errors.Is(err, ErrThreadBusy):
		return "Hold on, this thread is still waiting for a reply."
	case errors.Is(err, openrouter.ErrInvalidCredential):
		return "Set a valid OpenRouter API key (starts with sk-or-) in settings."
	case errors.Is(err, openrouter.ErrMissingModel):
		return "Pick a model for this workspace first."
	case errors.Is(err, openrouter.ErrAuthenticationFailed):
		return "Authentication failed. Check your OpenRouter API key."
	case errors.Is(err, openrouter.ErrNetwork):
		return "Network error. Check your connection and try again."
	default:
		return err.Error()
	}
}
