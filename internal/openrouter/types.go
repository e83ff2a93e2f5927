// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// Pricing holds the per-token costs for a model.
type Pricing struct {
	Prompt     float64 `json:"prompt,omitempty"`
	Completion float64 `json:"completion,omitempty"`
}

// ModelConfig holds optional capability metadata for a model.
type ModelConfig struct {
	ContextLength        int      `json:"context_length,omitempty"`
	FiletypeCapabilities []string `json:"filetype_capabilities,omitempty"`
}

// Model describes one model available through the listing endpoint.
type Model struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Provider string       `json:"provider"`
	Pricing  *Pricing     `json:"pricing,omitempty"`
	Config   *ModelConfig `json:"config,omitempty"`
}

// chatRequest is the payload for the chat completions endpoint.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// chatResponse is the success body of the chat completions endpoint.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// content returns the first choice's text, or empty when the field is
// structurally absent. A permissive external API may return no content;
// that is not an error.
func (r *chatResponse) content() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// modelsResponse is the success body of the model listing endpoint.
type modelsResponse struct {
	Data []Model `json:"data"`
}

// apiErrorResponse is the error body shape the API uses for failures.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
