// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Temperature bounds and defaults for the sampling parameter passed to the
// completion endpoint.
const (
	MinTemperature     = 0.0
	MaxTemperature     = 2.0
	DefaultTemperature = 0.7
)

// DefaultSystemPrompt is the system prompt applied when the user has not
// configured one.
const DefaultSystemPrompt = "You are a helpful AI assistant that responds accurately and concisely."

// =============================================================================
// WORKSPACE SETTINGS
// =============================================================================

// WorkspaceSettings holds the per-workspace model selection and temperature.
type WorkspaceSettings struct {
	// SelectedModelID is the model identifier used for completions in this
	// workspace. Empty means no model is selected.
	SelectedModelID string `json:"selectedModelId,omitempty"`

	// Temperature is the sampling temperature, clamped to [0, 2].
	Temperature float64 `json:"temperature"`
}

// DefaultWorkspaceSettings returns settings with no model and the default
// temperature.
func DefaultWorkspaceSettings() WorkspaceSettings {
	return WorkspaceSettings{
		SelectedModelID: "",
		Temperature:     DefaultTemperature,
	}
}

// Normalized returns a copy with the temperature clamped into [0, 2].
// An explicit 0.0 is a legal temperature and passes through unchanged;
// callers that can distinguish "absent" from 0.0 should apply the default
// themselves and use ClampTemperature directly.
func (s WorkspaceSettings) Normalized() WorkspaceSettings {
	s.Temperature = ClampTemperature(s.Temperature)
	return s
}

// ClampTemperature clamps v into the valid [0, 2] range.
func ClampTemperature(v float64) float64 {
	if v < MinTemperature {
		return MinTemperature
	}
	if v > MaxTemperature {
		return MaxTemperature
	}
	return v
}

// =============================================================================
// GLOBAL SETTINGS
// =============================================================================

// GlobalSettings holds process-wide settings, independent of any workspace.
type GlobalSettings struct {
	// OpenRouterAPIKey is the bearer credential for the completion endpoint.
	OpenRouterAPIKey string `json:"openRouterApiKey"`

	// SystemPrompt is prepended as a system message to every completion
	// request when non-empty.
	SystemPrompt string `json:"systemPrompt"`
}

// DefaultGlobalSettings returns settings with no credential and the default
// system prompt.
func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		OpenRouterAPIKey: "",
		SystemPrompt:     DefaultSystemPrompt,
	}
}
