// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for workspaces, threads, and
// messages.
//
// This package defines the core domain types used throughout the application
// for representing the conversation hierarchy and its settings.
//
// # Key Types
//
//   - Workspace: Top-level named container of threads with its own settings
//   - Thread: One conversation (ordered message log) within a workspace
//   - Message: Single turn with role, content, and timestamp
//   - WorkspaceSettings: Per-workspace model selection and temperature
//   - GlobalSettings: API credential and system prompt
//   - Role: Message role enumeration (user, assistant, system)
//
// # Ownership
//
// A Workspace exclusively owns its Threads, and a Thread exclusively owns
// its Messages. Messages are immutable once created and are only removed
// transitively with their thread.
//
// # Usage
//
// Create a workspace and add a thread:
//
//	ws := model.NewWorkspace()
//	th := model.NewThread()
//	ws.Threads = append(ws.Threads, th)
//
// Append a message:
//
//	th.Messages = append(th.Messages, model.NewMessage(model.RoleUser, "Hello!"))
package model
