// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interactive chat REPL.
//
// The REPL reads input with line editing and persistent history, routes
// slash commands to workspace and thread management, and submits everything
// else through the chat flow. Assistant replies render as markdown when
// stdout is a terminal.
//
// # Key Types
//
//   - Repl: the interactive session loop
//   - ChatCLI: liner-backed input with persistent history
//
// # Interactive Commands
//
//	/help                     Show available commands
//	/workspaces               List workspaces
//	/workspace new|rename|delete|select
//	/threads                  List threads in the active workspace
//	/thread new|rename|delete|select
//	/models                   List available models
//	/model [id]               Show or set the workspace model
//	/temp [value]             Show or set the sampling temperature
//	/system [prompt]          Show or set the global system prompt
//	/key                      Set the OpenRouter API key (hidden input)
//	/history                  Show the active thread's messages
//	/copy                     Copy the last assistant reply to the clipboard
//	/export [file]            Export the active thread as markdown
//	/quit                     Exit
package cli
