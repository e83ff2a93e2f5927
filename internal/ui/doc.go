// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the full-screen terminal interface.
//
// The layout is a workspace sidebar on the left and the active conversation
// on the right, with a textarea for input and a status bar at the bottom.
// All conversation state lives in the state manager; the UI reads fresh
// snapshots after every mutation and never keeps its own copy of threads.
//
// # Key Types
//
//   - Model: the root Bubble Tea model
//   - Sidebar: the workspace/thread tree with its own cursor
//
// # Key Bindings
//
//	tab        Switch focus between sidebar and input
//	enter      Send message (input) / select entry (sidebar)
//	ctrl+j     Insert newline in the input
//	n          New thread (sidebar)
//	N          New workspace (sidebar)
//	d          Delete selected thread (sidebar)
//	space      Collapse/expand workspace (sidebar)
//	esc        Dismiss error banner
//	ctrl+c     Quit
package ui
