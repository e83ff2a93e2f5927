// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the chatsphere TUI.

This package defines the color palette and composed lipgloss styles used
throughout the application. All colors use Lip Gloss AdaptiveColor for
automatic light/dark terminal detection.

# Color System (colors.go)

  - Purple - Primary accent for assistant messages and selections
  - Cyan - Brand color for info, commands, and user highlights
  - Emerald - Success states
  - Amber - Warnings and busy indicators
  - Rose - Errors

Surfaces, text tones, and per-role message colors round out the palette.

# Theme (theme.go)

Theme bundles the composed styles for every part of the TUI: header,
workspace sidebar, message list, input area, status bar, and error banner.
Construct one with NewTheme, which detects the terminal's color profile:

	theme := styles.NewTheme()
	fmt.Println(theme.HeaderTitle.Render("ChatSphere"))
*/
package styles
