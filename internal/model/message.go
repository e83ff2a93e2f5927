// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for workspaces, threads, and
// messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// IsValid reports whether the role is one of the known values.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a thread.
//
// Messages are immutable once created: they are appended to a thread's
// message sequence and never mutated or deleted individually.
type Message struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Role      Role   `json:"role"`
	Timestamp int64  `json:"timestamp"` // epoch millis
}

// NewMessage creates a new message with a generated ID and the current time.
func NewMessage(role Role, content string) Message {
	now := time.Now().UnixMilli()
	return Message{
		ID:        generateMessageID(role, now),
		Content:   content,
		Role:      role,
		Timestamp: now,
	}
}

// Time returns the message timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// generateMessageID creates a message ID from the role, a millisecond
// timestamp, and a random suffix. The random component keeps IDs unique when
// two messages are appended within the same millisecond, which happens under
// rapid programmatic succession (user message immediately followed by the
// assistant reply).
func generateMessageID(role Role, millis int64) string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return "message-" + string(role) + "-" + formatMillis(millis) + "-" + hex.EncodeToString(bytes)
}

// formatMillis renders an epoch-millis value in decimal without fmt.
func formatMillis(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
