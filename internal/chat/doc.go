// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the message submission flow: it validates the
// active credential and model selection, appends the user's message to the
// active thread, sends the full conversation to the completion API, and
// appends the assistant's reply.
//
// # Key Types
//
//   - Flow: orchestrates a single submission end to end
//   - Completer: the completion transport, satisfied by the API client
//   - Status: per-thread submission state reported to front ends
//
// # Behavior
//
// Validation happens before any mutation: a missing credential or model
// leaves the thread untouched and sends nothing over the network. Once the
// user's message is appended it is never rolled back; a failed completion
// surfaces an error alongside the already-recorded message. A thread with a
// submission in flight rejects further submissions until the first one
// settles.
package chat
