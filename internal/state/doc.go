// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package state implements the conversation state manager.
//
// The manager owns the workspace -> thread -> message hierarchy, the active
// selection cursor, and the global settings. It is the sole writer to the
// durable store: after every mutation the full hierarchy and settings are
// serialized and written synchronously, so a successfully applied mutation is
// always on disk before control returns to the caller.
//
// # Mutation semantics
//
// Every mutation re-resolves its target workspace and thread by identifier
// against current state, under the manager's lock. A caller that captured a
// reference before an asynchronous wait can therefore never clobber a
// concurrent append: two AppendMessage calls in any order always observe each
// other's effects. Mutations targeting identifiers that no longer resolve are
// silent no-ops, because identifiers legitimately go stale after concurrent
// deletion.
//
// # Change notification
//
// Presentation layers bind through Subscribe; registered callbacks run
// synchronously after each applied mutation, outside the manager's lock.
package state
