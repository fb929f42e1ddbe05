// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the chat service.
//
// This file contains the persisted conversation entities: threads and the
// messages they contain. Request/response types live in chat.go.
package datatypes

import "time"

// =============================================================================
// Roles
// =============================================================================

const (
	// RoleUser marks a message authored by the human user.
	RoleUser = "user"

	// RoleAssistant marks a message authored by the model.
	RoleAssistant = "assistant"
)

// =============================================================================
// Persisted Entities
// =============================================================================

// Message is one entry in a thread's ordered message list.
//
// # Description
//
// Messages are append-only: once written to a thread they are never edited
// or reordered. The ID is the client-supplied idempotency key for user
// messages, or a server-generated UUID for assistant messages.
//
// Delivery status (pending, streaming, complete, failed) is deliberately not
// part of this type. It exists only in the in-memory view of an in-flight
// exchange (see pkg/ux) and is never persisted.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Thread is a persisted conversation owned by exactly one user.
//
// # Description
//
// The message list is strictly ordered by insertion. Only the owner may
// read or mutate a thread; the store enforces this by scoping every lookup
// to the owner id.
//
// # Fields
//
//   - ID: Opaque thread identifier (UUID v4).
//   - OwnerID: The user who created the thread. Immutable.
//   - Title: Derived once from the first user message, or "New Chat".
//   - IsStarred: User-toggled favorite flag.
//   - Messages: Append-only ordered message list.
type Thread struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	IsStarred bool      `json:"isStarred"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ThreadSummary is the list-view projection of a thread.
//
// Returned by GET /chat/history; omits the message bodies.
type ThreadSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	IsStarred    bool      `json:"isStarred"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}

// Summary returns the list-view projection of the thread.
func (t *Thread) Summary() ThreadSummary {
	return ThreadSummary{
		ID:           t.ID,
		Title:        t.Title,
		IsStarred:    t.IsStarred,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		MessageCount: len(t.Messages),
	}
}
