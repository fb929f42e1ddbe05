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
// This file contains request and response types for the message exchange
// endpoints (POST /chat/message and POST /chat/message/stream).
package datatypes

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxMessageChars is the maximum length of a single user message.
	// Longer submissions are rejected with MESSAGE_TOO_LONG before any
	// model call.
	MaxMessageChars = 10000

	// MaxClientMessageIDChars bounds the client-supplied idempotency key.
	MaxClientMessageIDChars = 128
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()

	// Reject strings that are only whitespace
	_ = chatValidate.RegisterValidation("notblank", validateNotBlank)
}

// validateNotBlank validates that a string field contains at least one
// non-whitespace character.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// =============================================================================
// Send Message Request
// =============================================================================

// SendMessageRequest is the body of one send action.
//
// # Description
//
// SendMessageRequest is shared by the non-streaming and streaming send
// endpoints. ChatID is optional: when empty a new thread is created for the
// caller. ClientMessageID is the idempotency key for this logical send; a
// second request bearing a previously handled key is rejected, never
// reprocessed.
//
// # Validation
//
// Uses go-playground/validator:
//   - Text: required, not blank (whitespace-only is rejected)
//   - ChatID: optional, must be a UUID v4 when present
//   - ClientMessageID: optional, bounded length
//
// The MaxMessageChars limit is checked separately by the handler so it can
// be reported as MESSAGE_TOO_LONG rather than a generic validation failure.
//
// # Examples
//
//	req := SendMessageRequest{
//	    Text:            "Hello",
//	    ClientMessageID: "550e8400-e29b-41d4-a716-446655440000",
//	}
type SendMessageRequest struct {
	ChatID          string `json:"chatId" validate:"omitempty,uuid4"`
	Text            string `json:"text" validate:"required,notblank"`
	ClientMessageID string `json:"clientMessageId" validate:"omitempty,max=128"`
}

// Validate validates the SendMessageRequest fields.
func (r *SendMessageRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates the idempotency key when the client did not
// supply one. A server-generated key still deduplicates retries performed
// by intermediaries, just not client-level resubmissions.
func (r *SendMessageRequest) EnsureDefaults() {
	if r.ClientMessageID == "" {
		r.ClientMessageID = uuid.New().String()
	}
}

// =============================================================================
// Send Message Response
// =============================================================================

// SendMessageResponse is the non-streaming success body.
//
// Messages holds the thread's full ordered message list; the trailing two
// entries are the just-appended user/assistant pair.
type SendMessageResponse struct {
	Messages []Message `json:"messages"`
	Title    string    `json:"title"`
}

// =============================================================================
// Stream Frames
// =============================================================================

// Frame types emitted on the streaming endpoint.
const (
	// FrameToken carries one incremental fragment of assistant content.
	FrameToken = "token"

	// FrameDone terminates the stream. Carries no payload.
	FrameDone = "done"
)

// StreamFrame is one SSE frame payload on the streaming send endpoint.
//
// Wire format per frame: "data: <json>\n\n". A stream is zero or more
// token frames followed by exactly one done frame. Concatenating the
// Content of all token frames reproduces the assistant text exactly.
type StreamFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// =============================================================================
// Quota
// =============================================================================

// DailyLimitHeader reports the caller's remaining daily quota after the
// current send. Set on streaming responses before the body begins.
const DailyLimitHeader = "X-DailyLimit-Remaining"

// NewUserMessage builds a user message carrying the idempotency key as its id.
func NewUserMessage(id, content string) Message {
	return Message{
		ID:        id,
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// NewAssistantMessage builds an assistant message with a fresh server id.
func NewAssistantMessage(content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleAssistant,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
