// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides HTTP handlers for the chat service.
//
// The send endpoints share one exchange pipeline: validate the request,
// claim the idempotency key, check the daily quota, resolve the thread,
// persist the user message, call the model gateway, persist the reply.
// The non-streaming endpoint returns the result as one JSON body; the
// streaming endpoint paces the reply out as SSE token frames.
package handlers

import (
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/AleutianAI/AleutianChat/services/chat/idempotency"
	"github.com/AleutianAI/AleutianChat/services/chat/middleware"
	"github.com/AleutianAI/AleutianChat/services/chat/observability"
	"github.com/AleutianAI/AleutianChat/services/chat/quota"
	"github.com/AleutianAI/AleutianChat/services/chat/store"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

const (
	// defaultWordsPerChunk is how many words each token frame carries.
	defaultWordsPerChunk = 3

	// defaultChunkDelay is the pause between token frames. Paces the
	// stream so the client renders progressively instead of all at once.
	defaultChunkDelay = 15 * time.Millisecond
)

// Exchange bundles the dependencies of the message exchange pipeline.
//
// Build one at startup and share it across the send handlers.
type Exchange struct {
	store   *store.Store
	gateway llm.LLMClient
	quota   *quota.Tracker
	keys    *idempotency.Cache
	params  llm.GenerationParams

	wordsPerChunk int
	chunkDelay    time.Duration
}

// ExchangeOption configures an Exchange.
type ExchangeOption func(*Exchange)

// WithPacing overrides the token frame pacing.
func WithPacing(wordsPerChunk int, delay time.Duration) ExchangeOption {
	return func(ex *Exchange) {
		if wordsPerChunk > 0 {
			ex.wordsPerChunk = wordsPerChunk
		}
		if delay >= 0 {
			ex.chunkDelay = delay
		}
	}
}

// WithGenerationParams overrides the generation parameters passed to the
// model gateway.
func WithGenerationParams(params llm.GenerationParams) ExchangeOption {
	return func(ex *Exchange) {
		ex.params = params
	}
}

// NewExchange creates the exchange pipeline.
// Panics if any dependency is nil.
func NewExchange(s *store.Store, gateway llm.LLMClient, tracker *quota.Tracker,
	keys *idempotency.Cache, opts ...ExchangeOption) *Exchange {

	if s == nil {
		panic("handlers: store must not be nil")
	}
	if gateway == nil {
		panic("handlers: gateway must not be nil")
	}
	if tracker == nil {
		panic("handlers: quota tracker must not be nil")
	}
	if keys == nil {
		panic("handlers: idempotency cache must not be nil")
	}

	ex := &Exchange{
		store:         s,
		gateway:       gateway,
		quota:         tracker,
		keys:          keys,
		wordsPerChunk: defaultWordsPerChunk,
		chunkDelay:    defaultChunkDelay,
	}
	for _, opt := range opts {
		opt(ex)
	}
	return ex
}

// preparedSend is the state of one send after the shared pipeline steps
// succeeded: the key is reserved, quota allows the send, and the user
// message is persisted.
type preparedSend struct {
	req       datatypes.SendMessageRequest
	userID    string
	thread    *datatypes.Thread
	remaining int // quota remaining after this send
}

// prepare runs the shared front half of the exchange pipeline.
//
// On failure it writes the error response itself and returns ok=false;
// any reserved key has already been released.
func (ex *Exchange) prepare(c *gin.Context, endpoint observability.Endpoint) (*preparedSend, bool) {
	auth := middleware.GetAuthInfo(c)
	if auth == nil {
		respondError(c, endpoint, datatypes.CodeAuthRequired)
		return nil, false
	}

	var req datatypes.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, endpoint, datatypes.CodeInvalidInput)
		return nil, false
	}

	// Length is checked before struct validation so oversize messages get
	// their own code instead of a generic validation failure.
	if utf8.RuneCountInString(req.Text) > datatypes.MaxMessageChars {
		respondError(c, endpoint, datatypes.CodeMessageTooLong)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		respondError(c, endpoint, datatypes.CodeInvalidInput)
		return nil, false
	}
	req.EnsureDefaults()

	// Single-winner claim on the idempotency key. Losers are rejected
	// without touching the store or the model.
	if !ex.keys.Reserve(req.ClientMessageID) {
		respondError(c, endpoint, datatypes.CodeDuplicateMessage)
		return nil, false
	}

	ctx := c.Request.Context()

	remaining, err := ex.quota.Remaining(ctx, auth.UserID)
	if err != nil {
		slog.Error("quota check failed", "error", err, "user", auth.UserID)
		ex.keys.Release(req.ClientMessageID)
		respondError(c, endpoint, datatypes.CodeServerError)
		return nil, false
	}
	if remaining <= 0 {
		// Released: the same logical message may be sent tomorrow.
		ex.keys.Release(req.ClientMessageID)
		if m := observability.DefaultMetrics; m != nil {
			m.QuotaRejectionsTotal.Inc()
		}
		respondError(c, endpoint, datatypes.CodeDailyMessageLimit)
		return nil, false
	}

	var thread *datatypes.Thread
	if req.ChatID == "" {
		thread, err = ex.store.CreateThread(ctx, auth.UserID)
	} else {
		thread, err = ex.store.GetThread(ctx, auth.UserID, req.ChatID)
	}
	if err != nil {
		ex.keys.Release(req.ClientMessageID)
		if errors.Is(err, store.ErrThreadNotFound) {
			respondError(c, endpoint, datatypes.CodeThreadNotFound)
		} else {
			slog.Error("thread resolution failed", "error", err, "chat_id", req.ChatID)
			respondError(c, endpoint, datatypes.CodeServerError)
		}
		return nil, false
	}

	thread, err = ex.store.AppendMessages(ctx, auth.UserID, thread.ID,
		datatypes.NewUserMessage(req.ClientMessageID, req.Text))
	if err != nil {
		slog.Error("failed to persist user message", "error", err, "thread_id", thread.ID)
		ex.keys.Release(req.ClientMessageID)
		respondError(c, endpoint, datatypes.CodeServerError)
		return nil, false
	}

	return &preparedSend{
		req:       req,
		userID:    auth.UserID,
		thread:    thread,
		remaining: remaining - 1,
	}, true
}

// commitReply persists the assistant reply and consumes the idempotency
// key. Returns the thread state after the append.
func (ex *Exchange) commitReply(c *gin.Context, p *preparedSend, answer string) (*datatypes.Thread, error) {
	thread, err := ex.store.AppendMessages(c.Request.Context(), p.userID, p.thread.ID,
		datatypes.NewAssistantMessage(answer))
	if err != nil {
		// Reply was generated but not persisted; the client may retry.
		ex.keys.Release(p.req.ClientMessageID)
		return nil, err
	}
	ex.keys.Commit(p.req.ClientMessageID, thread.ID)
	return thread, nil
}

// failGateway resolves a model gateway failure: the key is released when
// a resend could succeed, consumed when it would fail identically.
func (ex *Exchange) failGateway(p *preparedSend, err error) datatypes.ErrorCode {
	code, retryable := gatewayFailureCode(err)
	if retryable {
		ex.keys.Release(p.req.ClientMessageID)
	} else {
		ex.keys.Commit(p.req.ClientMessageID, p.thread.ID)
	}
	slog.Error("model gateway failed", "error", err, "thread_id", p.thread.ID, "code", string(code))
	return code
}
