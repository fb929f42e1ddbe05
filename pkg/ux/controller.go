// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the send controller: the client-side state machine
// for one in-flight message exchange.
package ux

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// SendState is the lifecycle state of one send.
//
// Transitions: sending -> streaming -> done on the happy path,
// sending -> done when the server cannot stream, and any state ->
// failed on error. A stopped send simply goes quiet; no terminal
// update is published for it.
type SendState string

const (
	StateSending   SendState = "sending"
	StateStreaming SendState = "streaming"
	StateDone      SendState = "done"
	StateFailed    SendState = "failed"
)

// SendUpdate is one publication about an in-flight send.
type SendUpdate struct {
	// Key is the idempotency key identifying the logical send.
	Key string

	// ChatID is the thread targeted, empty for a new thread.
	ChatID string

	State SendState

	// Answer is the assistant text accumulated so far. Final on done.
	Answer string

	// Messages is the thread's full message list, populated on done
	// only when the non-streaming path was used.
	Messages []datatypes.Message

	// Title is the thread title, when known.
	Title string

	// Remaining is the daily quota left after this send, -1 if unknown.
	Remaining int

	// Err is populated on failed.
	Err *datatypes.ErrorDetail
}

// Subscriber receives send updates in publication order.
type Subscriber func(update SendUpdate)

// pendingSend tracks one in-flight send for cancellation.
type pendingSend struct {
	cancel context.CancelFunc
}

// Controller drives message sends against the chat service.
//
// # Description
//
// Each Send claims an idempotency key, publishes lifecycle updates to
// subscribers, and prefers the streaming endpoint, falling back to the
// non-streaming one when the server does not expose it. A second Send
// with the same key cancels the first: the key identifies the logical
// message, and the user retrying is a supersede, not a concurrent send.
//
// # Thread Safety
//
// Safe for concurrent use. Updates for a single send are published in
// order; updates across different sends may interleave.
type Controller struct {
	client *Client
	reader FrameReader

	mu      sync.Mutex
	pending map[string]*pendingSend
	subs    map[int]Subscriber
	nextSub int
	wg      sync.WaitGroup
}

// NewController creates a send controller over the API client.
// Panics if client is nil.
func NewController(client *Client) *Controller {
	if client == nil {
		panic("ux: client must not be nil")
	}
	return &Controller{
		client:  client,
		reader:  NewFrameReader(NewSSEParser()),
		pending: make(map[string]*pendingSend),
		subs:    make(map[int]Subscriber),
	}
}

// Subscribe registers a subscriber and returns its remove function.
func (c *Controller) Subscribe(fn Subscriber) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Send starts one asynchronous message exchange and returns the
// idempotency key identifying it. An empty key gets a generated UUID.
//
// An in-flight send with the same key is cancelled first.
func (c *Controller) Send(ctx context.Context, chatID, text, key string) string {
	if key == "" {
		key = uuid.New().String()
	}

	sendCtx, cancel := context.WithCancel(ctx)
	p := &pendingSend{cancel: cancel}

	c.mu.Lock()
	if prior, ok := c.pending[key]; ok {
		prior.cancel()
	}
	c.pending[key] = p
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		defer c.finish(key, p)
		c.run(sendCtx, chatID, text, key)
	}()
	return key
}

// Stop cancels the in-flight send for key. Idempotent: stopping an
// unknown or finished key is a no-op.
func (c *Controller) Stop(key string) {
	c.mu.Lock()
	p, ok := c.pending[key]
	c.mu.Unlock()
	if ok {
		p.cancel()
	}
}

// Wait blocks until every in-flight send has finished. Used on CLI
// shutdown and in tests.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// finish drops the pending entry, unless a newer send took the key over.
func (c *Controller) finish(key string, p *pendingSend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[key] == p {
		delete(c.pending, key)
	}
}

func (c *Controller) publish(update SendUpdate) {
	c.mu.Lock()
	subs := make([]Subscriber, 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(update)
	}
}

// run executes one send to completion.
func (c *Controller) run(ctx context.Context, chatID, text, key string) {
	req := datatypes.SendMessageRequest{
		ChatID:          chatID,
		Text:            text,
		ClientMessageID: key,
	}

	c.publish(SendUpdate{Key: key, ChatID: chatID, State: StateSending, Remaining: -1})

	resp, err := c.client.SendMessageStream(ctx, req)
	if err != nil {
		if shouldFallBack(err) {
			c.runNonStreaming(ctx, req)
			return
		}
		c.fail(ctx, key, chatID, err)
		return
	}
	defer resp.Body.Close()

	remaining := remainingFromHeader(resp)
	var answer []byte
	done := false

	readErr := c.reader.Read(ctx, resp.Body, func(frame datatypes.StreamFrame) error {
		switch frame.Type {
		case datatypes.FrameToken:
			answer = append(answer, frame.Content...)
			c.publish(SendUpdate{
				Key:       key,
				ChatID:    chatID,
				State:     StateStreaming,
				Answer:    string(answer),
				Remaining: remaining,
			})
		case datatypes.FrameDone:
			done = true
		}
		return nil
	})

	switch {
	case readErr != nil:
		c.fail(ctx, key, chatID, readErr)
	case !done:
		// Stream ended without a done frame: the reply is not trusted.
		c.fail(ctx, key, chatID, errors.New("stream ended before done frame"))
	default:
		c.publish(SendUpdate{
			Key:       key,
			ChatID:    chatID,
			State:     StateDone,
			Answer:    string(answer),
			Remaining: remaining,
		})
	}
}

// runNonStreaming is the fallback when the server has no streaming
// endpoint. One request, one done publication.
func (c *Controller) runNonStreaming(ctx context.Context, req datatypes.SendMessageRequest) {
	resp, remaining, err := c.client.SendMessage(ctx, req)
	if err != nil {
		c.fail(ctx, req.ClientMessageID, req.ChatID, err)
		return
	}

	answer := ""
	if n := len(resp.Messages); n > 0 && resp.Messages[n-1].Role == datatypes.RoleAssistant {
		answer = resp.Messages[n-1].Content
	}
	c.publish(SendUpdate{
		Key:       req.ClientMessageID,
		ChatID:    req.ChatID,
		State:     StateDone,
		Answer:    answer,
		Messages:  resp.Messages,
		Title:     resp.Title,
		Remaining: remaining,
	})
}

// fail publishes a failed update, except for stopped sends, which end
// silently.
func (c *Controller) fail(ctx context.Context, key, chatID string, err error) {
	if ctx.Err() != nil {
		return
	}

	detail := datatypes.NewErrorEnvelope(datatypes.CodeServerError).Error
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		detail = apiErr.Detail
	}
	c.publish(SendUpdate{
		Key:       key,
		ChatID:    chatID,
		State:     StateFailed,
		Remaining: -1,
		Err:       &detail,
	})
}

// shouldFallBack reports whether the streaming request failed because
// the endpoint does not exist. A THREAD_NOT_FOUND 404 is a real answer
// about the thread, not a missing route.
func shouldFallBack(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 404 && apiErr.Detail.Code != datatypes.CodeThreadNotFound
}
