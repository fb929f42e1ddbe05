// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides the client-side components of the Aleutian chat
// CLI: the HTTP API client, the SSE frame reader, the send controller,
// and terminal output styling.
package ux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// APIError is a non-2xx response decoded into its error envelope.
type APIError struct {
	StatusCode int
	Detail     datatypes.ErrorDetail
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s (%s)", e.StatusCode, e.Detail.Title, e.Detail.Code)
}

// Client is the HTTP client for the chat service API.
//
// # Thread Safety
//
// Safe for concurrent use; it holds no mutable state beyond the
// underlying http.Client.
type Client struct {
	baseURL string
	httpc   *http.Client
	token   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// NewClient creates an API client for the chat service at baseURL.
//
// The default HTTP client has no overall timeout: streaming responses
// stay open for the duration of the reply. Use the request context to
// bound individual calls.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage posts one message and returns the full thread response
// plus the remaining daily quota (-1 when the header is absent).
func (c *Client) SendMessage(ctx context.Context, req datatypes.SendMessageRequest) (*datatypes.SendMessageResponse, int, error) {
	resp, err := c.do(ctx, http.MethodPost, "/chat/message", req)
	if err != nil {
		return nil, -1, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, -1, err
	}
	var out datatypes.SendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, -1, fmt.Errorf("decode send response: %w", err)
	}
	return &out, remainingFromHeader(resp), nil
}

// SendMessageStream posts one message to the streaming endpoint and
// returns the open response. The caller owns the body and must close it;
// use a FrameReader to consume it.
//
// Non-2xx responses are decoded into an APIError and the body is closed.
func (c *Client) SendMessageStream(ctx context.Context, req datatypes.SendMessageRequest) (*http.Response, error) {
	resp, err := c.do(ctx, http.MethodPost, "/chat/message/stream", req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// History returns the caller's thread summaries, newest first.
func (c *Client) History(ctx context.Context) ([]datatypes.ThreadSummary, error) {
	resp, err := c.do(ctx, http.MethodGet, "/chat/history", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var threads []datatypes.ThreadSummary
	if err := json.NewDecoder(resp.Body).Decode(&threads); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return threads, nil
}

// GetThread returns one full thread.
func (c *Client) GetThread(ctx context.Context, id string) (*datatypes.Thread, error) {
	resp, err := c.do(ctx, http.MethodGet, "/chat/"+id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var thread datatypes.Thread
	if err := json.NewDecoder(resp.Body).Decode(&thread); err != nil {
		return nil, fmt.Errorf("decode thread: %w", err)
	}
	return &thread, nil
}

// DeleteThread deletes one thread.
func (c *Client) DeleteThread(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/chat/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// ClearThreads deletes every thread and reports how many were removed.
func (c *Client) ClearThreads(ctx context.Context) (int, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/chat/clear", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return 0, err
	}
	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode clear response: %w", err)
	}
	return out.Deleted, nil
}

// ToggleStar flips a thread's starred flag and returns the new state.
func (c *Client) ToggleStar(ctx context.Context, id string) (bool, error) {
	resp, err := c.do(ctx, http.MethodPatch, "/chat/"+id+"/star", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return false, err
	}
	var out struct {
		IsStarred bool `json:"isStarred"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode star response: %w", err)
	}
	return out.IsStarred, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.httpc.Do(req)
}

// checkStatus decodes a non-2xx response into an APIError.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var envelope datatypes.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Code == "" {
		envelope = datatypes.NewErrorEnvelope(datatypes.CodeServerError)
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: envelope.Error}
}

// remainingFromHeader parses the daily quota header, -1 when absent.
func remainingFromHeader(resp *http.Response) int {
	v := resp.Header.Get(datatypes.DailyLimitHeader)
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
