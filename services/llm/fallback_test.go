// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient implements LLMClient with canned responses for chain testing.
type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) Chat(_ context.Context, _ []datatypes.Message, _ GenerationParams) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeClient) ChatStream(_ context.Context, _ []datatypes.Message, _ GenerationParams, cb StreamCallback) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if err := cb(StreamChunk{Token: f.response}); err != nil {
		return err
	}
	return cb(StreamChunk{Done: true})
}

func userMessage(content string) []datatypes.Message {
	return []datatypes.Message{{Role: datatypes.RoleUser, Content: content}}
}

func TestFallbackClient_PrimarySucceeds(t *testing.T) {
	primary := &fakeClient{response: "primary answer"}
	secondary := &fakeClient{response: "secondary answer"}
	fc := NewFallbackClient([]Candidate{
		{Model: "big", Client: primary},
		{Model: "small", Client: secondary},
	})

	text, err := fc.Chat(context.Background(), userMessage("hi"), GenerationParams{})

	require.NoError(t, err)
	assert.Equal(t, "primary answer", text)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, secondary.calls, "secondary must not be called when primary succeeds")
}

func TestFallbackClient_RateLimitFallsThrough(t *testing.T) {
	primary := &fakeClient{err: NewModelError(KindRateLimited, "big", fmt.Errorf("429"))}
	secondary := &fakeClient{response: "secondary answer"}
	fc := NewFallbackClient([]Candidate{
		{Model: "big", Client: primary},
		{Model: "small", Client: secondary},
	})

	text, err := fc.Chat(context.Background(), userMessage("hi"), GenerationParams{})

	require.NoError(t, err)
	assert.Equal(t, "secondary answer", text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackClient_NonRateLimitStopsChain(t *testing.T) {
	primary := &fakeClient{err: NewModelError(KindSafetyBlocked, "big", fmt.Errorf("blocked"))}
	secondary := &fakeClient{response: "should not run"}
	fc := NewFallbackClient([]Candidate{
		{Model: "big", Client: primary},
		{Model: "small", Client: secondary},
	})

	_, err := fc.Chat(context.Background(), userMessage("hi"), GenerationParams{})

	require.Error(t, err)
	assert.Equal(t, KindSafetyBlocked, KindOf(err))
	assert.Zero(t, secondary.calls, "safety block must not fall through to the next model")
}

func TestFallbackClient_AllExhausted(t *testing.T) {
	rateLimited := func(model string) *fakeClient {
		return &fakeClient{err: NewModelError(KindRateLimited, model, fmt.Errorf("429"))}
	}
	fc := NewFallbackClient([]Candidate{
		{Model: "a", Client: rateLimited("a")},
		{Model: "b", Client: rateLimited("b")},
		{Model: "c", Client: rateLimited("c")},
	})

	_, err := fc.Chat(context.Background(), userMessage("hi"), GenerationParams{})

	require.Error(t, err)
	var exhausted *AllModelsExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, []string{"a", "b", "c"}, exhausted.Attempted)
	assert.True(t, IsRateLimited(exhausted.Last))
}

func TestFallbackClient_StreamFallsThroughBeforeFirstToken(t *testing.T) {
	primary := &fakeClient{err: NewModelError(KindRateLimited, "big", fmt.Errorf("429"))}
	secondary := &fakeClient{response: "streamed"}
	fc := NewFallbackClient([]Candidate{
		{Model: "big", Client: primary},
		{Model: "small", Client: secondary},
	})

	var tokens []string
	doneSeen := false
	err := fc.ChatStream(context.Background(), userMessage("hi"), GenerationParams{},
		func(chunk StreamChunk) error {
			if chunk.Done {
				doneSeen = true
				return nil
			}
			tokens = append(tokens, chunk.Token)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"streamed"}, tokens)
	assert.True(t, doneSeen)
}

func TestFallbackClient_PanicsWithoutCandidates(t *testing.T) {
	assert.Panics(t, func() {
		NewFallbackClient(nil)
	})
}
