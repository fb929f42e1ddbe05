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
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var fallbackTracer = otel.Tracer("aleutianchat.llm.fallback")

// DefaultGeminiModels is the default candidate chain, best quality first
// with progressively cheaper fallbacks.
var DefaultGeminiModels = []string{
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
}

// DefaultCandidateTimeout bounds the wait for a single candidate model.
const DefaultCandidateTimeout = 60 * time.Second

// Candidate pairs a model identifier with the client that serves it.
type Candidate struct {
	Model  string
	Client LLMClient
}

// FallbackClient tries an ordered list of candidate models.
//
// # Description
//
// The continuation policy follows one rule: a rate-limited candidate is
// skipped silently and the next one is tried; any other failure stops the
// chain immediately and propagates, because non-quota errors are unlikely
// to be model-specific and retrying a smaller model would just burn a
// second failure. When every candidate is exhausted the last observed
// error is wrapped in AllModelsExhaustedError.
//
// Per-candidate calls are bounded by CandidateTimeout; a timeout counts as
// a terminal failure, not a reason to fall through.
//
// # Thread Safety
//
// Safe for concurrent use. Candidates are immutable after construction and
// the rate limiter is internally synchronized.
type FallbackClient struct {
	candidates       []Candidate
	candidateTimeout time.Duration
	limiter          *rate.Limiter
	onFallback       func(model string)
}

// FallbackOption configures a FallbackClient.
type FallbackOption func(*FallbackClient)

// WithCandidateTimeout overrides the per-candidate wait bound.
func WithCandidateTimeout(d time.Duration) FallbackOption {
	return func(f *FallbackClient) {
		if d > 0 {
			f.candidateTimeout = d
		}
	}
}

// WithRateLimit applies client-side pacing across all candidates.
// Useful on free-tier API keys where the provider throttles aggressively.
func WithRateLimit(rps float64, burst int) FallbackOption {
	return func(f *FallbackClient) {
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithFallbackHook registers a callback invoked with the model name each
// time a rate-limited candidate is skipped. Used for metrics.
func WithFallbackHook(hook func(model string)) FallbackOption {
	return func(f *FallbackClient) {
		f.onFallback = hook
	}
}

// NewFallbackClient builds a fallback chain over the given candidates.
// Panics if candidates is empty; a gateway without models is a wiring bug.
func NewFallbackClient(candidates []Candidate, opts ...FallbackOption) *FallbackClient {
	if len(candidates) == 0 {
		panic("llm: fallback client requires at least one candidate")
	}
	f := &FallbackClient{
		candidates:       candidates,
		candidateTimeout: DefaultCandidateTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewGeminiFallbackClient builds the default Gemini chain.
func NewGeminiFallbackClient(ctx context.Context, models []string, opts ...FallbackOption) (*FallbackClient, error) {
	if len(models) == 0 {
		models = DefaultGeminiModels
	}
	candidates := make([]Candidate, 0, len(models))
	for _, model := range models {
		client, err := NewGeminiClient(ctx, model)
		if err != nil {
			return nil, fmt.Errorf("build gemini candidate %s: %w", model, err)
		}
		candidates = append(candidates, Candidate{Model: model, Client: client})
	}
	return NewFallbackClient(candidates, opts...), nil
}

// Chat implements the LLMClient interface across the candidate chain.
func (f *FallbackClient) Chat(ctx context.Context, messages []datatypes.Message,
	params GenerationParams) (string, error) {

	ctx, span := fallbackTracer.Start(ctx, "FallbackClient.Chat")
	defer span.End()

	var text string
	err := f.tryEach(ctx, span.SetAttributes, func(callCtx context.Context, c Candidate) error {
		var chatErr error
		text, chatErr = c.Client.Chat(callCtx, messages, params)
		return chatErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return "", err
	}
	return text, nil
}

// ChatStream implements the LLMClient interface across the candidate chain.
//
// Fallback only happens before the first token reaches the callback: once
// a candidate has started emitting, its failure is terminal, since the
// partial output cannot be retracted from the client.
func (f *FallbackClient) ChatStream(ctx context.Context, messages []datatypes.Message,
	params GenerationParams, callback StreamCallback) error {

	ctx, span := fallbackTracer.Start(ctx, "FallbackClient.ChatStream")
	defer span.End()

	err := f.tryEach(ctx, span.SetAttributes, func(callCtx context.Context, c Candidate) error {
		emitted := false
		guarded := func(chunk StreamChunk) error {
			emitted = true
			return callback(chunk)
		}
		streamErr := c.Client.ChatStream(callCtx, messages, params, guarded)
		if streamErr != nil && emitted && IsRateLimited(streamErr) {
			// Mid-stream rate limiting must not fall through.
			return NewModelError(KindUnknown, c.Model, streamErr)
		}
		return streamErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	return err
}

// tryEach runs the continuation policy over the candidate chain.
func (f *FallbackClient) tryEach(ctx context.Context,
	setAttrs func(...attribute.KeyValue), call func(context.Context, Candidate) error) error {

	attempted := make([]string, 0, len(f.candidates))
	var lastErr error

	for _, candidate := range f.candidates {
		if err := f.wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, f.candidateTimeout)
		err := call(callCtx, candidate)
		cancel()

		attempted = append(attempted, candidate.Model)
		if err == nil {
			setAttrs(attribute.String("llm.model", candidate.Model),
				attribute.Int("llm.fallback_attempts", len(attempted)))
			return nil
		}

		lastErr = err
		if !IsRateLimited(err) {
			return err
		}
		if f.onFallback != nil {
			f.onFallback(candidate.Model)
		}
		slog.Warn("Model rate limited, trying next candidate",
			"model", candidate.Model, "remaining", len(f.candidates)-len(attempted))
	}

	return &AllModelsExhaustedError{Attempted: attempted, Last: lastErr}
}

// wait applies client-side pacing when configured.
func (f *FallbackClient) wait(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

var _ LLMClient = (*FallbackClient)(nil)
