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
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
)

var geminiTracer = otel.Tracer("aleutianchat.llm.gemini")

// GeminiClient calls the Google Gemini API through langchaingo.
//
// One client is bound to one model identifier; the fallback chain owns the
// ordering across models.
type GeminiClient struct {
	client *googleai.GoogleAI
	model  string
}

// NewGeminiClient builds a client for one Gemini model. The API key comes
// from GEMINI_API_KEY or the Podman secret file.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	key, err := LoadSecretKey("GEMINI_API_KEY", "/run/secrets/gemini_api_key")
	if err != nil {
		slog.Error("Gemini API key not available", "error", err)
		return nil, err
	}
	apiKey, err := key.Reveal()
	if err != nil {
		return nil, err
	}
	if model == "" {
		return nil, fmt.Errorf("gemini model must not be empty")
	}

	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	slog.Info("Initializing Gemini client", "model", model)
	return &GeminiClient{client: client, model: model}, nil
}

// Chat implements the LLMClient interface.
func (g *GeminiClient) Chat(ctx context.Context, messages []datatypes.Message,
	params GenerationParams) (string, error) {

	ctx, span := geminiTracer.Start(ctx, "GeminiClient.Chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", g.model),
		attribute.Int("llm.num_messages", len(messages)),
	)

	resp, err := g.client.GenerateContent(ctx, buildGeminiContent(messages), g.callOptions(params)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return "", g.classify(err)
	}

	text, err := g.normalize(resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return "", err
	}
	return text, nil
}

// ChatStream implements the LLMClient interface using Gemini's native
// token streaming.
func (g *GeminiClient) ChatStream(ctx context.Context, messages []datatypes.Message,
	params GenerationParams, callback StreamCallback) error {

	ctx, span := geminiTracer.Start(ctx, "GeminiClient.ChatStream")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.model))

	var cbErr error
	opts := append(g.callOptions(params), llms.WithStreamingFunc(
		func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			cbErr = callback(StreamChunk{Token: string(chunk)})
			return cbErr
		}))

	if _, err := g.client.GenerateContent(ctx, buildGeminiContent(messages), opts...); err != nil {
		// A callback abort surfaces through GenerateContent; keep the
		// caller's error rather than a wrapped provider error.
		if cbErr != nil {
			return cbErr
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return g.classify(err)
	}
	return callback(StreamChunk{Done: true})
}

// buildGeminiContent maps thread messages onto the Gemini content shape.
// The user role maps to "human" and the assistant role to "ai".
func buildGeminiContent(messages []datatypes.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == datatypes.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, m.Content))
	}
	return content
}

func (g *GeminiClient) callOptions(params GenerationParams) []llms.CallOption {
	opts := []llms.CallOption{llms.WithModel(g.model)}
	if params.Temperature != nil {
		opts = append(opts, llms.WithTemperature(float64(*params.Temperature)))
	}
	if params.TopK != nil {
		opts = append(opts, llms.WithTopK(*params.TopK))
	}
	if params.TopP != nil {
		opts = append(opts, llms.WithTopP(float64(*params.TopP)))
	}
	if params.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*params.MaxTokens))
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}
	return opts
}

// normalize flattens a content response into plain text. This is the single
// point where model output shapes are interpreted; downstream code only
// ever sees a string.
func (g *GeminiClient) normalize(resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", NewModelError(KindUnknown, g.model, fmt.Errorf("gemini returned no candidates"))
	}
	choice := resp.Choices[0]
	if strings.EqualFold(choice.StopReason, "safety") {
		return "", NewModelError(KindSafetyBlocked, g.model, fmt.Errorf("generation blocked by safety filter"))
	}
	return choice.Content, nil
}

// classify maps Gemini errors onto the shared ModelError taxonomy. The
// Gemini SDK does not expose structured status codes for every failure, so
// this falls back to message inspection for the rate-limit case.
func (g *GeminiClient) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewModelError(KindTimeout, g.model, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "quota"):
		return NewModelError(KindRateLimited, g.model, err)
	case strings.Contains(msg, "API_KEY_INVALID") || strings.Contains(msg, "PERMISSION_DENIED") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return NewModelError(KindAuthError, g.model, err)
	case strings.Contains(strings.ToLower(msg), "safety"):
		return NewModelError(KindSafetyBlocked, g.model, err)
	default:
		return NewModelError(KindUnknown, g.model, fmt.Errorf("gemini API call failed: %w", err))
	}
}

var _ LLMClient = (*GeminiClient)(nil)
