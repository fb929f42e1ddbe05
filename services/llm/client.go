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

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// StreamChunk is one increment of a streamed generation.
type StreamChunk struct {
	Token string
	Done  bool
}

// StreamCallback receives stream chunks in generation order.
// Returning a non-nil error aborts the stream.
type StreamCallback func(chunk StreamChunk) error

// LLMClient defines the standard interface for any LLM backend.
//
// Chat returns the complete assistant text for the given history.
// ChatStream delivers the same text incrementally through the callback;
// backends that cannot stream return ErrStreamingNotSupported.
type LLMClient interface {
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)
	ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams, callback StreamCallback) error
}
