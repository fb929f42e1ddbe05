// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// SSEWriter writes stream frames in Server-Sent Events format.
//
// # Description
//
// Each frame is serialized as "data: <json>\n\n" and flushed immediately
// so the client observes tokens as they are emitted rather than when the
// response buffer fills.
//
// # Thread Safety
//
// Safe for concurrent use. Writes are serialized by an internal mutex so
// interleaved frames never corrupt the wire format.
type SSEWriter interface {
	// WriteFrame writes one frame and flushes it to the client.
	WriteFrame(frame datatypes.StreamFrame) error
}

// sseWriter is the standard SSEWriter implementation.
type sseWriter struct {
	writer  io.Writer
	flusher http.Flusher
	mu      sync.Mutex
}

// NewSSEWriter creates an SSEWriter over the response writer.
//
// Returns an error if the writer does not support flushing, which means
// the transport cannot stream (e.g. a buffering proxy in tests).
func NewSSEWriter(w io.Writer) (SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	return &sseWriter{writer: w, flusher: flusher}, nil
}

// WriteFrame writes one frame and flushes it to the client.
func (s *sseWriter) WriteFrame(frame datatypes.StreamFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal stream frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.writer, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write stream frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// SetSSEHeaders sets the response headers required for SSE streaming.
// Must be called before the first frame is written.
func SetSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering
}
