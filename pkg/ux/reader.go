// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the frame reader that consumes an SSE body and
// emits parsed frames through a callback.
package ux

import (
	"bufio"
	"context"
	"io"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// FrameCallback receives frames in stream order.
// Returning a non-nil error stops the read.
type FrameCallback func(frame datatypes.StreamFrame) error

// FrameReader reads a streaming response body and invokes a callback
// for each frame.
//
// A single Read call must not be invoked concurrently on the same
// reader instance.
type FrameReader interface {
	// Read processes the stream until the done frame, EOF, context
	// cancellation, or a callback error. The caller closes r.
	Read(ctx context.Context, r io.Reader, callback FrameCallback) error
}

type sseFrameReader struct {
	parser SSEParser
}

// NewFrameReader creates a FrameReader over the given parser.
func NewFrameReader(parser SSEParser) FrameReader {
	if parser == nil {
		parser = NewSSEParser()
	}
	return &sseFrameReader{parser: parser}
}

func (r *sseFrameReader) Read(ctx context.Context, reader io.Reader, callback FrameCallback) error {
	scanner := bufio.NewScanner(reader)
	// Token frames are small, but a full assistant reply in one frame
	// must still fit.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := r.parser.ParseLine(scanner.Text())
		if err != nil {
			return err
		}
		if frame == nil {
			continue
		}

		if err := callback(*frame); err != nil {
			return err
		}
		if frame.Type == datatypes.FrameDone {
			return nil
		}
	}
	return scanner.Err()
}

var _ FrameReader = (*sseFrameReader)(nil)
