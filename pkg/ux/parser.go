// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the parser for the server's SSE frame format.
//
// Parsers only parse: no I/O, no rendering, no state. This keeps them
// trivially testable and lets readers compose them with any source.
package ux

import (
	"encoding/json"
	"strings"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// SSEParser parses one line of Server-Sent Events input into a frame.
//
// Wire format per frame:
//
//	data: {"type":"token","content":"Hello "}\n
//	\n
//
// Empty lines are event delimiters and lines starting with ":" are
// comments; both parse to nil. Other SSE fields (event:, id:, retry:)
// are not used by the chat service and are skipped.
//
// # Thread Safety
//
// The default implementation is stateless and safe for concurrent use.
type SSEParser interface {
	// ParseLine parses a single line without its trailing newline.
	// Returns nil for lines that carry no frame.
	ParseLine(line string) (*datatypes.StreamFrame, error)
}

type sseParser struct{}

// NewSSEParser creates a stateless SSE frame parser.
func NewSSEParser() SSEParser {
	return &sseParser{}
}

func (p *sseParser) ParseLine(line string) (*datatypes.StreamFrame, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ":") {
		return nil, nil
	}

	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		// Unknown SSE field; not an error, just nothing to deliver.
		return nil, nil
	}
	payload = strings.TrimSpace(payload)

	var frame datatypes.StreamFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

var _ SSEParser = (*sseParser)(nil)
