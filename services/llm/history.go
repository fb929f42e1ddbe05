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
	"strings"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// BuildHistory maps stored thread messages to the shape chat APIs expect.
//
// # Description
//
// Applies three defensive rules before a history is sent to any backend:
//
//  1. Entries with empty (or whitespace-only) content are dropped. An
//     assistant slot can be empty if a prior generation failed mid-write.
//  2. Consecutive same-role entries are collapsed, keeping the first.
//     Duplicate inserts must not produce an alternation violation upstream.
//  3. A leading non-user entry is dropped; chat APIs require the history
//     to open with a user turn.
//
// # Inputs
//
//   - messages: Stored messages in thread order.
//
// # Outputs
//
//   - []datatypes.Message: A new slice, never sharing backing storage
//     beyond the message values themselves. May be empty.
func BuildHistory(messages []datatypes.Message) []datatypes.Message {
	history := make([]datatypes.Message, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if len(history) > 0 && history[len(history)-1].Role == m.Role {
			continue
		}
		history = append(history, m)
	}

	// Drop leading non-user turns until the history starts with the user.
	for len(history) > 0 && history[0].Role != datatypes.RoleUser {
		history = history[1:]
	}

	return history
}
