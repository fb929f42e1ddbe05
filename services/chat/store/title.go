// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import "strings"

// DefaultTitle is assigned to threads whose title cannot be derived.
const DefaultTitle = "New Chat"

const (
	titleMaxChars      = 50
	titleMinBreakIndex = 20
)

// DeriveTitle produces a thread title from the first user message.
//
// # Description
//
// Takes the first 50 characters and prefers breaking at the end of a
// sentence ('. ', '? ', '! ') when that break lands at or after character
// 20. Failing that, it breaks at the last space at or after character 20,
// and otherwise truncates hard. An ellipsis is appended whenever the
// title is shorter than the original content.
//
// Pure string operation; no model call. Callers apply it at most once per
// thread (only while the title is unset), which makes derivation
// idempotent at the store level.
//
// # Examples
//
//	DeriveTitle("Can you help me plan a trip to Japan for two weeks in the spring?")
//	// "Can you help me plan a trip to Japan for two..."
func DeriveTitle(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return DefaultTitle
	}

	// Character positions throughout, never byte offsets: slicing a
	// multibyte message by bytes would cut mid-rune and persist an
	// invalid UTF-8 title.
	runes := []rune(content)
	title := runes
	if len(title) > titleMaxChars {
		title = title[:titleMaxChars]
	}

	breakPoint := lastSentenceBreak(title)
	if breakPoint < titleMinBreakIndex {
		breakPoint = lastSpace(title)
	}
	if breakPoint >= titleMinBreakIndex {
		title = title[:breakPoint]
	}

	if len(runes) > len(title) {
		return string(title) + "..."
	}
	return string(title)
}

// lastSentenceBreak returns the largest index of a sentence terminator
// followed by a space, or -1.
func lastSentenceBreak(runes []rune) int {
	for i := len(runes) - 2; i >= 0; i-- {
		switch runes[i] {
		case '.', '?', '!':
			if runes[i+1] == ' ' {
				return i
			}
		}
	}
	return -1
}

// lastSpace returns the largest index of a space, or -1.
func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}
