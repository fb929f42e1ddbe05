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

import "unicode"

// ChunkWords splits text into chunks of wordsPerChunk words each,
// preserving all whitespace.
//
// # Description
//
// A word is a maximal run of non-space characters together with the
// whitespace that follows it; leading whitespace attaches to the first
// word. Concatenating the returned chunks reproduces the input exactly,
// byte for byte, so a client that joins token frames sees the assistant
// text unaltered.
//
// # Edge Cases
//
//   - Empty input returns nil.
//   - Whitespace-only input returns a single chunk.
//   - wordsPerChunk < 1 is treated as 1.
func ChunkWords(text string, wordsPerChunk int) []string {
	if text == "" {
		return nil
	}
	if wordsPerChunk < 1 {
		wordsPerChunk = 1
	}

	runes := []rune(text)
	var chunks []string
	start := 0
	words := 0
	i := 0

	for i < len(runes) {
		// One unit: optional leading space, the word, trailing space.
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		words++
		if words == wordsPerChunk {
			chunks = append(chunks, string(runes[start:i]))
			start = i
			words = 0
		}
	}
	if start < len(runes) {
		chunks = append(chunks, string(runes[start:]))
	}
	return chunks
}
