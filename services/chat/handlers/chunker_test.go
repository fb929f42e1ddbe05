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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkWords_GroupsWordsWithTrailingSpace(t *testing.T) {
	chunks := ChunkWords("Hello there, friend", 2)
	assert.Equal(t, []string{"Hello there, ", "friend"}, chunks)
}

func TestChunkWords_SingleChunkWhenShort(t *testing.T) {
	chunks := ChunkWords("Hello there, friend", 3)
	assert.Equal(t, []string{"Hello there, friend"}, chunks)
}

func TestChunkWords_RoundTripPreservesWhitespace(t *testing.T) {
	inputs := []string{
		"one two three four five six seven",
		"line one\nline two\n\n  indented line",
		"  leading and trailing  ",
		"tabs\tbetween\twords here",
	}
	for _, input := range inputs {
		chunks := ChunkWords(input, 3)
		assert.Equal(t, input, strings.Join(chunks, ""), "input: %q", input)
	}
}

func TestChunkWords_EmptyInput(t *testing.T) {
	assert.Nil(t, ChunkWords("", 3))
}

func TestChunkWords_WhitespaceOnlyInput(t *testing.T) {
	assert.Equal(t, []string{"   "}, ChunkWords("   ", 3))
}

func TestChunkWords_InvalidChunkSizeFallsBackToOne(t *testing.T) {
	chunks := ChunkWords("a b c", 0)
	assert.Equal(t, []string{"a ", "b ", "c"}, chunks)
}
