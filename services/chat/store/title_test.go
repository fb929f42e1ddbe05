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

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle_ShortContentKeptVerbatim(t *testing.T) {
	assert.Equal(t, "Hello there", DeriveTitle("Hello there"))
}

func TestDeriveTitle_BreaksAtLastSpace(t *testing.T) {
	input := "Can you help me plan a trip to Japan for two weeks in the spring?"
	assert.Equal(t, "Can you help me plan a trip to Japan for two...", DeriveTitle(input))
}

func TestDeriveTitle_PrefersSentenceBreak(t *testing.T) {
	input := "I need some help with my taxes. Specifically the deductions section."
	assert.Equal(t, "I need some help with my taxes...", DeriveTitle(input))
}

func TestDeriveTitle_EarlySentenceBreakIgnored(t *testing.T) {
	// The sentence break lands before index 20, so the last space wins.
	input := "Hi there. Could you summarize the quarterly revenue report for me please"
	assert.Equal(t, "Hi there. Could you summarize the quarterly...", DeriveTitle(input))
}

func TestDeriveTitle_HardTruncateWithoutSpaces(t *testing.T) {
	input := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" // 60 chars
	got := DeriveTitle(input)
	assert.Equal(t, input[:50]+"...", got)
}

func TestDeriveTitle_MultibyteUnderLimitKeptWhole(t *testing.T) {
	// 40 three-byte runes (120 bytes): a byte-based limit would cut
	// mid-rune, but 40 runes is under the 50-character limit.
	input := strings.Repeat("日", 40)
	got := DeriveTitle(input)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, input, got)
}

func TestDeriveTitle_MultibyteCountsRunesNotBytes(t *testing.T) {
	input := strings.Repeat("日", 60)
	got := DeriveTitle(input)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("日", 50)+"...", got)
}

func TestDeriveTitle_MultibyteBreaksAtLastSpace(t *testing.T) {
	// 30 runes, space, then 30 more: the space sits at rune index 30.
	input := strings.Repeat("日", 30) + " " + strings.Repeat("月", 30)
	got := DeriveTitle(input)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("日", 30)+"...", got)
}

func TestDeriveTitle_BlankContentFallsBack(t *testing.T) {
	assert.Equal(t, DefaultTitle, DeriveTitle("   "))
	assert.Equal(t, DefaultTitle, DeriveTitle(""))
}
