// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

const sampleStream = "data: {\"type\":\"token\",\"content\":\"Hello \"}\n\n" +
	"data: {\"type\":\"token\",\"content\":\"world\"}\n\n" +
	"data: {\"type\":\"done\"}\n\n"

func TestFrameReader_DeliversFramesInOrder(t *testing.T) {
	reader := NewFrameReader(NewSSEParser())

	var frames []datatypes.StreamFrame
	err := reader.Read(context.Background(), strings.NewReader(sampleStream),
		func(frame datatypes.StreamFrame) error {
			frames = append(frames, frame)
			return nil
		})

	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, "Hello ", frames[0].Content)
	assert.Equal(t, "world", frames[1].Content)
	assert.Equal(t, datatypes.FrameDone, frames[2].Type)
}

func TestFrameReader_StopsAfterDone(t *testing.T) {
	reader := NewFrameReader(NewSSEParser())
	input := sampleStream + "data: {\"type\":\"token\",\"content\":\"late\"}\n\n"

	count := 0
	err := reader.Read(context.Background(), strings.NewReader(input),
		func(datatypes.StreamFrame) error {
			count++
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, count, "frames after done must not be delivered")
}

func TestFrameReader_CallbackErrorStopsRead(t *testing.T) {
	reader := NewFrameReader(NewSSEParser())

	wantErr := assert.AnError
	err := reader.Read(context.Background(), strings.NewReader(sampleStream),
		func(datatypes.StreamFrame) error {
			return wantErr
		})
	assert.ErrorIs(t, err, wantErr)
}

func TestFrameReader_ContextCancellation(t *testing.T) {
	reader := NewFrameReader(NewSSEParser())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := reader.Read(ctx, strings.NewReader(sampleStream),
		func(datatypes.StreamFrame) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrameReader_EOFWithoutDoneIsNotAnError(t *testing.T) {
	reader := NewFrameReader(NewSSEParser())
	input := "data: {\"type\":\"token\",\"content\":\"partial\"}\n\n"

	var last datatypes.StreamFrame
	err := reader.Read(context.Background(), strings.NewReader(input),
		func(frame datatypes.StreamFrame) error {
			last = frame
			return nil
		})

	// The reader reports what it saw; deciding whether a truncated
	// stream is fatal belongs to the controller.
	require.NoError(t, err)
	assert.Equal(t, datatypes.FrameToken, last.Type)
}
