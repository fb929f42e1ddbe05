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
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CreateAndGetThread(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateThread(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.Title)
	assert.Empty(t, created.Messages)

	loaded, err := s.GetThread(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, "alice", loaded.OwnerID)
}

func TestStore_GetThread_OwnerScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateThread(ctx, "alice")
	require.NoError(t, err)

	// Another user must not be able to read the thread.
	_, err = s.GetThread(ctx, "mallory", created.ID)
	assert.ErrorIs(t, err, ErrThreadNotFound)

	_, err = s.GetThread(ctx, "alice", "no-such-thread")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestStore_AppendMessages_OrderAndTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	thread, err := s.CreateThread(ctx, "alice")
	require.NoError(t, err)

	updated, err := s.AppendMessages(ctx, "alice", thread.ID,
		datatypes.NewUserMessage("key-1", "What is the capital of France?"),
		datatypes.NewAssistantMessage("Paris."),
	)
	require.NoError(t, err)
	require.Len(t, updated.Messages, 2)
	assert.Equal(t, datatypes.RoleUser, updated.Messages[0].Role)
	assert.Equal(t, datatypes.RoleAssistant, updated.Messages[1].Role)
	assert.Equal(t, "What is the capital of France?", updated.Title)

	// Title derivation runs once; later appends must not change it.
	updated, err = s.AppendMessages(ctx, "alice", thread.ID,
		datatypes.NewUserMessage("key-2", "And the capital of Spain, while we are at it?"),
	)
	require.NoError(t, err)
	assert.Equal(t, "What is the capital of France?", updated.Title)
}

func TestStore_AppendMessages_ConcurrentSameThread(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	thread, err := s.CreateThread(ctx, "alice")
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.AppendMessages(ctx, "alice", thread.ID,
				datatypes.NewUserMessage(fmt.Sprintf("key-%d", n), fmt.Sprintf("message %d", n)),
				datatypes.NewAssistantMessage(fmt.Sprintf("reply %d", n)),
			)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	loaded, err := s.GetThread(ctx, "alice", thread.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, writers*2)

	// Pairs must not interleave: every user message is directly followed
	// by its assistant reply.
	for i := 0; i < len(loaded.Messages); i += 2 {
		assert.Equal(t, datatypes.RoleUser, loaded.Messages[i].Role)
		assert.Equal(t, datatypes.RoleAssistant, loaded.Messages[i+1].Role)
	}
}

func TestStore_ListThreads_MostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateThread(ctx, "alice")
	require.NoError(t, err)
	second, err := s.CreateThread(ctx, "alice")
	require.NoError(t, err)

	// Touch the first thread so it becomes the most recent.
	time.Sleep(5 * time.Millisecond)
	_, err = s.AppendMessages(ctx, "alice", first.ID,
		datatypes.NewUserMessage("key-1", "bump"))
	require.NoError(t, err)

	summaries, err := s.ListThreads(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, first.ID, summaries[0].ID)
	assert.Equal(t, second.ID, summaries[1].ID)
	assert.Equal(t, 1, summaries[0].MessageCount)
}

func TestStore_DeleteThread(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	thread, err := s.CreateThread(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, s.DeleteThread(ctx, "alice", thread.ID))
	_, err = s.GetThread(ctx, "alice", thread.ID)
	assert.ErrorIs(t, err, ErrThreadNotFound)

	assert.ErrorIs(t, s.DeleteThread(ctx, "alice", thread.ID), ErrThreadNotFound)
}

func TestStore_DeleteAllThreads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.CreateThread(ctx, "alice")
		require.NoError(t, err)
	}
	_, err := s.CreateThread(ctx, "bob")
	require.NoError(t, err)

	deleted, err := s.DeleteAllThreads(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	// Bob's thread survives.
	summaries, err := s.ListThreads(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestStore_ToggleStarred(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	thread, err := s.CreateThread(ctx, "alice")
	require.NoError(t, err)

	starred, err := s.ToggleStarred(ctx, "alice", thread.ID)
	require.NoError(t, err)
	assert.True(t, starred)

	starred, err = s.ToggleStarred(ctx, "alice", thread.ID)
	require.NoError(t, err)
	assert.False(t, starred)
}

func TestStore_CountMessagesSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	thread, err := s.CreateThread(ctx, "alice")
	require.NoError(t, err)
	_, err = s.AppendMessages(ctx, "alice", thread.ID,
		datatypes.NewUserMessage("key-1", "one"),
		datatypes.NewAssistantMessage("reply one"),
	)
	require.NoError(t, err)
	_, err = s.AppendMessages(ctx, "alice", thread.ID,
		datatypes.NewUserMessage("key-2", "two"),
		datatypes.NewAssistantMessage("reply two"),
	)
	require.NoError(t, err)

	cutoff := time.Now().UTC().Add(-time.Hour)
	count, err := s.CountMessagesSince(ctx, "alice", cutoff, datatypes.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "assistant messages must not count toward the quota")

	count, err = s.CountMessagesSince(ctx, "alice", time.Now().UTC().Add(time.Hour), datatypes.RoleUser)
	require.NoError(t, err)
	assert.Zero(t, count)
}
