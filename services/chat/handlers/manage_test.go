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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChat/pkg/extensions"
	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/AleutianAI/AleutianChat/services/chat/middleware"
	"github.com/AleutianAI/AleutianChat/services/chat/store"
)

func newManageRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()

	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	router := gin.New()
	chat := router.Group("/chat")
	chat.Use(middleware.AuthMiddleware(&extensions.NopAuthProvider{}))
	chat.GET("/history", HandleGetHistory(s))
	chat.DELETE("/clear", HandleClearThreads(s))
	chat.GET("/:id", HandleGetThread(s))
	chat.DELETE("/:id", HandleDeleteThread(s))
	chat.PATCH("/:id/star", HandleToggleStar(s))

	return router, s
}

func seedThread(t *testing.T, s *store.Store, text string) *datatypes.Thread {
	t.Helper()
	ctx := context.Background()

	thread, err := s.CreateThread(ctx, "local-user")
	require.NoError(t, err)
	thread, err = s.AppendMessages(ctx, "local-user", thread.ID,
		datatypes.NewUserMessage(uuid.New().String(), text),
		datatypes.NewAssistantMessage("reply to: "+text))
	require.NoError(t, err)
	return thread
}

func perform(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetHistory_ListsSummariesWithoutBodies(t *testing.T) {
	router, s := newManageRouter(t)
	seedThread(t, s, "older topic")
	seedThread(t, s, "newer topic")

	w := perform(router, http.MethodGet, "/chat/history")
	require.Equal(t, http.StatusOK, w.Code)

	var threads []datatypes.ThreadSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &threads))
	require.Len(t, threads, 2)
	assert.Equal(t, "newer topic", threads[0].Title)
	assert.Equal(t, 2, threads[0].MessageCount)
}

func TestGetHistory_EmptyHistoryIsBareArray(t *testing.T) {
	router, _ := newManageRouter(t)

	w := perform(router, http.MethodGet, "/chat/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestGetThread_ReturnsFullMessageList(t *testing.T) {
	router, s := newManageRouter(t)
	thread := seedThread(t, s, "a question")

	w := perform(router, http.MethodGet, "/chat/"+thread.ID)
	require.Equal(t, http.StatusOK, w.Code)

	var got datatypes.Thread
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, thread.ID, got.ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "a question", got.Messages[0].Content)
}

func TestGetThread_UnknownIdIs404(t *testing.T) {
	router, _ := newManageRouter(t)

	w := perform(router, http.MethodGet, "/chat/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Equal(t, datatypes.CodeThreadNotFound, envelope.Error.Code)
}

func TestDeleteThread_RemovesOnlyThatThread(t *testing.T) {
	router, s := newManageRouter(t)
	doomed := seedThread(t, s, "delete me")
	kept := seedThread(t, s, "keep me")

	w := perform(router, http.MethodDelete, "/chat/"+doomed.ID)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := s.GetThread(context.Background(), "local-user", doomed.ID)
	assert.ErrorIs(t, err, store.ErrThreadNotFound)
	_, err = s.GetThread(context.Background(), "local-user", kept.ID)
	assert.NoError(t, err)
}

func TestClearThreads_ReportsDeletedCount(t *testing.T) {
	router, s := newManageRouter(t)
	seedThread(t, s, "one")
	seedThread(t, s, "two")
	seedThread(t, s, "three")

	w := perform(router, http.MethodDelete, "/chat/clear")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Deleted int `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Deleted)

	threads, err := s.ListThreads(context.Background(), "local-user")
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestToggleStar_FlipsAndReportsState(t *testing.T) {
	router, s := newManageRouter(t)
	thread := seedThread(t, s, "star me")

	w := perform(router, http.MethodPatch, "/chat/"+thread.ID+"/star")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		IsStarred bool `json:"isStarred"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsStarred)

	w = perform(router, http.MethodPatch, "/chat/"+thread.ID+"/star")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.IsStarred)
}
