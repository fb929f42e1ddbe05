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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/AleutianAI/AleutianChat/services/chat/middleware"
	"github.com/AleutianAI/AleutianChat/services/chat/observability"
	"github.com/AleutianAI/AleutianChat/services/chat/store"
)

// HandleGetHistory handles GET /chat/history.
//
// Returns the caller's thread summaries, most recently updated first.
// Message bodies are omitted; fetch a single thread for those.
func HandleGetHistory(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := middleware.GetAuthInfo(c)
		if auth == nil {
			respondError(c, observability.EndpointManage, datatypes.CodeAuthRequired)
			return
		}

		summaries, err := s.ListThreads(c.Request.Context(), auth.UserID)
		if err != nil {
			slog.Error("failed to list threads", "error", err, "user", auth.UserID)
			respondError(c, observability.EndpointManage, datatypes.CodeServerError)
			return
		}
		if summaries == nil {
			// A bare JSON array, never null, even with no threads.
			summaries = []datatypes.ThreadSummary{}
		}
		c.JSON(http.StatusOK, summaries)
	}
}

// HandleGetThread handles GET /chat/:id.
//
// Returns the full thread including its ordered message list. Threads
// belonging to other users read as not found.
func HandleGetThread(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := middleware.GetAuthInfo(c)
		if auth == nil {
			respondError(c, observability.EndpointManage, datatypes.CodeAuthRequired)
			return
		}

		thread, err := s.GetThread(c.Request.Context(), auth.UserID, c.Param("id"))
		if err != nil {
			if errors.Is(err, store.ErrThreadNotFound) {
				respondError(c, observability.EndpointManage, datatypes.CodeThreadNotFound)
				return
			}
			slog.Error("failed to load thread", "error", err, "thread_id", c.Param("id"))
			respondError(c, observability.EndpointManage, datatypes.CodeServerError)
			return
		}
		c.JSON(http.StatusOK, thread)
	}
}

// HandleDeleteThread handles DELETE /chat/:id.
func HandleDeleteThread(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := middleware.GetAuthInfo(c)
		if auth == nil {
			respondError(c, observability.EndpointManage, datatypes.CodeAuthRequired)
			return
		}

		err := s.DeleteThread(c.Request.Context(), auth.UserID, c.Param("id"))
		if err != nil {
			if errors.Is(err, store.ErrThreadNotFound) {
				respondError(c, observability.EndpointManage, datatypes.CodeThreadNotFound)
				return
			}
			slog.Error("failed to delete thread", "error", err, "thread_id", c.Param("id"))
			respondError(c, observability.EndpointManage, datatypes.CodeServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

// HandleClearThreads handles DELETE /chat/clear.
//
// Deletes every thread the caller owns and reports how many were removed.
func HandleClearThreads(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := middleware.GetAuthInfo(c)
		if auth == nil {
			respondError(c, observability.EndpointManage, datatypes.CodeAuthRequired)
			return
		}

		count, err := s.DeleteAllThreads(c.Request.Context(), auth.UserID)
		if err != nil {
			slog.Error("failed to clear threads", "error", err, "user", auth.UserID)
			respondError(c, observability.EndpointManage, datatypes.CodeServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": count})
	}
}

// HandleToggleStar handles PATCH /chat/:id/star.
//
// Flips the thread's starred flag and returns the new state.
func HandleToggleStar(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := middleware.GetAuthInfo(c)
		if auth == nil {
			respondError(c, observability.EndpointManage, datatypes.CodeAuthRequired)
			return
		}

		starred, err := s.ToggleStarred(c.Request.Context(), auth.UserID, c.Param("id"))
		if err != nil {
			if errors.Is(err, store.ErrThreadNotFound) {
				respondError(c, observability.EndpointManage, datatypes.CodeThreadNotFound)
				return
			}
			slog.Error("failed to toggle star", "error", err, "thread_id", c.Param("id"))
			respondError(c, observability.EndpointManage, datatypes.CodeServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"isStarred": starred})
	}
}
