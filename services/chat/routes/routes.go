// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes wires the chat service's HTTP surface.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/AleutianChat/pkg/extensions"
	"github.com/AleutianAI/AleutianChat/services/chat/handlers"
	"github.com/AleutianAI/AleutianChat/services/chat/middleware"
	"github.com/AleutianAI/AleutianChat/services/chat/store"
)

// SetupRoutes registers all chat service routes on the router.
//
// # Description
//
// Health and metrics are unauthenticated. Everything under /chat runs
// behind the auth middleware; handlers read the caller's identity from
// the context. The /chat/clear route is registered before /chat/:id so
// the literal "clear" is never captured as a thread id.
//
// # Inputs
//
//   - router: Gin engine to register on. Must not be nil.
//   - ex: the message exchange pipeline.
//   - s: thread store backing the management endpoints.
//   - provider: identity provider; use extensions.NopAuthProvider for
//     single-user deployments.
func SetupRoutes(router *gin.Engine, ex *handlers.Exchange, s *store.Store,
	provider extensions.AuthProvider) {

	router.Use(otelgin.Middleware("aleutian-chat"))
	router.Use(middleware.RequestID())

	router.GET("/healthz", handlers.HandleHealth())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chat := router.Group("/chat")
	chat.Use(middleware.AuthMiddleware(provider))
	{
		chat.POST("/message", handlers.HandleSendMessage(ex))
		chat.POST("/message/stream", handlers.HandleSendMessageStream(ex))
		chat.GET("/history", handlers.HandleGetHistory(s))
		chat.DELETE("/clear", handlers.HandleClearThreads(s))
		chat.GET("/:id", handlers.HandleGetThread(s))
		chat.DELETE("/:id", handlers.HandleDeleteThread(s))
		chat.PATCH("/:id/star", handlers.HandleToggleStar(s))
	}
}
