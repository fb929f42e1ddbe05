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
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/AleutianAI/AleutianChat/services/chat/observability"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

var chatTracer = otel.Tracer("aleutian.chat.handlers")

// HandleSendMessage handles POST /chat/message.
//
// # Description
//
// Runs the full exchange pipeline and returns the thread's complete
// message list plus its title in one JSON body. The trailing two messages
// are the just-appended user/assistant pair.
//
// # Outputs
//
//   - 200: SendMessageResponse
//   - 400: INVALID_INPUT or MESSAGE_TOO_LONG
//   - 404: THREAD_NOT_FOUND
//   - 409: DUPLICATE_MESSAGE
//   - 429: DAILY_MESSAGE_LIMIT
//   - 500: LLM_TIMEOUT or SERVER_ERROR
func HandleSendMessage(ex *Exchange) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleSendMessage")
		defer span.End()

		p, ok := ex.prepare(c, observability.EndpointSend)
		if !ok {
			return
		}

		history := llm.BuildHistory(p.thread.Messages)
		answer, err := ex.gateway.Chat(ctx, history, ex.params)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			respondError(c, observability.EndpointSend, ex.failGateway(p, err))
			return
		}

		thread, err := ex.commitReply(c, p, answer)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			respondError(c, observability.EndpointSend, datatypes.CodeServerError)
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(observability.EndpointSend, true)
		}
		c.Header(datatypes.DailyLimitHeader, strconv.Itoa(p.remaining))
		c.JSON(http.StatusOK, datatypes.SendMessageResponse{
			Messages: thread.Messages,
			Title:    thread.Title,
		})
	}
}
