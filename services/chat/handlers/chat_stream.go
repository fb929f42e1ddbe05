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
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/AleutianAI/AleutianChat/services/chat/observability"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

// HandleSendMessageStream handles POST /chat/message/stream.
//
// # Description
//
// Runs the same exchange pipeline as HandleSendMessage, then delivers the
// assistant reply as SSE token frames paced a few words at a time, closed
// by exactly one done frame. The reply is generated in full before the
// body starts, so every failure still reaches the client as a status-coded
// error envelope rather than a truncated stream.
//
// The X-DailyLimit-Remaining header reports the quota left after this
// send and is set before the first frame.
//
// # Edge Cases
//
//   - Client disconnects mid-stream: emission stops, but the exchange has
//     already been persisted and counted against quota.
//   - Empty assistant reply: zero token frames, one done frame.
func HandleSendMessageStream(ex *Exchange) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleSendMessageStream")
		defer span.End()

		p, ok := ex.prepare(c, observability.EndpointSendStream)
		if !ok {
			return
		}

		started := time.Now()
		history := llm.BuildHistory(p.thread.Messages)
		answer, err := ex.gateway.Chat(ctx, history, ex.params)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			respondError(c, observability.EndpointSendStream, ex.failGateway(p, err))
			return
		}

		if _, err := ex.commitReply(c, p, answer); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			respondError(c, observability.EndpointSendStream, datatypes.CodeServerError)
			return
		}

		SetSSEHeaders(c)
		c.Header(datatypes.DailyLimitHeader, strconv.Itoa(p.remaining))

		writer, err := NewSSEWriter(c.Writer)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			respondError(c, observability.EndpointSendStream, datatypes.CodeServerError)
			return
		}

		m := observability.DefaultMetrics
		if m != nil {
			m.StreamStarted()
			defer m.StreamEnded()
		}

		success := ex.emitPaced(ctx, writer, answer, started)
		if m != nil {
			m.RecordRequest(observability.EndpointSendStream, success)
			m.RecordStreamDuration(time.Since(started).Seconds(), success)
		}
	}
}

// emitPaced writes the answer as paced token frames followed by one done
// frame. Returns false if the client went away before the done frame.
func (ex *Exchange) emitPaced(ctx context.Context, writer SSEWriter, answer string, started time.Time) bool {
	m := observability.DefaultMetrics
	first := true

	for _, chunk := range ChunkWords(answer, ex.wordsPerChunk) {
		select {
		case <-ctx.Done():
			if m != nil {
				m.ClientDisconnectsTotal.Inc()
			}
			return false
		default:
		}

		err := writer.WriteFrame(datatypes.StreamFrame{Type: datatypes.FrameToken, Content: chunk})
		if err != nil {
			if m != nil {
				m.ClientDisconnectsTotal.Inc()
			}
			return false
		}
		if m != nil {
			m.RecordFrame(datatypes.FrameToken)
			if first {
				m.TimeToFirstFrameSeconds.Observe(time.Since(started).Seconds())
			}
		}
		first = false

		if ex.chunkDelay > 0 {
			time.Sleep(ex.chunkDelay)
		}
	}

	if err := writer.WriteFrame(datatypes.StreamFrame{Type: datatypes.FrameDone}); err != nil {
		if m != nil {
			m.ClientDisconnectsTotal.Inc()
		}
		return false
	}
	if m != nil {
		m.RecordFrame(datatypes.FrameDone)
	}
	return true
}
