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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/AleutianAI/AleutianChat/services/chat/observability"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

// statusForCode maps each wire error code to its HTTP status.
var statusForCode = map[datatypes.ErrorCode]int{
	datatypes.CodeAuthRequired:      http.StatusUnauthorized,
	datatypes.CodeInvalidInput:      http.StatusBadRequest,
	datatypes.CodeMessageTooLong:    http.StatusBadRequest,
	datatypes.CodeDuplicateMessage:  http.StatusConflict,
	datatypes.CodeDailyMessageLimit: http.StatusTooManyRequests,
	datatypes.CodeThreadNotFound:    http.StatusNotFound,
	datatypes.CodeLLMTimeout:        http.StatusInternalServerError,
	datatypes.CodeServerError:       http.StatusInternalServerError,
}

// respondError writes the error envelope for code and records metrics.
func respondError(c *gin.Context, endpoint observability.Endpoint, code datatypes.ErrorCode) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordError(endpoint, string(code))
		m.RecordRequest(endpoint, false)
	}
	status, ok := statusForCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, datatypes.NewErrorEnvelope(code))
}

// gatewayFailureCode maps a model gateway error to a wire code and reports
// whether the failure is retryable with the same idempotency key.
//
// Exhausted fallback chains and timeouts surface as LLM_TIMEOUT; the
// client is told to try again, so the key is released. Safety blocks and
// auth failures would fail the same way on a resend, so the key stays
// consumed.
func gatewayFailureCode(err error) (code datatypes.ErrorCode, retryable bool) {
	var exhausted *llm.AllModelsExhaustedError
	if errors.As(err, &exhausted) {
		return datatypes.CodeLLMTimeout, true
	}
	switch llm.KindOf(err) {
	case llm.KindTimeout:
		return datatypes.CodeLLMTimeout, true
	case llm.KindSafetyBlocked, llm.KindAuthError:
		return datatypes.CodeServerError, false
	default:
		return datatypes.CodeServerError, true
	}
}
