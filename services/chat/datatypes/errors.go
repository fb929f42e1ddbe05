// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the chat service.
//
// This file contains the error envelope returned on every non-2xx response.
package datatypes

// ErrorCode identifies one failure category on the wire.
type ErrorCode string

// Wire error codes. These are part of the public API contract; clients
// key retry and display behavior off them.
const (
	CodeAuthRequired      ErrorCode = "AUTH_REQUIRED"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeMessageTooLong    ErrorCode = "MESSAGE_TOO_LONG"
	CodeDuplicateMessage  ErrorCode = "DUPLICATE_MESSAGE"
	CodeDailyMessageLimit ErrorCode = "DAILY_MESSAGE_LIMIT"
	CodeThreadNotFound    ErrorCode = "THREAD_NOT_FOUND"
	CodeLLMTimeout        ErrorCode = "LLM_TIMEOUT"
	CodeServerError       ErrorCode = "SERVER_ERROR"
)

// ErrorDetail is the user-facing description of one failure.
//
// Title, What and Action are stable strings keyed by Code: Title is the
// banner headline, What explains the condition, Action tells the user how
// to proceed.
type ErrorDetail struct {
	Title  string    `json:"title"`
	What   string    `json:"what"`
	Action string    `json:"action"`
	Code   ErrorCode `json:"code"`
}

// ErrorEnvelope wraps an ErrorDetail as the body of a non-2xx response.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// errorDetails maps each code to its stable user-facing strings.
var errorDetails = map[ErrorCode]ErrorDetail{
	CodeAuthRequired: {
		Title:  "Authentication required.",
		What:   "User is not authenticated.",
		Action: "Please sign in.",
		Code:   CodeAuthRequired,
	},
	CodeInvalidInput: {
		Title:  "Invalid input - message is empty.",
		What:   "No message content provided.",
		Action: "Please enter a message.",
		Code:   CodeInvalidInput,
	},
	CodeMessageTooLong: {
		Title:  "Message too long - split and retry.",
		What:   "Message exceeds maximum length.",
		Action: "Split your message into smaller parts.",
		Code:   CodeMessageTooLong,
	},
	CodeDuplicateMessage: {
		Title:  "Duplicate message blocked.",
		What:   "This exact message was already sent.",
		Action: "Modify your message or send a different one.",
		Code:   CodeDuplicateMessage,
	},
	CodeDailyMessageLimit: {
		Title:  "Daily message limit reached (20).",
		What:   "You have reached your daily message limit.",
		Action: "Try again tomorrow or upgrade your plan.",
		Code:   CodeDailyMessageLimit,
	},
	CodeThreadNotFound: {
		Title:  "Thread not found.",
		What:   "The conversation thread does not exist.",
		Action: "Start a new conversation.",
		Code:   CodeThreadNotFound,
	},
	CodeLLMTimeout: {
		Title:  "AI service error - try again.",
		What:   "Both primary and fallback models failed.",
		Action: "Please try again in a few moments.",
		Code:   CodeLLMTimeout,
	},
	CodeServerError: {
		Title:  "Server error - something went wrong.",
		What:   "Unexpected server error occurred.",
		Action: "Please try again.",
		Code:   CodeServerError,
	},
}

// NewErrorEnvelope returns the envelope for the given code.
//
// Unknown codes fall back to SERVER_ERROR rather than leaking an empty
// envelope to the client.
func NewErrorEnvelope(code ErrorCode) ErrorEnvelope {
	detail, ok := errorDetails[code]
	if !ok {
		detail = errorDetails[CodeServerError]
	}
	return ErrorEnvelope{Error: detail}
}
