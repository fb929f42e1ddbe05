// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides LLM backend clients and the model fallback chain.
//
// This file defines the typed error model shared by all backends. Every
// backend classifies its provider-specific failures into a ModelError so
// that the fallback chain and the HTTP layer never inspect provider error
// strings.
package llm

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes a backend failure.
type ErrorKind string

const (
	// KindRateLimited means the provider rejected the call for quota or
	// throughput reasons. The fallback chain treats this as retryable on
	// the next candidate model.
	KindRateLimited ErrorKind = "rate_limited"

	// KindSafetyBlocked means the provider refused to generate for the
	// given content. Never retried; a smaller model would refuse too.
	KindSafetyBlocked ErrorKind = "safety_blocked"

	// KindAuthError means the API key or configuration is invalid.
	KindAuthError ErrorKind = "auth_error"

	// KindTimeout means the bounded per-candidate wait expired.
	KindTimeout ErrorKind = "timeout"

	// KindUnknown covers everything else.
	KindUnknown ErrorKind = "unknown"
)

// ErrStreamingNotSupported is returned by ChatStream on backends that only
// implement full-response generation.
var ErrStreamingNotSupported = errors.New("streaming not supported by this backend")

// ModelError is a classified failure from one backend call.
type ModelError struct {
	Kind  ErrorKind
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %s: %v", e.Model, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError wraps err with a kind and the model that produced it.
func NewModelError(kind ErrorKind, model string, err error) *ModelError {
	return &ModelError{Kind: kind, Model: model, Err: err}
}

// AllModelsExhaustedError is returned when every candidate in the fallback
// chain failed. Last holds the final candidate's error.
type AllModelsExhaustedError struct {
	Attempted []string
	Last      error
}

func (e *AllModelsExhaustedError) Error() string {
	return fmt.Sprintf("all models failed after %d attempts, last error: %v", len(e.Attempted), e.Last)
}

func (e *AllModelsExhaustedError) Unwrap() error {
	return e.Last
}

// IsRateLimited reports whether err is a rate-limit classified ModelError.
func IsRateLimited(err error) bool {
	var me *ModelError
	return errors.As(err, &me) && me.Kind == KindRateLimited
}

// KindOf extracts the error kind, defaulting to KindUnknown for
// unclassified errors.
func KindOf(err error) ErrorKind {
	var me *ModelError
	if errors.As(err, &me) {
		return me.Kind
	}
	return KindUnknown
}
