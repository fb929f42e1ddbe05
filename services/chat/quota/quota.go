// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package quota computes a user's remaining daily message allowance.
//
// The quota is a derived value: a count of the user's persisted messages
// since the start of the current UTC day, subtracted from a fixed limit.
// There is no counter entity to update or reset; the window moves past
// midnight on its own because the count query is time-bounded. The value
// is computed fresh on every request so that concurrent sends never see a
// stale cached quota.
package quota

import (
	"context"
	"time"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// DailyLimit is the number of messages a user may send per UTC day.
// Fixed by product policy; not configurable at runtime.
const DailyLimit = 20

// MessageCounter is the single store capability the tracker needs.
type MessageCounter interface {
	CountMessagesSince(ctx context.Context, ownerID string, since time.Time, role string) (int, error)
}

// Tracker computes remaining daily quota. Pure reads, no side effects.
type Tracker struct {
	counter MessageCounter
	now     func() time.Time
}

// NewTracker builds a tracker over the given counter.
// Panics if counter is nil.
func NewTracker(counter MessageCounter) *Tracker {
	if counter == nil {
		panic("quota: counter must not be nil")
	}
	return &Tracker{counter: counter, now: time.Now}
}

// NewTrackerAt is NewTracker with an injectable clock for tests.
func NewTrackerAt(counter MessageCounter, now func() time.Time) *Tracker {
	t := NewTracker(counter)
	if now != nil {
		t.now = now
	}
	return t
}

// Consumed returns how many messages the user has sent since UTC midnight.
func (t *Tracker) Consumed(ctx context.Context, userID string) (int, error) {
	return t.counter.CountMessagesSince(ctx, userID, t.midnightUTC(), datatypes.RoleUser)
}

// Remaining returns max(0, DailyLimit - consumed).
func (t *Tracker) Remaining(ctx context.Context, userID string) (int, error) {
	consumed, err := t.Consumed(ctx, userID)
	if err != nil {
		return 0, err
	}
	remaining := DailyLimit - consumed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// midnightUTC returns the start of the current UTC day.
func (t *Tracker) midnightUTC() time.Time {
	now := t.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
