// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedCounter returns a canned count and records the cutoff it was asked for.
type fixedCounter struct {
	count     int
	lastSince time.Time
}

func (f *fixedCounter) CountMessagesSince(_ context.Context, _ string, since time.Time, _ string) (int, error) {
	f.lastSince = since
	return f.count, nil
}

func TestTracker_Remaining(t *testing.T) {
	counter := &fixedCounter{count: 5}
	tracker := NewTracker(counter)

	remaining, err := tracker.Remaining(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, DailyLimit-5, remaining)
}

func TestTracker_RemainingNeverNegative(t *testing.T) {
	counter := &fixedCounter{count: DailyLimit + 7}
	tracker := NewTracker(counter)

	remaining, err := tracker.Remaining(context.Background(), "alice")
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestTracker_WindowStartsAtUTCMidnight(t *testing.T) {
	counter := &fixedCounter{}
	// 23:59 UTC on a fixed day.
	now := time.Date(2025, time.March, 14, 23, 59, 0, 0, time.UTC)
	tracker := NewTrackerAt(counter, func() time.Time { return now })

	_, err := tracker.Consumed(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC), counter.lastSince)
}

func TestTracker_PanicsOnNilCounter(t *testing.T) {
	assert.Panics(t, func() { NewTracker(nil) })
}
