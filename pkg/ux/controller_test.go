// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// updateLog collects publications thread-safely.
type updateLog struct {
	mu      sync.Mutex
	updates []SendUpdate
}

func (l *updateLog) add(u SendUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, u)
}

func (l *updateLog) all() []SendUpdate {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SendUpdate, len(l.updates))
	copy(out, l.updates)
	return out
}

func writeFrames(w http.ResponseWriter, remaining int, tokens ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set(datatypes.DailyLimitHeader, fmt.Sprintf("%d", remaining))
	flusher := w.(http.Flusher)
	for _, token := range tokens {
		data, _ := json.Marshal(datatypes.StreamFrame{Type: datatypes.FrameToken, Content: token})
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: {\"type\":\"done\"}\n\n")
	flusher.Flush()
}

func TestController_StreamingLifecycle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/message/stream", r.URL.Path)
		writeFrames(w, 17, "The answer ", "is 42.")
	}))
	defer server.Close()

	ctrl := NewController(NewClient(server.URL))
	log := &updateLog{}
	ctrl.Subscribe(log.add)

	key := ctrl.Send(context.Background(), "", "what is the answer?", "")
	ctrl.Wait()

	updates := log.all()
	require.NotEmpty(t, updates)
	assert.Equal(t, StateSending, updates[0].State)

	last := updates[len(updates)-1]
	assert.Equal(t, StateDone, last.State)
	assert.Equal(t, key, last.Key)
	assert.Equal(t, "The answer is 42.", last.Answer)
	assert.Equal(t, 17, last.Remaining)

	// Streaming updates accumulate monotonically.
	var prev string
	for _, u := range updates[1 : len(updates)-1] {
		assert.Equal(t, StateStreaming, u.State)
		assert.True(t, len(u.Answer) >= len(prev))
		prev = u.Answer
	}
}

func TestController_FallsBackWhenStreamRouteMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/message/stream":
			http.NotFound(w, r)
		case "/chat/message":
			w.Header().Set(datatypes.DailyLimitHeader, "12")
			_ = json.NewEncoder(w).Encode(datatypes.SendMessageResponse{
				Messages: []datatypes.Message{
					datatypes.NewUserMessage("k1", "hi"),
					datatypes.NewAssistantMessage("hello there"),
				},
				Title: "hi",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	ctrl := NewController(NewClient(server.URL))
	log := &updateLog{}
	ctrl.Subscribe(log.add)

	ctrl.Send(context.Background(), "", "hi", "k1")
	ctrl.Wait()

	updates := log.all()
	last := updates[len(updates)-1]
	require.Equal(t, StateDone, last.State)
	assert.Equal(t, "hello there", last.Answer)
	assert.Equal(t, "hi", last.Title)
	require.Len(t, last.Messages, 2)
	assert.Equal(t, 12, last.Remaining)
}

func TestController_ThreadNotFoundDoesNotFallBack(t *testing.T) {
	var nonStreamCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/message/stream":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(datatypes.NewErrorEnvelope(datatypes.CodeThreadNotFound))
		case "/chat/message":
			nonStreamCalls++
		}
	}))
	defer server.Close()

	ctrl := NewController(NewClient(server.URL))
	log := &updateLog{}
	ctrl.Subscribe(log.add)

	ctrl.Send(context.Background(), "00000000-0000-4000-8000-000000000000", "hi", "")
	ctrl.Wait()

	updates := log.all()
	last := updates[len(updates)-1]
	require.Equal(t, StateFailed, last.State)
	require.NotNil(t, last.Err)
	assert.Equal(t, datatypes.CodeThreadNotFound, last.Err.Code)
	assert.Equal(t, 0, nonStreamCalls)
}

func TestController_FailurePublishesDecodedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(datatypes.NewErrorEnvelope(datatypes.CodeDailyMessageLimit))
	}))
	defer server.Close()

	ctrl := NewController(NewClient(server.URL))
	log := &updateLog{}
	ctrl.Subscribe(log.add)

	ctrl.Send(context.Background(), "", "hi", "")
	ctrl.Wait()

	updates := log.all()
	last := updates[len(updates)-1]
	require.Equal(t, StateFailed, last.State)
	require.NotNil(t, last.Err)
	assert.Equal(t, datatypes.CodeDailyMessageLimit, last.Err.Code)
	assert.Equal(t, "Daily message limit reached (20).", last.Err.Title)
}

func TestController_TruncatedStreamFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"token\",\"content\":\"partial\"}\n\n")
	}))
	defer server.Close()

	ctrl := NewController(NewClient(server.URL))
	log := &updateLog{}
	ctrl.Subscribe(log.add)

	ctrl.Send(context.Background(), "", "hi", "")
	ctrl.Wait()

	updates := log.all()
	last := updates[len(updates)-1]
	assert.Equal(t, StateFailed, last.State)
}

func TestController_StopIsIdempotentAndUnknownKeysAreNoOps(t *testing.T) {
	ctrl := NewController(NewClient("http://127.0.0.1:0"))
	log := &updateLog{}
	ctrl.Subscribe(log.add)

	ctrl.Stop("never-sent")
	ctrl.Stop("never-sent")
	assert.Empty(t, log.all())
}

func TestController_StoppedSendEndsSilently(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"token\",\"content\":\"thinking\"}\n\n")
		w.(http.Flusher).Flush()
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctrl := NewController(NewClient(server.URL))
	log := &updateLog{}
	ctrl.Subscribe(log.add)

	key := ctrl.Send(context.Background(), "", "hi", "stop-me")
	<-started
	ctrl.Stop(key)
	ctrl.Wait()

	for _, u := range log.all() {
		assert.NotEqual(t, StateFailed, u.State, "a stopped send must not report failure")
		assert.NotEqual(t, StateDone, u.State, "a stopped send must not report completion")
	}
}

func TestController_ResendSameKeySupersedesFirst(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	firstStarted := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"type\":\"token\",\"content\":\"slow\"}\n\n")
			w.(http.Flusher).Flush()
			close(firstStarted)
			<-r.Context().Done()
			return
		}
		writeFrames(w, 15, "fast answer")
	}))
	defer server.Close()

	ctrl := NewController(NewClient(server.URL))
	log := &updateLog{}
	ctrl.Subscribe(log.add)

	ctrl.Send(context.Background(), "", "hi", "same-key")
	<-firstStarted
	ctrl.Send(context.Background(), "", "hi", "same-key")
	ctrl.Wait()

	var doneCount, failedCount int
	for _, u := range log.all() {
		switch u.State {
		case StateDone:
			doneCount++
			assert.Equal(t, "fast answer", u.Answer)
		case StateFailed:
			failedCount++
		}
	}
	assert.Equal(t, 1, doneCount, "exactly one send reaches done")
	assert.Equal(t, 0, failedCount, "the superseded send ends silently")
}

func TestClient_HistoryAndStarRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/chat/history":
			_ = json.NewEncoder(w).Encode([]datatypes.ThreadSummary{{ID: "t1", Title: "First"}})
		case r.URL.Path == "/chat/t1/star" && r.Method == http.MethodPatch:
			_ = json.NewEncoder(w).Encode(map[string]bool{"isStarred": true})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, WithToken("tok"))

	threads, err := client.History(context.Background())
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "First", threads[0].Title)

	starred, err := client.ToggleStar(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, starred)
}
