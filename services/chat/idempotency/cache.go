// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package idempotency tracks client message ids so a resubmitted send is
// rejected instead of reprocessed.
//
// The cache is process-wide, bounded by entry count and age, and evicts
// in least-recently-used order. It intentionally does not persist: after
// a restart the worst case is one duplicate assistant message for a
// resend racing the restart, which the daily-granularity product design
// accepts.
package idempotency

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultMaxEntries bounds cache growth. At one entry per send and a
	// 20-message daily quota, this covers thousands of active users.
	DefaultMaxEntries = 100000

	// DefaultMaxAge is the replay rejection window. Keys older than this
	// are evicted lazily.
	DefaultMaxAge = 24 * time.Hour
)

// state of one cached key.
type keyState int

const (
	// stateReserved marks a key whose exchange is in flight. The reserving
	// request is the single winner; concurrent requests with the same key
	// observe a duplicate.
	stateReserved keyState = iota

	// stateConsumed marks a key whose exchange reached a terminal outcome.
	stateConsumed
)

type entry struct {
	key      string
	state    keyState
	threadID string
	addedAt  time.Time
}

// Cache is a bounded LRU set of handled idempotency keys.
//
// # Thread Safety
//
// Safe for concurrent use. Reserve is the single-winner decision point
// for racing requests bearing the same key.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	maxAge     time.Duration
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries overrides the entry bound.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithMaxAge overrides the replay window.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache builds an empty cache with the default bounds.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: DefaultMaxEntries,
		maxAge:     DefaultMaxAge,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reserve claims the key for one in-flight exchange.
//
// Returns false if the key was already reserved or consumed within the
// replay window; exactly one of any set of concurrent callers gets true.
func (c *Cache) Reserve(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		if !c.expired(elem.Value.(*entry)) {
			c.order.MoveToFront(elem)
			return false
		}
		c.remove(elem)
	}

	c.insert(&entry{key: key, state: stateReserved, addedAt: c.now()})
	return true
}

// Commit marks a reserved key as consumed, recording the thread it
// resolved to. Call only after a terminal outcome: success, or a
// non-retryable input/quota rejection.
func (c *Cache) Commit(key, threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*entry)
		e.state = stateConsumed
		e.threadID = threadID
		e.addedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}
	c.insert(&entry{key: key, state: stateConsumed, threadID: threadID, addedAt: c.now()})
}

// Release drops a reservation after a retryable upstream failure, so the
// client may retry the same key. A consumed key is never released.
func (c *Cache) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok && elem.Value.(*entry).state == stateReserved {
		c.remove(elem)
	}
}

// Seen reports whether the key is currently held (reserved or consumed).
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.expired(elem.Value.(*entry)) {
		c.remove(elem)
		return false
	}
	return true
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) insert(e *entry) {
	c.entries[e.key] = c.order.PushFront(e)
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest)
	}
}

func (c *Cache) remove(elem *list.Element) {
	delete(c.entries, elem.Value.(*entry).key)
	c.order.Remove(elem)
}

func (c *Cache) expired(e *entry) bool {
	return c.now().Sub(e.addedAt) > c.maxAge
}
