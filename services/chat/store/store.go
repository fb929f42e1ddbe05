// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// ErrThreadNotFound is returned when a thread does not exist or belongs to
// a different owner. The two cases are deliberately indistinguishable:
// revealing that a foreign thread exists would leak information.
var ErrThreadNotFound = errors.New("thread not found")

// =============================================================================
// Store
// =============================================================================

// Store owns thread persistence.
//
// # Description
//
// Threads are stored as JSON values under "thread/<owner>/<threadID>".
// Every lookup is owner-scoped through the key prefix, so a caller can
// never read or mutate another user's thread.
//
// Appends on the same thread are serialized through a per-thread mutex:
// two concurrent sends against one thread commit their messages in some
// order, never interleaved.
//
// # Thread Safety
//
// Safe for concurrent use.
type Store struct {
	db     *badger.DB
	gc     *gcRunner
	logger *slog.Logger

	// threadLocks serializes appends per thread id.
	mu          sync.Mutex
	threadLocks map[string]*sync.Mutex
}

// Open opens the thread store with the given configuration.
//
// The caller must Close() the store when done.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:          db,
		logger:      cfg.Logger,
		threadLocks: make(map[string]*sync.Mutex),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		s.gc.start()
	}
	return s, nil
}

// OpenInMemory opens an in-memory store for testing.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

func threadKey(ownerID, threadID string) []byte {
	return []byte("thread/" + ownerID + "/" + threadID)
}

func ownerPrefix(ownerID string) []byte {
	return []byte("thread/" + ownerID + "/")
}

// lockThread returns the mutex serializing writes for one thread id.
func (s *Store) lockThread(threadID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.threadLocks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		s.threadLocks[threadID] = lock
	}
	return lock
}

// =============================================================================
// Operations
// =============================================================================

// CreateThread creates an empty thread for the owner. Title starts unset
// and is derived on the first append.
func (s *Store) CreateThread(ctx context.Context, ownerID string) (*datatypes.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	thread := &datatypes.Thread{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Messages:  []datatypes.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.putThread(thread); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Debug("created thread", "thread_id", thread.ID, "owner", ownerID)
	}
	return thread, nil
}

// GetThread loads a thread, scoped to its owner.
func (s *Store) GetThread(ctx context.Context, ownerID, threadID string) (*datatypes.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var thread datatypes.Thread
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(threadKey(ownerID, threadID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrThreadNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &thread)
		})
	})
	if err != nil {
		if errors.Is(err, ErrThreadNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get thread %s: %w", threadID, err)
	}
	return &thread, nil
}

// AppendMessages atomically appends messages to a thread in the given
// order and derives the title if it is still unset.
//
// Appends on the same thread are serialized; the returned thread reflects
// the state after this append committed.
func (s *Store) AppendMessages(ctx context.Context, ownerID, threadID string,
	messages ...datatypes.Message) (*datatypes.Thread, error) {

	lock := s.lockThread(threadID)
	lock.Lock()
	defer lock.Unlock()

	thread, err := s.GetThread(ctx, ownerID, threadID)
	if err != nil {
		return nil, err
	}

	thread.Messages = append(thread.Messages, messages...)
	thread.UpdatedAt = time.Now().UTC()

	if thread.Title == "" {
		if first := firstUserMessage(thread.Messages); first != nil {
			thread.Title = DeriveTitle(first.Content)
		}
	}

	if err := s.putThread(thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// firstUserMessage returns the first user-authored message, or nil.
func firstUserMessage(messages []datatypes.Message) *datatypes.Message {
	for i := range messages {
		if messages[i].Role == datatypes.RoleUser {
			return &messages[i]
		}
	}
	return nil
}

// ListThreads returns the owner's thread summaries, most recently updated
// first.
func (s *Store) ListThreads(ctx context.Context, ownerID string) ([]datatypes.ThreadSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summaries := make([]datatypes.ThreadSummary, 0)
	err := s.forEachThread(ownerID, func(thread *datatypes.Thread) error {
		summaries = append(summaries, thread.Summary())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list threads for %s: %w", ownerID, err)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// DeleteThread deletes one owner-scoped thread.
func (s *Store) DeleteThread(ctx context.Context, ownerID, threadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Existence check keeps the not-found contract consistent with reads.
	if _, err := s.GetThread(ctx, ownerID, threadID); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(threadKey(ownerID, threadID))
	})
	if err != nil {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	return nil
}

// DeleteAllThreads removes every thread belonging to the owner and
// returns how many were deleted.
func (s *Store) DeleteAllThreads(ctx context.Context, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	keys := make([][]byte, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := ownerPrefix(ownerID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan threads for %s: %w", ownerID, err)
	}

	for _, key := range keys {
		if err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		}); err != nil {
			return 0, fmt.Errorf("delete thread key: %w", err)
		}
	}
	return len(keys), nil
}

// ToggleStarred flips the thread's starred flag and returns the new state.
func (s *Store) ToggleStarred(ctx context.Context, ownerID, threadID string) (bool, error) {
	lock := s.lockThread(threadID)
	lock.Lock()
	defer lock.Unlock()

	thread, err := s.GetThread(ctx, ownerID, threadID)
	if err != nil {
		return false, err
	}
	thread.IsStarred = !thread.IsStarred
	thread.UpdatedAt = time.Now().UTC()
	if err := s.putThread(thread); err != nil {
		return false, err
	}
	return thread.IsStarred, nil
}

// CountMessagesSince counts the owner's messages with the given role
// created at or after the cutoff. Used by the quota tracker; always a
// fresh read, never cached.
func (s *Store) CountMessagesSince(ctx context.Context, ownerID string,
	since time.Time, role string) (int, error) {

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.forEachThread(ownerID, func(thread *datatypes.Thread) error {
		for _, m := range thread.Messages {
			if m.Role == role && !m.CreatedAt.Before(since) {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count messages for %s: %w", ownerID, err)
	}
	return count, nil
}

// =============================================================================
// Internals
// =============================================================================

func (s *Store) putThread(thread *datatypes.Thread) error {
	data, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("marshal thread %s: %w", thread.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(threadKey(thread.OwnerID, thread.ID), data)
	})
	if err != nil {
		return fmt.Errorf("put thread %s: %w", thread.ID, err)
	}
	return nil
}

// forEachThread decodes every thread under the owner prefix.
func (s *Store) forEachThread(ownerID string, fn func(*datatypes.Thread) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := ownerPrefix(ownerID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var thread datatypes.Thread
				if err := json.Unmarshal(val, &thread); err != nil {
					return fmt.Errorf("decode thread: %w", err)
				}
				return fn(&thread)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
