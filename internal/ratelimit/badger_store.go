// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// keyPrefix namespaces rate-limit keys inside a shared badger instance.
const keyPrefix = "ratelimit:"

// BadgerStore implements Store over a BadgerDB instance. Each identifier
// maps to its retained window timestamps; entries expire one window after
// the last write so idle identifiers cost nothing.
type BadgerStore struct {
	db     *badger.DB
	limit  int
	window time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewBadgerStore creates a store-backed limiter over an open database.
// The database handle is shared infrastructure; the caller owns closing it.
func NewBadgerStore(db *badger.DB, limit int, window time.Duration) *BadgerStore {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &BadgerStore{db: db, limit: limit, window: window, now: time.Now}
}

// Check implements Store. The read-prune-append cycle runs inside one
// read-write transaction, so concurrent gateways observe a consistent
// window (conflicting transactions retry at the badger layer's direction).
func (s *BadgerStore) Check(ctx context.Context, identifier string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	key := []byte(keyPrefix + identifier)
	now := s.now()
	cutoff := now.Add(-s.window)

	var result Result
	err := s.db.Update(func(txn *badger.Txn) error {
		var stamps []int64

		item, err := txn.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &stamps)
			}); err != nil {
				return fmt.Errorf("decoding window for %q: %w", identifier, err)
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			// First request in the window.
		default:
			return fmt.Errorf("reading window for %q: %w", identifier, err)
		}

		kept := stamps[:0]
		for _, ms := range stamps {
			if time.UnixMilli(ms).After(cutoff) {
				kept = append(kept, ms)
			}
		}
		stamps = kept

		if len(stamps) >= s.limit {
			result = Result{
				Allowed:   false,
				Limit:     s.limit,
				Remaining: 0,
				Reset:     time.UnixMilli(stamps[0]).Add(s.window),
			}
			return nil
		}

		stamps = append(stamps, now.UnixMilli())
		raw, err := json.Marshal(stamps)
		if err != nil {
			return fmt.Errorf("encoding window for %q: %w", identifier, err)
		}

		entry := badger.NewEntry(key, raw).WithTTL(s.window)
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("writing window for %q: %w", identifier, err)
		}

		result = Result{
			Allowed:   true,
			Limit:     s.limit,
			Remaining: s.limit - len(stamps),
			Reset:     time.UnixMilli(stamps[0]).Add(s.window),
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}
