// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// auditKeyPrefix namespaces audit keys inside a shared badger instance.
const auditKeyPrefix = "audit:"

// BadgerStore implements Store over a BadgerDB instance. Keys embed the
// event timestamp so iteration order is chronological; entries carry a TTL
// matching the retention window, so expired events vanish without a sweep.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
}

// NewBadgerStore creates a durable audit store over an open database.
// The database handle is shared infrastructure; the caller owns closing it.
func NewBadgerStore(db *badger.DB, retention time.Duration) *BadgerStore {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &BadgerStore{db: db, retention: retention}
}

// eventKey builds "audit:<padded-unixnano>:<id>". The fixed-width timestamp
// keeps lexicographic and chronological order identical.
func eventKey(event *Event) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", auditKeyPrefix, event.Timestamp.UnixNano(), event.ID))
}

// Save persists an audit event.
func (s *BadgerStore) Save(ctx context.Context, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding audit event %s: %w", event.ID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(eventKey(event), raw).WithTTL(s.retention)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("writing audit event %s: %w", event.ID, err)
	}
	return nil
}

// Query retrieves events matching the filter, most recent first.
func (s *BadgerStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	var results []Event

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(auditKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts past the end of the prefix range.
		seek := append([]byte(auditKeyPrefix), 0xff)
		for it.Seek(seek); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var event Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); err != nil {
				return fmt.Errorf("decoding audit event: %w", err)
			}

			if !matchesFilter(&event, &filter) {
				continue
			}

			results = append(results, event)
			if filter.Limit > 0 && len(results) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Count returns the number of events matching the filter.
func (s *BadgerStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	var count int64

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(auditKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(auditKeyPrefix)); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var event Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); err != nil {
				return fmt.Errorf("decoding audit event: %w", err)
			}

			if matchesFilter(&event, &filter) {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes events older than the given time. The TTL already expires
// old entries; this supports explicit retention changes.
func (s *BadgerStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoffKey := fmt.Sprintf("%s%020d", auditKeyPrefix, olderThan.UnixNano())

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(auditKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(auditKeyPrefix)); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) >= cutoffKey {
				break
			}
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, key := range stale {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return deleted, fmt.Errorf("deleting audit event: %w", err)
		}
		deleted++
	}
	return deleted, nil
}
