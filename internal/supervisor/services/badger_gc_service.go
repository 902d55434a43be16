// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package services

import (
	"context"
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// DefaultGCInterval is how often value log garbage collection runs.
const DefaultGCInterval = 10 * time.Minute

// BadgerGCService periodically runs badger value log garbage collection.
// Badger never reclaims value log space on its own; without this loop the
// store only grows.
type BadgerGCService struct {
	db       *badger.DB
	interval time.Duration
	name     string
}

// NewBadgerGCService creates the GC loop. Zero interval means
// DefaultGCInterval.
func NewBadgerGCService(db *badger.DB, interval time.Duration) *BadgerGCService {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	return &BadgerGCService{
		db:       db,
		interval: interval,
		name:     "badger-gc",
	}
}

// Serve implements suture.Service. ErrNoRewrite just means there was
// nothing worth collecting this round.
func (s *BadgerGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Repeat until a pass finds nothing to rewrite.
			for {
				err := s.db.RunValueLogGC(0.5)
				if errors.Is(err, badger.ErrNoRewrite) {
					break
				}
				if err != nil {
					break
				}
			}
		}
	}
}

// String identifies the service in supervisor logs.
func (s *BadgerGCService) String() string {
	return s.name
}
