// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Local is the in-memory sliding-window strategy. It keeps raw request
// timestamps per identifier, so the window slides exactly rather than in
// bucket steps. Safe for concurrent use.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	limit   int
	window  time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// localEntry holds the retained timestamps for one identifier.
type localEntry struct {
	timestamps []time.Time
	lastAccess time.Time
}

// NewLocal creates a local limiter allowing limit requests per window.
func NewLocal(limit int, window time.Duration) *Local {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Local{
		entries: make(map[string]*localEntry),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Check performs one sliding-window check for the identifier.
func (l *Local) Check(identifier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	entry, ok := l.entries[identifier]
	if !ok {
		entry = &localEntry{}
		l.entries[identifier] = entry
	}
	entry.lastAccess = now

	// Drop timestamps that slid out of the window. Retained slice reuses
	// the backing array; entries are pruned, never copied per request.
	kept := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	entry.timestamps = kept

	if len(entry.timestamps) >= l.limit {
		return Result{
			Allowed:   false,
			Limit:     l.limit,
			Remaining: 0,
			Reset:     entry.timestamps[0].Add(l.window),
		}
	}

	entry.timestamps = append(entry.timestamps, now)
	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(entry.timestamps),
		Reset:     entry.timestamps[0].Add(l.window),
	}
}

// Serve implements suture.Service: it periodically drops identifiers that
// have been idle for longer than the window, so the bucket map does not grow
// with every client ever seen. Returns when the context is cancelled.
func (l *Local) Serve(ctx context.Context) error {
	interval := l.window
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// cleanup removes identifiers idle for more than one full window.
func (l *Local) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for id, entry := range l.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(l.entries, id)
		}
	}
}

// size returns the tracked identifier count, for tests.
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
