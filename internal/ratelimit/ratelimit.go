// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

// Package ratelimit provides sliding-window rate limiting with two
// interchangeable strategies behind one entrypoint: an in-memory local
// window, and a store-backed distributed window guarded by a circuit
// breaker and a hard timeout. When the distributed path is slow or failing
// the limiter fails open to the local strategy for that request; gateway
// availability outranks perfectly centralized accounting.
package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of a single rate-limit check.
// Invariant: 0 <= Remaining <= Limit.
type Result struct {
	// Allowed is true when the request fits in the window.
	Allowed bool

	// Limit is the configured request budget per window.
	Limit int

	// Remaining is the budget left after this check.
	Remaining int

	// Reset is when the oldest retained request leaves the window.
	Reset time.Time
}

// RetryAfter returns the whole seconds until Reset, at least 1 for a denied
// check. Used to populate Retry-After.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.Reset.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// ParseWindow converts a window string like "60 s", "5 m", "1 h" or "2 d"
// into a duration. Unrecognized units fall back to seconds; an unparsable
// count falls back to the given default.
func ParseWindow(window string, fallback time.Duration) time.Duration {
	fields := strings.Fields(strings.TrimSpace(window))
	if len(fields) == 0 {
		return fallback
	}

	count, err := strconv.Atoi(fields[0])
	if err != nil || count <= 0 {
		return fallback
	}

	unit := ""
	if len(fields) > 1 {
		unit = strings.ToLower(fields[1])
	}

	switch unit {
	case "m", "min", "minute", "minutes":
		return time.Duration(count) * time.Minute
	case "h", "hr", "hour", "hours":
		return time.Duration(count) * time.Hour
	case "d", "day", "days":
		return time.Duration(count) * 24 * time.Hour
	default:
		return time.Duration(count) * time.Second
	}
}
