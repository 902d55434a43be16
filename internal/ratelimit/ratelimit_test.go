// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package ratelimit

import (
	"testing"
	"time"
)

func TestParseWindow(t *testing.T) {
	t.Parallel()

	fallback := 45 * time.Second

	tests := []struct {
		name   string
		window string
		want   time.Duration
	}{
		{name: "seconds with unit", window: "60 s", want: 60 * time.Second},
		{name: "minutes", window: "5 m", want: 5 * time.Minute},
		{name: "hours", window: "1 h", want: time.Hour},
		{name: "days", window: "2 d", want: 48 * time.Hour},
		{name: "long unit names", window: "10 minutes", want: 10 * time.Minute},
		{name: "uppercase unit", window: "3 H", want: 3 * time.Hour},
		{name: "missing unit defaults to seconds", window: "90", want: 90 * time.Second},
		{name: "unknown unit defaults to seconds", window: "30 fortnights", want: 30 * time.Second},
		{name: "empty string uses fallback", window: "", want: fallback},
		{name: "whitespace only uses fallback", window: "   ", want: fallback},
		{name: "non-numeric count uses fallback", window: "many s", want: fallback},
		{name: "zero count uses fallback", window: "0 s", want: fallback},
		{name: "negative count uses fallback", window: "-5 m", want: fallback},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ParseWindow(tc.window, fallback)
			if got != tc.want {
				t.Errorf("ParseWindow(%q) = %v, want %v", tc.window, got, tc.want)
			}
		})
	}
}

func TestResultRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		reset time.Time
		want  int
	}{
		{name: "ten seconds out", reset: now.Add(10 * time.Second), want: 10},
		{name: "sub-second rounds up to one", reset: now.Add(200 * time.Millisecond), want: 1},
		{name: "reset in the past clamps to one", reset: now.Add(-5 * time.Second), want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := Result{Reset: tc.reset}
			if got := r.RetryAfter(now); got != tc.want {
				t.Errorf("RetryAfter() = %d, want %d", got, tc.want)
			}
		})
	}
}
