// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package action

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultReplayWindow is how far a token's issue time may drift from the
// server clock in either direction.
const DefaultReplayWindow = 5 * time.Minute

// ActionExpiredError reports a replay token outside the accepted window.
type ActionExpiredError struct {
	// IssuedAt is the token's issue time.
	IssuedAt time.Time
}

func (e *ActionExpiredError) Error() string {
	return fmt.Sprintf("action token issued at %s is outside the replay window", e.IssuedAt.Format(time.RFC3339))
}

// ReplayVerifier mints and checks single-window action tokens. Tokens are
// HS256 JWTs whose issue time must sit within the window of now; there is no
// per-token storage, the window alone bounds replays.
type ReplayVerifier struct {
	secret []byte
	window time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewReplayVerifier creates a verifier. A non-positive window means
// DefaultReplayWindow.
func NewReplayVerifier(secret []byte, window time.Duration) *ReplayVerifier {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &ReplayVerifier{
		secret: secret,
		window: window,
		now:    time.Now,
	}
}

// Mint issues a token for an action form rendered now.
func (v *ReplayVerifier) Mint() (string, error) {
	now := v.now()
	claims := jwt.RegisteredClaims{
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing action token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and issue-time window. A token outside
// the window fails with *ActionExpiredError; malformed or forged tokens fail
// with an opaque error.
func (v *ReplayVerifier) Verify(tokenString string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return fmt.Errorf("parsing action token: %w", err)
	}

	if claims.IssuedAt == nil {
		return errors.New("action token has no issue time")
	}

	issued := claims.IssuedAt.Time
	drift := v.now().Sub(issued)
	if drift < 0 {
		drift = -drift
	}
	if drift > v.window {
		return &ActionExpiredError{IssuedAt: issued}
	}
	return nil
}
