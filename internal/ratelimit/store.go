// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package ratelimit

import "context"

// Store is the distributed sliding-window strategy: an external store that
// keeps the authoritative per-identifier window so accounting holds across
// gateway instances. Implementations must honor ctx cancellation; the
// selector enforces a hard timeout around every call.
type Store interface {
	// Check records one request for the identifier and reports the outcome.
	Check(ctx context.Context, identifier string) (Result, error)
}
