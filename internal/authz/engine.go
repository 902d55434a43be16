// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package authz

import "fmt"

// Evaluate resolves a pre-filtered policy list against the context with
// deny-override semantics:
//
//   - An empty list denies.
//   - The first deny whose condition holds (or that has no condition)
//     short-circuits to false, regardless of position.
//   - An allow whose condition holds sets a pending-allow flag but keeps
//     scanning, since a later deny must still win.
//   - The final result is the pending-allow flag.
//
// Conditions are pure predicates; evaluating twice with the same inputs
// yields the same result. A condition error aborts evaluation rather than
// being swallowed: a policy that cannot be evaluated must not be ignored.
func Evaluate(ctx *Context, policies []Policy) (bool, error) {
	allowed := false

	for i := range policies {
		p := &policies[i]

		holds := true
		if p.Condition != nil {
			var err error
			holds, err = p.Condition.Eval(ctx)
			if err != nil {
				return false, fmt.Errorf("policy condition evaluation: %w", err)
			}
		}
		if !holds {
			continue
		}

		if p.Effect == EffectDeny {
			return false, nil
		}
		allowed = true
	}

	return allowed, nil
}
