// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

// Package authz implements role- and attribute-based access control with
// deny-override semantics.
//
// Two layers cooperate:
//
//   - A closed role hierarchy (guest < user < admin) for coarse checks via
//     EnsureRequiredRole.
//   - A policy engine (Evaluate) that resolves allow/deny policies with
//     optional condition predicates over an AuthorizationContext. Any
//     matching deny outranks any number of matching allows, regardless of
//     ordering; an empty policy set denies.
//
// The Authorizer facade ties both together: Can reports the decision,
// Authorize converts a denial into a typed *AuthorizationError. Policies are
// loaded per check from a PolicySource; CasbinPolicySource stores them as
// Casbin rules and performs the repository-side action/resource filtering
// before the engine runs.
package authz
