// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

// Package audit provides security audit logging for compliance and forensic analysis.
//
// This package implements the gateway's security audit trail, recording
// authorization decisions, secure action outcomes, rate limit pressure,
// blocked outbound requests and degraded authentication.
//
// # Overview
//
// The audit system provides:
//   - Structured event logging with typed event categories
//   - BadgerDB persistence with TTL-based retention
//   - Asynchronous buffered writes for minimal latency impact
//   - In-process pub/sub fan-out so alerting can subscribe to denials
//   - Flexible querying with multi-dimensional filters
//
// # Event Types
//
// Events are categorized into the following groups:
//
// Authorization Events:
//   - authz.granted: Access granted decisions
//   - authz.denied: Access denied decisions
//
// Secure Action Events:
//   - action.executed: Action completed successfully
//   - action.rejected: Action refused (validation, authorization)
//   - action.expired: Action refused for a stale replay token
//
// Rate Limiting Events:
//   - ratelimit.exceeded: A client hit its request budget
//   - ratelimit.fallback: The distributed limiter degraded to local
//
// Outbound and Authentication Events:
//   - ssrf.blocked: An outbound request was blocked by the fetch guard
//   - auth.degraded: A security context build fell back to guest
//   - internal.denied: An internal API request failed the secret check
//
// # Architecture
//
// The audit system uses a producer-consumer pattern:
//
//	Logger.Log() -> Event Buffer (chan) -> Serve loop -> Store + Publisher
//	                     |                      |
//	                 Non-blocking           Supervised service
//
// Events are buffered in a channel to avoid blocking the request path. The
// Serve loop, run under the process supervisor, drains the buffer into the
// store and fans persisted events out to subscribers. On shutdown the loop
// flushes the remaining buffer before returning.
package audit
