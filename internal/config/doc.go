// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

/*
Package config provides centralized configuration management for Gateward.

Configuration is loaded through koanf with three layered sources, later
sources overriding earlier ones:

  - Built-in defaults
  - An optional YAML config file (CONFIG_PATH or the default search paths)
  - Environment variables

# Configuration Structure

The configuration is organized into logical groups:

  - ServerConfig: HTTP server settings (host, port, environment, runtime)
  - SecurityConfig: rate limits, internal API secret, replay token policy,
    outbound fetch allow-list, CORS, CSP sources
  - RoutesConfig: route classification prefix overrides
  - StoreConfig: embedded badger database location
  - AuditConfig: audit trail retention and buffering
  - LoggingConfig: application log level and format

# Environment Variables

Selected variables by component:

Server:
  - HTTP_HOST: bind address (default: 0.0.0.0)
  - HTTP_PORT: listen port (default: 8420)
  - ENVIRONMENT: development, test or production
  - RUNTIME: edge or node

Security:
  - INTERNAL_API_SECRET: shared secret for /api/internal (required in
    production, minimum 32 characters)
  - ACTION_TOKEN_SECRET: HMAC secret for replay tokens
  - REQUIRE_REPLAY_TOKEN: reject actions without a replay token
  - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW: API budget, e.g. 100 / "60 s"
  - RATE_LIMIT_DISTRIBUTED: use the store-backed limiter strategy
  - ALLOWED_FETCH_HOSTS: comma-separated outbound allow-list
  - CORS_ORIGINS, TRUSTED_PROXIES: comma-separated lists
  - CSP_SCRIPT_SRC, CSP_STYLE_SRC, ...: extra CSP sources per directive

Slice-valued variables are comma-separated strings; they are split and
trimmed during loading. Validation runs after all layers are merged, so an
env var can both break and fix a config file value.
*/
package config
