// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package config

import (
	"fmt"
	"strconv"
	"strings"
)

var validEnvironments = map[string]bool{
	"development": true,
	"test":        true,
	"production":  true,
}

var validRuntimes = map[string]bool{
	"edge": true,
	"node": true,
}

// Validate checks the configuration for inconsistencies. Production mode is
// stricter: secrets must be set, so a deployment cannot silently run with
// the open defaults.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("server.environment %q invalid (development, test, production)", c.Server.Environment)
	}
	if !validRuntimes[c.Server.Runtime] {
		return fmt.Errorf("server.runtime %q invalid (edge, node)", c.Server.Runtime)
	}

	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("security.rate_limit_reqs must be positive, got %d", c.Security.RateLimitReqs)
	}
	if err := validateWindow(c.Security.RateLimitWindow); err != nil {
		return fmt.Errorf("security.rate_limit_window: %w", err)
	}

	if c.IsProduction() {
		if c.Security.InternalAPISecret == "" {
			return fmt.Errorf("security.internal_api_secret is required in production")
		}
		if len(c.Security.InternalAPISecret) < 32 {
			return fmt.Errorf("security.internal_api_secret must be at least 32 characters in production")
		}
		if c.Security.ActionTokenSecret == "" {
			return fmt.Errorf("security.action_token_secret is required in production")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize < 1 {
		return fmt.Errorf("audit.buffer_size must be positive, got %d", c.Audit.BufferSize)
	}

	return nil
}

// validateWindow checks the window string's count parses; the unit defaults
// to seconds downstream, so only the count can make the string unusable.
func validateWindow(window string) error {
	fields := strings.Fields(strings.TrimSpace(window))
	if len(fields) == 0 {
		return fmt.Errorf("empty window")
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("count %q is not a number", fields[0])
	}
	if count <= 0 {
		return fmt.Errorf("count must be positive, got %d", count)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}
