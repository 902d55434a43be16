// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package config

import (
	"time"
)

// Config is the root configuration for the gateway.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Routes   RoutesConfig   `koanf:"routes"`
	Store    StoreConfig    `koanf:"store"`
	Audit    AuditConfig    `koanf:"audit"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
	Runtime     string        `koanf:"runtime"`
}

// SecurityConfig holds the security pipeline settings.
type SecurityConfig struct {
	// InternalAPISecret guards /api/internal routes. Compared in constant
	// time against the x-internal-api-secret header.
	InternalAPISecret string `koanf:"internal_api_secret"`

	// ActionTokenSecret signs replay tokens for secure actions.
	ActionTokenSecret string `koanf:"action_token_secret"`

	// RequireReplayToken rejects secure actions without a replay token.
	RequireReplayToken bool `koanf:"require_replay_token"`

	// RateLimitReqs is the request budget per window for API routes.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is a window string like "60 s", "5 m", "1 h".
	RateLimitWindow string `koanf:"rate_limit_window"`

	// RateLimitDisabled turns the rate limit stage off entirely.
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`

	// RateLimitDistributed enables the store-backed strategy.
	RateLimitDistributed bool `koanf:"rate_limit_distributed"`

	// AuthRateLimitReqs caps sign-in attempts per IP per minute.
	AuthRateLimitReqs int `koanf:"auth_rate_limit_reqs"`

	// AllowedFetchHosts is the outbound fetch allow-list.
	AllowedFetchHosts []string `koanf:"allowed_fetch_hosts"`

	// CORSOrigins are the allowed cross-origin origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// TrustedProxies lists proxies whose forwarding headers are honored.
	TrustedProxies []string `koanf:"trusted_proxies"`

	// CSP adds per-directive sources to the Content-Security-Policy.
	CSP CSPConfig `koanf:"csp"`
}

// CSPConfig holds extra Content-Security-Policy sources per directive.
// Every directive is anchored on 'self'; these extend it.
type CSPConfig struct {
	ScriptSrc  []string `koanf:"script_src"`
	StyleSrc   []string `koanf:"style_src"`
	ImgSrc     []string `koanf:"img_src"`
	ConnectSrc []string `koanf:"connect_src"`
	FrameSrc   []string `koanf:"frame_src"`
}

// RoutesConfig customizes route classification prefixes.
type RoutesConfig struct {
	PublicPrefixes []string `koanf:"public_prefixes"`
	AuthPrefixes   []string `koanf:"auth_prefixes"`
}

// StoreConfig holds the embedded badger database settings. One database
// backs both the distributed rate limit window and the audit trail.
type StoreConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	Enabled       bool   `koanf:"enabled"`
	LogLevel      string `koanf:"log_level"`
	RetentionDays int    `koanf:"retention_days"`
	BufferSize    int    `koanf:"buffer_size"`
	LogToStdout   bool   `koanf:"log_to_stdout"`
}

// LoggingConfig holds application logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all sensible default values. These
// are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8420,
			Timeout:     30 * time.Second,
			Environment: "development",
			Runtime:     "node",
		},
		Security: SecurityConfig{
			InternalAPISecret:    "",
			ActionTokenSecret:    "",
			RequireReplayToken:   false,
			RateLimitReqs:        100,
			RateLimitWindow:      "60 s",
			RateLimitDisabled:    false,
			RateLimitDistributed: false,
			AuthRateLimitReqs:    10,
			AllowedFetchHosts:    []string{},
			CORSOrigins:          []string{},
			TrustedProxies:       []string{},
		},
		Routes: RoutesConfig{
			PublicPrefixes: []string{},
			AuthPrefixes:   []string{},
		},
		Store: StoreConfig{
			Path:     "/data/gateward",
			InMemory: false,
		},
		Audit: AuditConfig{
			Enabled:       true,
			LogLevel:      "info",
			RetentionDays: 90,
			BufferSize:    1000,
			LogToStdout:   false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
