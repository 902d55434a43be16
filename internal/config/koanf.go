// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/gateward/config.yaml",
	"/etc/gateward/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// Precedence: ENV > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Transform environment variable names to koanf paths:
	// HTTP_PORT -> server.port, RATE_LIMIT_WINDOW -> security.rate_limit_window
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, env override first.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists the config paths parsed as comma-separated slices
// when they arrive from environment variables.
var sliceConfigPaths = []string{
	"security.allowed_fetch_hosts",
	"security.cors_origins",
	"security.trusted_proxies",
	"security.csp.script_src",
	"security.csp.style_src",
	"security.csp.img_src",
	"security.csp.connect_src",
	"security.csp.frame_src",
	"routes.public_prefixes",
	"routes.auth_prefixes",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings; the config wants slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML), nothing to do.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unknown variables map to nothing, so unrelated environment noise is
// ignored.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",
		"runtime":      "server.runtime",

		// Security
		"internal_api_secret":      "security.internal_api_secret",
		"action_token_secret":      "security.action_token_secret",
		"require_replay_token":     "security.require_replay_token",
		"rate_limit_requests":      "security.rate_limit_reqs",
		"rate_limit_window":        "security.rate_limit_window",
		"disable_rate_limit":       "security.rate_limit_disabled",
		"rate_limit_distributed":   "security.rate_limit_distributed",
		"auth_rate_limit_requests": "security.auth_rate_limit_reqs",
		"allowed_fetch_hosts":      "security.allowed_fetch_hosts",
		"cors_origins":             "security.cors_origins",
		"trusted_proxies":          "security.trusted_proxies",
		"csp_script_src":           "security.csp.script_src",
		"csp_style_src":            "security.csp.style_src",
		"csp_img_src":              "security.csp.img_src",
		"csp_connect_src":          "security.csp.connect_src",
		"csp_frame_src":            "security.csp.frame_src",

		// Routes
		"public_prefixes": "routes.public_prefixes",
		"auth_prefixes":   "routes.auth_prefixes",

		// Store
		"store_path":      "store.path",
		"store_in_memory": "store.in_memory",

		// Audit
		"audit_enabled":        "audit.enabled",
		"audit_log_level":      "audit.log_level",
		"audit_retention_days": "audit.retention_days",
		"audit_buffer_size":    "audit.buffer_size",
		"audit_log_to_stdout":  "audit.log_to_stdout",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if path, ok := envMappings[key]; ok {
		return path
	}
	return ""
}
