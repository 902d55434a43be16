// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package authz

import (
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// CasbinConfig holds configuration for the Casbin-backed policy source.
type CasbinConfig struct {
	// ModelPath is the path to the Casbin model file.
	// If empty, uses the embedded model.
	ModelPath string

	// PolicyPath is the path to the Casbin policy file.
	// If empty, uses the embedded policy.
	PolicyPath string

	// AutoReload enables automatic policy reload from PolicyPath.
	AutoReload bool

	// ReloadInterval is how often to check for policy changes.
	ReloadInterval time.Duration
}

// DefaultCasbinConfig returns default configuration.
func DefaultCasbinConfig() *CasbinConfig {
	return &CasbinConfig{
		AutoReload:     true,
		ReloadInterval: 30 * time.Second,
	}
}

// CasbinPolicySource stores policies as Casbin rules and implements
// PolicySource with repository-side filtering: only rules whose subject
// (directly, through role inheritance, or via wildcard), resource pattern
// and action cover the check are returned to the engine.
type CasbinPolicySource struct {
	config   *CasbinConfig
	enforcer *casbin.SyncedEnforcer
}

// NewCasbinPolicySource creates a policy source backed by Casbin storage.
func NewCasbinPolicySource(config *CasbinConfig) (*CasbinPolicySource, error) {
	if config == nil {
		config = DefaultCasbinConfig()
	}

	var m model.Model
	var err error
	if config.ModelPath != "" && fileExists(config.ModelPath) {
		m, err = model.NewModelFromFile(config.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("loading casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if config.PolicyPath != "" && fileExists(config.PolicyPath) {
		adapter := fileadapter.NewAdapter(config.PolicyPath)
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("creating casbin enforcer: %w", err)
	}

	if config.AutoReload && config.PolicyPath != "" {
		enforcer.StartAutoLoadPolicy(config.ReloadInterval)
	}

	return &CasbinPolicySource{config: config, enforcer: enforcer}, nil
}

// loadEmbeddedPolicy parses and loads the embedded policy CSV. Condition
// descriptors are JSON and may contain commas, so lines go through a real
// CSV reader rather than a naive split.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		reader := csv.NewReader(strings.NewReader(line))
		reader.TrimLeadingSpace = true
		reader.LazyQuotes = true
		parts, err := reader.Read()
		if err != nil {
			return fmt.Errorf("parsing policy line %q: %w", line, err)
		}
		if len(parts) < 2 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		ptype, rule := parts[0], parts[1:]
		switch ptype {
		case "p":
			// Pad to the full 5-column shape (sub, obj, act, eft, cond).
			for len(rule) < 5 {
				rule = append(rule, "")
			}
			if _, err := enforcer.AddPolicy(toInterfaces(rule)...); err != nil {
				return fmt.Errorf("adding policy %v: %w", rule, err)
			}
		case "g":
			if len(rule) >= 2 {
				if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
					return fmt.Errorf("adding grouping policy %v: %w", rule, err)
				}
			}
		}
	}
	return nil
}

func toInterfaces(rule []string) []interface{} {
	out := make([]interface{}, len(rule))
	for i, r := range rule {
		out[i] = r
	}
	return out
}

// GetPolicies implements PolicySource. The subject set for filtering is the
// subject ID, every role it holds (including inherited roles), and the
// wildcard subject.
func (s *CasbinPolicySource) GetPolicies(ctx context.Context, check *Context) ([]Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subjects := map[string]bool{"*": true}
	if check.Subject.ID != "" {
		subjects[check.Subject.ID] = true
		roles, err := s.enforcer.GetImplicitRolesForUser(check.Subject.ID)
		if err != nil {
			return nil, fmt.Errorf("resolving roles for %q: %w", check.Subject.ID, err)
		}
		for _, r := range roles {
			subjects[r] = true
		}
	}
	// The effective role travels as a subject attribute so role-level rules
	// apply even when the store has no explicit grouping for the user.
	if role := check.Subject.Attributes["role"]; role != "" {
		subjects[role] = true
		inherited, err := s.enforcer.GetImplicitRolesForUser(role)
		if err != nil {
			return nil, fmt.Errorf("resolving inherited roles for %q: %w", role, err)
		}
		for _, r := range inherited {
			subjects[r] = true
		}
	}

	rows, err := s.enforcer.GetPolicy()
	if err != nil {
		return nil, fmt.Errorf("loading policy rows: %w", err)
	}

	var policies []Policy
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		sub, obj, act, eft := row[0], row[1], row[2], row[3]
		if !subjects[sub] {
			continue
		}

		p := NewPolicy(Effect(eft), obj, Action(act))
		if !p.Applies(check) {
			continue
		}
		if len(row) >= 5 && row[4] != "" {
			cond, err := ParseCondition([]byte(row[4]))
			if err != nil {
				return nil, fmt.Errorf("policy %v: %w", row, err)
			}
			p.Condition = cond
		}
		policies = append(policies, p)
	}

	return policies, nil
}

// AddPolicy adds a policy rule to the store.
func (s *CasbinPolicySource) AddPolicy(subject, resource string, action Action, effect Effect, cond *Condition) error {
	condJSON := ""
	if cond != nil {
		raw, err := encodeCondition(cond)
		if err != nil {
			return err
		}
		condJSON = raw
	}
	if _, err := s.enforcer.AddPolicy(subject, resource, string(action), string(effect), condJSON); err != nil {
		return fmt.Errorf("adding policy: %w", err)
	}
	return nil
}

// AddRoleForUser assigns a role to a subject in the store.
func (s *CasbinPolicySource) AddRoleForUser(user string, role Role) error {
	if _, err := s.enforcer.AddGroupingPolicy(user, string(role)); err != nil {
		return fmt.Errorf("adding role: %w", err)
	}
	return nil
}

// Close stops the auto-reload loop.
func (s *CasbinPolicySource) Close() {
	if s.config.AutoReload && s.config.PolicyPath != "" {
		s.enforcer.StopAutoLoadPolicy()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
