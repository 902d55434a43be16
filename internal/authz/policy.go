// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package authz

// Effect is the outcome a policy contributes when it matches.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Policy is an immutable access rule. A policy is relevant to a check when
// its action set and resource pattern match the context; relevance filtering
// is the repository's job (see CasbinPolicySource), the engine only resolves
// effect and condition over the pre-filtered set.
type Policy struct {
	// Effect is allow or deny.
	Effect Effect

	// Actions is the set of action tokens the policy covers. "*" covers all.
	Actions map[Action]bool

	// Resource is an exact resource type or the wildcard "*" / "all".
	Resource string

	// Condition optionally gates the policy. A nil condition always holds.
	Condition *Condition
}

// NewPolicy builds a policy over a list of action tokens.
func NewPolicy(effect Effect, resource string, actions ...Action) Policy {
	set := make(map[Action]bool, len(actions))
	for _, a := range actions {
		set[a] = true
	}
	return Policy{Effect: effect, Actions: set, Resource: resource}
}

// WithCondition returns a copy of the policy gated by the condition.
func (p Policy) WithCondition(c *Condition) Policy {
	p.Condition = c
	return p
}

// MatchesResource reports whether the policy's resource pattern covers the
// given resource type. "*" and "all" are wildcards.
func (p Policy) MatchesResource(resource string) bool {
	return p.Resource == resource || p.Resource == "*" || p.Resource == "all"
}

// MatchesAction reports whether the policy's action set covers the action.
func (p Policy) MatchesAction(action Action) bool {
	return p.Actions[action] || p.Actions["*"]
}

// Applies reports full relevance of the policy to a context. Used by policy
// sources for repository-side filtering before the engine runs.
func (p Policy) Applies(ctx *Context) bool {
	return p.MatchesAction(ctx.Action) && p.MatchesResource(ctx.Resource.Type)
}
