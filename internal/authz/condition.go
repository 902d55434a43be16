// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package authz

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ConditionKind discriminates the condition tagged union. Conditions are
// stored as data ({"type": ..., args}) and dispatched here, never as
// deserialized code.
type ConditionKind string

const (
	// ConditionOwnership holds when the subject owns the resource
	// (resource attribute "owner_id" equals the subject ID).
	ConditionOwnership ConditionKind = "ownership"

	// ConditionAttributeEquals holds when a named attribute matches a value.
	// Scope selects where the attribute is read from: subject or resource.
	ConditionAttributeEquals ConditionKind = "attribute_equals"

	// ConditionTimeWindow holds when the environment time-of-day falls in
	// [Start, End] (HH:MM, inclusive; windows may wrap midnight).
	ConditionTimeWindow ConditionKind = "time_window"

	// ConditionIPAllow holds when the environment IP is inside any CIDR.
	ConditionIPAllow ConditionKind = "ip_allow"

	// ConditionIPBlock holds when the environment IP is outside every CIDR.
	ConditionIPBlock ConditionKind = "ip_block"
)

// Condition is a pure predicate over the authorization context.
type Condition struct {
	Kind ConditionKind `json:"type"`

	// attribute_equals parameters.
	Scope     string `json:"scope,omitempty"` // "subject" (default) or "resource"
	Attribute string `json:"attribute,omitempty"`
	Value     string `json:"value,omitempty"`

	// time_window parameters, "HH:MM".
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`

	// ip_allow / ip_block parameters.
	CIDRs []string `json:"cidrs,omitempty"`
}

// ParseCondition decodes a condition descriptor from its JSON form.
func ParseCondition(raw []byte) (*Condition, error) {
	var c Condition
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("invalid condition descriptor: %w", err)
	}
	if c.Kind == "" {
		return nil, fmt.Errorf("condition descriptor missing type")
	}
	return &c, nil
}

// encodeCondition serializes a condition descriptor to its JSON form.
func encodeCondition(c *Condition) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding condition descriptor: %w", err)
	}
	return string(raw), nil
}

// Eval dispatches on the condition kind. It is side-effect free; evaluating
// the same condition against the same context always yields the same result.
func (c *Condition) Eval(ctx *Context) (bool, error) {
	switch c.Kind {
	case ConditionOwnership:
		return c.evalOwnership(ctx), nil
	case ConditionAttributeEquals:
		return c.evalAttributeEquals(ctx), nil
	case ConditionTimeWindow:
		return c.evalTimeWindow(ctx)
	case ConditionIPAllow:
		return c.evalIPMembership(ctx, true)
	case ConditionIPBlock:
		return c.evalIPMembership(ctx, false)
	default:
		return false, fmt.Errorf("unknown condition kind %q", c.Kind)
	}
}

func (c *Condition) evalOwnership(ctx *Context) bool {
	if ctx.Subject.ID == "" || ctx.Resource.Attributes == nil {
		return false
	}
	return ctx.Resource.Attributes["owner_id"] == ctx.Subject.ID
}

func (c *Condition) evalAttributeEquals(ctx *Context) bool {
	var attrs map[string]string
	if c.Scope == "resource" {
		attrs = ctx.Resource.Attributes
	} else {
		attrs = ctx.Subject.Attributes
	}
	if attrs == nil {
		return false
	}
	return attrs[c.Attribute] == c.Value
}

func (c *Condition) evalTimeWindow(ctx *Context) (bool, error) {
	start, err := parseClock(c.Start)
	if err != nil {
		return false, fmt.Errorf("time_window start: %w", err)
	}
	end, err := parseClock(c.End)
	if err != nil {
		return false, fmt.Errorf("time_window end: %w", err)
	}

	now := ctx.now()
	minute := now.Hour()*60 + now.Minute()

	if start <= end {
		return minute >= start && minute <= end, nil
	}
	// Window wraps midnight, e.g. 22:00-06:00.
	return minute >= start || minute <= end, nil
}

// evalIPMembership checks the environment IP against the CIDR list.
// wantInside selects allow (true) vs block (false) semantics. A missing or
// unparsable IP satisfies neither: the condition fails closed.
func (c *Condition) evalIPMembership(ctx *Context, wantInside bool) (bool, error) {
	ip := net.ParseIP(ctx.ip())
	if ip == nil {
		return false, nil
	}

	for _, cidr := range c.CIDRs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return false, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
		if network.Contains(ip) {
			return wantInside, nil
		}
	}
	return !wantInside, nil
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
