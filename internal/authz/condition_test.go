// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package authz

import (
	"testing"
	"time"
)

func TestParseCondition(t *testing.T) {
	cond, err := ParseCondition([]byte(`{"type":"attribute_equals","attribute":"plan","value":"pro"}`))
	if err != nil {
		t.Fatalf("ParseCondition() error = %v", err)
	}
	if cond.Kind != ConditionAttributeEquals || cond.Attribute != "plan" || cond.Value != "pro" {
		t.Errorf("descriptor decoded wrong: %+v", cond)
	}

	if _, err := ParseCondition([]byte(`{"attribute":"x"}`)); err == nil {
		t.Error("descriptor without type must fail")
	}
	if _, err := ParseCondition([]byte(`not json`)); err == nil {
		t.Error("malformed descriptor must fail")
	}
}

func TestOwnershipCondition(t *testing.T) {
	cond := &Condition{Kind: ConditionOwnership}

	ctx := &Context{
		Subject:  SubjectRef{ID: "u1"},
		Resource: ResourceRef{Type: "report", Attributes: map[string]string{"owner_id": "u1"}},
	}
	if got, _ := cond.Eval(ctx); !got {
		t.Error("owner must satisfy ownership condition")
	}

	ctx.Resource.Attributes["owner_id"] = "u2"
	if got, _ := cond.Eval(ctx); got {
		t.Error("non-owner must not satisfy ownership condition")
	}

	ctx.Resource.Attributes = nil
	if got, _ := cond.Eval(ctx); got {
		t.Error("resource without owner attribute must not satisfy ownership")
	}
}

func TestAttributeEqualsScopes(t *testing.T) {
	ctx := &Context{
		Subject:  SubjectRef{ID: "u1", Attributes: map[string]string{"plan": "pro"}},
		Resource: ResourceRef{Type: "report", Attributes: map[string]string{"visibility": "internal"}},
	}

	subjCond := &Condition{Kind: ConditionAttributeEquals, Attribute: "plan", Value: "pro"}
	if got, _ := subjCond.Eval(ctx); !got {
		t.Error("subject-scope attribute should match")
	}

	resCond := &Condition{Kind: ConditionAttributeEquals, Scope: "resource", Attribute: "visibility", Value: "internal"}
	if got, _ := resCond.Eval(ctx); !got {
		t.Error("resource-scope attribute should match")
	}

	miss := &Condition{Kind: ConditionAttributeEquals, Attribute: "plan", Value: "free"}
	if got, _ := miss.Eval(ctx); got {
		t.Error("mismatched value should not match")
	}
}

func TestTimeWindowCondition(t *testing.T) {
	at := func(hour, minute int) *Context {
		return &Context{Environment: &EnvironmentRef{
			Time: time.Date(2026, 3, 1, hour, minute, 0, 0, time.UTC),
		}}
	}

	office := &Condition{Kind: ConditionTimeWindow, Start: "09:00", End: "17:00"}

	tests := []struct {
		name string
		ctx  *Context
		want bool
	}{
		{"inside window", at(12, 0), true},
		{"start boundary inclusive", at(9, 0), true},
		{"end boundary inclusive", at(17, 0), true},
		{"before window", at(8, 59), false},
		{"after window", at(17, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := office.Eval(tt.ctx)
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}

	night := &Condition{Kind: ConditionTimeWindow, Start: "22:00", End: "06:00"}
	if got, _ := night.Eval(at(23, 30)); !got {
		t.Error("wrapping window should include late evening")
	}
	if got, _ := night.Eval(at(3, 0)); !got {
		t.Error("wrapping window should include early morning")
	}
	if got, _ := night.Eval(at(12, 0)); got {
		t.Error("wrapping window should exclude midday")
	}

	bad := &Condition{Kind: ConditionTimeWindow, Start: "late", End: "17:00"}
	if _, err := bad.Eval(at(12, 0)); err == nil {
		t.Error("invalid clock string must error")
	}
}

func TestIPConditions(t *testing.T) {
	ctxWithIP := func(ip string) *Context {
		return &Context{Environment: &EnvironmentRef{IP: ip}}
	}

	allow := &Condition{Kind: ConditionIPAllow, CIDRs: []string{"10.0.0.0/8", "192.168.1.0/24"}}
	if got, _ := allow.Eval(ctxWithIP("10.5.5.5")); !got {
		t.Error("IP inside allow range should match")
	}
	if got, _ := allow.Eval(ctxWithIP("8.8.8.8")); got {
		t.Error("IP outside allow range should not match")
	}
	if got, _ := allow.Eval(ctxWithIP("")); got {
		t.Error("missing IP should fail closed on allow")
	}

	block := &Condition{Kind: ConditionIPBlock, CIDRs: []string{"203.0.113.0/24"}}
	if got, _ := block.Eval(ctxWithIP("8.8.8.8")); !got {
		t.Error("IP outside block range should satisfy ip_block")
	}
	if got, _ := block.Eval(ctxWithIP("203.0.113.7")); got {
		t.Error("IP inside block range should not satisfy ip_block")
	}

	bad := &Condition{Kind: ConditionIPAllow, CIDRs: []string{"not-a-cidr"}}
	if _, err := bad.Eval(ctxWithIP("10.0.0.1")); err == nil {
		t.Error("invalid CIDR must error")
	}
}

func TestActionSplit(t *testing.T) {
	a := Action("report:create")
	if a.Resource() != "report" || a.Verb() != "create" {
		t.Errorf("Action split = (%q, %q)", a.Resource(), a.Verb())
	}

	bare := Action("report")
	if bare.Resource() != "report" || bare.Verb() != "" {
		t.Errorf("bare action split = (%q, %q)", bare.Resource(), bare.Verb())
	}
}
