// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package authz

import (
	"strings"
	"time"
)

// Action is a "<resource>:<verb>" token, e.g. "report:create".
type Action string

// Resource returns the part before the first colon, or the whole token when
// no verb is present.
func (a Action) Resource() string {
	if i := strings.IndexByte(string(a), ':'); i >= 0 {
		return string(a)[:i]
	}
	return string(a)
}

// Verb returns the part after the first colon, or empty.
func (a Action) Verb() string {
	if i := strings.IndexByte(string(a), ':'); i >= 0 {
		return string(a)[i+1:]
	}
	return ""
}

// TenantRef scopes an authorization check to a tenant.
type TenantRef struct {
	TenantID string
	UserID   string
}

// SubjectRef identifies the acting principal plus its attributes.
type SubjectRef struct {
	ID         string
	Attributes map[string]string
}

// ResourceRef identifies the resource under access plus its attributes.
type ResourceRef struct {
	Type       string
	ID         string
	Attributes map[string]string
}

// EnvironmentRef carries ambient facts conditions may test.
type EnvironmentRef struct {
	IP   string
	Time time.Time
}

// Context is the transient per-check authorization context. It is
// constructed fresh for each Can/Authorize call and never persisted.
type Context struct {
	Tenant      TenantRef
	Subject     SubjectRef
	Resource    ResourceRef
	Action      Action
	Environment *EnvironmentRef
}

// now returns the environment time, defaulting to wall-clock when the caller
// did not pin one. Pinning time keeps condition evaluation testable.
func (c *Context) now() time.Time {
	if c.Environment != nil && !c.Environment.Time.IsZero() {
		return c.Environment.Time
	}
	return time.Now()
}

// ip returns the environment IP or empty.
func (c *Context) ip() string {
	if c.Environment == nil {
		return ""
	}
	return c.Environment.IP
}
