// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package secctx

import "context"

// Credentials are the raw authentication materials lifted off the inbound
// request. The middleware layer seeds them into the context; identity
// providers read them back. Keeping the carrier here means providers never
// need an *http.Request.
type Credentials struct {
	// Authorization is the raw Authorization header value, if any.
	Authorization string

	// SessionToken is the session cookie value, if any.
	SessionToken string
}

type credentialsKey struct{}

// ContextWithCredentials attaches request credentials to the context.
func ContextWithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFromContext returns the credentials seeded by the middleware
// layer. The zero value means an anonymous request.
func CredentialsFromContext(ctx context.Context) Credentials {
	creds, _ := ctx.Value(credentialsKey{}).(Credentials)
	return creds
}
