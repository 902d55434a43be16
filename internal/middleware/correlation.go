// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package middleware

import (
	"net/http"

	"github.com/wmitrus/gateward/internal/logging"
)

// Correlation header names. Inbound values are reused so traces span
// upstream proxies; missing values are generated here.
const (
	HeaderCorrelationID = "x-correlation-id"
	HeaderRequestID     = "X-Request-ID"
)

// Correlation assigns correlation and request IDs to each request, reusing
// inbound headers when an upstream already set them. Both IDs are echoed on
// the response and seeded into the logging context for tracing.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = logging.GenerateCorrelationID()
		}
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = logging.GenerateRequestID()
		}

		w.Header().Set(HeaderCorrelationID, correlationID)
		w.Header().Set(HeaderRequestID, requestID)

		ctx := logging.ContextWithCorrelationID(r.Context(), correlationID)
		ctx = logging.ContextWithRequestID(ctx, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
