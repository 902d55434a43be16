// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the originating client address. Forwarding headers are
// honored only when the direct peer is a trusted proxy, otherwise a spoofed
// X-Forwarded-For would let clients dodge rate limiting.
func ClientIP(r *http.Request, trustedProxies []string) string {
	peer := remoteIP(r)
	if !isTrustedProxy(peer, trustedProxies) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Leftmost entry is the original client.
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return peer
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isTrustedProxy(peer string, trusted []string) bool {
	if len(trusted) == 0 {
		return false
	}
	ip := net.ParseIP(peer)
	for _, t := range trusted {
		if t == peer {
			return true
		}
		if ip == nil {
			continue
		}
		if _, cidr, err := net.ParseCIDR(t); err == nil && cidr.Contains(ip) {
			return true
		}
	}
	return false
}
