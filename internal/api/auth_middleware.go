// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/bookhubhq/bookhub/internal/auth"
	"github.com/bookhubhq/bookhub/internal/logging"
)

type claimsContextKey struct{}

// sessionCookieName is the HTTP-only cookie carrying the JWT. The
// name is part of the wire contract with the web frontend.
const sessionCookieName = "token"

// ClaimsFromContext returns the authenticated claims, or nil outside
// an authenticated route.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*auth.Claims)
	return claims
}

// extractToken pulls the JWT from the Authorization header or the
// session cookie, header first so API clients can override a stale
// browser cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticate requires a valid, unrevoked token and stores its claims
// in the request context.
func (h *Handlers) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			NewResponseWriter(w, r).Unauthorized("Authentication required")
			return
		}

		claims, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("token rejected")
			NewResponseWriter(w, r).Unauthorized("Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission enforces the role permission matrix for a
// resource/action pair. It must run after Authenticate.
func (h *Handlers) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				NewResponseWriter(w, r).Unauthorized("Authentication required")
				return
			}

			allowed, err := h.enforcer.Enforce(claims.Role, resource, action)
			if err != nil {
				logging.CtxErr(r.Context(), err).Msg("authorization check failed")
				NewResponseWriter(w, r).InternalError("Authorization check failed")
				return
			}
			if !allowed {
				NewResponseWriter(w, r).Forbidden("Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
