// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package api

import (
	"errors"
	"net/http"

	"github.com/bookhubhq/bookhub/internal/auth"
	"github.com/bookhubhq/bookhub/internal/store"
)

// authResponse pairs the account with its session token. The token is
// also set as an HTTP-only cookie; the body copy serves API clients
// that prefer bearer headers.
type authResponse struct {
	User  interface{} `json:"user"`
	Token string      `json:"token"`
}

// setSessionCookie installs the JWT as an HTTP-only cookie scoped to
// the whole site, valid for the session timeout.
func (h *Handlers) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.Security.SessionTimeout.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// Signup creates an account and opens a session.
//
// @Summary Create an account
// @Description Registers a new storefront account and returns it with a session token. The token is also set as an HTTP-only cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param account body SignupRequest true "Account details"
// @Success 201 {object} APIResponse "Account created with session token"
// @Failure 400 {object} APIResponse "Validation failed"
// @Failure 409 {object} APIResponse "Email already registered"
// @Router /auth/signup [post]
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req SignupRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	user, token, err := h.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			rw.Conflict("User with this email already exists")
			return
		}
		rw.DatabaseError(err)
		return
	}

	h.setSessionCookie(w, r, token)
	rw.Created(authResponse{User: user, Token: token})
}

// Login authenticates an account and opens a session.
//
// @Summary Authenticate with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} APIResponse "Account with session token"
// @Failure 401 {object} APIResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req LoginRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			rw.Unauthorized("Invalid email or password")
			return
		}
		rw.DatabaseError(err)
		return
	}

	h.setSessionCookie(w, r, token)
	rw.Success(authResponse{User: user, Token: token})
}

// Logout revokes the presented token and clears the cookie.
//
// @Summary Revoke the current session
// @Tags Auth
// @Produce json
// @Success 200 {object} APIResponse "Session revoked"
// @Router /auth/logout [post]
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if token := extractToken(r); token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			rw.DatabaseError(err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	rw.Success(map[string]bool{"success": true})
}

// Me returns the authenticated account.
//
// @Summary Return the authenticated account
// @Tags Auth
// @Produce json
// @Success 200 {object} APIResponse{data=models.User} "Authenticated account"
// @Failure 401 {object} APIResponse "Missing or invalid token"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	claims := ClaimsFromContext(r.Context())

	user, err := h.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.Unauthorized("Account no longer exists")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(user)
}
