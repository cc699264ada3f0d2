// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package api

import (
	"net/http"
	"time"

	"github.com/bookhubhq/bookhub/internal/analytics"
	"github.com/bookhubhq/bookhub/internal/auth"
	"github.com/bookhubhq/bookhub/internal/authz"
	"github.com/bookhubhq/bookhub/internal/config"
	"github.com/bookhubhq/bookhub/internal/covers"
	"github.com/bookhubhq/bookhub/internal/events"
	"github.com/bookhubhq/bookhub/internal/realtime"
	"github.com/bookhubhq/bookhub/internal/search"
	"github.com/bookhubhq/bookhub/internal/store"
)

// Handlers holds every dependency the HTTP surface needs.
//
// analytics, coverClient and searchClient may be nil when those
// subsystems are disabled; handlers degrade rather than fail.
// publisher may be nil in tests, in which case committed mutations are
// logged and dropped.
type Handlers struct {
	cfg          *config.Config
	store        *store.Store
	auth         *auth.Service
	enforcer     *authz.Enforcer
	publisher    *events.Publisher
	hub          *realtime.Hub
	analytics    *analytics.DB
	coverClient  *covers.Client
	searchClient *search.Client
	startedAt    time.Time
}

// NewHandlers wires the handler set.
func NewHandlers(
	cfg *config.Config,
	st *store.Store,
	authSvc *auth.Service,
	enforcer *authz.Enforcer,
	publisher *events.Publisher,
	hub *realtime.Hub,
	analyticsDB *analytics.DB,
	coverClient *covers.Client,
	searchClient *search.Client,
) *Handlers {
	return &Handlers{
		cfg:          cfg,
		store:        st,
		auth:         authSvc,
		enforcer:     enforcer,
		publisher:    publisher,
		hub:          hub,
		analytics:    analyticsDB,
		coverClient:  coverClient,
		searchClient: searchClient,
		startedAt:    time.Now(),
	}
}

// HealthLive reports process liveness.
//
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse "Process is up"
// @Router /health/live [get]
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	})
}

// HealthReady reports whether the store is reachable, which is the
// only dependency a storefront request cannot do without.
//
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse "Store reachable"
// @Failure 503 {object} APIResponse "Store not ready"
// @Router /health/ready [get]
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if _, err := h.store.GetSettings(r.Context()); err != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Store not ready")
		return
	}

	rw.Success(map[string]interface{}{
		"status":   "ready",
		"sessions": h.hub.SessionCount(),
	})
}
