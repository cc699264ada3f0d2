// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package api provides HTTP routing using Chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/bookhubhq/bookhub/internal/authz"
	"github.com/bookhubhq/bookhub/internal/middleware"
)

// Router assembles the HTTP surface from the handlers and the
// middleware stack.
type Router struct {
	handler       *Handlers
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router around a prepared handler set.
func NewRouter(handler *Handlers) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(handler.cfg.Security),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order. CORS must be
	// global so OPTIONS preflight is handled before routing.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	h := router.handler

	// Health endpoints stay unauthenticated for orchestrator probes.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// Auth endpoints get the strict limiter to slow brute forcing.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.chiMiddleware.RateLimitAuth())

		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)
			r.Get("/me", h.Me)
		})
	})

	// The catalog reads are public so the storefront works logged out.
	// Writes are admin-gated and feed the realtime broadcast path.
	r.Route("/api/v1/books", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.chiMiddleware.RateLimit())

		r.Get("/", h.ListBooks)
		r.Get("/cover-lookup", h.LookupCover)
		r.Get("/search", h.SearchBooks)
		r.Get("/{id}", h.GetBook)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)
			r.With(h.RequirePermission(authz.ResourceBooks, authz.ActionWrite)).Post("/", h.CreateBook)
			r.With(h.RequirePermission(authz.ResourceBooks, authz.ActionWrite)).Post("/import", h.ImportBook)
			r.With(h.RequirePermission(authz.ResourceBooks, authz.ActionWrite)).Put("/{id}", h.UpdateBook)
			r.With(h.RequirePermission(authz.ResourceBooks, authz.ActionDelete)).Delete("/{id}", h.DeleteBook)
		})
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(h.Authenticate)

		r.With(h.RequirePermission(authz.ResourceOrders, authz.ActionWrite)).Post("/", h.CreateOrder)
		r.With(h.RequirePermission(authz.ResourceOrders, authz.ActionRead)).Get("/", h.ListOrders)
		r.With(h.RequirePermission(authz.ResourceOrders, authz.ActionManage)).Get("/export", h.ExportOrders)
		r.With(h.RequirePermission(authz.ResourceOrders, authz.ActionRead)).Get("/{id}", h.GetOrder)
		r.With(h.RequirePermission(authz.ResourceOrders, authz.ActionManage)).Patch("/{id}/status", h.UpdateOrderStatus)
		r.With(h.RequirePermission(authz.ResourceOrders, authz.ActionDelete)).Delete("/{id}", h.DeleteOrder)
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(h.Authenticate)

		// Cart is self-service; everything else is admin.
		r.Put("/me/cart", h.UpdateCart)
		r.With(h.RequirePermission(authz.ResourceUsers, authz.ActionRead)).Get("/", h.ListUsers)
		r.With(h.RequirePermission(authz.ResourceUsers, authz.ActionRead)).Get("/{id}", h.GetUser)
		r.With(h.RequirePermission(authz.ResourceUsers, authz.ActionWrite)).Put("/{id}", h.UpdateUser)
		r.With(h.RequirePermission(authz.ResourceUsers, authz.ActionDelete)).Delete("/{id}", h.DeleteUser)
	})

	r.Route("/api/v1/settings", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(h.Authenticate)

		r.With(h.RequirePermission(authz.ResourceSettings, authz.ActionRead)).Get("/", h.GetSettings)
		r.With(h.RequirePermission(authz.ResourceSettings, authz.ActionWrite)).Put("/", h.UpdateSettings)
	})

	r.Route("/api/v1/dashboard", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(h.Authenticate)

		r.With(h.RequirePermission(authz.ResourceDashboard, authz.ActionRead)).Get("/", h.Dashboard)
	})

	// Realtime transports. Polling gets its own generous limiter: a
	// well-behaved client issues a request per poll window, but
	// reconnect storms after a deploy briefly spike well above the
	// normal API rate.
	r.Route("/api/v1/rt", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.With(router.chiMiddleware.RateLimitPoll()).Get("/poll", h.Poll)
		r.Get("/ws", h.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
