// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package main is the entry point for the BookHub server application.
//
// BookHub is a self-hosted bookstore storefront with a real-time catalog
// sync channel. Clients receive catalog mutations (create, update, delete)
// over long-polling or WebSocket sessions the moment an administrator
// commits them, alongside a conventional REST API for books, orders,
// users, and settings.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Store: Open the Badger document store (users, books, orders, settings)
//  3. Analytics: Optionally open DuckDB for order/revenue aggregation
//  4. Auth: JWT issuing and verification, seeded admin account
//  5. Realtime Hub: Session registry for long-poll and WebSocket delivery
//  6. Event Bus: Watermill in-process bus bridging API writes to the hub
//  7. HTTP Server: REST API with Swagger documentation and Prometheus metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (BOOKHUB_ prefix)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// Required settings:
//   - BOOKHUB_SECURITY_JWT_SECRET: 32+ character secret for token signing
//   - BOOKHUB_SECURITY_ADMIN_EMAIL: Seeded admin account email
//   - BOOKHUB_SECURITY_ADMIN_PASSWORD: Seeded admin account password (8+ characters)
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: in-flight
// HTTP requests are drained, realtime sessions are closed, and the store
// and analytics databases are flushed before exit.
//
// @title BookHub API
// @version 1.0
// @description Bookstore storefront with real-time catalog synchronization.
// @description
// @description ## Realtime channel
// @description
// @description Catalog mutations are announced to every connected client over
// @description long-polling (`/api/v1/rt/poll`) or WebSocket (`/api/v1/rt/ws`).
// @description The handshake batch begins with a `connection:success` envelope
// @description carrying the session id.
// @description
// @description ## Authentication
// @description
// @description Authenticated endpoints accept a JWT either as a Bearer token in
// @description the Authorization header or via the HTTP-only session cookie set
// @description by `/api/v1/auth/login` and `/api/v1/auth/signup`.
//
// @contact.name GitHub Repository
// @contact.url https://github.com/bookhubhq/bookhub/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT prefixed with "Bearer ". Obtain via /api/v1/auth/login.
//
// @tag.name Auth
// @tag.description Authentication and session management
//
// @tag.name Books
// @tag.description Catalog reads, admin writes, Google Books search and import, cover lookup
//
// @tag.name Orders
// @tag.description Order placement, lifecycle management and CSV export
//
// @tag.name Users
// @tag.description Account administration and the self-service cart
//
// @tag.name Settings
// @tag.description Store configuration
//
// @tag.name Dashboard
// @tag.description Admin analytics backed by DuckDB
//
// @tag.name Realtime
// @tag.description Long-poll and WebSocket transports for catalog events
//
// @tag.name Health
// @tag.description Liveness and readiness probes
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookhubhq/bookhub/internal/analytics"
	"github.com/bookhubhq/bookhub/internal/api"
	"github.com/bookhubhq/bookhub/internal/auth"
	"github.com/bookhubhq/bookhub/internal/authz"
	"github.com/bookhubhq/bookhub/internal/config"
	"github.com/bookhubhq/bookhub/internal/covers"
	"github.com/bookhubhq/bookhub/internal/events"
	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/realtime"
	"github.com/bookhubhq/bookhub/internal/search"
	"github.com/bookhubhq/bookhub/internal/store"
	"github.com/bookhubhq/bookhub/internal/supervisor"
	"github.com/bookhubhq/bookhub/internal/supervisor/services"

	// Swagger documentation (generated by swag).
	_ "github.com/bookhubhq/bookhub/docs"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting BookHub with supervisor tree")
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Bool("store_in_memory", cfg.Store.InMemory).
		Bool("analytics_enabled", cfg.Analytics.Enabled).
		Bool("covers_enabled", cfg.Covers.Enabled).
		Msg("Configuration loaded")

	// Document store (users, books, orders, cart, settings)
	st, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Msg("Store opened successfully")

	// Analytics database is optional; the dashboard reports 503 without it
	var analyticsDB *analytics.DB
	if cfg.Analytics.Enabled {
		analyticsDB, err = analytics.Open(cfg.Analytics)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open analytics database")
		}
		defer func() {
			if err := analyticsDB.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing analytics database")
			}
		}()
		logging.Info().Str("path", cfg.Analytics.Path).Msg("Analytics database opened")
	} else {
		logging.Info().Msg("Analytics disabled - dashboard endpoints will report unavailable")
	}

	coverClient := covers.NewClient(cfg.Covers)
	searchClient := search.NewClient(cfg.Search)

	authSvc, err := auth.NewService(st, &cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize auth service")
	}
	if err := authSvc.EnsureAdmin(context.Background(), &cfg.Security); err != nil {
		logging.Fatal().Err(err).Msg("Failed to ensure admin account")
	}

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization enforcer")
	}

	// Event plumbing: API writes publish to the bus, the forwarder fans
	// them into the realtime hub for session delivery.
	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	publisher := events.NewPublisher(bus)
	hub := realtime.NewHub(cfg.Realtime)
	forwarder := events.NewForwarder(bus, hub)

	handlers := api.NewHandlers(cfg, st, authSvc, enforcer, publisher, hub, analyticsDB, coverClient, searchClient)
	router := api.NewRouter(handlers)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Supervisor tree: realtime layer (hub + forwarder) and API layer (HTTP)
	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeConfig)

	tree.AddRealtimeService(services.NewHubService(hub))
	tree.AddRealtimeService(services.NewForwarderService(forwarder))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
