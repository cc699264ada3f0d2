// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package metrics provides Prometheus instrumentation for BookHub:
// API endpoint latency and throughput, catalog mutations, realtime
// session lifecycle and broadcast fan-out, store and analytics access.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status_code"},
	)

	// Catalog Metrics
	BookOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "book_operations_total",
			Help: "Total number of book operations",
		},
		[]string{"operation"}, // "create", "update", "delete"
	)

	// Realtime Channel Metrics
	RealtimeSessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active realtime sessions by transport",
		},
		[]string{"transport"}, // "polling", "websocket"
	)

	RealtimeSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_sessions_total",
			Help: "Total number of realtime sessions opened by transport",
		},
		[]string{"transport"},
	)

	RealtimeUpgradesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_upgrades_total",
			Help: "Total number of polling to websocket transport upgrades",
		},
	)

	WebsocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_total",
			Help: "Total number of realtime messages",
		},
		[]string{"type", "direction"}, // type: book:created etc., direction: sent
	)

	RealtimeDroppedSessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_dropped_sessions_total",
			Help: "Total number of sessions evicted for full send buffers or poll timeouts",
		},
	)

	RealtimeBroadcastFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "realtime_broadcast_fanout_sessions",
			Help:    "Number of sessions each broadcast was delivered to",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of Badger store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "entity"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Total number of Badger store operation errors",
		},
		[]string{"operation", "entity"},
	)

	// Analytics Metrics
	AnalyticsQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB analytics queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	// Cover Lookup Metrics
	CoverLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cover_lookups_total",
			Help: "Total number of Open Library cover lookups by outcome",
		},
		[]string{"outcome"}, // "hit", "miss", "error", "breaker_open"
	)

	// Catalog Search Metrics
	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Total number of Google Books search queries by outcome",
		},
		[]string{"outcome"}, // "ok", "error", "breaker_open"
	)

	// Auth Metrics
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts by outcome",
		},
		[]string{"operation", "outcome"}, // operation: "login", "signup"; outcome: "success", "failure"
	)
)

// RecordAPIRequest records an HTTP request with latency.
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordBookOperation records a committed catalog mutation.
func RecordBookOperation(operation string) {
	BookOperationsTotal.WithLabelValues(operation).Inc()
}

// RecordSessionOpened records a new realtime session.
func RecordSessionOpened(transport string) {
	RealtimeSessionsTotal.WithLabelValues(transport).Inc()
	RealtimeSessionsActive.WithLabelValues(transport).Inc()
}

// RecordSessionClosed records a closed realtime session.
func RecordSessionClosed(transport string) {
	RealtimeSessionsActive.WithLabelValues(transport).Dec()
}

// RecordUpgrade records a polling to websocket transport upgrade.
// The active gauge moves between transports; the session was already
// counted at open.
func RecordUpgrade(from, to string) {
	RealtimeUpgradesTotal.Inc()
	RealtimeSessionsActive.WithLabelValues(from).Dec()
	RealtimeSessionsActive.WithLabelValues(to).Inc()
}

// RecordBroadcast records one broadcast and its fan-out width.
func RecordBroadcast(event string, sessions int) {
	WebsocketMessagesTotal.WithLabelValues(event, "sent").Inc()
	RealtimeBroadcastFanout.Observe(float64(sessions))
}

// RecordStoreOperation records a Badger operation with latency.
func RecordStoreOperation(operation, entity string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation, entity).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(operation, entity).Inc()
	}
}

// RecordAuthAttempt records a login or signup attempt.
func RecordAuthAttempt(operation string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	AuthAttemptsTotal.WithLabelValues(operation, outcome).Inc()
}
