// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package api

import (
	"net/http"
	"strconv"
)

// Dashboard aggregates the admin dashboard payload from the analytics
// database: headline stats, a revenue series, best sellers, and the
// genre breakdown. Admin only.
//
// @Summary Admin dashboard analytics
// @Description Aggregates headline stats, a revenue-by-day series, best sellers and the genre breakdown from the analytics database.
// @Tags Dashboard
// @Produce json
// @Param days query int false "Revenue window in days" default(30)
// @Success 200 {object} APIResponse "Dashboard payload"
// @Failure 503 {object} APIResponse "Analytics disabled"
// @Security BearerAuth
// @Router /dashboard [get]
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.analytics == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Analytics database is not available")
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			rw.BadRequest("days must be between 1 and 365")
			return
		}
		days = n
	}

	ctx := r.Context()

	stats, err := h.analytics.Stats(ctx)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	revenue, err := h.analytics.RevenueByDay(ctx, days)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	topBooks, err := h.analytics.TopBooks(ctx, 5)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	genres, err := h.analytics.GenreBreakdown(ctx)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"stats":    stats,
		"revenue":  revenue,
		"topBooks": topBooks,
		"genres":   genres,
	})
}
