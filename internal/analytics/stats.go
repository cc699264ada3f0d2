// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/bookhubhq/bookhub/internal/metrics"
)

// DashboardStats is the headline summary shown on the admin dashboard.
// Revenue counts completed orders only.
type DashboardStats struct {
	TotalBooks    int `json:"totalBooks"`
	TotalOrders   int `json:"totalOrders"`
	PendingOrders int `json:"pendingOrders"`
	TotalRevenue  int `json:"totalRevenue"`
	TotalStock    int `json:"totalStock"`
}

// RevenuePoint is one day of completed-order revenue.
type RevenuePoint struct {
	Day     string `json:"day"`
	Revenue int    `json:"revenue"`
	Orders  int    `json:"orders"`
}

// TopBook is a best-selling title.
type TopBook struct {
	BookID  string `json:"bookId"`
	Title   string `json:"title"`
	Orders  int    `json:"orders"`
	Revenue int    `json:"revenue"`
}

// GenreCount is the catalog size of one genre.
type GenreCount struct {
	Genre string `json:"genre"`
	Books int    `json:"books"`
}

// Stats computes the dashboard headline numbers.
func (db *DB) Stats(ctx context.Context) (*DashboardStats, error) {
	start := time.Now()
	defer func() {
		metrics.AnalyticsQueryDuration.WithLabelValues("stats").Observe(time.Since(start).Seconds())
	}()

	var s DashboardStats
	row := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM books),
			(SELECT COALESCE(SUM(stock), 0) FROM books),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM orders WHERE status = 'pending'),
			(SELECT COALESCE(SUM(amount), 0) FROM orders WHERE status = 'completed')`)
	if err := row.Scan(&s.TotalBooks, &s.TotalStock, &s.TotalOrders, &s.PendingOrders, &s.TotalRevenue); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	return &s, nil
}

// RevenueByDay returns per-day completed revenue for the last N days,
// oldest first. Days without orders are absent.
func (db *DB) RevenueByDay(ctx context.Context, days int) ([]RevenuePoint, error) {
	start := time.Now()
	defer func() {
		metrics.AnalyticsQueryDuration.WithLabelValues("revenue_by_day").Observe(time.Since(start).Seconds())
	}()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT strftime(created_at, '%Y-%m-%d') AS day,
		       SUM(amount)::INTEGER,
		       COUNT(*)::INTEGER
		FROM orders
		WHERE status = 'completed'
		  AND created_at >= now() - to_days(?::INTEGER)
		GROUP BY day
		ORDER BY day`, days)
	if err != nil {
		return nil, fmt.Errorf("revenue by day: %w", err)
	}
	defer rows.Close()

	points := []RevenuePoint{}
	for rows.Next() {
		var p RevenuePoint
		if err := rows.Scan(&p.Day, &p.Revenue, &p.Orders); err != nil {
			return nil, fmt.Errorf("scan revenue point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// TopBooks returns the best-selling titles by order count.
func (db *DB) TopBooks(ctx context.Context, limit int) ([]TopBook, error) {
	start := time.Now()
	defer func() {
		metrics.AnalyticsQueryDuration.WithLabelValues("top_books").Observe(time.Since(start).Seconds())
	}()

	if limit <= 0 {
		limit = 5
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT book_id,
		       book_title,
		       COUNT(*)::INTEGER AS orders,
		       SUM(amount)::INTEGER AS revenue
		FROM orders
		GROUP BY book_id, book_title
		ORDER BY orders DESC, revenue DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top books: %w", err)
	}
	defer rows.Close()

	books := []TopBook{}
	for rows.Next() {
		var b TopBook
		if err := rows.Scan(&b.BookID, &b.Title, &b.Orders, &b.Revenue); err != nil {
			return nil, fmt.Errorf("scan top book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GenreBreakdown returns catalog size per genre, largest first.
func (db *DB) GenreBreakdown(ctx context.Context) ([]GenreCount, error) {
	start := time.Now()
	defer func() {
		metrics.AnalyticsQueryDuration.WithLabelValues("genre_breakdown").Observe(time.Since(start).Seconds())
	}()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT genre, COUNT(*)::INTEGER
		FROM books
		GROUP BY genre
		ORDER BY COUNT(*) DESC, genre`)
	if err != nil {
		return nil, fmt.Errorf("genre breakdown: %w", err)
	}
	defer rows.Close()

	genres := []GenreCount{}
	for rows.Next() {
		var g GenreCount
		if err := rows.Scan(&g.Genre, &g.Books); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}
