// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package analytics maintains a DuckDB mirror of catalog and order
// activity for the admin dashboard. Writes are best-effort: the Badger
// store is the source of truth, and dropping an analytics row never
// fails a storefront operation.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/bookhubhq/bookhub/internal/config"
	"github.com/bookhubhq/bookhub/internal/models"
)

// DB wraps the DuckDB connection used for dashboard queries.
type DB struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS books (
	id         VARCHAR PRIMARY KEY,
	title      VARCHAR NOT NULL,
	genre      VARCHAR NOT NULL,
	price      INTEGER NOT NULL,
	stock      INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
	id         VARCHAR PRIMARY KEY,
	book_id    VARCHAR NOT NULL,
	book_title VARCHAR NOT NULL,
	amount     INTEGER NOT NULL,
	status     VARCHAR NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// Open opens (or creates) the analytics database and ensures the
// schema. An empty path opens an in-memory database.
func Open(cfg config.AnalyticsConfig) (*DB, error) {
	if cfg.Path != "" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create analytics directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create analytics schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the DuckDB connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// RecordBook upserts a catalog entry into the mirror.
func (db *DB) RecordBook(ctx context.Context, b *models.Book) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO books (id, title, genre, price, stock, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Genre, b.Price, b.Stock, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("record book: %w", err)
	}
	return nil
}

// RemoveBook drops a deleted catalog entry from the mirror. Order rows
// keep the denormalized title so history survives deletion.
func (db *DB) RemoveBook(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove book: %w", err)
	}
	return nil
}

// RecordOrder upserts an order into the mirror.
func (db *DB) RecordOrder(ctx context.Context, o *models.Order) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO orders (id, book_id, book_title, amount, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.BookID, o.BookTitle, o.Amount, o.Status, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("record order: %w", err)
	}
	return nil
}
