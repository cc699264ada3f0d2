// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package covers resolves book cover images from the Open Library API.
// Lookups are rate limited and wrapped in a circuit breaker so a slow
// or failing upstream cannot stall catalog edits.
package covers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/bookhubhq/bookhub/internal/config"
	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/metrics"
)

// Sentinel errors returned by Lookup.
var (
	ErrNoCover  = errors.New("no cover found")
	ErrDisabled = errors.New("cover lookup disabled")
)

// Cover is a resolved cover image reference.
type Cover struct {
	ISBN string `json:"isbn"`
	URL  string `json:"url"`
}

// Client looks up covers on the Open Library API.
type Client struct {
	enabled bool
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*Cover]
}

// NewClient builds a cover client from configuration. A disabled client
// returns ErrDisabled from Lookup; callers treat covers as optional.
func NewClient(cfg config.CoversConfig) *Client {
	settings := gobreaker.Settings{
		Name:    "openlibrary",
		Timeout: cfg.Timeout * 3,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Cover lookup circuit breaker state change")
		},
	}

	return &Client{
		enabled: cfg.Enabled,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker[*Cover](settings),
	}
}

// olBookResponse is the subset of the Open Library edition record we
// read.
type olBookResponse struct {
	Covers []int64 `json:"covers"`
}

// Lookup resolves the cover image URL for an ISBN. It blocks on the
// rate limiter, then runs the upstream call through the circuit
// breaker. Books without cover art return ErrNoCover.
func (c *Client) Lookup(ctx context.Context, isbn string) (*Cover, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}

	isbn = strings.ReplaceAll(strings.TrimSpace(isbn), "-", "")
	if isbn == "" {
		return nil, fmt.Errorf("empty isbn")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	cover, err := c.breaker.Execute(func() (*Cover, error) {
		return c.fetch(ctx, isbn)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CoverLookupsTotal.WithLabelValues("breaker_open").Inc()
		return nil, fmt.Errorf("cover lookup unavailable: %w", err)
	case errors.Is(err, ErrNoCover):
		metrics.CoverLookupsTotal.WithLabelValues("miss").Inc()
		return nil, err
	case err != nil:
		metrics.CoverLookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.CoverLookupsTotal.WithLabelValues("hit").Inc()
	return cover, nil
}

func (c *Client) fetch(ctx context.Context, isbn string) (*Cover, error) {
	endpoint := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, url.PathEscape(isbn))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open library request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoCover
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("open library status %d", resp.StatusCode)
	}

	var record olBookResponse
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode edition record: %w", err)
	}
	if len(record.Covers) == 0 || record.Covers[0] <= 0 {
		return nil, ErrNoCover
	}

	return &Cover{
		ISBN: isbn,
		URL:  fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", record.Covers[0]),
	}, nil
}
