// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package search queries the Google Books volumes API so staff can
// find titles to import into the catalog. Queries are rate limited
// and wrapped in a circuit breaker like the cover lookups.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/bookhubhq/bookhub/internal/config"
	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/metrics"
	"github.com/bookhubhq/bookhub/internal/models"
)

// ErrDisabled is returned by Search when the upstream integration is
// turned off in configuration.
var ErrDisabled = errors.New("book search disabled")

// Result is one Google Books volume.
type Result struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
	SaleInfo   SaleInfo   `json:"saleInfo"`
}

// VolumeInfo is the subset of volume metadata the import flow reads.
type VolumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors,omitempty"`
	Categories          []string             `json:"categories,omitempty"`
	PublishedDate       string               `json:"publishedDate,omitempty"`
	Description         string               `json:"description,omitempty"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers,omitempty"`
	ImageLinks          *ImageLinks          `json:"imageLinks,omitempty"`
}

// IndustryIdentifier is an ISBN record attached to a volume.
type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// ImageLinks holds cover image URLs for a volume.
type ImageLinks struct {
	Thumbnail string `json:"thumbnail,omitempty"`
}

// SaleInfo carries upstream pricing when Google lists one.
type SaleInfo struct {
	ListPrice *ListPrice `json:"listPrice,omitempty"`
}

// ListPrice is an upstream price quote.
type ListPrice struct {
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currencyCode"`
}

// volumesResponse is the top-level Google Books search payload.
type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Result `json:"items"`
}

// Client searches the Google Books volumes API.
type Client struct {
	enabled    bool
	baseURL    string
	maxResults int
	httpc      *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]Result]
}

// NewClient builds a search client from configuration. A disabled
// client returns ErrDisabled from Search; the API surfaces that as a
// 503 so the rest of the catalog keeps working.
func NewClient(cfg config.SearchConfig) *Client {
	settings := gobreaker.Settings{
		Name:    "googlebooks",
		Timeout: cfg.Timeout * 3,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Book search circuit breaker state change")
		},
	}

	return &Client{
		enabled:    cfg.Enabled,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: cfg.MaxResults,
		httpc:      &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker:    gobreaker.NewCircuitBreaker[[]Result](settings),
	}
}

// Enabled reports whether the upstream integration is configured on.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Search runs a query against the volumes endpoint. It blocks on the
// rate limiter, then runs the upstream call through the circuit
// breaker. An empty result set is not an error.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	results, err := c.breaker.Execute(func() ([]Result, error) {
		return c.fetch(ctx, query)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.SearchQueriesTotal.WithLabelValues("breaker_open").Inc()
		return nil, fmt.Errorf("book search unavailable: %w", err)
	case err != nil:
		metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.SearchQueriesTotal.WithLabelValues("ok").Inc()
	return results, nil
}

func (c *Client) fetch(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	params.Set("printType", "books")

	endpoint := fmt.Sprintf("%s/volumes?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google books request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google books status %d", resp.StatusCode)
	}

	var payload volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode volumes response: %w", err)
	}

	return payload.Items, nil
}

// ISBN returns the volume's best identifier, preferring ISBN_13 over
// ISBN_10.
func (v VolumeInfo) ISBN() string {
	var isbn10 string
	for _, id := range v.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			isbn10 = id.Identifier
		}
	}
	return isbn10
}

// BookFromResult converts a Google Books volume into a catalog entry
// with sensible fallbacks for the many fields Google leaves blank.
func BookFromResult(res Result) models.Book {
	info := res.VolumeInfo

	book := models.Book{
		Title:  "Untitled",
		Author: "Unknown Author",
		Genre:  "General",
		Year:   time.Now().Year(),
		Price:  399,
		Stock:  25,
		ISBN:   info.ISBN(),
	}

	if t := strings.TrimSpace(info.Title); t != "" {
		book.Title = t
	}
	if len(info.Authors) > 0 {
		book.Author = strings.Join(info.Authors, ", ")
	}
	if len(info.Categories) > 0 {
		book.Genre = info.Categories[0]
	}
	if len(info.PublishedDate) >= 4 {
		if year, err := strconv.Atoi(info.PublishedDate[:4]); err == nil {
			book.Year = year
		}
	}
	book.Description = info.Description

	if lp := res.SaleInfo.ListPrice; lp != nil && lp.Amount > 0 {
		if lp.CurrencyCode == "INR" {
			book.Price = int(lp.Amount + 0.5)
		} else {
			book.Price = int(lp.Amount*83 + 0.5)
		}
	}

	if info.ImageLinks != nil && info.ImageLinks.Thumbnail != "" {
		book.CoverURL = strings.Replace(info.ImageLinks.Thumbnail, "http://", "https://", 1)
	}

	return book
}
