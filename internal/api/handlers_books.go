// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/bookhubhq/bookhub/internal/covers"
	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/metrics"
	"github.com/bookhubhq/bookhub/internal/models"
	"github.com/bookhubhq/bookhub/internal/search"
	"github.com/bookhubhq/bookhub/internal/store"
)

// ListBooks returns the full catalog, newest first.
//
// @Summary List the catalog
// @Description Returns every book in the catalog ordered by creation time, newest first.
// @Tags Books
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.Book} "Catalog retrieved"
// @Failure 500 {object} APIResponse "Database error"
// @Router /books [get]
func (h *Handlers) ListBooks(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	books, err := h.store.ListBooks(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(books)
}

// GetBook returns a single book.
//
// @Summary Get a book
// @Tags Books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} APIResponse{data=models.Book} "Book retrieved"
// @Failure 404 {object} APIResponse "Book not found"
// @Router /books/{id} [get]
func (h *Handlers) GetBook(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	book, err := h.store.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("Book not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(book)
}

// CreateBook adds a book and announces it to connected clients.
//
// Ordering matters: the event is published only after the store commit
// succeeds, and both the response body and the broadcast payload come
// from the same committed entity. A failed request never produces an
// event.
//
// @Summary Add a book
// @Description Creates a catalog entry and broadcasts book:created to every connected client.
// @Tags Books
// @Accept json
// @Produce json
// @Param book body CreateBookRequest true "Book to create"
// @Success 201 {object} APIResponse{data=models.Book} "Book created"
// @Failure 400 {object} APIResponse "Validation failed"
// @Failure 403 {object} APIResponse "Requires the admin role"
// @Security BearerAuth
// @Router /books [post]
func (h *Handlers) CreateBook(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreateBookRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	book, err := h.store.CreateBook(r.Context(), req.Book())
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	metrics.RecordBookOperation("create")
	h.mirrorBook(r, book)
	h.publisher.BookCreated(book)
	rw.Created(book)
}

// UpdateBook applies a partial update and announces the result.
//
// @Summary Update a book
// @Description Applies a partial update and broadcasts book:updated. Absent fields keep their stored values.
// @Tags Books
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param patch body UpdateBookRequest true "Fields to change"
// @Success 200 {object} APIResponse{data=models.Book} "Book updated"
// @Failure 400 {object} APIResponse "Validation failed"
// @Failure 404 {object} APIResponse "Book not found"
// @Security BearerAuth
// @Router /books/{id} [put]
func (h *Handlers) UpdateBook(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req UpdateBookRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	book, err := h.store.UpdateBook(r.Context(), chi.URLParam(r, "id"), req.Patch())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("Book not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	metrics.RecordBookOperation("update")
	h.mirrorBook(r, book)
	h.publisher.BookUpdated(book)
	rw.Success(book)
}

// DeleteBook removes a book and broadcasts its tombstone. The book is
// fetched first so the tombstone can carry title and author; the event
// goes out only after the delete is confirmed. Deleting an absent book
// is a 404 and produces no event.
//
// @Summary Delete a book
// @Description Removes a book and broadcasts a book:deleted tombstone carrying id, title and author.
// @Tags Books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} APIResponse "Book deleted"
// @Failure 404 {object} APIResponse "Book not found"
// @Security BearerAuth
// @Router /books/{id} [delete]
func (h *Handlers) DeleteBook(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	book, err := h.store.GetBook(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("Book not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	if err := h.store.DeleteBook(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("Book not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	metrics.RecordBookOperation("delete")
	if h.analytics != nil {
		if err := h.analytics.RemoveBook(r.Context(), id); err != nil {
			logging.CtxErr(r.Context(), err).Msg("failed to remove book from analytics mirror")
		}
	}
	h.publisher.BookDeleted(book.ID, book.Title, book.Author)
	rw.Success(map[string]bool{"success": true})
}

// LookupCover resolves a cover image URL for an ISBN via Open Library.
// Cover art is decorative, so lookup failures surface as an empty
// result rather than an error status.
//
// @Summary Look up cover art for an ISBN
// @Description Resolves a cover image URL via Open Library. Misses return an empty coverUrl rather than an error.
// @Tags Books
// @Produce json
// @Param isbn query string true "ISBN-10 or ISBN-13, hyphens allowed"
// @Success 200 {object} APIResponse "Cover lookup result"
// @Failure 400 {object} APIResponse "Missing isbn parameter"
// @Router /books/cover-lookup [get]
func (h *Handlers) LookupCover(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	isbn := r.URL.Query().Get("isbn")
	if isbn == "" {
		rw.BadRequest("isbn query parameter is required")
		return
	}

	if h.coverClient == nil {
		rw.Success(map[string]string{"isbn": isbn, "coverUrl": ""})
		return
	}

	cover, err := h.coverClient.Lookup(r.Context(), isbn)
	if err != nil {
		if !errors.Is(err, covers.ErrNoCover) && !errors.Is(err, covers.ErrDisabled) {
			logging.CtxErr(r.Context(), err).Str("isbn", isbn).Msg("cover lookup failed")
		}
		rw.Success(map[string]string{"isbn": isbn, "coverUrl": ""})
		return
	}
	rw.Success(map[string]string{"isbn": cover.ISBN, "coverUrl": cover.URL})
}

// SearchBooks queries Google Books for titles to import. The upstream
// integration is optional; with it disabled the endpoint reports 503
// rather than pretending the catalog has no matches.
//
// @Summary Search Google Books
// @Description Queries the Google Books volumes API for titles to import. Results carry the upstream volume shape.
// @Tags Books
// @Produce json
// @Param q query string true "Search query"
// @Success 200 {object} APIResponse{data=[]search.Result} "Matching volumes"
// @Failure 400 {object} APIResponse "Missing search query"
// @Failure 503 {object} APIResponse "Search integration disabled or upstream unavailable"
// @Router /books/search [get]
func (h *Handlers) SearchBooks(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		rw.BadRequest("Search query is required")
		return
	}

	if !h.searchClient.Enabled() {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Book search is not available")
		return
	}

	results, err := h.searchClient.Search(r.Context(), query)
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("query", query).Msg("book search failed")
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Book search is not available")
		return
	}
	rw.Success(results)
}

// ImportBook converts a Google Books volume into a catalog entry. The
// body is the volume as returned by SearchBooks. Imports run through
// the same commit-then-announce path as CreateBook, so connected
// clients see imported books the moment they land.
//
// @Summary Import a book from Google Books
// @Description Converts a Google Books volume into a catalog entry and broadcasts book:created. Duplicate volumes, matched by ISBN or by title, author and year, are rejected.
// @Tags Books
// @Accept json
// @Produce json
// @Param volume body search.Result true "Google Books volume as returned by the search endpoint"
// @Success 201 {object} APIResponse{data=models.Book} "Book imported"
// @Failure 400 {object} APIResponse "Invalid volume payload"
// @Failure 409 {object} APIResponse "Book already exists in catalog"
// @Security BearerAuth
// @Router /books/import [post]
func (h *Handlers) ImportBook(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var volume search.Result
	if err := json.NewDecoder(r.Body).Decode(&volume); err != nil {
		rw.BadRequest("Invalid JSON request body")
		return
	}

	candidate := search.BookFromResult(volume)

	existing, err := h.findDuplicate(r, &candidate)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if existing != nil {
		rw.ErrorWithDetails(http.StatusConflict, ErrCodeConflict,
			"Book already exists in catalog", map[string]interface{}{"existingBook": existing})
		return
	}

	book, err := h.store.CreateBook(r.Context(), &candidate)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	metrics.RecordBookOperation("import")
	h.mirrorBook(r, book)
	h.publisher.BookCreated(book)
	rw.Created(book)
}

// findDuplicate scans the catalog for an entry matching the candidate
// by ISBN, or by title and author (case-insensitive) in the same year.
func (h *Handlers) findDuplicate(r *http.Request, candidate *models.Book) (*models.Book, error) {
	books, err := h.store.ListBooks(r.Context())
	if err != nil {
		return nil, err
	}

	title := strings.ToLower(strings.TrimSpace(candidate.Title))
	author := strings.ToLower(strings.TrimSpace(candidate.Author))
	for _, b := range books {
		if candidate.ISBN != "" && b.ISBN == candidate.ISBN {
			return b, nil
		}
		if strings.ToLower(strings.TrimSpace(b.Title)) == title &&
			strings.ToLower(strings.TrimSpace(b.Author)) == author &&
			b.Year == candidate.Year {
			return b, nil
		}
	}
	return nil, nil
}

// mirrorBook copies the committed book into the analytics database.
// The mirror is best-effort: Badger is the source of truth and an
// analytics failure never fails a storefront request.
func (h *Handlers) mirrorBook(r *http.Request, book *models.Book) {
	if h.analytics == nil {
		return
	}
	if err := h.analytics.RecordBook(r.Context(), book); err != nil {
		logging.CtxErr(r.Context(), err).Msg("failed to mirror book to analytics")
	}
}
