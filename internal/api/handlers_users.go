// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookhubhq/bookhub/internal/auth"
	"github.com/bookhubhq/bookhub/internal/models"
	"github.com/bookhubhq/bookhub/internal/store"
)

// ListUsers returns every account. Admin only.
//
// @Summary List accounts
// @Tags Users
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.User} "Accounts retrieved"
// @Security BearerAuth
// @Router /users [get]
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(users)
}

// GetUser returns a single account by ID. Admin only.
//
// @Summary Get an account
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} APIResponse{data=models.User} "Account retrieved"
// @Failure 404 {object} APIResponse "User not found"
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	user, err := h.store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("User not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(user)
}

// UpdateUser edits an account's name, email or password. Admin only.
// A supplied password arrives in the clear and is hashed here; the
// store never sees plaintext.
//
// @Summary Update an account
// @Description Edits an account's name, email or password. Absent fields keep their stored values.
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param patch body UpdateUserRequest true "Fields to change"
// @Success 200 {object} APIResponse{data=models.User} "Account updated"
// @Failure 404 {object} APIResponse "User not found"
// @Failure 409 {object} APIResponse "Email already registered"
// @Security BearerAuth
// @Router /users/{id} [put]
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req UpdateUserRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	patch := models.UserPatch{Name: req.Name, Email: req.Email}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			rw.InternalError("Failed to process password")
			return
		}
		patch.PasswordHash = &hash
	}

	user, err := h.store.UpdateUser(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			rw.NotFound("User not found")
		case errors.Is(err, store.ErrEmailTaken):
			rw.Conflict("Email is already registered")
		default:
			rw.DatabaseError(err)
		}
		return
	}
	rw.Success(user)
}

// DeleteUser removes an account. Admins cannot delete themselves, which
// keeps at least one working admin login around.
//
// @Summary Delete an account
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} APIResponse "Account deleted"
// @Failure 400 {object} APIResponse "Cannot delete your own account"
// @Failure 404 {object} APIResponse "User not found"
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	claims := ClaimsFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if id == claims.UserID {
		rw.BadRequest("Cannot delete your own account")
		return
	}

	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("User not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(map[string]bool{"success": true})
}

// UpdateCart replaces the calling user's cart wholesale. The client
// owns cart state; the server just persists the latest snapshot.
//
// @Summary Replace the caller's cart
// @Tags Users
// @Accept json
// @Produce json
// @Param cart body UpdateCartRequest true "Cart contents"
// @Success 200 {object} APIResponse{data=models.User} "Cart updated"
// @Failure 400 {object} APIResponse "Validation failed"
// @Security BearerAuth
// @Router /users/me/cart [put]
func (h *Handlers) UpdateCart(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	claims := ClaimsFromContext(r.Context())

	var req UpdateCartRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	cart := make([]models.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		cart = append(cart, models.CartItem{
			ID:       item.ID,
			Title:    item.Title,
			Author:   item.Author,
			Price:    item.Price,
			Quantity: item.Quantity,
			CoverURL: item.CoverURL,
		})
	}

	user, err := h.store.UpdateUserCart(r.Context(), claims.UserID, cart)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("User not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(user)
}
