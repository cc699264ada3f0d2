// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package api

import (
	"net/http"
)

// GetSettings returns the store configuration. Readable by any
// authenticated user so the storefront can render currency and
// availability windows.
//
// @Summary Get store settings
// @Tags Settings
// @Produce json
// @Success 200 {object} APIResponse{data=models.Settings} "Settings retrieved"
// @Security BearerAuth
// @Router /settings [get]
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(settings)
}

// UpdateSettings applies a partial settings update. Admin only.
//
// @Summary Update store settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param patch body UpdateSettingsRequest true "Fields to change"
// @Success 200 {object} APIResponse{data=models.Settings} "Settings updated"
// @Failure 400 {object} APIResponse "Validation failed"
// @Security BearerAuth
// @Router /settings [put]
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req UpdateSettingsRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	settings, err := h.store.UpdateSettings(r.Context(), req.Patch())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(settings)
}
