// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/bookhubhq/bookhub/internal/models"
	"github.com/bookhubhq/bookhub/internal/validation"
)

// SignupRequest creates a new storefront account.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateBookRequest adds a book to the catalog.
type CreateBookRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Author      string `json:"author" validate:"required,min=1,max=120"`
	Genre       string `json:"genre" validate:"required,min=1,max=60"`
	Year        int    `json:"year" validate:"required,min=1000,max=2100"`
	Price       int    `json:"price" validate:"required,min=1"`
	ISBN        string `json:"isbn" validate:"omitempty,isbn"`
	CoverURL    string `json:"coverUrl" validate:"omitempty,url"`
	Description string `json:"description" validate:"max=2000"`
	Stock       int    `json:"stock" validate:"min=0"`
}

// Book builds the model from the request. Identity and timestamps are
// assigned by the store.
func (r *CreateBookRequest) Book() *models.Book {
	return &models.Book{
		Title:       r.Title,
		Author:      r.Author,
		Genre:       r.Genre,
		Year:        r.Year,
		Price:       r.Price,
		ISBN:        r.ISBN,
		CoverURL:    r.CoverURL,
		Description: r.Description,
		Stock:       r.Stock,
	}
}

// UpdateBookRequest carries a partial catalog update. Absent fields
// leave the stored values untouched.
type UpdateBookRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Author      *string `json:"author" validate:"omitempty,min=1,max=120"`
	Genre       *string `json:"genre" validate:"omitempty,min=1,max=60"`
	Year        *int    `json:"year" validate:"omitempty,min=1000,max=2100"`
	Price       *int    `json:"price" validate:"omitempty,min=1"`
	ISBN        *string `json:"isbn" validate:"omitempty,isbn"`
	CoverURL    *string `json:"coverUrl" validate:"omitempty,url"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Stock       *int    `json:"stock" validate:"omitempty,min=0"`
}

// Patch converts the request to a store patch.
func (r *UpdateBookRequest) Patch() *models.BookPatch {
	return &models.BookPatch{
		Title:       r.Title,
		Author:      r.Author,
		Genre:       r.Genre,
		Year:        r.Year,
		Price:       r.Price,
		ISBN:        r.ISBN,
		CoverURL:    r.CoverURL,
		Description: r.Description,
		Stock:       r.Stock,
	}
}

// UpdateUserRequest carries an admin account edit. A present password
// is re-hashed before storage.
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// CreateOrderRequest places an order for a single book. Title and
// amount are taken from the stored book, never from the client.
type CreateOrderRequest struct {
	BookID       string `json:"bookId" validate:"required"`
	CustomerName string `json:"customerName" validate:"required,min=2,max=100"`
}

// UpdateOrderStatusRequest moves an order through its lifecycle.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,orderstatus"`
}

// UpdateSettingsRequest carries a partial settings update.
type UpdateSettingsRequest struct {
	StoreName               *string `json:"storeName" validate:"omitempty,min=1,max=100"`
	StoreEmail              *string `json:"storeEmail" validate:"omitempty,email"`
	StorePhone              *string `json:"storePhone" validate:"omitempty,min=5,max=20"`
	EmailNotifications      *bool   `json:"emailNotifications"`
	OrderNotifications      *bool   `json:"orderNotifications"`
	LowStockAlerts          *bool   `json:"lowStockAlerts"`
	NewArrivalDuration      *int    `json:"newArrivalDuration" validate:"omitempty,min=1,max=365"`
	NewArrivalUnit          *string `json:"newArrivalUnit" validate:"omitempty,timeunit"`
	RecentlyUpdatedDuration *int    `json:"recentlyUpdatedDuration" validate:"omitempty,min=1,max=365"`
	RecentlyUpdatedUnit     *string `json:"recentlyUpdatedUnit" validate:"omitempty,timeunit"`
}

// Patch converts the request to a settings patch.
func (r *UpdateSettingsRequest) Patch() *models.SettingsPatch {
	return &models.SettingsPatch{
		StoreName:               r.StoreName,
		StoreEmail:              r.StoreEmail,
		StorePhone:              r.StorePhone,
		EmailNotifications:      r.EmailNotifications,
		OrderNotifications:      r.OrderNotifications,
		LowStockAlerts:          r.LowStockAlerts,
		NewArrivalDuration:      r.NewArrivalDuration,
		NewArrivalUnit:          r.NewArrivalUnit,
		RecentlyUpdatedDuration: r.RecentlyUpdatedDuration,
		RecentlyUpdatedUnit:     r.RecentlyUpdatedUnit,
	}
}

// UpdateCartRequest replaces the caller's cart contents.
type UpdateCartRequest struct {
	Items []CartItemRequest `json:"items" validate:"dive"`
}

// CartItemRequest is one cart line.
type CartItemRequest struct {
	ID       string `json:"id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Author   string `json:"author"`
	Price    int    `json:"price" validate:"min=0"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=99"`
	CoverURL string `json:"coverUrl"`
}

// decodeAndValidate unmarshals the request body into dst and runs
// struct validation. On failure it writes the error response and
// reports false; handlers just return.
func decodeAndValidate(rw *ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rw.BadRequest("Invalid JSON request body")
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}
