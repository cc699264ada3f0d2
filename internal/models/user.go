// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package models

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a storefront account. PasswordHash is a bcrypt hash and is
// never serialized to API responses.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Cart         []CartItem `json:"cart"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// UserPatch is a partial account update. Nil fields are left
// untouched. PasswordHash must already be a bcrypt hash.
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// CartItem is a book reference held in a user's cart.
type CartItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Price    int    `json:"price"`
	Quantity int    `json:"quantity"`
	CoverURL string `json:"coverUrl,omitempty"`
}
