// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package models

import "time"

// Time units accepted by the storefront badge windows.
const (
	UnitSeconds = "seconds"
	UnitMinutes = "minutes"
	UnitHours   = "hours"
	UnitDays    = "days"
	UnitMonths  = "months"
)

// Settings holds the store-wide configuration edited from the admin
// panel. A single row with a fixed ID exists per deployment.
type Settings struct {
	ID                      string    `json:"id"`
	StoreName               string    `json:"storeName"`
	StoreEmail              string    `json:"storeEmail"`
	StorePhone              string    `json:"storePhone"`
	EmailNotifications      bool      `json:"emailNotifications"`
	OrderNotifications      bool      `json:"orderNotifications"`
	LowStockAlerts          bool      `json:"lowStockAlerts"`
	NewArrivalDuration      int       `json:"newArrivalDuration"`
	NewArrivalUnit          string    `json:"newArrivalUnit"`
	RecentlyUpdatedDuration int       `json:"recentlyUpdatedDuration"`
	RecentlyUpdatedUnit     string    `json:"recentlyUpdatedUnit"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

// DefaultSettings returns the settings used before an admin edits
// anything.
func DefaultSettings() *Settings {
	return &Settings{
		ID:                      "default",
		StoreName:               "BookHub",
		StoreEmail:              "contact@bookhub.com",
		StorePhone:              "+91 9876543210",
		EmailNotifications:      true,
		OrderNotifications:      true,
		LowStockAlerts:          true,
		NewArrivalDuration:      30,
		NewArrivalUnit:          UnitDays,
		RecentlyUpdatedDuration: 14,
		RecentlyUpdatedUnit:     UnitDays,
	}
}

// SettingsPatch is a partial settings update. Nil fields are left
// untouched.
type SettingsPatch struct {
	StoreName               *string `json:"storeName,omitempty"`
	StoreEmail              *string `json:"storeEmail,omitempty"`
	StorePhone              *string `json:"storePhone,omitempty"`
	EmailNotifications      *bool   `json:"emailNotifications,omitempty"`
	OrderNotifications      *bool   `json:"orderNotifications,omitempty"`
	LowStockAlerts          *bool   `json:"lowStockAlerts,omitempty"`
	NewArrivalDuration      *int    `json:"newArrivalDuration,omitempty"`
	NewArrivalUnit          *string `json:"newArrivalUnit,omitempty"`
	RecentlyUpdatedDuration *int    `json:"recentlyUpdatedDuration,omitempty"`
	RecentlyUpdatedUnit     *string `json:"recentlyUpdatedUnit,omitempty"`
}

// Apply merges the patch into the settings.
func (p *SettingsPatch) Apply(s *Settings) {
	if p.StoreName != nil {
		s.StoreName = *p.StoreName
	}
	if p.StoreEmail != nil {
		s.StoreEmail = *p.StoreEmail
	}
	if p.StorePhone != nil {
		s.StorePhone = *p.StorePhone
	}
	if p.EmailNotifications != nil {
		s.EmailNotifications = *p.EmailNotifications
	}
	if p.OrderNotifications != nil {
		s.OrderNotifications = *p.OrderNotifications
	}
	if p.LowStockAlerts != nil {
		s.LowStockAlerts = *p.LowStockAlerts
	}
	if p.NewArrivalDuration != nil {
		s.NewArrivalDuration = *p.NewArrivalDuration
	}
	if p.NewArrivalUnit != nil {
		s.NewArrivalUnit = *p.NewArrivalUnit
	}
	if p.RecentlyUpdatedDuration != nil {
		s.RecentlyUpdatedDuration = *p.RecentlyUpdatedDuration
	}
	if p.RecentlyUpdatedUnit != nil {
		s.RecentlyUpdatedUnit = *p.RecentlyUpdatedUnit
	}
}

// ValidTimeUnit reports whether u is a recognized badge window unit.
func ValidTimeUnit(u string) bool {
	switch u {
	case UnitSeconds, UnitMinutes, UnitHours, UnitDays, UnitMonths:
		return true
	}
	return false
}
