// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package authz enforces role-based access control on API resources
// using Casbin.
//
// The model is embedded and the policy set is loaded programmatically
// at startup: BookHub has exactly two roles (user, admin) and the
// permission matrix is part of the application, not deployment
// configuration. Admin inherits everything the user role can do.
package authz

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/bookhubhq/bookhub/internal/models"
)

//go:embed model.conf
var embeddedModel string

// Resources known to the permission matrix.
const (
	ResourceBooks     = "books"
	ResourceUsers     = "users"
	ResourceOrders    = "orders"
	ResourceSettings  = "settings"
	ResourceDashboard = "dashboard"
	ResourceCovers    = "covers"
)

// Actions on resources.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
	// ActionManage covers back-office operations on a resource, like
	// moving any customer's order through its lifecycle or exporting
	// the full order ledger.
	ActionManage = "manage"
)

// Enforcer wraps the Casbin enforcer with the storefront permission
// matrix preloaded.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// policyRules is the complete permission matrix. The user role covers
// the storefront; admin additionally manages the catalog, accounts,
// settings and dashboards. Ownership checks on orders (a user only
// sees their own) stay in the handlers since they need row data.
var policyRules = [][3]string{
	{models.RoleUser, ResourceBooks, ActionRead},
	{models.RoleUser, ResourceCovers, ActionRead},
	{models.RoleUser, ResourceOrders, ActionRead},
	{models.RoleUser, ResourceOrders, ActionWrite},
	{models.RoleUser, ResourceSettings, ActionRead},

	{models.RoleAdmin, ResourceBooks, ActionWrite},
	{models.RoleAdmin, ResourceBooks, ActionDelete},
	{models.RoleAdmin, ResourceUsers, ActionRead},
	{models.RoleAdmin, ResourceUsers, ActionWrite},
	{models.RoleAdmin, ResourceUsers, ActionDelete},
	{models.RoleAdmin, ResourceOrders, ActionManage},
	{models.RoleAdmin, ResourceOrders, ActionDelete},
	{models.RoleAdmin, ResourceSettings, ActionWrite},
	{models.RoleAdmin, ResourceDashboard, ActionRead},
}

// NewEnforcer builds the enforcer from the embedded model and the
// compiled-in policy set.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	for _, rule := range policyRules {
		if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return nil, fmt.Errorf("failed to add policy %v: %w", rule, err)
		}
	}
	// Admin inherits every user permission.
	if _, err := enforcer.AddGroupingPolicy(models.RoleAdmin, models.RoleUser); err != nil {
		return nil, fmt.Errorf("failed to add role inheritance: %w", err)
	}

	return &Enforcer{enforcer: enforcer}, nil
}

// Enforce checks whether the role may perform the action on the
// resource.
func (e *Enforcer) Enforce(role, resource, action string) (bool, error) {
	allowed, err := e.enforcer.Enforce(role, resource, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}
