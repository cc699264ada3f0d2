// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package services

import (
	"context"
)

// ContextRunner matches the hub's RunWithContext method without
// importing the realtime package.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// HubService supervises the realtime session hub. RunWithContext
// already follows the suture.Service pattern, so this wrapper only
// contributes a stable name for logs.
type HubService struct {
	hub  ContextRunner
	name string
}

// NewHubService wraps a session hub for supervision.
func NewHubService(hub ContextRunner) *HubService {
	return &HubService{
		hub:  hub,
		name: "realtime-hub",
	}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String identifies the service in suture's logs.
func (s *HubService) String() string {
	return s.name
}
