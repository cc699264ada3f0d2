// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package services

import (
	"context"

	"github.com/thejerf/suture/v4"
)

// EventForwarder matches the catalog event forwarder's Run method.
type EventForwarder interface {
	Run(ctx context.Context) error
}

// ForwarderService supervises the bus-to-hub event forwarder.
type ForwarderService struct {
	forwarder EventForwarder
	name      string
}

// NewForwarderService wraps an event forwarder for supervision.
func NewForwarderService(f EventForwarder) *ForwarderService {
	return &ForwarderService{
		forwarder: f,
		name:      "event-forwarder",
	}
}

// Serve implements suture.Service. A nil return means the bus closed,
// which only happens during shutdown; restarting would just spin
// against the closed bus, so the service removes itself instead.
func (s *ForwarderService) Serve(ctx context.Context) error {
	if err := s.forwarder.Run(ctx); err != nil {
		return err
	}
	return suture.ErrDoNotRestart
}

// String identifies the service in suture's logs.
func (s *ForwarderService) String() string {
	return s.name
}
