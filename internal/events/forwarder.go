// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package events

import (
	"context"
	"fmt"

	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/models"
)

// Broadcaster receives decoded catalog events for fan-out. The
// realtime hub implements it.
type Broadcaster interface {
	BroadcastEvent(event *models.ChangeEvent)
}

// Forwarder subscribes to the catalog topic and hands each event to
// the broadcaster. It is the only consumer of the bus and runs as a
// supervised service.
type Forwarder struct {
	bus *Bus
	hub Broadcaster
}

// NewForwarder creates a forwarder delivering bus events to hub.
func NewForwarder(bus *Bus, hub Broadcaster) *Forwarder {
	return &Forwarder{bus: bus, hub: hub}
}

// Run consumes the catalog topic until the context is canceled or the
// bus closes. Messages that fail to decode are acked and skipped: a
// malformed event must not wedge the stream behind it.
func (f *Forwarder) Run(ctx context.Context) error {
	messages, err := f.bus.Subscriber().Subscribe(ctx, TopicCatalogEvents)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicCatalogEvents, err)
	}

	for {
		select {
		case <-ctx.Done():
			logging.Info().
				Str("component", "event-forwarder").
				Msg("event forwarder stopped")
			return ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				logging.Info().
					Str("component", "event-forwarder").
					Msg("event bus closed, forwarder stopping")
				return nil
			}

			name := msg.Metadata.Get(metadataEvent)
			event, err := models.DecodeChangeEvent(name, msg.Payload)
			if err != nil {
				logging.Warn().Err(err).Str("event", name).Msg("skipping undecodable catalog event")
				msg.Ack()
				continue
			}

			f.hub.BroadcastEvent(event)
			msg.Ack()
		}
	}
}
