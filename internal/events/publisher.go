// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/models"
)

// metadataEvent carries the wire event name on the bus message so the
// forwarder can decode without sniffing the payload.
const metadataEvent = "event"

// Publisher publishes committed catalog changes to the bus.
//
// A nil Publisher is valid and drops events with a warning. This keeps
// the API layer functional before the realtime stack is wired up, and
// in tests that exercise handlers without a hub.
type Publisher struct {
	pub message.Publisher
}

// NewPublisher creates a publisher bound to the bus.
func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{pub: bus.Publisher()}
}

// PublishChange serializes a change event and publishes it. Publishing
// happens after the store commit, so dropping an event here can only
// delay clients until their next refetch, never corrupt state.
func (p *Publisher) PublishChange(event *models.ChangeEvent) {
	if p == nil || p.pub == nil {
		logging.Warn().Msg("cannot broadcast, realtime channel not initialized")
		return
	}

	payload, err := event.MarshalPayload()
	if err != nil {
		logging.Error().Err(err).Str("event", event.EventName()).Msg("failed to serialize catalog event")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataEvent, event.EventName())

	if err := p.pub.Publish(TopicCatalogEvents, msg); err != nil {
		logging.Error().Err(err).Str("event", event.EventName()).Msg("failed to publish catalog event")
	}
}

// BookCreated publishes a creation event for the given book.
func (p *Publisher) BookCreated(book *models.Book) {
	p.PublishChange(models.NewBookCreated(book))
}

// BookUpdated publishes an update event for the given book.
func (p *Publisher) BookUpdated(book *models.Book) {
	p.PublishChange(models.NewBookUpdated(book))
}

// BookDeleted publishes a tombstone event for a deleted book.
func (p *Publisher) BookDeleted(id, title, author string) {
	p.PublishChange(models.NewBookDeleted(id, title, author))
}
