// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package events carries committed catalog mutations from the API
// layer to the realtime hub over an in-process Watermill channel.
//
// The indirection keeps the HTTP handlers free of hub wiring: a
// handler publishes the change and returns, and the forwarder delivers
// it to whichever broadcaster is attached. It also gives the broadcast
// path a buffer, so a burst of admin mutations never blocks a request
// handler on fan-out.
package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// TopicCatalogEvents is the bus topic for committed catalog changes.
const TopicCatalogEvents = "catalog.events"

// Bus is the in-process pub/sub channel connecting publishers to the
// forwarder.
type Bus struct {
	ch *gochannel.GoChannel
}

// NewBus creates an in-process bus. Messages are not persisted: a
// change event only matters to clients connected when it happens, and
// reconnecting clients refetch the catalog anyway.
func NewBus() *Bus {
	return &Bus{
		ch: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, NewLoggerAdapter()),
	}
}

// Publisher returns the bus's publish side.
func (b *Bus) Publisher() message.Publisher {
	return b.ch
}

// Subscriber returns the bus's subscribe side.
func (b *Bus) Subscriber() message.Subscriber {
	return b.ch
}

// Close shuts the bus down, closing all subscriber channels.
func (b *Bus) Close() error {
	return b.ch.Close()
}
