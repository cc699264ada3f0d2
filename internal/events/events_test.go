// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package events

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// captureBroadcaster records every event it receives.
type captureBroadcaster struct {
	mu     sync.Mutex
	events []*models.ChangeEvent
}

func (c *captureBroadcaster) BroadcastEvent(event *models.ChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureBroadcaster) snapshot() []*models.ChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.ChangeEvent(nil), c.events...)
}

// waitFor polls until the broadcaster holds want events or the
// deadline passes.
func (c *captureBroadcaster) waitFor(t *testing.T, want int) []*models.ChangeEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := c.snapshot(); len(events) >= want {
			return events
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, have %d", want, len(c.snapshot()))
	return nil
}

func setupForwarder(t *testing.T) (*Bus, *Publisher, *captureBroadcaster) {
	t.Helper()

	bus := NewBus()
	capture := &captureBroadcaster{}
	forwarder := NewForwarder(bus, capture)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = forwarder.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = bus.Close()
		<-done
	})
	time.Sleep(10 * time.Millisecond)

	return bus, NewPublisher(bus), capture
}

func TestPublisher_RoundTrip(t *testing.T) {
	_, pub, capture := setupForwarder(t)

	book := &models.Book{
		ID:     "b1",
		Title:  "The Great Gatsby",
		Author: "F. Scott Fitzgerald",
		Genre:  "Fiction",
		Year:   1925,
		Price:  349,
		Stock:  38,
	}

	pub.BookCreated(book)
	pub.BookUpdated(book)
	pub.BookDeleted("b1", "The Great Gatsby", "F. Scott Fitzgerald")

	events := capture.waitFor(t, 3)

	if events[0].Kind != models.ChangeCreated {
		t.Errorf("events[0].Kind = %q, want %q", events[0].Kind, models.ChangeCreated)
	}
	if events[0].Book == nil || events[0].Book.Title != "The Great Gatsby" {
		t.Errorf("created event lost the book: %+v", events[0].Book)
	}

	if events[1].Kind != models.ChangeUpdated {
		t.Errorf("events[1].Kind = %q, want %q", events[1].Kind, models.ChangeUpdated)
	}

	if events[2].Kind != models.ChangeDeleted {
		t.Errorf("events[2].Kind = %q, want %q", events[2].Kind, models.ChangeDeleted)
	}
	tomb := events[2].Tombstone
	if tomb == nil || tomb.ID != "b1" || tomb.Author != "F. Scott Fitzgerald" {
		t.Errorf("unexpected tombstone: %+v", tomb)
	}
}

func TestPublisher_NilIsSafe(t *testing.T) {
	t.Parallel()

	var pub *Publisher
	// Must warn and drop, never panic.
	pub.BookCreated(&models.Book{ID: "b1", Title: "Dune"})
	pub.BookDeleted("b1", "Dune", "Frank Herbert")
	pub.PublishChange(models.NewBookUpdated(&models.Book{ID: "b1"}))
}

func TestForwarder_SkipsUndecodableEvents(t *testing.T) {
	bus, pub, capture := setupForwarder(t)

	// Unknown event name, then garbage payload under a known name.
	bad := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	bad.Metadata.Set(metadataEvent, "book:exploded")
	if err := bus.Publisher().Publish(TopicCatalogEvents, bad); err != nil {
		t.Fatalf("publish bad message: %v", err)
	}

	garbage := message.NewMessage(watermill.NewUUID(), []byte(`not json`))
	garbage.Metadata.Set(metadataEvent, models.EventBookCreated)
	if err := bus.Publisher().Publish(TopicCatalogEvents, garbage); err != nil {
		t.Fatalf("publish garbage message: %v", err)
	}

	pub.BookCreated(&models.Book{ID: "b2", Title: "1984", Author: "George Orwell"})

	events := capture.waitFor(t, 1)
	if len(events) != 1 {
		t.Fatalf("forwarded events = %d, want 1", len(events))
	}
	if events[0].Book == nil || events[0].Book.ID != "b2" {
		t.Errorf("wrong event survived: %+v", events[0])
	}
}

func TestForwarder_StopsWhenBusCloses(t *testing.T) {
	bus := NewBus()
	forwarder := NewForwarder(bus, &captureBroadcaster{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- forwarder.Run(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)

	if err := bus.Close(); err != nil {
		t.Fatalf("bus close: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run after bus close = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not stop after bus close")
	}
}
