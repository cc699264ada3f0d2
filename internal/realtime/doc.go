// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

/*
Package realtime fans committed catalog changes out to connected
storefront clients over long-polling and websocket transports.

Key Components:

  - Hub: Central broker that owns the session table and broadcasts
  - Session: One client's subscription, identified by an opaque id
  - Conn: A websocket binding for an upgraded session

Architecture:

The package implements a hub-and-spoke pattern with a transport split:

	┌──────────┐
	│   Hub    │ ← Broadcasts to all sessions
	└────┬─────┘
	     │
	┌────┴────────┬──────────────┐
	│             │              │
	│ Session A   │ Session B    │ Session C
	│ (polling)   │ (websocket)  │ (polling)

Every session starts on long-polling: the handshake request returns a
session id plus a connection:success envelope, and subsequent polls
drain the session's buffer, waiting up to the configured window for
the first event. A session may upgrade to websocket exactly once; the
buffer carries over so no event is lost across the switch.

Sessions are evicted when their send buffer overflows (client stopped
draining), when a polling client goes quiet past the session timeout,
or when the hub shuts down. An evicted session id answers 410 Gone and
the client must re-handshake.
*/
package realtime
