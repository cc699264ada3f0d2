// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package client

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// fakeServer speaks the realtime transport contract with knobs for
// failure injection: it can refuse handshakes, kill sessions, and
// serve or decline the websocket upgrade.
type fakeServer struct {
	srv *httptest.Server

	mu        sync.Mutex
	sessions  map[string]chan wireMessage
	nextID    int
	failPolls atomic.Int32 // handshakes/polls to fail with 500
	allowWS   bool
}

func newFakeServer(t *testing.T, allowWS bool) *fakeServer {
	t.Helper()

	f := &fakeServer{
		sessions: make(map[string]chan wireMessage),
		allowWS:  allowWS,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/rt/poll", f.handlePoll)
	mux.HandleFunc("/api/v1/rt/ws", f.handleWS)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) url() string { return f.srv.URL }

func (f *fakeServer) openSession() (string, chan wireMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sid := fmt.Sprintf("sess-%d", f.nextID)
	ch := make(chan wireMessage, 32)
	f.sessions[sid] = ch
	return sid, ch
}

func (f *fakeServer) session(sid string) (chan wireMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.sessions[sid]
	return ch, ok
}

// killSessions drops every session so later polls get 410.
func (f *fakeServer) killSessions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = make(map[string]chan wireMessage)
}

// broadcast queues an event on every session.
func (f *fakeServer) broadcast(event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.sessions {
		ch <- wireMessage{Event: event, Data: data}
	}
}

func (f *fakeServer) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func connectionSuccessMessage(sid string) wireMessage {
	data, _ := json.Marshal(connectionSuccess{
		ID:        sid,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   "Real-time connection established",
	})
	return wireMessage{Event: "connection:success", Data: data}
}

func (f *fakeServer) handlePoll(w http.ResponseWriter, r *http.Request) {
	if f.failPolls.Load() != 0 {
		f.failPolls.Add(-1)
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	sid := r.URL.Query().Get("sid")
	if sid == "" {
		newSID, _ := f.openSession()
		writeBatchJSON(w, []wireMessage{connectionSuccessMessage(newSID)})
		return
	}

	ch, ok := f.session(sid)
	if !ok {
		http.Error(w, "gone", http.StatusGone)
		return
	}
	select {
	case msg := <-ch:
		writeBatchJSON(w, []wireMessage{msg})
	case <-time.After(50 * time.Millisecond):
		writeBatchJSON(w, []wireMessage{})
	case <-r.Context().Done():
		writeBatchJSON(w, []wireMessage{})
	}
}

func (f *fakeServer) handleWS(w http.ResponseWriter, r *http.Request) {
	if !f.allowWS {
		http.Error(w, "no upgrade", http.StatusNotFound)
		return
	}

	sid := r.URL.Query().Get("sid")
	var ch chan wireMessage
	var first *wireMessage
	if sid == "" {
		newSID, newCh := f.openSession()
		ch = newCh
		msg := connectionSuccessMessage(newSID)
		first = &msg
	} else {
		existing, ok := f.session(sid)
		if !ok {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		ch = existing
	}

	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = ws.Close() }()

	if first != nil {
		_ = ws.WriteJSON(first)
	}

	// Reader goroutine: its exit means the client hung up.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-ch:
			if err := ws.WriteJSON(msg); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

func writeBatchJSON(w http.ResponseWriter, batch []wireMessage) {
	_ = json.NewEncoder(w).Encode(batch)
}

func pollingOptions(url string) Options {
	return Options{
		BaseURL:              url,
		Transports:           []Transport{TransportPolling},
		ReconnectionAttempts: 5,
		ReconnectionDelay:    5 * time.Millisecond,
		ReconnectionDelayMax: 20 * time.Millisecond,
		DialTimeout:          time.Second,
	}
}

func TestChannel_PollingHandshake(t *testing.T) {
	t.Parallel()

	server := newFakeServer(t, false)
	ch, err := newChannel(pollingOptions(server.url()))
	if err != nil {
		t.Fatalf("newChannel() error = %v", err)
	}
	defer ch.close()

	if ch.Session() == "" {
		t.Error("Session() is empty after handshake")
	}
	if ch.Transport() != TransportPolling {
		t.Errorf("Transport() = %v, want polling", ch.Transport())
	}
	if !ch.Connected() {
		t.Error("Connected() = false after handshake")
	}
}

func TestChannel_HandshakeFailure(t *testing.T) {
	t.Parallel()

	server := newFakeServer(t, false)
	server.failPolls.Store(1)

	if _, err := newChannel(pollingOptions(server.url())); err == nil {
		t.Fatal("newChannel() succeeded against failing server")
	}
}

func TestChannel_ReceivesEvents(t *testing.T) {
	t.Parallel()

	server := newFakeServer(t, false)
	ch, err := newChannel(pollingOptions(server.url()))
	if err != nil {
		t.Fatalf("newChannel() error = %v", err)
	}
	defer ch.close()

	got := make(chan string, 1)
	ch.On("book:created", func(data json.RawMessage) {
		var book struct {
			Title string `json:"title"`
		}
		_ = json.Unmarshal(data, &book)
		got <- book.Title
	})

	server.broadcast("book:created", map[string]string{"title": "Solaris"})

	select {
	case title := <-got:
		if title != "Solaris" {
			t.Errorf("title = %q, want Solaris", title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never arrived")
	}
}

func TestChannel_BroadcastReachesEveryChannel(t *testing.T) {
	t.Parallel()

	server := newFakeServer(t, false)

	var channels [2]*Channel
	var got [2]chan string
	for i := range channels {
		ch, err := newChannel(pollingOptions(server.url()))
		if err != nil {
			t.Fatalf("newChannel() error = %v", err)
		}
		defer ch.close()

		titles := make(chan string, 1)
		ch.On("book:created", func(data json.RawMessage) {
			var book struct {
				Title string `json:"title"`
			}
			_ = json.Unmarshal(data, &book)
			titles <- book.Title
		})
		channels[i] = ch
		got[i] = titles
	}

	server.broadcast("book:created", map[string]string{"title": "Hyperion"})

	for i, titles := range got {
		select {
		case title := <-titles:
			if title != "Hyperion" {
				t.Errorf("channel %d title = %q, want Hyperion", i, title)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("channel %d never received the broadcast", i)
		}
	}
}

func TestChannel_UpgradesToWebsocket(t *testing.T) {
	t.Parallel()

	server := newFakeServer(t, true)
	opts := pollingOptions(server.url())
	opts.Transports = []Transport{TransportPolling, TransportWebsocket}

	upgraded := make(chan Transport, 1)
	ch, err := newChannel(opts)
	if err != nil {
		t.Fatalf("newChannel() error = %v", err)
	}
	defer ch.close()
	ch.OnUpgrade(func(tr Transport) { upgraded <- tr })

	// The upgrade happens on the serve goroutine right after connect;
	// poll for the transport switch.
	deadline := time.Now().Add(2 * time.Second)
	for ch.Transport() != TransportWebsocket && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if ch.Transport() != TransportWebsocket {
		t.Fatal("transport never upgraded")
	}

	// Events still flow after the upgrade.
	got := make(chan struct{}, 1)
	ch.On("book:updated", func(json.RawMessage) { got <- struct{}{} })
	server.broadcast("book:updated", map[string]string{"title": "Dune"})
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("event never arrived after upgrade")
	}
}

func TestChannel_WebsocketOnlyHandshake(t *testing.T) {
	t.Parallel()

	server := newFakeServer(t, true)
	opts := pollingOptions(server.url())
	opts.Transports = []Transport{TransportWebsocket}

	ch, err := newChannel(opts)
	if err != nil {
		t.Fatalf("newChannel() error = %v", err)
	}
	defer ch.close()

	if ch.Transport() != TransportWebsocket {
		t.Errorf("Transport() = %v, want websocket", ch.Transport())
	}
	if ch.Session() == "" {
		t.Error("Session() is empty")
	}
}

func TestChannel_ServerDisconnectDoesNotRetry(t *testing.T) {
	t.Parallel()

	server := newFakeServer(t, false)
	ch, err := newChannel(pollingOptions(server.url()))
	if err != nil {
		t.Fatalf("newChannel() error = %v", err)
	}
	defer ch.close()

	reasons := make(chan string, 1)
	var attempts atomic.Int32
	ch.OnDisconnect(func(reason string) { reasons <- reason })
	ch.OnReconnectAttempt(func(int) { attempts.Add(1) })

	server.killSessions()

	select {
	case reason := <-reasons:
		if reason != ReasonServerDisconnect {
			t.Errorf("reason = %q, want %q", reason, ReasonServerDisconnect)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect never fired")
	}

	// Give a would-be retry loop time to show itself.
	time.Sleep(100 * time.Millisecond)
	if attempts.Load() != 0 {
		t.Errorf("reconnect attempted %d times after server disconnect, want 0", attempts.Load())
	}
	if ch.Connected() {
		t.Error("Connected() = true after server disconnect")
	}
}

func TestChannel_ReconnectsAfterTransportFailure(t *testing.T) {
	t.Parallel()

	server := newFakeServer(t, false)
	ch, err := newChannel(pollingOptions(server.url()))
	if err != nil {
		t.Fatalf("newChannel() error = %v", err)
	}
	defer ch.close()
	firstSID := ch.Session()

	reconnected := make(chan int, 1)
	ch.OnReconnect(func(attempt int) { reconnected <- attempt })

	// Two failed polls: one breaks the transport, one eats the first
	// reconnection attempt. The second attempt succeeds.
	server.failPolls.Store(2)

	select {
	case attempt := <-reconnected:
		if attempt != 2 {
			t.Errorf("reconnected on attempt %d, want 2", attempt)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("never reconnected")
	}

	if ch.Session() == firstSID || ch.Session() == "" {
		t.Errorf("session after reconnect = %q, want a fresh id", ch.Session())
	}
	if !ch.Connected() {
		t.Error("Connected() = false after reconnect")
	}
}

func TestChannel_GoesOfflineAfterRetryBudget(t *testing.T) {
	t.Parallel()

	server := newFakeServer(t, false)
	ch, err := newChannel(pollingOptions(server.url()))
	if err != nil {
		t.Fatalf("newChannel() error = %v", err)
	}
	defer ch.close()

	var attempts atomic.Int32
	failed := make(chan struct{}, 1)
	ch.OnReconnectAttempt(func(int) { attempts.Add(1) })
	ch.OnReconnectFailed(func() { failed <- struct{}{} })

	// Break the transport and every subsequent handshake.
	server.failPolls.Store(1000)

	select {
	case <-failed:
	case <-time.After(5 * time.Second):
		t.Fatal("reconnect_failed never fired")
	}
	if got := attempts.Load(); got != 5 {
		t.Errorf("reconnect attempts = %d, want 5", got)
	}
	if !ch.Offline() {
		t.Error("Offline() = false after spent budget")
	}
}

func TestChannel_HealthLateSubscriber(t *testing.T) {
	t.Parallel()

	server := newFakeServer(t, false)
	ch, err := newChannel(pollingOptions(server.url()))
	if err != nil {
		t.Fatalf("newChannel() error = %v", err)
	}
	defer ch.close()

	// Subscribe well after connect; the snapshot must arrive at once.
	snaps, cancel := ch.Health().Subscribe()
	defer cancel()

	select {
	case snap := <-snaps:
		if !snap.Connected || snap.Transport != TransportPolling {
			t.Errorf("snapshot = %+v, want connected polling", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("late subscriber got no snapshot")
	}
}

func TestSingleton_ConnectIsIdempotent(t *testing.T) {
	server := newFakeServer(t, false)
	t.Cleanup(Disconnect)

	first, err := Connect(pollingOptions(server.url()))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	second, err := Connect(pollingOptions("http://ignored.invalid"))
	if err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if first != second {
		t.Error("Connect() returned a different channel")
	}
	if first.Session() != second.Session() {
		t.Errorf("sessions differ: %q vs %q", first.Session(), second.Session())
	}
	if !IsConnected() {
		t.Error("IsConnected() = false with live singleton")
	}

	Disconnect()
	if IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
	if server.sessionCount() == 0 {
		t.Log("sessions cleaned server-side by eviction, not by disconnect")
	}
}

func TestWebsocketURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"http://localhost:5000":  "ws://localhost:5000",
		"https://books.example":  "wss://books.example",
		"ws://already-converted": "ws://already-converted",
	}
	for in, want := range cases {
		if got := websocketURL(in); got != want {
			t.Errorf("websocketURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOptions_Backoff(t *testing.T) {
	t.Parallel()

	opts := Options{}.withDefaults()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := opts.backoff(i + 1); got != w {
			t.Errorf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}
