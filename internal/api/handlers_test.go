// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bookhubhq/bookhub/internal/auth"
	"github.com/bookhubhq/bookhub/internal/authz"
	"github.com/bookhubhq/bookhub/internal/config"
	"github.com/bookhubhq/bookhub/internal/events"
	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/models"
	"github.com/bookhubhq/bookhub/internal/realtime"
	"github.com/bookhubhq/bookhub/internal/search"
	"github.com/bookhubhq/bookhub/internal/store"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

const testAdminPassword = "correct-horse-battery"

// testEnv is a fully wired API: in-memory store, running hub, event
// bus with forwarder, no analytics or cover client.
type testEnv struct {
	srv   *httptest.Server
	store *store.Store
	hub   *realtime.Hub
}

func setupAPI(t *testing.T) *testEnv {
	return setupAPIWith(t, nil)
}

func setupAPIWith(t *testing.T, searchClient *search.Client) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Store = config.StoreConfig{InMemory: true}
	cfg.Security = config.SecurityConfig{
		JWTSecret:         "api-test-secret-with-enough-length!!",
		SessionTimeout:    time.Hour,
		AdminEmail:        "admin@example.com",
		AdminPassword:     testAdminPassword,
		RateLimitDisabled: true,
		CORSOrigins:       []string{"*"},
	}
	cfg.Realtime = config.RealtimeConfig{
		PollWindow:      150 * time.Millisecond,
		SessionTimeout:  time.Second,
		SendBuffer:      16,
		BroadcastBuffer: 64,
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	authSvc, err := auth.NewService(st, &cfg.Security)
	if err != nil {
		t.Fatalf("auth.NewService() error = %v", err)
	}
	if err := authSvc.EnsureAdmin(context.Background(), &cfg.Security); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		t.Fatalf("authz.NewEnforcer() error = %v", err)
	}

	bus := events.NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	hub := realtime.NewHub(cfg.Realtime)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()
	go func() { _ = events.NewForwarder(bus, hub).Run(ctx) }()

	handlers := NewHandlers(cfg, st, authSvc, enforcer, events.NewPublisher(bus), hub, nil, nil, searchClient)
	srv := httptest.NewServer(NewRouter(handlers).Setup())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: st, hub: hub}
}

// do issues a JSON request, optionally with a bearer token.
func (env *testEnv) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, env.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// decodeData unmarshals the envelope's data field into out, failing the
// test if the response was not successful.
func decodeData(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("response not successful: %+v", envelope.Error)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func (env *testEnv) loginAdmin(t *testing.T) string {
	t.Helper()
	return env.login(t, "admin@example.com", testAdminPassword)
}

func (env *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	var data struct {
		Token string `json:"token"`
	}
	decodeData(t, resp, &data)
	return data.Token
}

func (env *testEnv) signup(t *testing.T, name, email, password string) string {
	t.Helper()

	resp := env.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, want 201", resp.StatusCode)
	}
	var data struct {
		Token string `json:"token"`
	}
	decodeData(t, resp, &data)
	return data.Token
}

// poll issues one long-poll request and returns the decoded batch.
func (env *testEnv) poll(t *testing.T, sid string) ([]realtime.Message, int) {
	t.Helper()

	path := "/api/v1/rt/poll"
	if sid != "" {
		path += "?sid=" + sid
	}
	resp := env.do(t, http.MethodGet, path, "", nil)
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode
	}
	var batch []realtime.Message
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		t.Fatalf("decode poll batch: %v", err)
	}
	return batch, resp.StatusCode
}

// handshake opens a polling session and returns its id.
func (env *testEnv) handshake(t *testing.T) string {
	t.Helper()

	batch, status := env.poll(t, "")
	if status != http.StatusOK {
		t.Fatalf("handshake status = %d, want 200", status)
	}
	if len(batch) == 0 || batch[0].Event != models.EventConnectionSuccess {
		t.Fatalf("handshake batch = %+v, want connection:success first", batch)
	}
	payload, ok := batch[0].Data.(map[string]interface{})
	if !ok {
		t.Fatalf("connection:success payload type = %T", batch[0].Data)
	}
	sid, _ := payload["id"].(string)
	if sid == "" {
		t.Fatal("connection:success payload has no session id")
	}
	return sid
}

// pollUntil polls the session until an event with the given name
// arrives or the deadline passes.
func (env *testEnv) pollUntil(t *testing.T, sid, event string) realtime.Message {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		batch, status := env.poll(t, sid)
		if status != http.StatusOK {
			t.Fatalf("poll status = %d, want 200", status)
		}
		for _, msg := range batch {
			if msg.Event == event {
				return msg
			}
		}
	}
	t.Fatalf("event %q never arrived on session %s", event, sid)
	return realtime.Message{}
}

func TestHealthLive(t *testing.T) {
	env := setupAPI(t)

	resp := env.do(t, http.MethodGet, "/api/v1/health/live", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSignupLoginMe(t *testing.T) {
	env := setupAPI(t)

	token := env.signup(t, "Reader One", "reader@example.com", "shelf-space-8")

	resp := env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d, want 200", resp.StatusCode)
	}
	var user models.User
	decodeData(t, resp, &user)
	if user.Email != "reader@example.com" || user.Role != models.RoleUser {
		t.Errorf("me = %s/%s, want reader@example.com/user", user.Email, user.Role)
	}
}

func TestMeWithoutTokenUnauthorized(t *testing.T) {
	env := setupAPI(t)

	resp := env.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := setupAPI(t)
	token := env.signup(t, "Reader Two", "leaver@example.com", "shelf-space-8")

	resp := env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout status = %d, want 401", resp.StatusCode)
	}
}

func TestBookWritesRequireAdmin(t *testing.T) {
	env := setupAPI(t)
	userToken := env.signup(t, "Plain User", "plain@example.com", "shelf-space-8")

	book := map[string]interface{}{
		"title": "Forbidden Tome", "author": "Nobody", "genre": "Horror",
		"year": 2020, "price": 999, "stock": 3,
	}

	resp := env.do(t, http.MethodPost, "/api/v1/books/", userToken, book)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user create book status = %d, want 403", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/books/", "", book)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous create book status = %d, want 401", resp.StatusCode)
	}
}

func TestBookLifecycleBroadcasts(t *testing.T) {
	env := setupAPI(t)
	admin := env.loginAdmin(t)
	sid := env.handshake(t)

	// Create.
	resp := env.do(t, http.MethodPost, "/api/v1/books/", admin, map[string]interface{}{
		"title": "The Left Hand of Darkness", "author": "Ursula K. Le Guin",
		"genre": "Sci-Fi", "year": 1969, "price": 1499, "stock": 12,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var created models.Book
	decodeData(t, resp, &created)
	if created.ID == "" {
		t.Fatal("created book has no id")
	}

	msg := env.pollUntil(t, sid, models.EventBookCreated)
	payload, _ := msg.Data.(map[string]interface{})
	if payload["title"] != "The Left Hand of Darkness" {
		t.Errorf("book:created title = %v", payload["title"])
	}
	if _, hasCamel := payload["createdAt"]; !hasCamel {
		t.Error("book:created payload missing camelCase createdAt")
	}

	// Update.
	resp = env.do(t, http.MethodPut, "/api/v1/books/"+created.ID, admin, map[string]interface{}{
		"price": 1299,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want 200", resp.StatusCode)
	}
	msg = env.pollUntil(t, sid, models.EventBookUpdated)
	payload, _ = msg.Data.(map[string]interface{})
	if price, _ := payload["price"].(float64); int(price) != 1299 {
		t.Errorf("book:updated price = %v, want 1299", payload["price"])
	}

	// Delete carries a tombstone, not the full book.
	resp = env.do(t, http.MethodDelete, "/api/v1/books/"+created.ID, admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}
	msg = env.pollUntil(t, sid, models.EventBookDeleted)
	payload, _ = msg.Data.(map[string]interface{})
	if payload["id"] != created.ID {
		t.Errorf("book:deleted id = %v, want %s", payload["id"], created.ID)
	}
	if _, hasPrice := payload["price"]; hasPrice {
		t.Error("book:deleted payload should be a tombstone without price")
	}
}

func TestRejectedWriteEmitsNoEvent(t *testing.T) {
	env := setupAPI(t)
	admin := env.loginAdmin(t)
	sid := env.handshake(t)

	// Validation failure: price below minimum.
	resp := env.do(t, http.MethodPost, "/api/v1/books/", admin, map[string]interface{}{
		"title": "Free Book", "author": "A", "genre": "G", "year": 2020, "price": 0,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid create status = %d, want 400", resp.StatusCode)
	}

	// Unknown id: no tombstone may be fabricated.
	resp = env.do(t, http.MethodDelete, "/api/v1/books/no-such-book", admin, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete missing status = %d, want 404", resp.StatusCode)
	}

	batch, status := env.poll(t, sid)
	if status != http.StatusOK {
		t.Fatalf("poll status = %d, want 200", status)
	}
	if len(batch) != 0 {
		t.Errorf("rejected writes leaked %d events: %+v", len(batch), batch)
	}
}

func TestPollUnknownSessionGone(t *testing.T) {
	env := setupAPI(t)

	_, status := env.poll(t, "ghost-session")
	if status != http.StatusGone {
		t.Fatalf("status = %d, want 410", status)
	}
}

func TestOrderAmountComesFromCatalog(t *testing.T) {
	env := setupAPI(t)
	admin := env.loginAdmin(t)

	resp := env.do(t, http.MethodPost, "/api/v1/books/", admin, map[string]interface{}{
		"title": "Priced Book", "author": "A", "genre": "G", "year": 2021, "price": 2499, "stock": 5,
	})
	var book models.Book
	decodeData(t, resp, &book)

	userToken := env.signup(t, "Buyer", "buyer@example.com", "shelf-space-8")

	// The amount in the body is ignored; price comes from the catalog.
	resp = env.do(t, http.MethodPost, "/api/v1/orders/", userToken, map[string]interface{}{
		"bookId": book.ID, "customerName": "Buyer", "amount": 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order status = %d, want 201", resp.StatusCode)
	}
	var order models.Order
	decodeData(t, resp, &order)
	if order.Amount != 2499 {
		t.Errorf("order amount = %d, want 2499", order.Amount)
	}
	if order.BookTitle != "Priced Book" {
		t.Errorf("order bookTitle = %q, want Priced Book", order.BookTitle)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("order status = %q, want pending", order.Status)
	}
}

func TestOrderOwnership(t *testing.T) {
	env := setupAPI(t)
	admin := env.loginAdmin(t)

	resp := env.do(t, http.MethodPost, "/api/v1/books/", admin, map[string]interface{}{
		"title": "Shared Book", "author": "A", "genre": "G", "year": 2021, "price": 500, "stock": 5,
	})
	var book models.Book
	decodeData(t, resp, &book)

	alice := env.signup(t, "Alice", "alice@example.com", "shelf-space-8")
	bob := env.signup(t, "Bob", "bob@example.com", "shelf-space-8")

	resp = env.do(t, http.MethodPost, "/api/v1/orders/", alice, map[string]interface{}{
		"bookId": book.ID, "customerName": "Alice",
	})
	var order models.Order
	decodeData(t, resp, &order)

	if resp := env.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, bob, nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("other user read order status = %d, want 403", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, alice, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("owner read order status = %d, want 200", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, admin, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("admin read order status = %d, want 200", resp.StatusCode)
	}

	// Status transitions are admin-only.
	patch := map[string]string{"status": models.OrderStatusCompleted}
	if resp := env.do(t, http.MethodPatch, "/api/v1/orders/"+order.ID+"/status", alice, patch); resp.StatusCode != http.StatusForbidden {
		t.Errorf("user status update = %d, want 403", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPatch, "/api/v1/orders/"+order.ID+"/status", admin, patch)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin status update = %d, want 200", resp.StatusCode)
	}
	var updated models.Order
	decodeData(t, resp, &updated)
	if updated.Status != models.OrderStatusCompleted {
		t.Errorf("order status = %q, want completed", updated.Status)
	}
}

func TestListOrdersScopedToOwner(t *testing.T) {
	env := setupAPI(t)
	admin := env.loginAdmin(t)

	resp := env.do(t, http.MethodPost, "/api/v1/books/", admin, map[string]interface{}{
		"title": "Order Fodder", "author": "A", "genre": "G", "year": 2021, "price": 100, "stock": 9,
	})
	var book models.Book
	decodeData(t, resp, &book)

	alice := env.signup(t, "Alice", "alice2@example.com", "shelf-space-8")
	bob := env.signup(t, "Bob", "bob2@example.com", "shelf-space-8")

	for i, token := range []string{alice, alice, bob} {
		resp := env.do(t, http.MethodPost, "/api/v1/orders/", token, map[string]interface{}{
			"bookId": book.ID, "customerName": fmt.Sprintf("Customer %d", i),
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("order %d status = %d, want 201", i, resp.StatusCode)
		}
	}

	var mine []models.Order
	decodeData(t, env.do(t, http.MethodGet, "/api/v1/orders/", alice, nil), &mine)
	if len(mine) != 2 {
		t.Errorf("alice sees %d orders, want 2", len(mine))
	}

	var all []models.Order
	decodeData(t, env.do(t, http.MethodGet, "/api/v1/orders/", admin, nil), &all)
	if len(all) != 3 {
		t.Errorf("admin sees %d orders, want 3", len(all))
	}
}

func TestSettingsAdminOnlyWrite(t *testing.T) {
	env := setupAPI(t)
	admin := env.loginAdmin(t)
	user := env.signup(t, "Viewer", "viewer@example.com", "shelf-space-8")

	if resp := env.do(t, http.MethodGet, "/api/v1/settings/", user, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("user read settings = %d, want 200", resp.StatusCode)
	}

	patch := map[string]interface{}{"storeName": "Night Owl Books"}
	if resp := env.do(t, http.MethodPut, "/api/v1/settings/", user, patch); resp.StatusCode != http.StatusForbidden {
		t.Errorf("user write settings = %d, want 403", resp.StatusCode)
	}

	resp := env.do(t, http.MethodPut, "/api/v1/settings/", admin, patch)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin write settings = %d, want 200", resp.StatusCode)
	}
	var settings models.Settings
	decodeData(t, resp, &settings)
	if settings.StoreName != "Night Owl Books" {
		t.Errorf("storeName = %q, want Night Owl Books", settings.StoreName)
	}
}

func TestUpdateCart(t *testing.T) {
	env := setupAPI(t)
	token := env.signup(t, "Carter", "cart@example.com", "shelf-space-8")

	resp := env.do(t, http.MethodPut, "/api/v1/users/me/cart", token, map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": "b1", "title": "Dune", "author": "Frank Herbert", "price": 999, "quantity": 2},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update cart status = %d, want 200", resp.StatusCode)
	}
	var user models.User
	decodeData(t, resp, &user)
	if len(user.Cart) != 1 || user.Cart[0].Quantity != 2 {
		t.Errorf("cart = %+v, want one item with quantity 2", user.Cart)
	}
}

func TestExportOrdersCSV(t *testing.T) {
	env := setupAPI(t)
	admin := env.loginAdmin(t)

	resp := env.do(t, http.MethodGet, "/api/v1/orders/export", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("order_number,")) {
		t.Errorf("csv header = %q", bytes.SplitN(body, []byte("\n"), 2)[0])
	}
}

func TestSearchBooksEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "dune" {
			t.Errorf("upstream query = %q, want dune", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"id":"vol1","volumeInfo":{"title":"Dune"}}]}`))
	}))
	t.Cleanup(upstream.Close)

	env := setupAPIWith(t, search.NewClient(config.SearchConfig{
		Enabled:       true,
		BaseURL:       upstream.URL,
		MaxResults:    20,
		Timeout:       2 * time.Second,
		RatePerSecond: 100,
		Burst:         10,
	}))

	resp := env.do(t, http.MethodGet, "/api/v1/books/search?q=dune", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d, want 200", resp.StatusCode)
	}
	var results []search.Result
	decodeData(t, resp, &results)
	if len(results) != 1 || results[0].VolumeInfo.Title != "Dune" {
		t.Errorf("results = %+v, want one Dune volume", results)
	}

	if resp := env.do(t, http.MethodGet, "/api/v1/books/search", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty query status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchBooksUnavailableWhenDisabled(t *testing.T) {
	env := setupAPI(t)

	resp := env.do(t, http.MethodGet, "/api/v1/books/search?q=dune", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestImportBookBroadcasts(t *testing.T) {
	env := setupAPI(t)
	admin := env.loginAdmin(t)
	sid := env.handshake(t)

	volume := map[string]interface{}{
		"id": "vol1",
		"volumeInfo": map[string]interface{}{
			"title":         "Dune",
			"authors":       []string{"Frank Herbert"},
			"categories":    []string{"Fiction"},
			"publishedDate": "1965-08-01",
			"industryIdentifiers": []map[string]string{
				{"type": "ISBN_13", "identifier": "9780441013593"},
			},
			"imageLinks": map[string]string{"thumbnail": "http://books.google.com/thumb.jpg"},
		},
		"saleInfo": map[string]interface{}{
			"listPrice": map[string]interface{}{"amount": 9.99, "currencyCode": "USD"},
		},
	}

	resp := env.do(t, http.MethodPost, "/api/v1/books/import", admin, volume)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("import status = %d, want 201", resp.StatusCode)
	}
	var book models.Book
	decodeData(t, resp, &book)
	if book.Title != "Dune" || book.Author != "Frank Herbert" {
		t.Errorf("imported book = %s by %s", book.Title, book.Author)
	}
	if book.Price != 829 {
		t.Errorf("imported price = %d, want 829", book.Price)
	}
	if book.CoverURL != "https://books.google.com/thumb.jpg" {
		t.Errorf("imported cover = %q, want https thumbnail", book.CoverURL)
	}

	// Imports announce like any other catalog write.
	msg := env.pollUntil(t, sid, models.EventBookCreated)
	payload, _ := msg.Data.(map[string]interface{})
	if payload["title"] != "Dune" {
		t.Errorf("book:created title = %v, want Dune", payload["title"])
	}

	// A second import of the same volume is a duplicate.
	if resp := env.do(t, http.MethodPost, "/api/v1/books/import", admin, volume); resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate import status = %d, want 409", resp.StatusCode)
	}

	user := env.signup(t, "Plain", "importless@example.com", "shelf-space-8")
	if resp := env.do(t, http.MethodPost, "/api/v1/books/import", user, volume); resp.StatusCode != http.StatusForbidden {
		t.Errorf("user import status = %d, want 403", resp.StatusCode)
	}
}

func TestAdminUpdatesUser(t *testing.T) {
	env := setupAPI(t)
	admin := env.loginAdmin(t)
	userToken := env.signup(t, "Renamee", "old@example.com", "shelf-space-8")

	resp := env.do(t, http.MethodGet, "/api/v1/auth/me", userToken, nil)
	var target models.User
	decodeData(t, resp, &target)

	resp = env.do(t, http.MethodPut, "/api/v1/users/"+target.ID, admin, map[string]string{
		"name":     "Renamed Reader",
		"email":    "new@example.com",
		"password": "turned-a-new-leaf",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update user status = %d, want 200", resp.StatusCode)
	}
	var updated models.User
	decodeData(t, resp, &updated)
	if updated.Name != "Renamed Reader" || updated.Email != "new@example.com" {
		t.Errorf("updated user = %s/%s", updated.Name, updated.Email)
	}

	// The new credentials work and the old ones do not.
	env.login(t, "new@example.com", "turned-a-new-leaf")
	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "old@example.com", "password": "shelf-space-8",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("old credentials status = %d, want 401", resp.StatusCode)
	}

	// Edits are admin-only and missing accounts 404.
	if resp := env.do(t, http.MethodPut, "/api/v1/users/"+target.ID, userToken, map[string]string{"name": "Sneaky"}); resp.StatusCode != http.StatusForbidden {
		t.Errorf("self-serve update status = %d, want 403", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPut, "/api/v1/users/no-such-user", admin, map[string]string{"name": "Ghost"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing user status = %d, want 404", resp.StatusCode)
	}
}

func TestAdminDeletesOrder(t *testing.T) {
	env := setupAPI(t)
	admin := env.loginAdmin(t)

	resp := env.do(t, http.MethodPost, "/api/v1/books/", admin, map[string]interface{}{
		"title": "Throwaway", "author": "A", "genre": "G", "year": 2021, "price": 100, "stock": 1,
	})
	var book models.Book
	decodeData(t, resp, &book)

	buyer := env.signup(t, "Buyer", "cancel@example.com", "shelf-space-8")
	resp = env.do(t, http.MethodPost, "/api/v1/orders/", buyer, map[string]interface{}{
		"bookId": book.ID, "customerName": "Buyer",
	})
	var order models.Order
	decodeData(t, resp, &order)

	if resp := env.do(t, http.MethodDelete, "/api/v1/orders/"+order.ID, buyer, nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("user delete order status = %d, want 403", resp.StatusCode)
	}

	resp = env.do(t, http.MethodDelete, "/api/v1/orders/"+order.ID, admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin delete order status = %d, want 200", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, admin, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("read deleted order status = %d, want 404", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodDelete, "/api/v1/orders/"+order.ID, admin, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestDashboardUnavailableWithoutAnalytics(t *testing.T) {
	env := setupAPI(t)
	admin := env.loginAdmin(t)

	resp := env.do(t, http.MethodGet, "/api/v1/dashboard/", admin, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}
