package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bazaar/internal/config"
	"bazaar/internal/security"
	"bazaar/internal/service"
	"bazaar/internal/store/sqlite"
	"bazaar/internal/ws"
)

type apiFixture struct {
	srv *httptest.Server
	db  *sqlx.DB
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	log := zaptest.NewLogger(t)
	users := sqlite.NewUserRepo(db)
	categories := sqlite.NewCategoryRepo(db)
	products := sqlite.NewProductRepo(db)
	carts := sqlite.NewCartRepo(db)
	orders := sqlite.NewOrderRepo(db)
	messages := sqlite.NewMessageRepo(db)
	tokens := security.NewTokenService("test-secret", time.Hour)
	hasher := security.NewPasswordHasher(4)

	server := New(Deps{
		Auth:     service.NewAuthService(users, tokens, hasher),
		Catalog:  service.NewCatalogService(products, categories),
		Cart:     service.NewCartService(carts, products),
		Checkout: service.NewCheckoutService(db, log),
		Messages: service.NewMessageService(messages, users, products),
		Orders:   orders,
		Users:    users,
		Tokens:   tokens,
		Registry: ws.NewRegistry(log),
		Config:   &config.Config{JWTSecret: "test-secret"},
		Log:      log,
	})

	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, db: db}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (f *apiFixture) doList(t *testing.T, path, token string) (*http.Response, []map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded []map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (f *apiFixture) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	resp, _ := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username, "password": "password1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"username": username, "password": "password1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "bearer", body["token_type"])
	return body["access_token"].(string)
}

func TestAuthFlow(t *testing.T) {
	f := newAPIFixture(t)

	token := f.registerAndLogin(t, "alice")

	resp, _ := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "alice", "password": "password2",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"username": "alice", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["detail"])

	resp, body = f.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, body, "hashed_password")

	resp, _ = f.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProductLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	seller := f.registerAndLogin(t, "seller")
	stranger := f.registerAndLogin(t, "stranger")

	resp, created := f.do(t, http.MethodPost, "/api/products", seller, map[string]any{
		"title": "Desk Lamp", "description": "warm light", "price": 34.5, "stock": 3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	productID := int64(created["id"].(float64))

	// Listings are public.
	resp, list := f.doList(t, "/api/products?q=lamp", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, "Desk Lamp", list[0]["title"])

	resp, _ = f.do(t, http.MethodPut, fmt.Sprintf("/api/products/%d", productID), stranger, map[string]any{
		"title": "Hijacked", "price": 1,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, updated := f.do(t, http.MethodPut, fmt.Sprintf("/api/products/%d", productID), seller, map[string]any{
		"title": "Desk Lamp v2", "price": 39.99, "stock": 3,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 39.99, updated["price"])

	// Archive hides the listing without deleting it.
	resp, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/products/%d", productID), seller, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, list = f.doList(t, "/api/products", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, list)

	resp, restored := f.do(t, http.MethodPost, fmt.Sprintf("/api/products/%d/restore", productID), seller, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, restored["archived"])
	assert.Equal(t, true, restored["available"])
}

func TestAdminOnlyEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "alice")

	resp, _ := f.do(t, http.MethodPost, "/api/categories", token, map[string]any{"name": "Books"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.doList(t, "/api/products/archived", token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, err := f.db.Exec(`UPDATE users SET role = 'ADMIN' WHERE username = 'alice'`)
	require.NoError(t, err)

	resp, body := f.do(t, http.MethodPost, "/api/categories", token, map[string]any{"name": "Books"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Books", body["name"])

	resp, list := f.doList(t, "/api/categories", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list, 1)
}

func TestCartAndCheckoutFlow(t *testing.T) {
	f := newAPIFixture(t)
	seller := f.registerAndLogin(t, "seller")
	buyer := f.registerAndLogin(t, "buyer")

	resp, created := f.do(t, http.MethodPost, "/api/products", seller, map[string]any{
		"title": "Mug", "price": 8.5, "stock": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	productID := int64(created["id"].(float64))

	resp, _ = f.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, item := f.do(t, http.MethodPost, "/api/cart", buyer, map[string]any{
		"product_id": productID, "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	itemID := int64(item["id"].(float64))

	resp, patched := f.do(t, http.MethodPatch, fmt.Sprintf("/api/cart/%d", itemID), buyer, map[string]any{
		"quantity": 3,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), patched["quantity"])

	resp, order := f.do(t, http.MethodPost, "/api/cart/checkout", buyer, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "CREATED", order["status"])
	assert.InDelta(t, 25.5, order["total_amount"].(float64), 1e-9)
	require.Len(t, order["items"].([]any), 1)

	// Stock went down and the cart is empty again.
	resp, product := f.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d", productID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), product["stock"])

	resp, body := f.do(t, http.MethodPost, "/api/cart/checkout", buyer, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Cart is empty", body["detail"])

	// Asking for more than the remaining stock fails the whole checkout.
	resp, _ = f.do(t, http.MethodPost, "/api/cart", buyer, map[string]any{
		"product_id": productID, "quantity": 3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body = f.do(t, http.MethodPost, "/api/cart/checkout", buyer, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "not enough stock for Mug", body["detail"])

	resp, orders := f.doList(t, "/api/orders", buyer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, orders, 1)

	orderID := int64(orders[0]["id"].(float64))
	resp, _ = f.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), seller, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMessageEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	alice := f.registerAndLogin(t, "alice")
	bob := f.registerAndLogin(t, "bob")

	resp, me := f.do(t, http.MethodGet, "/api/auth/me", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bobID := int64(me["id"].(float64))

	resp, sent := f.do(t, http.MethodPost, "/api/messages", alice, map[string]any{
		"recipient_id": bobID, "content": "is this still available?",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "is this still available?", sent["content"])

	resp, count := f.do(t, http.MethodGet, "/api/messages/unread/count", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), count["count"])

	resp, me = f.do(t, http.MethodGet, "/api/auth/me", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	aliceID := int64(me["id"].(float64))

	resp, history := f.doList(t, fmt.Sprintf("/api/messages?partner_id=%d", aliceID), bob)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, history, 1)
	assert.Equal(t, "is this still available?", history[0]["content"])

	resp, _ = f.do(t, http.MethodPost, "/api/messages", alice, map[string]any{
		"recipient_id": 9999, "content": "hello?",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func (f *apiFixture) userID(t *testing.T, token string) int64 {
	t.Helper()
	resp, me := f.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return int64(me["id"].(float64))
}

func (f *apiFixture) dialWS(t *testing.T, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + path + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readWSEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt map[string]any
	require.NoError(t, conn.ReadJSON(&evt))
	return evt
}

// The sockets must behave the same behind the full production middleware
// chain as they do in isolation.
func TestWebSocketsThroughFullRouter(t *testing.T) {
	f := newAPIFixture(t)
	alice := f.registerAndLogin(t, "alice")
	bob := f.registerAndLogin(t, "bob")
	aliceID := f.userID(t, alice)
	bobID := f.userID(t, bob)

	notifConn := f.dialWS(t, "/ws/notifications", bob)
	evt := readWSEvent(t, notifConn)
	assert.Equal(t, "unread_count", evt["event"])
	assert.Equal(t, float64(0), evt["count"])

	aliceConn := f.dialWS(t, fmt.Sprintf("/ws/chat/%d", bobID), alice)
	evt = readWSEvent(t, aliceConn)
	assert.Equal(t, "presence", evt["event"])

	bobConn := f.dialWS(t, fmt.Sprintf("/ws/chat/%d", aliceID), bob)
	readWSEvent(t, bobConn)
	readWSEvent(t, aliceConn)

	require.NoError(t, aliceConn.WriteJSON(map[string]any{"content": "through the stack"}))

	evt = readWSEvent(t, bobConn)
	assert.Equal(t, "message", evt["event"])
	assert.Equal(t, "through the stack", evt["content"])

	evt = readWSEvent(t, notifConn)
	assert.Equal(t, "new_message", evt["event"])

	// The REST surface sees what the socket persisted.
	resp, history := f.doList(t, fmt.Sprintf("/api/messages?partner_id=%d", aliceID), bob)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, history, 1)
	assert.Equal(t, "through the stack", history[0]["content"])

	// Handshake failures through the router stay fail-closed.
	base := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	_, wsResp, err := websocket.DefaultDialer.Dial(base+"/ws/notifications", nil)
	require.Error(t, err)
	require.NotNil(t, wsResp)
	assert.Equal(t, http.StatusUnauthorized, wsResp.StatusCode)
}
