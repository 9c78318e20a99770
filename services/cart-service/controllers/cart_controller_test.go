package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/clients"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/clients/carttest"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/controllers"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/database"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/middleware"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/routes"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/services"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/common/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	jwtSecret = "controller-test-secret"
	guestID   = "guest-controller-1"
)

type harness struct {
	router *gin.Engine
	server *carttest.Server
	guests *database.MemoryGuestBackend
	token  string
}

func setup(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"typ": "access",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	srv := carttest.NewServer(token,
		carttest.Product{ID: "p1", Name: "Helmet", Price: decimal.RequireFromString("49.90")},
		carttest.Product{ID: "p2", Name: "Gloves", Price: decimal.RequireFromString("15.00")},
	)
	t.Cleanup(srv.Close)

	base := clients.NewAccountCartClient(srv.URL, 2*time.Second)
	guests := database.NewMemoryGuestBackend()
	controller := controllers.NewCartController(
		guests,
		func(token string) services.AccountCart { return base.WithToken(token) },
		services.NewReconciler(zap.NewNop(), nil, nil, services.DropFailedItems),
		services.NewMemoryInFlightGuard(),
		zap.NewNop(),
	)

	r := gin.New()
	routes.RegisterCartRoutes(r, controller, auth.NewTokenValidator(jwtSecret), routes.RouteOptions{GuestCookieTTL: time.Hour})
	return &harness{router: r, server: srv, guests: guests, token: token}
}

func (h *harness) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.GuestIDHeader, guestID)
	if authed {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) models.CartState {
	t.Helper()
	var state models.CartState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	return state
}

func addBody(productID string, qty int, price string) gin.H {
	return gin.H{"product_id": productID, "quantity": qty, "name": "x", "price": price}
}

func TestGuestCartFlow(t *testing.T) {
	h := setup(t)

	w := h.do(t, http.MethodPost, "/cart/items", addBody("p1", 2, "49.90"), false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = h.do(t, http.MethodPost, "/cart/items", addBody("p1", 1, "49.90"), false)
	require.Equal(t, http.StatusOK, w.Code)

	state := decodeState(t, w)
	require.Len(t, state.Items, 1)
	assert.Equal(t, 3, state.Items[0].Quantity)
	assert.Equal(t, models.PhaseGuest, state.Phase)
	assert.True(t, decimal.RequireFromString("149.70").Equal(state.Total))

	w = h.do(t, http.MethodPatch, "/cart/items/p1", gin.H{"quantity": 1}, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeState(t, w).ItemCount)

	w = h.do(t, http.MethodGet, "/cart", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeState(t, w).ItemCount, "state survives across requests")

	w = h.do(t, http.MethodDelete, "/cart/items/p1", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeState(t, w).Items)

	assert.Empty(t, h.server.Calls(), "guests never reach the account cart")
}

func TestConcurrentGuestAddsKeepEveryItem(t *testing.T) {
	h := setup(t)

	const n = 20
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := h.do(t, http.MethodPost, "/cart/items", addBody(fmt.Sprintf("prod-%d", i), 1, "2.50"), false)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "request %d", i)
	}
	w := h.do(t, http.MethodGet, "/cart", nil, false)
	state := decodeState(t, w)
	assert.Len(t, state.Items, n)
	assert.True(t, decimal.RequireFromString("50").Equal(state.Total))
}

func TestValidationErrors(t *testing.T) {
	h := setup(t)
	h.do(t, http.MethodPost, "/cart/items", addBody("p1", 1, "49.90"), false)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"zero quantity update", http.MethodPatch, "/cart/items/p1", gin.H{"quantity": 0}, http.StatusBadRequest},
		{"zero quantity add", http.MethodPost, "/cart/items", addBody("p2", 0, "15"), http.StatusBadRequest},
		{"missing product id", http.MethodPost, "/cart/items", gin.H{"quantity": 1}, http.StatusBadRequest},
		{"negative price", http.MethodPost, "/cart/items", addBody("p2", 1, "-1"), http.StatusBadRequest},
		{"unknown item", http.MethodDelete, "/cart/items/nope", nil, http.StatusNotFound},
		{"merge as guest", http.MethodPost, "/cart/merge", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, tt.method, tt.path, tt.body, false)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w := h.do(t, http.MethodGet, "/cart", nil, false)
	assert.Equal(t, 1, decodeState(t, w).ItemCount, "rejected requests leave the cart alone")
}

func TestMergeOnLogin(t *testing.T) {
	h := setup(t)
	h.server.Seed("p1", 2)
	h.do(t, http.MethodPost, "/cart/items", addBody("p1", 3, "49.90"), false)
	h.do(t, http.MethodPost, "/cart/items", addBody("p2", 1, "15.00"), false)

	w := h.do(t, http.MethodPost, "/cart/merge", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp controllers.MergeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Merged)
	assert.Equal(t, 0, resp.Failed)
	assert.Equal(t, models.PhaseAuthenticated, resp.Cart.Phase)
	assert.Equal(t, 6, resp.Cart.ItemCount)
	assert.Equal(t, 5, h.server.Quantity("p1"))

	_, err := h.guests.Get(context.Background(), guestID)
	assert.ErrorIs(t, err, database.ErrGuestCartNotFound, "guest cart cleared after merge")

	// Merging again is a no-op.
	w = h.do(t, http.MethodPost, "/cart/merge", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, h.server.Quantity("p1"))
}

func TestAuthenticatedCartOperations(t *testing.T) {
	h := setup(t)
	h.server.Seed("p2", 1)

	w := h.do(t, http.MethodGet, "/cart", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	assert.Equal(t, models.PhaseAuthenticated, state.Phase)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "ci-1", state.Items[0].CartItemID)

	w = h.do(t, http.MethodPatch, "/cart/items/p2", gin.H{"quantity": 3}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3, h.server.Quantity("p2"))

	w = h.do(t, http.MethodDelete, "/cart", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeState(t, w).Items)
}

func TestUpstreamFailures(t *testing.T) {
	h := setup(t)
	h.server.FailAll(true)

	w := h.do(t, http.MethodGet, "/cart", nil, true)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(http.StatusBadGateway), body["code"])
	assert.Equal(t, "Cart service unavailable", body["message"], "upstream details stay in the logs")
	assert.NotContains(t, body, "detail")

	// The guest cart is still reachable without a token.
	w = h.do(t, http.MethodGet, "/cart", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	h := setup(t)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
