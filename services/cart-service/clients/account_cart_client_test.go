package clients_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/clients"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/clients/carttest"
	apperrors "github.com/Bharatkumawat03/pedalWB-sub001/services/common/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	helmet = carttest.Product{ID: "p-helmet", Name: "Helmet", Price: decimal.RequireFromString("49.90"), Image: "h.png", Category: "Safety"}
	chain  = carttest.Product{ID: "p-chain", Name: "Chain", Price: decimal.RequireFromString("19.99"), Image: "c.png", Category: "Parts"}
)

func newClient(t *testing.T, products ...carttest.Product) (*clients.AccountCartClient, *carttest.Server) {
	t.Helper()
	srv := carttest.NewServer("tok", products...)
	t.Cleanup(srv.Close)
	return clients.NewAccountCartClient(srv.URL, 2*time.Second).WithToken("tok"), srv
}

func TestAccountCartClient_AddFetchUpdateRemove(t *testing.T) {
	client, _ := newClient(t, helmet, chain)
	ctx := context.Background()

	state, err := client.Add(ctx, "p-helmet", 2)
	require.NoError(t, err)
	require.Len(t, state.Items, 1)
	item := state.Items[0]
	assert.Equal(t, "p-helmet", item.ProductID)
	assert.Equal(t, "ci-1", item.CartItemID)
	assert.Equal(t, "Helmet", item.Name)
	assert.Equal(t, "h.png", item.Image)
	assert.Equal(t, "Safety", item.Category)
	assert.True(t, helmet.Price.Equal(item.Price))
	assert.Equal(t, 2, state.ItemCount)
	assert.True(t, decimal.RequireFromString("99.80").Equal(state.Total))

	state, err = client.Add(ctx, "p-helmet", 1)
	require.NoError(t, err)
	require.Len(t, state.Items, 1, "adding an existing product increments it")
	assert.Equal(t, 3, state.Items[0].Quantity)

	_, err = client.Add(ctx, "p-chain", 1)
	require.NoError(t, err)

	state, err = client.UpdateQuantity(ctx, "ci-2", 4)
	require.NoError(t, err)
	assert.Equal(t, 7, state.ItemCount)

	state, err = client.Remove(ctx, "ci-1")
	require.NoError(t, err)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "p-chain", state.Items[0].ProductID)

	fetched, err := client.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Items, fetched.Items)
}

func TestAccountCartClient_ClearWithEmptyBody(t *testing.T) {
	client, srv := newClient(t, helmet)
	srv.Seed("p-helmet", 1)

	state, err := client.Clear(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.Items)
	assert.NotNil(t, state.Items)
	assert.Equal(t, 0, state.ItemCount)
	assert.True(t, state.Total.IsZero())
}

func TestAccountCartClient_ComputesMissingSummary(t *testing.T) {
	client, srv := newClient(t, helmet, chain)
	srv.Seed("p-helmet", 2)
	srv.Seed("p-chain", 1)
	srv.OmitSummary()

	state, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, state.ItemCount)
	assert.True(t, decimal.RequireFromString("119.79").Equal(state.Total))
}

func TestAccountCartClient_ValidatesBeforeNetwork(t *testing.T) {
	client, srv := newClient(t, helmet)
	ctx := context.Background()

	_, err := client.Add(ctx, "p-helmet", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuantity)
	_, err = client.Add(ctx, "", 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = client.UpdateQuantity(ctx, "ci-1", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuantity)
	_, err = client.UpdateQuantity(ctx, "ci-1", -3)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuantity)
	_, err = client.Remove(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	assert.Empty(t, srv.Calls())
}

func TestAccountCartClient_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("unauthorized", func(t *testing.T) {
		_, srv := newClient(t, helmet)
		client := clients.NewAccountCartClient(srv.URL, time.Second).WithToken("wrong")
		_, err := client.Fetch(ctx)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("rejected carries upstream message", func(t *testing.T) {
		client, srv := newClient(t, helmet)
		srv.FailProduct("p-helmet", http.StatusConflict)
		_, err := client.Add(ctx, "p-helmet", 1)
		assert.ErrorIs(t, err, apperrors.ErrUpstreamRejected)
		assert.Contains(t, err.Error(), "injected failure")
		assert.Equal(t, "injected failure", apperrors.From(err).Detail)
	})

	t.Run("server error", func(t *testing.T) {
		client, srv := newClient(t, helmet)
		srv.FailAll(true)
		_, err := client.Fetch(ctx)
		assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	})

	t.Run("transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		_, err := clients.NewAccountCartClient(url, time.Second).Fetch(ctx)
		assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	})
}

func TestAccountCartClient_MalformedResponses(t *testing.T) {
	cases := map[string]string{
		"not json":          `<html>oops</html>`,
		"missing item id":   `{"items":[{"product":{"_id":"p1","price":1},"quantity":1}]}`,
		"missing product":   `{"items":[{"_id":"c1","quantity":1}]}`,
		"missing price":     `{"items":[{"_id":"c1","product":{"_id":"p1"},"quantity":1}]}`,
		"negative price":    `{"items":[{"_id":"c1","product":{"_id":"p1","price":-1},"quantity":1}]}`,
		"zero quantity":     `{"items":[{"_id":"c1","product":{"_id":"p1","price":1},"quantity":0}]}`,
		"duplicate product": `{"items":[{"_id":"c1","product":{"_id":"p1","price":1},"quantity":1},{"_id":"c2","product":{"_id":"p1","price":1},"quantity":1}]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := clients.NewAccountCartClient(srv.URL, time.Second).Fetch(context.Background())
			assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)
		})
	}
}

func TestAccountCartClient_OversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[],"padding":"`))
		_, _ = w.Write([]byte(strings.Repeat("x", 1<<20)))
		_, _ = w.Write([]byte(`"}`))
	}))
	defer srv.Close()

	_, err := clients.NewAccountCartClient(srv.URL, time.Second).Fetch(context.Background())
	require.ErrorIs(t, err, apperrors.ErrMalformedResponse)
	assert.Contains(t, err.Error(), "response too large")
}

func TestAccountCartClient_AcceptsPayloadVariants(t *testing.T) {
	body := `{"items":[
		{"_id":"c1","product":{"_id":"p1","name":"Pump","price":"12.50","images":["pump.png"],"category":"Tools"},"quantity":2},
		{"_id":"c2","product":{"_id":"p2","name":"Bell","price":3,"image":"bell.png","category":null},"quantity":1}
	],"summary":{"itemCount":3,"total":"28.00","discount":0}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	state, err := clients.NewAccountCartClient(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Items, 2)
	assert.Equal(t, "pump.png", state.Items[0].Image)
	assert.Equal(t, "Tools", state.Items[0].Category)
	assert.Equal(t, "bell.png", state.Items[1].Image)
	assert.Equal(t, "", state.Items[1].Category)
	assert.Equal(t, 3, state.ItemCount)
	assert.True(t, decimal.RequireFromString("28").Equal(state.Total))
}

func TestAccountCartClient_ContextCancelled(t *testing.T) {
	client, _ := newClient(t, helmet)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstreamUnavailable))
	assert.True(t, errors.Is(err, context.Canceled))
}
