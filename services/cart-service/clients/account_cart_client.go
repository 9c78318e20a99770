package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
	apperrors "github.com/Bharatkumawat03/pedalWB-sub001/services/common/errors"
)

const maxResponseBytes = 1 << 20

// AccountCartClient talks to the server-side cart of one signed-in user.
// Every mutating call returns the server's full post-mutation cart.
type AccountCartClient struct {
	baseURL string
	client  *http.Client
	token   string
}

func NewAccountCartClient(baseURL string, timeout time.Duration) *AccountCartClient {
	return &AccountCartClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of the client that authenticates as the holder of
// the bearer token. The HTTP client is shared.
func (a *AccountCartClient) WithToken(token string) *AccountCartClient {
	cp := *a
	cp.token = token
	return &cp
}

func (a *AccountCartClient) Fetch(ctx context.Context) (*models.CartState, error) {
	return a.do(ctx, http.MethodGet, "/cart", nil)
}

func (a *AccountCartClient) Add(ctx context.Context, productID string, quantity int) (*models.CartState, error) {
	if productID == "" {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidInput, "product id is required")
	}
	if quantity < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidQuantity, "got %d", quantity)
	}
	return a.do(ctx, http.MethodPost, "/cart/items", map[string]any{"productId": productID, "quantity": quantity})
}

func (a *AccountCartClient) UpdateQuantity(ctx context.Context, cartItemID string, quantity int) (*models.CartState, error) {
	if cartItemID == "" {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidInput, "cart item id is required")
	}
	if quantity < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidQuantity, "got %d", quantity)
	}
	return a.do(ctx, http.MethodPatch, "/cart/items/"+url.PathEscape(cartItemID), map[string]any{"quantity": quantity})
}

func (a *AccountCartClient) Remove(ctx context.Context, cartItemID string) (*models.CartState, error) {
	if cartItemID == "" {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidInput, "cart item id is required")
	}
	return a.do(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(cartItemID), nil)
}

func (a *AccountCartClient) Clear(ctx context.Context) (*models.CartState, error) {
	return a.do(ctx, http.MethodDelete, "/cart", nil)
}

func (a *AccountCartClient) do(ctx context.Context, method, path string, payload any) (*models.CartState, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUpstreamUnavailable, err)
	}
	if len(respBody) > maxResponseBytes {
		return nil, apperrors.Wrap(apperrors.ErrMalformedResponse,
			fmt.Errorf("%s %s: response too large (over %d bytes)", method, path, maxResponseBytes))
	}

	if resp.StatusCode >= 400 {
		return nil, upstreamError(method, path, resp.StatusCode, respBody)
	}
	return decodeCart(respBody)
}

func upstreamError(method, path string, status int, body []byte) error {
	reason := upstreamMessage(body)
	cause := fmt.Errorf("%s %s: status=%d %s", method, path, status, reason)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Wrap(apperrors.ErrUnauthorized, cause)
	case status >= 500:
		return apperrors.Wrap(apperrors.ErrUpstreamUnavailable, cause)
	default:
		rejected := apperrors.Wrap(apperrors.ErrUpstreamRejected, cause)
		rejected.Detail = reason
		return rejected
	}
}

// upstreamMessage pulls a human readable reason out of an error body.
func upstreamMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return strings.TrimSpace(string(body))
}
