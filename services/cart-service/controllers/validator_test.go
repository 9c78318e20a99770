package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Bharatkumawat03/pedalWB-sub001/services/common/errors"
)

func bindBody(t *testing.T, body string, req any) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return NewRequestValidator().Bind(c, req)
}

func TestRequestValidator_Bind(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"product_id":"p1","quantity":2,"price":"9.99"}`, ""},
		{"missing product", `{"quantity":1}`, "product_id is required"},
		{"zero quantity", `{"product_id":"p1","quantity":0}`, "quantity must be at least 1"},
		{"both", `{}`, "product_id is required; quantity must be at least 1"},
		{"not json", `{`, "Invalid input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req AddItemRequest
			err := bindBody(t, tt.body, &req)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "p1", req.ProductID)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequestValidator_UpdateQuantity(t *testing.T) {
	var req UpdateQuantityRequest
	err := bindBody(t, `{"quantity":-3}`, &req)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	require.NoError(t, bindBody(t, `{"quantity":3}`, &req))
	assert.Equal(t, 3, req.Quantity)
}
