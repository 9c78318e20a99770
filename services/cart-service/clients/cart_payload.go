package clients

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/services"
	apperrors "github.com/Bharatkumawat03/pedalWB-sub001/services/common/errors"
	"github.com/shopspring/decimal"
)

// Wire shapes of the account cart API. Everything optional is a pointer so
// normalizeCart can tell "missing" from "zero".

type wireCart struct {
	Items   []wireCartItem `json:"items"`
	Summary *wireSummary   `json:"summary"`
}

type wireCartItem struct {
	ID       string       `json:"_id"`
	Product  *wireProduct `json:"product"`
	Quantity *int         `json:"quantity"`
}

type wireProduct struct {
	ID       string           `json:"_id"`
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Images   []wireImage      `json:"images"`
	Image    string           `json:"image"`
	Category wireCategory     `json:"category"`
}

type wireSummary struct {
	ItemCount *int             `json:"itemCount"`
	Total     *decimal.Decimal `json:"total"`
}

// wireImage accepts either "https://..." or {"url": "https://..."}.
type wireImage struct {
	URL string
}

func (w *wireImage) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &w.URL)
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	w.URL = obj.URL
	return nil
}

// wireCategory accepts a category name, a populated {"name": ...} document,
// or null.
type wireCategory struct {
	Name string
}

func (w *wireCategory) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '"':
		return json.Unmarshal(b, &w.Name)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	w.Name = obj.Name
	return nil
}

// decodeCart parses an account cart response body into the internal shape.
// An empty body is an empty cart.
func decodeCart(body []byte) (*models.CartState, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return services.NewCartState(nil, models.PhaseAuthenticated), nil
	}

	var wc wireCart
	if err := json.Unmarshal(body, &wc); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedResponse, err)
	}
	return normalizeCart(&wc)
}

func normalizeCart(wc *wireCart) (*models.CartState, error) {
	items := make([]models.CartLineItem, 0, len(wc.Items))
	for i, wi := range wc.Items {
		item, err := normalizeItem(wi)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrMalformedResponse, fmt.Errorf("items[%d]: %w", i, err))
		}
		if models.FindByProduct(items, item.ProductID) >= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrMalformedResponse, "items[%d]: duplicate product %s", i, item.ProductID)
		}
		items = append(items, item)
	}

	state := services.NewCartState(items, models.PhaseAuthenticated)
	// The server's summary wins when complete: it may include adjustments the
	// client cannot see.
	if s := wc.Summary; s != nil && s.ItemCount != nil && s.Total != nil {
		state.ItemCount = *s.ItemCount
		state.Total = *s.Total
	}
	return state, nil
}

func normalizeItem(wi wireCartItem) (models.CartLineItem, error) {
	switch {
	case wi.ID == "":
		return models.CartLineItem{}, fmt.Errorf("missing _id")
	case wi.Product == nil:
		return models.CartLineItem{}, fmt.Errorf("missing product")
	case wi.Product.ID == "":
		return models.CartLineItem{}, fmt.Errorf("missing product._id")
	case wi.Product.Price == nil:
		return models.CartLineItem{}, fmt.Errorf("missing product.price")
	case wi.Product.Price.IsNegative():
		return models.CartLineItem{}, fmt.Errorf("negative product.price %s", wi.Product.Price)
	case wi.Quantity == nil:
		return models.CartLineItem{}, fmt.Errorf("missing quantity")
	case *wi.Quantity < 1:
		return models.CartLineItem{}, fmt.Errorf("quantity %d below 1", *wi.Quantity)
	}

	image := wi.Product.Image
	if len(wi.Product.Images) > 0 && wi.Product.Images[0].URL != "" {
		image = wi.Product.Images[0].URL
	}

	return models.CartLineItem{
		ProductID:  wi.Product.ID,
		CartItemID: wi.ID,
		Name:       wi.Product.Name,
		Image:      image,
		Category:   wi.Product.Category.Name,
		Price:      *wi.Product.Price,
		Quantity:   *wi.Quantity,
	}, nil
}
