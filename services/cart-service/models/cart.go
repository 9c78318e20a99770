package models

import "github.com/shopspring/decimal"

// CartLineItem is one product row in a cart. Display fields and Price are a
// snapshot taken when the product was added and are not refreshed from the
// catalog. CartItemID is only set for rows owned by the account cart.
type CartLineItem struct {
	ProductID  string          `json:"product_id"`
	CartItemID string          `json:"cart_item_id,omitempty"`
	Name       string          `json:"name"`
	Image      string          `json:"image,omitempty"`
	Category   string          `json:"category,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// Summary is the derived aggregate of a list of line items.
type Summary struct {
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// SessionPhase tracks which cart a session is currently operating on.
type SessionPhase string

const (
	PhaseGuest         SessionPhase = "guest"
	PhaseMerging       SessionPhase = "merging"
	PhaseAuthenticated SessionPhase = "authenticated"
)

// CartState is what the storefront renders. Loading and Error are transient
// and never persisted.
type CartState struct {
	Items     []CartLineItem  `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
	Phase     SessionPhase    `json:"phase"`
	Loading   bool            `json:"loading"`
	Error     string          `json:"error,omitempty"`
}

// FindByProduct returns the index of productID in items, or -1.
func FindByProduct(items []CartLineItem, productID string) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// CloneItems returns a copy of items that never aliases the original backing
// array. A nil input yields an empty, non-nil slice.
func CloneItems(items []CartLineItem) []CartLineItem {
	out := make([]CartLineItem, len(items))
	copy(out, items)
	return out
}
