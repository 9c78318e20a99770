package services

import (
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
	"github.com/shopspring/decimal"
)

// CalculateTotals derives the item count and total of items. Arithmetic is
// exact decimal, so the total never drifts from Σ price × quantity.
func CalculateTotals(items []models.CartLineItem) models.Summary {
	total := decimal.Zero
	count := 0
	for _, item := range items {
		count += item.Quantity
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return models.Summary{ItemCount: count, Total: total}
}

// NewCartState builds a CartState from items with freshly computed totals.
func NewCartState(items []models.CartLineItem, phase models.SessionPhase) *models.CartState {
	items = models.CloneItems(items)
	summary := CalculateTotals(items)
	return &models.CartState{
		Items:     items,
		Total:     summary.Total,
		ItemCount: summary.ItemCount,
		Phase:     phase,
	}
}
