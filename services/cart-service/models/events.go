package models

import "time"

const EventCartMerged = "cart.merged"

// CartMergedEvent is published once a guest cart has been folded into an
// account cart.
type CartMergedEvent struct {
	Event       string    `json:"event"` // "cart.merged"
	UserID      string    `json:"user_id"`
	GuestID     string    `json:"guest_id,omitempty"`
	MergedItems int       `json:"merged_items"`
	FailedItems int       `json:"failed_items"`
	ItemCount   int       `json:"item_count"`
	Timestamp   time.Time `json:"timestamp"`
}
