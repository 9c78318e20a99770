package services

import (
	"context"
	"time"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
)

// AccountCart is the server-side cart of one signed-in user. Every call
// returns the authoritative cart after the operation.
type AccountCart interface {
	Fetch(ctx context.Context) (*models.CartState, error)
	Add(ctx context.Context, productID string, quantity int) (*models.CartState, error)
	UpdateQuantity(ctx context.Context, cartItemID string, quantity int) (*models.CartState, error)
	Remove(ctx context.Context, cartItemID string) (*models.CartState, error)
	Clear(ctx context.Context) (*models.CartState, error)
}

// GuestCart is the persisted cart of an anonymous visitor. Implementations
// never fail: storage problems degrade to an empty cart.
type GuestCart interface {
	GuestID() string
	Load(ctx context.Context) []models.CartLineItem
	Save(ctx context.Context, items []models.CartLineItem)
	Clear(ctx context.Context)
}

// InFlightGuard rejects a second mutation of the same key while the first is
// still running. Acquire fails fast with ErrRequestInFlight; Lock waits for
// the key until ctx is done.
type InFlightGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// EventPublisher delivers cart domain events.
type EventPublisher interface {
	PublishCartMerged(ctx context.Context, event models.CartMergedEvent) error
}

// MetricsRecorder is the subset of the CloudWatch metrics client the cart
// services use.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}
