package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
	"go.uber.org/zap"
)

// ErrGuestCartNotFound is returned by a GuestBackend when nothing is stored
// under the key.
var ErrGuestCartNotFound = errors.New("guest cart not found")

// GuestBackend persists raw guest cart documents by guest ID.
type GuestBackend interface {
	Get(ctx context.Context, guestID string) ([]byte, error)
	Set(ctx context.Context, guestID string, data []byte) error
	Delete(ctx context.Context, guestID string) error
}

// GuestCartSchemaVersion is written into every saved document. Documents
// without a version field (a bare JSON array) are read as version 0.
const GuestCartSchemaVersion = 1

type guestCartDocument struct {
	Version int                   `json:"version"`
	Items   []models.CartLineItem `json:"items"`
	SavedAt time.Time             `json:"saved_at"`
}

// GuestStore is the guest cart of a single visitor. Persistence problems are
// logged and swallowed: callers always get a usable list back and keep
// working in memory when the backend is down.
type GuestStore struct {
	backend GuestBackend
	guestID string
	logger  *zap.Logger
}

func NewGuestStore(backend GuestBackend, guestID string, logger *zap.Logger) *GuestStore {
	return &GuestStore{
		backend: backend,
		guestID: guestID,
		logger:  logger.With(zap.String("guest_id", guestID)),
	}
}

func (s *GuestStore) GuestID() string {
	return s.guestID
}

// Load returns the persisted items, or an empty list when nothing usable is
// stored.
func (s *GuestStore) Load(ctx context.Context) []models.CartLineItem {
	data, err := s.backend.Get(ctx, s.guestID)
	if errors.Is(err, ErrGuestCartNotFound) {
		return []models.CartLineItem{}
	}
	if err != nil {
		s.logger.Warn("guest cart load failed, starting empty", zap.Error(err))
		return []models.CartLineItem{}
	}

	items, err := decodeGuestCart(data)
	if err != nil {
		s.logger.Warn("discarding unreadable guest cart", zap.Error(err), zap.Int("bytes", len(data)))
		return []models.CartLineItem{}
	}
	return s.sanitize(items)
}

// Save overwrites the stored cart with items.
func (s *GuestStore) Save(ctx context.Context, items []models.CartLineItem) {
	doc := guestCartDocument{
		Version: GuestCartSchemaVersion,
		Items:   models.CloneItems(items),
		SavedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error("guest cart encode failed", zap.Error(err))
		return
	}
	if err := s.backend.Set(ctx, s.guestID, data); err != nil {
		s.logger.Warn("guest cart save failed", zap.Error(err), zap.Int("items", len(items)))
	}
}

// Clear removes the stored cart entirely.
func (s *GuestStore) Clear(ctx context.Context) {
	err := s.backend.Delete(ctx, s.guestID)
	if err != nil && !errors.Is(err, ErrGuestCartNotFound) {
		s.logger.Warn("guest cart clear failed", zap.Error(err))
	}
}

func decodeGuestCart(data []byte) ([]models.CartLineItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var legacy []models.CartLineItem
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, fmt.Errorf("decode unversioned guest cart: %w", err)
		}
		return legacy, nil
	}

	var doc guestCartDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode guest cart: %w", err)
	}
	if doc.Version > GuestCartSchemaVersion {
		return nil, fmt.Errorf("guest cart schema version %d is newer than %d", doc.Version, GuestCartSchemaVersion)
	}
	return doc.Items, nil
}

// sanitize drops rows that violate the line item invariants and folds
// duplicate product IDs into one row.
func (s *GuestStore) sanitize(items []models.CartLineItem) []models.CartLineItem {
	out := make([]models.CartLineItem, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Quantity < 1 || item.Price.IsNegative() {
			s.logger.Warn("dropping invalid guest cart item",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
			)
			continue
		}
		// Guest rows never carry a server handle.
		item.CartItemID = ""
		if i := models.FindByProduct(out, item.ProductID); i >= 0 {
			out[i].Quantity += item.Quantity
			continue
		}
		out = append(out, item)
	}
	return out
}
