package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducer_PublishCartMerged(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "cart.events", zap.NewNop())
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.PublishCartMerged(context.Background(), models.CartMergedEvent{
		Event:       models.EventCartMerged,
		UserID:      "user-1",
		GuestID:     "guest-1",
		MergedItems: 2,
		FailedItems: 1,
		ItemCount:   6,
		Timestamp:   ts,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "user-1", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte("cart.merged")}}, msg.Headers)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "cart.merged", body["event"])
	assert.Equal(t, "guest-1", body["guest_id"])
	assert.Equal(t, float64(2), body["merged_items"])

	p.Close()
	assert.True(t, w.closed)
}

func TestProducer_WriteError(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("broker down")}, "cart.events", zap.NewNop())
	err := p.PublishCartMerged(context.Background(), models.CartMergedEvent{Event: models.EventCartMerged, UserID: "u"})
	assert.EqualError(t, err, "broker down")
}
