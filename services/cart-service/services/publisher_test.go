package services_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	topic string
	body  []byte
	attrs map[string]string
}

func (f *fakeSNS) Publish(_ context.Context, topicArn string, message []byte, attrs map[string]string) error {
	f.topic, f.body, f.attrs = topicArn, message, attrs
	return nil
}

func TestSNSEventPublisher(t *testing.T) {
	sns := &fakeSNS{}
	p := services.NewSNSEventPublisher(sns, "arn:aws:sns:us-east-1:000000000000:cart-events")

	err := p.PublishCartMerged(context.Background(), models.CartMergedEvent{
		Event:       models.EventCartMerged,
		UserID:      "user-1",
		GuestID:     "guest-1",
		MergedItems: 3,
		ItemCount:   7,
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:cart-events", sns.topic)
	assert.Equal(t, map[string]string{"event_type": "cart.merged", "user_id": "user-1"}, sns.attrs)

	var got models.CartMergedEvent
	require.NoError(t, json.Unmarshal(sns.body, &got))
	assert.Equal(t, "guest-1", got.GuestID)
	assert.Equal(t, 3, got.MergedItems)
	assert.Equal(t, 7, got.ItemCount)
}
