package services

import (
	"context"
	"encoding/json"
	"fmt"

	awspkg "github.com/Bharatkumawat03/pedalWB-sub001/pkg/aws"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
)

// SNSEventPublisher publishes cart events to an SNS topic with an event_type
// attribute subscribers can filter on.
type SNSEventPublisher struct {
	sns      awspkg.SNSPublisher
	topicArn string
}

func NewSNSEventPublisher(sns awspkg.SNSPublisher, topicArn string) *SNSEventPublisher {
	return &SNSEventPublisher{sns: sns, topicArn: topicArn}
}

func (p *SNSEventPublisher) PublishCartMerged(ctx context.Context, event models.CartMergedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Event, err)
	}
	return p.sns.Publish(ctx, p.topicArn, body, map[string]string{
		"event_type": event.Event,
		"user_id":    event.UserID,
	})
}
