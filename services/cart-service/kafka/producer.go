package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes cart events to a Kafka topic, keyed by user so all
// events of one user land on the same partition.
type Producer struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewProducer(brokers string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newProducer(writer, topic, logger)
}

func newProducer(writer messageWriter, topic string, logger *zap.Logger) *Producer {
	return &Producer{writer: writer, topic: topic, logger: logger}
}

func (p *Producer) PublishCartMerged(ctx context.Context, event models.CartMergedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Event)},
		},
		Time: event.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to send Kafka message", zap.String("topic", p.topic), zap.Error(err))
		return err
	}
	return nil
}

func (p *Producer) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Warn("kafka writer close failed", zap.Error(err))
	}
}
