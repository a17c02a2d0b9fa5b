package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/localserve/service-booking/internal/common/kafka"
	"github.com/localserve/service-booking/internal/contract/events"
)

const eventSource = "service-booking"

// CloudEventProducer is the part of *kafka.Producer the publisher needs.
type CloudEventProducer interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// KafkaEventPublisher publishes booking domain events as CloudEvents on the
// booking events topic. Failures are logged and never returned.
type KafkaEventPublisher struct {
	producer CloudEventProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaEventPublisher creates a new KafkaEventPublisher.
func NewKafkaEventPublisher(producer CloudEventProducer, logger *zap.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer: producer,
		topic:    events.TopicBookingEvents,
		logger:   logger,
	}
}

// Publish wraps data in a CloudEvent of eventType keyed by key and sends it.
func (p *KafkaEventPublisher) Publish(ctx context.Context, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = key

	if err := p.producer.PublishEvent(ctx, p.topic, cloudEvent); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", p.topic),
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
