package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/localserve/service-booking/internal/application"
	"github.com/localserve/service-booking/internal/common/domain"
	"github.com/localserve/service-booking/internal/common/kafka"
	"github.com/localserve/service-booking/internal/contract/events"
	"github.com/localserve/service-booking/internal/domain/assignment"
)

// Assigner runs automatic assignment for a booking.
type Assigner interface {
	Assign(ctx context.Context, bookingID, serviceID uuid.UUID, exclude []uuid.UUID) (*application.AssignResult, error)
}

// BookingRequestConsumer listens for newly requested bookings and assigns
// them a provider.
type BookingRequestConsumer struct {
	consumer *kafka.Consumer
	assigner Assigner
	logger   *zap.Logger
}

// NewBookingRequestConsumer creates a new BookingRequestConsumer.
func NewBookingRequestConsumer(
	brokers []string,
	groupID string,
	assigner Assigner,
	logger *zap.Logger,
) *BookingRequestConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicBookingRequests, logger)
	return &BookingRequestConsumer{
		consumer: consumer,
		assigner: assigner,
		logger:   logger,
	}
}

// Start begins consuming booking requests. This blocks until the context is cancelled.
func (c *BookingRequestConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *BookingRequestConsumer) Close() error {
	return c.consumer.Close()
}

func (c *BookingRequestConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from booking requests topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case events.BookingRequested:
		return c.handleBookingRequested(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled booking request event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *BookingRequestConsumer) handleBookingRequested(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.BookingRequestedEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.BookingID == uuid.Nil {
		c.logger.Error("failed to parse BookingRequestedEvent data",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	log := c.logger.With(
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("service_id", evt.ServiceID.String()),
	)

	res, err := c.assigner.Assign(ctx, evt.BookingID, evt.ServiceID, nil)
	switch {
	case err == nil:
		log.Info("booking assigned from request", zap.String("provider_id", res.ProviderID.String()))
		return nil
	case errors.Is(err, assignment.ErrNoEligibleProvider):
		log.Info("booking left unassigned, no eligible provider")
		return nil
	case errors.Is(err, assignment.ErrRaceLost):
		log.Debug("booking already taken")
		return nil
	case domain.IsRetryable(err):
		log.Warn("assignment failed on store error", zap.Error(err))
		return err
	default:
		log.Error("assignment rejected", zap.Error(err))
		return nil
	}
}
