// Package events holds the topic names, event types and payloads exchanged
// with other marketplace services over Kafka.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicBookingEvents   = "booking.events"
	TopicBookingRequests = "booking.requests"
)

// Event types published on TopicBookingEvents.
const (
	BookingAssigned          = "booking.assigned"
	BookingAccepted          = "booking.accepted"
	BookingProviderCancelled = "booking.provider_cancelled"
	BookingCompleted         = "booking.completed"
	BookingCancelled         = "booking.cancelled"
	BookingOverridden        = "booking.overridden"
)

// BookingRequested is the event type emitted by the customer booking flow on
// TopicBookingRequests once a booking row exists in status pending.
const BookingRequested = "booking.requested"

// BookingStatusChangedEvent is the payload of every TopicBookingEvents event.
type BookingStatusChangedEvent struct {
	BookingID          uuid.UUID  `json:"booking_id"`
	ServiceID          uuid.UUID  `json:"service_id"`
	CustomerID         uuid.UUID  `json:"customer_id"`
	ProviderID         *uuid.UUID `json:"provider_id,omitempty"`
	PreviousProviderID *uuid.UUID `json:"previous_provider_id,omitempty"`
	FromStatus         string     `json:"from_status"`
	ToStatus           string     `json:"to_status"`
	ActorID            uuid.UUID  `json:"actor_id"`
	ActorRole          string     `json:"actor_role"`
	Notes              string     `json:"notes,omitempty"`
	OccurredAt         time.Time  `json:"occurred_at"`
}

// BookingRequestedEvent is the payload of a BookingRequested event.
type BookingRequestedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
