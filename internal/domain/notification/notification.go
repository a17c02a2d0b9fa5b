package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a notification is about.
type Kind string

const (
	KindBookingAssigned   Kind = "booking.assigned"
	KindBookingReassigned Kind = "booking.reassigned"
	KindBookingDelayed    Kind = "booking.delayed"
	KindBookingAccepted   Kind = "booking.accepted"
	KindBookingCompleted  Kind = "booking.completed"
	KindBookingCancelled  Kind = "booking.cancelled"
)

// Notification is a message recorded for a user.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      Kind
	Payload   map[string]string
	CreatedAt time.Time
}

// Notifier accepts notifications on a fire-and-forget basis. Implementations
// log their own failures; callers never inspect the outcome.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind Kind, payload map[string]string)
}

// Repository records notifications.
type Repository interface {
	Save(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error)
}
