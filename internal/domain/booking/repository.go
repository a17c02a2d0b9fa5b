package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AssignmentRecord is one audit entry written whenever a booking's provider changes.
type AssignmentRecord struct {
	BookingID  uuid.UUID
	ProviderID *uuid.UUID
	Previous   *uuid.UUID
	Effect     Effect
	ActorID    uuid.UUID
	ActorRole  ActorRole
	Notes      string
	CreatedAt  time.Time
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByCustomerID retrieves bookings of a customer with pagination.
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindByProviderID retrieves bookings currently held by a provider with pagination.
	FindByProviderID(ctx context.Context, providerID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// ListUnassigned retrieves pending and unassigned bookings, oldest first.
	ListUnassigned(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// ListAssignments returns the assignment history of a booking, oldest first.
	ListAssignments(ctx context.Context, bookingID uuid.UUID) ([]AssignmentRecord, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// CompareAndSet persists booking only if the stored row still has the
	// expected status and the version preceding booking.Version(). It reports
	// false, without error, when the row changed underneath. A non-nil record
	// is written in the same transaction.
	CompareAndSet(ctx context.Context, booking *Booking, expected BookingStatus, record *AssignmentRecord) (bool, error)
}
