package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/localserve/service-booking/internal/common/domain"
)

// Booking is the aggregate root for the booking domain.
type Booking struct {
	id         uuid.UUID
	serviceID  uuid.UUID
	customerID uuid.UUID
	providerID *uuid.UUID
	status     BookingStatus

	scheduledAt time.Time
	amountCents int64
	currency    string

	customerNotes string
	providerNotes string
	cancelNote    string

	assignedAt  *time.Time
	completedAt *time.Time
	cancelledAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a new Booking in status pending with no provider.
func NewBooking(
	serviceID uuid.UUID,
	customerID uuid.UUID,
	scheduledAt time.Time,
	amountCents int64,
	currency string,
	customerNotes string,
) (*Booking, error) {
	if serviceID == uuid.Nil {
		return nil, domain.NewValidationError("service ID is required")
	}
	if customerID == uuid.Nil {
		return nil, domain.NewValidationError("customer ID is required")
	}
	if scheduledAt.IsZero() {
		return nil, domain.NewValidationError("scheduled time is required")
	}
	if amountCents < 0 {
		return nil, domain.NewValidationError("amount cannot be negative")
	}
	if currency == "" {
		currency = domain.CurrencyUSD
	}

	now := time.Now().UTC()
	return &Booking{
		id:            uuid.New(),
		serviceID:     serviceID,
		customerID:    customerID,
		status:        StatusPending,
		scheduledAt:   scheduledAt.UTC(),
		amountCents:   amountCents,
		currency:      currency,
		customerNotes: customerNotes,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	serviceID uuid.UUID,
	customerID uuid.UUID,
	providerID *uuid.UUID,
	status BookingStatus,
	scheduledAt time.Time,
	amountCents int64,
	currency string,
	customerNotes string,
	providerNotes string,
	cancelNote string,
	assignedAt *time.Time,
	completedAt *time.Time,
	cancelledAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:            id,
		serviceID:     serviceID,
		customerID:    customerID,
		providerID:    providerID,
		status:        status,
		scheduledAt:   scheduledAt,
		amountCents:   amountCents,
		currency:      currency,
		customerNotes: customerNotes,
		providerNotes: providerNotes,
		cancelNote:    cancelNote,
		assignedAt:    assignedAt,
		completedAt:   completedAt,
		cancelledAt:   cancelledAt,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// ServiceID returns the requested service. It never changes after creation.
func (b *Booking) ServiceID() uuid.UUID { return b.serviceID }

// CustomerID returns the customer who requested the booking.
func (b *Booking) CustomerID() uuid.UUID { return b.customerID }

// ProviderID returns the assigned provider, or nil if none.
func (b *Booking) ProviderID() *uuid.UUID { return b.providerID }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// ScheduledAt returns when the service is to be performed.
func (b *Booking) ScheduledAt() time.Time { return b.scheduledAt }

// AmountCents returns the booking amount in minor units.
func (b *Booking) AmountCents() int64 { return b.amountCents }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// CustomerNotes returns the notes entered by the customer.
func (b *Booking) CustomerNotes() string { return b.customerNotes }

// ProviderNotes returns the latest notes entered by a provider.
func (b *Booking) ProviderNotes() string { return b.providerNotes }

// CancelNote returns the reason given for a terminal cancellation.
func (b *Booking) CancelNote() string { return b.cancelNote }

// AssignedAt returns when the current provider was assigned.
func (b *Booking) AssignedAt() *time.Time { return b.assignedAt }

// CompletedAt returns when the booking was completed.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// CancelledAt returns when the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// State returns the snapshot the state machine decides on.
func (b *Booking) State() State {
	return State{Status: b.status, ProviderID: b.providerID, CustomerID: b.customerID}
}

// --- Behavior ---

// Apply decides cmd with Transition and, when legal, mutates the booking
// accordingly and bumps its version. The booking is unchanged on error.
func (b *Booking) Apply(cmd Command, now time.Time) (Change, error) {
	change, err := Transition(b.State(), cmd)
	if err != nil {
		return Change{}, err
	}

	prev := *b
	now = now.UTC()
	b.status = change.To
	b.providerID = change.ProviderID

	switch change.Effect {
	case EffectAssigned:
		b.assignedAt = &now
	case EffectAccepted, EffectCompleted, EffectProviderCancelled:
		if cmd.Notes != "" {
			b.providerNotes = cmd.Notes
		}
	case EffectCancelled:
		b.cancelNote = cmd.Notes
	}

	switch {
	case change.To == StatusCompleted:
		b.completedAt = &now
	case change.To == StatusCancelled:
		b.cancelledAt = &now
	}
	if change.To == StatusAssigned && change.ProviderChanged() {
		b.assignedAt = &now
	}
	if !change.To.RequiresProvider() {
		b.assignedAt = nil
	}

	b.version++
	b.updatedAt = now

	if err := b.CheckInvariants(); err != nil {
		*b = prev
		return Change{}, err
	}
	return change, nil
}

// CheckInvariants verifies that a provider is referenced exactly when the
// status requires one.
func (b *Booking) CheckInvariants() error {
	if b.status.RequiresProvider() != (b.providerID != nil) {
		return fmt.Errorf("booking %s violates provider invariant in status %s", b.id, b.status)
	}
	return nil
}
