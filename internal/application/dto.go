package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/localserve/service-booking/internal/domain/assignment"
	bookingDomain "github.com/localserve/service-booking/internal/domain/booking"
	"github.com/localserve/service-booking/internal/domain/provider"
)

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID            uuid.UUID  `json:"id"`
	ServiceID     uuid.UUID  `json:"service_id"`
	CustomerID    uuid.UUID  `json:"customer_id"`
	ProviderID    *uuid.UUID `json:"provider_id,omitempty"`
	Status        string     `json:"status"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	CustomerNotes string     `json:"customer_notes,omitempty"`
	ProviderNotes string     `json:"provider_notes,omitempty"`
	CancelNote    string     `json:"cancel_note,omitempty"`
	AssignedAt    *time.Time `json:"assigned_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AssignmentDTO is one entry of a booking's assignment history.
type AssignmentDTO struct {
	ProviderID         *uuid.UUID `json:"provider_id,omitempty"`
	PreviousProviderID *uuid.UUID `json:"previous_provider_id,omitempty"`
	Effect             string     `json:"effect"`
	ActorID            uuid.UUID  `json:"actor_id"`
	ActorRole          string     `json:"actor_role"`
	Notes              string     `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ReassignmentDTO reports what happened when a provider cancellation put the
// booking back into the assignment pool.
type ReassignmentDTO struct {
	Outcome    assignment.Outcome `json:"outcome"`
	ProviderID *uuid.UUID         `json:"provider_id,omitempty"`
}

// ActionResult is the result of a lifecycle action.
type ActionResult struct {
	Booking      BookingDTO       `json:"booking"`
	Reassignment *ReassignmentDTO `json:"reassignment,omitempty"`
}

// AssignResult is the result of a committed automatic assignment.
type AssignResult struct {
	Booking    BookingDTO           `json:"booking"`
	ProviderID uuid.UUID            `json:"provider_id"`
	Candidates []provider.Candidate `json:"candidates"`
}

// CandidatesDTO is a ranked preview of the providers a booking would go to.
type CandidatesDTO struct {
	BookingID  uuid.UUID            `json:"booking_id"`
	ServiceID  uuid.UUID            `json:"service_id"`
	Candidates []provider.Candidate `json:"candidates"`
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:            bk.ID(),
		ServiceID:     bk.ServiceID(),
		CustomerID:    bk.CustomerID(),
		ProviderID:    bk.ProviderID(),
		Status:        bk.Status().String(),
		ScheduledAt:   bk.ScheduledAt(),
		AmountCents:   bk.AmountCents(),
		Currency:      bk.Currency(),
		CustomerNotes: bk.CustomerNotes(),
		ProviderNotes: bk.ProviderNotes(),
		CancelNote:    bk.CancelNote(),
		AssignedAt:    bk.AssignedAt(),
		CompletedAt:   bk.CompletedAt(),
		CancelledAt:   bk.CancelledAt(),
		Version:       bk.Version(),
		CreatedAt:     bk.CreatedAt(),
		UpdatedAt:     bk.UpdatedAt(),
	}
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}

func toAssignmentDTO(r bookingDomain.AssignmentRecord) AssignmentDTO {
	return AssignmentDTO{
		ProviderID:         r.ProviderID,
		PreviousProviderID: r.Previous,
		Effect:             string(r.Effect),
		ActorID:            r.ActorID,
		ActorRole:          string(r.ActorRole),
		Notes:              r.Notes,
		CreatedAt:          r.CreatedAt,
	}
}
