package booking

import (
	"fmt"

	"github.com/localserve/service-booking/internal/common/domain"
)

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusUnassigned BookingStatus = "unassigned"
	StatusAssigned   BookingStatus = "assigned"
	StatusAccepted   BookingStatus = "accepted"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

var allStatuses = map[BookingStatus]struct{}{
	StatusPending:    {},
	StatusUnassigned: {},
	StatusAssigned:   {},
	StatusAccepted:   {},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, ok := allStatuses[s]
	return ok
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsOpen reports whether the booking is waiting for a provider. Pending is an
// unassigned booking that no provider has been considered for yet.
func (s BookingStatus) IsOpen() bool {
	return s == StatusPending || s == StatusUnassigned
}

// RequiresProvider reports whether a booking in this status must reference a provider.
func (s BookingStatus) RequiresProvider() bool {
	switch s {
	case StatusAssigned, StatusAccepted, StatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to a BookingStatus, returning an error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", s))
	}
	return status, nil
}
