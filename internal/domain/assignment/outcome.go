package assignment

import (
	"errors"

	"github.com/localserve/service-booking/internal/common/domain"
)

var (
	// ErrNoEligibleProvider means the candidate pool was empty; the booking stays unassigned.
	ErrNoEligibleProvider = errors.New("no eligible provider")

	// ErrRaceLost means the booking left the unassigned state before the commit.
	ErrRaceLost = errors.New("assignment race lost")
)

// Outcome is the reportable result tag of an assignment attempt.
type Outcome string

const (
	OutcomeAssigned           Outcome = "assigned"
	OutcomeReassigned         Outcome = "reassigned"
	OutcomeNoEligibleProvider Outcome = "no_eligible_provider"
	OutcomeRaceLost           Outcome = "race_lost"
	OutcomeStoreError         Outcome = "store_error"
	OutcomeFailed             Outcome = "failed"
)

// OutcomeOf classifies the error returned by an assignment attempt.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAssigned
	case errors.Is(err, ErrNoEligibleProvider):
		return OutcomeNoEligibleProvider
	case errors.Is(err, ErrRaceLost):
		return OutcomeRaceLost
	case domain.IsRetryable(err):
		return OutcomeStoreError
	default:
		return OutcomeFailed
	}
}
