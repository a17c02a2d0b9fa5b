package assignment

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/google/uuid"

	"github.com/localserve/service-booking/internal/domain/provider"
)

// Rank orders candidates by rating descending, breaking ties by provider id
// ascending. The input slice is not modified.
func Rank(candidates []provider.Candidate) []provider.Candidate {
	ranked := slices.Clone(candidates)
	slices.SortFunc(ranked, func(a, b provider.Candidate) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		return bytes.Compare(a.ProviderID[:], b.ProviderID[:])
	})
	return ranked
}

// Attempt is the ranked candidate list computed for one assignment. It is
// never persisted.
type Attempt struct {
	BookingID uuid.UUID
	ServiceID uuid.UUID
	Excluded  []uuid.UUID
	ranked    []provider.Candidate
}

// NewAttempt ranks candidates, dropping any that appear in exclude.
func NewAttempt(bookingID, serviceID uuid.UUID, exclude []uuid.UUID, candidates []provider.Candidate) Attempt {
	filtered := make([]provider.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !slices.Contains(exclude, c.ProviderID) {
			filtered = append(filtered, c)
		}
	}
	return Attempt{
		BookingID: bookingID,
		ServiceID: serviceID,
		Excluded:  slices.Clone(exclude),
		ranked:    Rank(filtered),
	}
}

// Candidates returns a copy of the ranked list.
func (a Attempt) Candidates() []provider.Candidate {
	return slices.Clone(a.ranked)
}

// Top returns the best candidate, or false when there is none.
func (a Attempt) Top() (provider.Candidate, bool) {
	if len(a.ranked) == 0 {
		return provider.Candidate{}, false
	}
	return a.ranked[0], true
}
