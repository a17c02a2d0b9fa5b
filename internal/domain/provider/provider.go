package provider

import (
	"context"

	"github.com/google/uuid"
)

// Provider is a service-performing actor as seen by the assignment core.
// The directory owns it; the core only reads it.
type Provider struct {
	ID              uuid.UUID
	DisplayName     string
	OfferedServices []uuid.UUID
	Verified        bool
	Active          bool
	Rating          float64
}

// Offers reports whether the provider offers serviceID.
func (p Provider) Offers(serviceID uuid.UUID) bool {
	for _, s := range p.OfferedServices {
		if s == serviceID {
			return true
		}
	}
	return false
}

// EligibleFor reports whether the provider may be assigned work for serviceID.
func (p Provider) EligibleFor(serviceID uuid.UUID) bool {
	return p.Verified && p.Active && p.Offers(serviceID)
}

// Candidate is an eligible provider with the score used for ranking.
type Candidate struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Rating     float64   `json:"rating"`
}

// Directory is the read-only provider lookup used by the assignment core.
type Directory interface {
	// FindByID returns the provider or a NotFound error.
	FindByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	// FindEligible returns verified, active providers offering serviceID whose
	// id is not in exclude. The order of the result is unspecified.
	FindEligible(ctx context.Context, serviceID uuid.UUID, exclude []uuid.UUID) ([]Candidate, error)
}
