package application

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/localserve/service-booking/internal/common/domain"
	bookingDomain "github.com/localserve/service-booking/internal/domain/booking"
	"github.com/localserve/service-booking/internal/domain/notification"
	"github.com/localserve/service-booking/internal/domain/provider"
)

// memBookingRepo stores copies of bookings so that callers never share
// aggregates, like a real database would.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*bookingDomain.Booking
	records  []bookingDomain.AssignmentRecord
	casErr   error
	// beforeCAS runs inside CompareAndSet before the comparison, with the
	// lock released. Tests use it to simulate a concurrent writer.
	beforeCAS func()
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[uuid.UUID]*bookingDomain.Booking)}
}

func cloneBooking(b *bookingDomain.Booking) *bookingDomain.Booking {
	return bookingDomain.ReconstructBooking(
		b.ID(), b.ServiceID(), b.CustomerID(), b.ProviderID(), b.Status(),
		b.ScheduledAt(), b.AmountCents(), b.Currency(),
		b.CustomerNotes(), b.ProviderNotes(), b.CancelNote(),
		b.AssignedAt(), b.CompletedAt(), b.CancelledAt(),
		b.Version(), b.CreatedAt(), b.UpdatedAt(),
	)
}

func (r *memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id.String())
	}
	return cloneBooking(b), nil
}

func (r *memBookingRepo) stored(id uuid.UUID) *bookingDomain.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneBooking(r.bookings[id])
}

func (r *memBookingRepo) filter(keep func(*bookingDomain.Booking) bool) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	slices.SortFunc(out, func(a, b *bookingDomain.Booking) int { return a.CreatedAt().Compare(b.CreatedAt()) })
	return out, int64(len(out)), nil
}

func (r *memBookingRepo) FindByCustomerID(_ context.Context, customerID uuid.UUID, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	return r.filter(func(b *bookingDomain.Booking) bool { return b.CustomerID() == customerID })
}

func (r *memBookingRepo) FindByProviderID(_ context.Context, providerID uuid.UUID, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	return r.filter(func(b *bookingDomain.Booking) bool { return b.ProviderID() != nil && *b.ProviderID() == providerID })
}

func (r *memBookingRepo) ListUnassigned(_ context.Context, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	return r.filter(func(b *bookingDomain.Booking) bool { return b.Status().IsOpen() })
}

func (r *memBookingRepo) ListAssignments(_ context.Context, bookingID uuid.UUID) ([]bookingDomain.AssignmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bookingDomain.AssignmentRecord
	for _, rec := range r.records {
		if rec.BookingID == bookingID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memBookingRepo) Save(_ context.Context, b *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID()] = cloneBooking(b)
	return nil
}

func (r *memBookingRepo) CompareAndSet(_ context.Context, b *bookingDomain.Booking, expected bookingDomain.BookingStatus, rec *bookingDomain.AssignmentRecord) (bool, error) {
	if r.beforeCAS != nil {
		r.beforeCAS()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.casErr != nil {
		return false, r.casErr
	}
	cur, ok := r.bookings[b.ID()]
	if !ok || cur.Status() != expected || cur.Version() != b.Version()-1 {
		return false, nil
	}
	r.bookings[b.ID()] = cloneBooking(b)
	if rec != nil {
		r.records = append(r.records, *rec)
	}
	return true, nil
}

// bump simulates another writer committing a change to the booking.
func (r *memBookingRepo) bump(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.bookings[id]
	r.bookings[id] = bookingDomain.ReconstructBooking(
		b.ID(), b.ServiceID(), b.CustomerID(), b.ProviderID(), b.Status(),
		b.ScheduledAt(), b.AmountCents(), b.Currency(),
		b.CustomerNotes(), b.ProviderNotes(), b.CancelNote(),
		b.AssignedAt(), b.CompletedAt(), b.CancelledAt(),
		b.Version()+1, b.CreatedAt(), time.Now().UTC(),
	)
}

type memDirectory struct {
	providers []provider.Provider
	err       error
}

func (d *memDirectory) FindByID(_ context.Context, id uuid.UUID) (*provider.Provider, error) {
	for _, p := range d.providers {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, domain.NewNotFoundError("provider", id.String())
}

func (d *memDirectory) FindEligible(_ context.Context, serviceID uuid.UUID, exclude []uuid.UUID) ([]provider.Candidate, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []provider.Candidate
	for _, p := range d.providers {
		if p.EligibleFor(serviceID) && !slices.Contains(exclude, p.ID) {
			out = append(out, provider.Candidate{ProviderID: p.ID, Rating: p.Rating})
		}
	}
	return out, nil
}

// setEligibility flips the verified and active flags of a stored provider.
func (d *memDirectory) setEligibility(id uuid.UUID, verified, active bool) {
	for i := range d.providers {
		if d.providers[i].ID == id {
			d.providers[i].Verified = verified
			d.providers[i].Active = active
		}
	}
}

// snapshotDirectory answers FindEligible from the first result it saw, the
// way a read-through cache does until its entry expires. FindByID is live.
type snapshotDirectory struct {
	*memDirectory
	snapshot []provider.Candidate
	taken    bool
}

func (d *snapshotDirectory) FindEligible(ctx context.Context, serviceID uuid.UUID, exclude []uuid.UUID) ([]provider.Candidate, error) {
	if !d.taken {
		list, err := d.memDirectory.FindEligible(ctx, serviceID, exclude)
		if err != nil {
			return nil, err
		}
		d.snapshot, d.taken = list, true
	}
	return slices.Clone(d.snapshot), nil
}

type sentNotification struct {
	UserID uuid.UUID
	Kind   notification.Kind
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, kind notification.Kind, _ map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind})
}

func (n *recordingNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.sent)
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, _ string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
}

func (p *recordingPublisher) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.types)
}
