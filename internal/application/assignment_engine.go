package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localserve/service-booking/internal/common/domain"
	"github.com/localserve/service-booking/internal/domain/assignment"
	bookingDomain "github.com/localserve/service-booking/internal/domain/booking"
	"github.com/localserve/service-booking/internal/domain/notification"
	"github.com/localserve/service-booking/internal/domain/provider"
)

var systemActor = bookingDomain.Actor{Role: bookingDomain.ActorSystem}

// AssignmentEngine picks the best eligible provider for an open booking and
// commits the assignment with a compare-and-set on the booking row.
type AssignmentEngine struct {
	repo      bookingDomain.BookingRepository
	directory provider.Directory
	preview   provider.Directory
	announcer *announcer
	logger    *zap.Logger
}

// NewAssignmentEngine creates a new AssignmentEngine. directory must read
// the current provider state; cached directories belong in
// WithPreviewDirectory.
func NewAssignmentEngine(
	repo bookingDomain.BookingRepository,
	directory provider.Directory,
	notifier notification.Notifier,
	publisher EventPublisher,
	logger *zap.Logger,
) *AssignmentEngine {
	return &AssignmentEngine{
		repo:      repo,
		directory: directory,
		preview:   directory,
		announcer: &announcer{notifier: notifier, publisher: publisher},
		logger:    logger,
	}
}

// Assign assigns the top ranked eligible provider, skipping any in exclude,
// to the booking. serviceID may be uuid.Nil to use the booking's own service.
//
// It returns assignment.ErrRaceLost when the booking is no longer open or
// changed before the commit, and assignment.ErrNoEligibleProvider when the
// pool is empty; both leave the booking untouched. Store failures come back
// as retryable StoreErrors. Assign never retries on its own.
func (e *AssignmentEngine) Assign(ctx context.Context, bookingID, serviceID uuid.UUID, exclude []uuid.UUID) (*AssignResult, error) {
	bk, err := e.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if serviceID == uuid.Nil {
		serviceID = bk.ServiceID()
	} else if serviceID != bk.ServiceID() {
		return nil, domain.NewValidationError(fmt.Sprintf("booking %s is not for service %s", bookingID, serviceID))
	}

	expected := bk.Status()
	if !expected.IsOpen() {
		e.logger.Debug("booking no longer open for assignment",
			zap.String("booking_id", bookingID.String()),
			zap.String("status", expected.String()),
		)
		return nil, assignment.ErrRaceLost
	}

	candidates, err := e.directory.FindEligible(ctx, serviceID, exclude)
	if err != nil {
		return nil, storeError("find eligible providers", err)
	}

	attempt := assignment.NewAttempt(bookingID, serviceID, exclude, candidates)
	top, ok, err := e.firstEligible(ctx, bookingID, serviceID, attempt.Candidates())
	if err != nil {
		return nil, err
	}
	if !ok {
		e.logger.Info("no eligible provider for booking",
			zap.String("booking_id", bookingID.String()),
			zap.String("service_id", serviceID.String()),
			zap.Int("excluded", len(exclude)),
		)
		return nil, fmt.Errorf("booking %s: %w", bookingID, assignment.ErrNoEligibleProvider)
	}

	now := time.Now().UTC()
	change, err := bk.Apply(bookingDomain.Command{
		Action:     bookingDomain.ActionAutoAssign,
		Actor:      systemActor,
		ProviderID: top.ProviderID,
	}, now)
	if err != nil {
		return nil, err
	}

	record := &bookingDomain.AssignmentRecord{
		BookingID:  bookingID,
		ProviderID: change.ProviderID,
		Previous:   change.PreviousProviderID,
		Effect:     change.Effect,
		ActorRole:  systemActor.Role,
		CreatedAt:  now,
	}
	committed, err := e.repo.CompareAndSet(ctx, bk, expected, record)
	if err != nil {
		return nil, storeError("commit assignment", err)
	}
	if !committed {
		e.logger.Debug("assignment race lost",
			zap.String("booking_id", bookingID.String()),
			zap.String("provider_id", top.ProviderID.String()),
		)
		return nil, assignment.ErrRaceLost
	}

	e.logger.Info("provider assigned",
		zap.String("booking_id", bookingID.String()),
		zap.String("provider_id", top.ProviderID.String()),
		zap.Float64("rating", top.Rating),
		zap.Int("candidates", len(attempt.Candidates())),
	)

	e.announcer.announce(ctx, bk, change, systemActor, "", len(exclude) > 0)

	return &AssignResult{
		Booking:    toBookingDTO(bk),
		ProviderID: top.ProviderID,
		Candidates: attempt.Candidates(),
	}, nil
}

// Candidates returns the ranked providers the booking would be offered to
// right now, without committing anything.
func (e *AssignmentEngine) Candidates(ctx context.Context, bookingID uuid.UUID) (*CandidatesDTO, error) {
	bk, err := e.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	candidates, err := e.preview.FindEligible(ctx, bk.ServiceID(), nil)
	if err != nil {
		return nil, storeError("find eligible providers", err)
	}

	ranked := assignment.Rank(candidates)
	if ranked == nil {
		ranked = []provider.Candidate{}
	}
	return &CandidatesDTO{
		BookingID:  bk.ID(),
		ServiceID:  bk.ServiceID(),
		Candidates: ranked,
	}, nil
}

// WithPreviewDirectory serves Candidates from dir, typically a cache in
// front of the engine's directory. Assign never reads from it.
func (e *AssignmentEngine) WithPreviewDirectory(dir provider.Directory) *AssignmentEngine {
	e.preview = dir
	return e
}

// firstEligible walks the ranked list and returns the first candidate that
// is still verified, active and offering serviceID when re-read from the
// directory.
func (e *AssignmentEngine) firstEligible(ctx context.Context, bookingID, serviceID uuid.UUID, ranked []provider.Candidate) (provider.Candidate, bool, error) {
	for _, c := range ranked {
		p, err := e.directory.FindByID(ctx, c.ProviderID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return provider.Candidate{}, false, storeError("confirm provider", err)
		}
		if !p.EligibleFor(serviceID) {
			e.logger.Info("skipping provider no longer eligible",
				zap.String("booking_id", bookingID.String()),
				zap.String("provider_id", c.ProviderID.String()),
			)
			continue
		}
		return c, true, nil
	}
	return provider.Candidate{}, false, nil
}

// storeError classifies err as a StoreError unless it already carries a code.
func storeError(op string, err error) error {
	if domain.CodeOf(err) != "" {
		return err
	}
	return domain.NewStoreError(op, err)
}
