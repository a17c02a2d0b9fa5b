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

// ActionRequest is an inbound lifecycle action together with the actor
// performing it.
type ActionRequest struct {
	Action       bookingDomain.Action
	ActorID      uuid.UUID
	ActorRole    bookingDomain.ActorRole
	Notes        string
	ProviderID   uuid.UUID
	TargetStatus bookingDomain.BookingStatus
}

func (r ActionRequest) command() bookingDomain.Command {
	return bookingDomain.Command{
		Action:       r.Action,
		Actor:        bookingDomain.Actor{ID: r.ActorID, Role: r.ActorRole},
		Notes:        r.Notes,
		ProviderID:   r.ProviderID,
		TargetStatus: r.TargetStatus,
	}
}

// LifecycleController validates and applies lifecycle actions, and hands
// bookings released by their provider back to the AssignmentEngine.
type LifecycleController struct {
	repo      bookingDomain.BookingRepository
	directory provider.Directory
	engine    *AssignmentEngine
	announcer *announcer
	logger    *zap.Logger
}

// NewLifecycleController creates a new LifecycleController.
func NewLifecycleController(
	repo bookingDomain.BookingRepository,
	directory provider.Directory,
	engine *AssignmentEngine,
	notifier notification.Notifier,
	publisher EventPublisher,
	logger *zap.Logger,
) *LifecycleController {
	return &LifecycleController{
		repo:      repo,
		directory: directory,
		engine:    engine,
		announcer: &announcer{notifier: notifier, publisher: publisher},
		logger:    logger,
	}
}

// ApplyAction applies req to the booking. A rejected action leaves the
// stored booking unchanged. When a provider cancels, the booking is offered
// to the next eligible provider before ApplyAction returns; the outcome of
// that attempt is reported in the result and never fails the cancellation.
func (c *LifecycleController) ApplyAction(ctx context.Context, bookingID uuid.UUID, req ActionRequest) (*ActionResult, error) {
	log := c.logger.With(
		zap.String("booking_id", bookingID.String()),
		zap.String("action", string(req.Action)),
		zap.String("actor_id", req.ActorID.String()),
		zap.String("actor_role", string(req.ActorRole)),
	)

	bk, err := c.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	cmd := req.command()
	expected := bk.Status()
	if _, err := bookingDomain.Transition(bk.State(), cmd); err != nil {
		return nil, c.rejected(log, expected, err)
	}
	if err := c.checkProvider(ctx, req); err != nil {
		return nil, c.rejected(log, expected, err)
	}

	change, err := bk.Apply(cmd, time.Now().UTC())
	if err != nil {
		return nil, c.rejected(log, expected, err)
	}

	var record *bookingDomain.AssignmentRecord
	if change.ProviderChanged() {
		record = &bookingDomain.AssignmentRecord{
			BookingID:  bookingID,
			ProviderID: change.ProviderID,
			Previous:   change.PreviousProviderID,
			Effect:     change.Effect,
			ActorID:    req.ActorID,
			ActorRole:  req.ActorRole,
			Notes:      req.Notes,
			CreatedAt:  bk.UpdatedAt(),
		}
	}

	committed, err := c.repo.CompareAndSet(ctx, bk, expected, record)
	if err != nil {
		return nil, storeError("commit booking action", err)
	}
	if !committed {
		log.Debug("booking changed concurrently")
		return nil, domain.NewConflictError(fmt.Sprintf("booking %s was modified concurrently", bookingID))
	}

	if change.Effect == bookingDomain.EffectOverridden {
		log.Warn("booking status overridden by admin",
			zap.String("from", change.From.String()),
			zap.String("to", change.To.String()),
		)
	} else {
		log.Info("booking action applied",
			zap.String("from", change.From.String()),
			zap.String("to", change.To.String()),
		)
	}

	c.announcer.announce(ctx, bk, change, cmd.Actor, req.Notes, false)

	result := &ActionResult{Booking: toBookingDTO(bk)}
	if change.Effect == bookingDomain.EffectProviderCancelled {
		res, err := c.engine.Assign(ctx, bookingID, bk.ServiceID(), []uuid.UUID{req.ActorID})
		if err != nil {
			outcome := assignment.OutcomeOf(err)
			log.Info("booking returned to pool without reassignment",
				zap.String("outcome", string(outcome)),
				zap.Error(err),
			)
			result.Reassignment = &ReassignmentDTO{Outcome: outcome}
		} else {
			pid := res.ProviderID
			result.Booking = res.Booking
			result.Reassignment = &ReassignmentDTO{Outcome: assignment.OutcomeReassigned, ProviderID: &pid}
		}
	}
	return result, nil
}

// AutoAssign runs the assignment engine for the booking with no exclusions.
func (c *LifecycleController) AutoAssign(ctx context.Context, bookingID uuid.UUID) (*AssignResult, error) {
	return c.engine.Assign(ctx, bookingID, uuid.Nil, nil)
}

// checkProvider verifies the provider named by an admin assign or override.
func (c *LifecycleController) checkProvider(ctx context.Context, req ActionRequest) error {
	if req.ProviderID == uuid.Nil {
		return nil
	}
	if req.Action != bookingDomain.ActionAdminAssign && req.Action != bookingDomain.ActionOverride {
		return nil
	}

	p, err := c.directory.FindByID(ctx, req.ProviderID)
	if err != nil {
		return storeError("find provider", err)
	}
	if req.Action == bookingDomain.ActionAdminAssign && !p.Verified {
		return &domain.DomainError{
			Code:    domain.CodeInvalidTransition,
			Message: fmt.Sprintf("provider %s is not verified", p.ID),
		}
	}
	return nil
}

func (c *LifecycleController) rejected(log *zap.Logger, status bookingDomain.BookingStatus, err error) error {
	if errors.Is(err, domain.ErrUnauthorized) {
		log.Warn("unauthorized booking action", zap.Bool("security", true), zap.Error(err))
	} else {
		log.Info("booking action rejected", zap.String("status", status.String()), zap.Error(err))
	}
	return err
}
