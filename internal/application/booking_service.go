package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localserve/service-booking/internal/common/domain"
	bookingDomain "github.com/localserve/service-booking/internal/domain/booking"
)

// BookingService serves the read side of bookings.
type BookingService struct {
	repo   bookingDomain.BookingRepository
	logger *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(repo bookingDomain.BookingRepository, logger *zap.Logger) *BookingService {
	return &BookingService{
		repo:   repo,
		logger: logger,
	}
}

// GetBooking returns a booking visible to the actor: its customer, its
// current provider, or an admin.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !canView(bk, actor) {
		s.logger.Warn("booking read denied",
			zap.Bool("security", true),
			zap.String("booking_id", bookingID.String()),
			zap.String("actor_id", actor.ID.String()),
			zap.String("actor_role", string(actor.Role)),
		)
		return nil, domain.NewUnauthorizedError("booking is not visible to this user")
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// GetCustomerBookings returns a customer's bookings with pagination.
func (s *BookingService) GetCustomerBookings(ctx context.Context, customerID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByCustomerID(ctx, customerID, page, limit)
	if err != nil {
		return nil, err
	}

	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// GetProviderBookings returns the bookings currently held by a provider with pagination.
func (s *BookingService) GetProviderBookings(ctx context.Context, providerID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByProviderID(ctx, providerID, page, limit)
	if err != nil {
		return nil, err
	}

	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// ListUnassigned returns bookings waiting for a provider, oldest first.
func (s *BookingService) ListUnassigned(ctx context.Context, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.ListUnassigned(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// ListAssignments returns the assignment history of a booking.
func (s *BookingService) ListAssignments(ctx context.Context, bookingID uuid.UUID) ([]AssignmentDTO, error) {
	if _, err := s.repo.FindByID(ctx, bookingID); err != nil {
		return nil, err
	}

	records, err := s.repo.ListAssignments(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	dtos := make([]AssignmentDTO, len(records))
	for i, r := range records {
		dtos[i] = toAssignmentDTO(r)
	}
	return dtos, nil
}

func canView(bk *bookingDomain.Booking, actor bookingDomain.Actor) bool {
	switch actor.Role {
	case bookingDomain.ActorAdmin, bookingDomain.ActorSystem:
		return true
	case bookingDomain.ActorCustomer:
		return bk.CustomerID() == actor.ID
	case bookingDomain.ActorProvider:
		return bk.ProviderID() != nil && *bk.ProviderID() == actor.ID
	default:
		return false
	}
}
