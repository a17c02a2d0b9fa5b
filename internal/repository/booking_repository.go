package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localserve/service-booking/internal/common/domain"
	bookingDomain "github.com/localserve/service-booking/internal/domain/booking"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ServiceID     uuid.UUID  `gorm:"type:uuid;index;not null"`
	CustomerID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	ProviderID    *uuid.UUID `gorm:"type:uuid;index"`
	Status        string     `gorm:"not null;size:20;index"`
	ScheduledAt   time.Time  `gorm:"not null"`
	AmountCents   int64      `gorm:"not null"`
	Currency      string     `gorm:"not null;size:3;default:'USD'"`
	CustomerNotes string     `gorm:"size:1000"`
	ProviderNotes string     `gorm:"size:1000"`
	CancelNote    string     `gorm:"size:500"`
	AssignedAt    *time.Time `gorm:""`
	CompletedAt   *time.Time `gorm:""`
	CancelledAt   *time.Time `gorm:""`
	Version       int64      `gorm:"not null;default:1"`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// BookingAssignmentModel is the GORM model for the booking_assignments audit table.
type BookingAssignmentModel struct {
	ID                 uint64     `gorm:"primaryKey;autoIncrement"`
	BookingID          uuid.UUID  `gorm:"type:uuid;index;not null"`
	ProviderID         *uuid.UUID `gorm:"type:uuid"`
	PreviousProviderID *uuid.UUID `gorm:"type:uuid"`
	Effect             string     `gorm:"not null;size:30"`
	ActorID            uuid.UUID  `gorm:"type:uuid;not null"`
	ActorRole          string     `gorm:"not null;size:20"`
	Notes              string     `gorm:"size:1000"`
	CreatedAt          time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingAssignmentModel) TableName() string {
	return "booking_assignments"
}

var errStaleBooking = errors.New("stale booking")

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, domain.NewStoreError("find booking by ID", err)
	}
	return toDomainBooking(&model), nil
}

// FindByCustomerID retrieves bookings for a specific customer with pagination.
func (r *GormBookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.list(ctx, "customer bookings", "created_at DESC", page, limit, "customer_id = ?", customerID)
}

// FindByProviderID retrieves bookings currently held by a provider with pagination.
func (r *GormBookingRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.list(ctx, "provider bookings", "scheduled_at ASC", page, limit, "provider_id = ?", providerID)
}

// ListUnassigned retrieves bookings waiting for a provider, oldest first.
func (r *GormBookingRepository) ListUnassigned(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	open := []string{bookingDomain.StatusPending.String(), bookingDomain.StatusUnassigned.String()}
	return r.list(ctx, "unassigned bookings", "created_at ASC", page, limit, "status IN ?", open)
}

func (r *GormBookingRepository) list(ctx context.Context, what, order string, page, limit int, query string, args ...interface{}) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where(query, args...).Count(&total).Error; err != nil {
		return nil, 0, domain.NewStoreError("count "+what, err)
	}

	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where(query, args...).
		Order(order).
		Scopes(paginate(page, limit)).
		Find(&models).Error; err != nil {
		return nil, 0, domain.NewStoreError("find "+what, err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bookings[i] = toDomainBooking(&models[i])
	}
	return bookings, total, nil
}

// ListAssignments returns the assignment history of a booking, oldest first.
func (r *GormBookingRepository) ListAssignments(ctx context.Context, bookingID uuid.UUID) ([]bookingDomain.AssignmentRecord, error) {
	var models []BookingAssignmentModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, domain.NewStoreError("list booking assignments", err)
	}

	records := make([]bookingDomain.AssignmentRecord, len(models))
	for i, m := range models {
		records[i] = bookingDomain.AssignmentRecord{
			BookingID:  m.BookingID,
			ProviderID: m.ProviderID,
			Previous:   m.PreviousProviderID,
			Effect:     bookingDomain.Effect(m.Effect),
			ActorID:    m.ActorID,
			ActorRole:  bookingDomain.ActorRole(m.ActorRole),
			Notes:      m.Notes,
			CreatedAt:  m.CreatedAt,
		}
	}
	return records, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(bk)).Error; err != nil {
		return domain.NewStoreError("save booking", err)
	}
	return nil
}

// CompareAndSet writes bk only if the stored row still has status expected
// and the version bk was loaded at. The audit record, when given, is written
// in the same transaction.
func (r *GormBookingRepository) CompareAndSet(ctx context.Context, bk *bookingDomain.Booking, expected bookingDomain.BookingStatus, record *bookingDomain.AssignmentRecord) (bool, error) {
	model := toBookingModel(bk)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&BookingModel{}).
			Where("id = ? AND status = ? AND version = ?", model.ID, expected.String(), bk.Version()-1).
			Updates(map[string]interface{}{
				"provider_id":    model.ProviderID,
				"status":         model.Status,
				"provider_notes": model.ProviderNotes,
				"cancel_note":    model.CancelNote,
				"assigned_at":    model.AssignedAt,
				"completed_at":   model.CompletedAt,
				"cancelled_at":   model.CancelledAt,
				"version":        model.Version,
				"updated_at":     model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errStaleBooking
		}

		if record == nil {
			return nil
		}
		return tx.Create(&BookingAssignmentModel{
			BookingID:          record.BookingID,
			ProviderID:         record.ProviderID,
			PreviousProviderID: record.Previous,
			Effect:             string(record.Effect),
			ActorID:            record.ActorID,
			ActorRole:          string(record.ActorRole),
			Notes:              record.Notes,
			CreatedAt:          record.CreatedAt,
		}).Error
	})

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleBooking):
		return false, nil
	default:
		return false, domain.NewStoreError("compare and set booking", err)
	}
}

func paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 20
		}
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
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

func toDomainBooking(m *BookingModel) *bookingDomain.Booking {
	return bookingDomain.ReconstructBooking(
		m.ID,
		m.ServiceID,
		m.CustomerID,
		m.ProviderID,
		bookingDomain.BookingStatus(m.Status),
		m.ScheduledAt,
		m.AmountCents,
		m.Currency,
		m.CustomerNotes,
		m.ProviderNotes,
		m.CancelNote,
		m.AssignedAt,
		m.CompletedAt,
		m.CancelledAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
