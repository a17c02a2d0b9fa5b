package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/localserve/service-booking/internal/common/domain"
	"github.com/localserve/service-booking/internal/domain/notification"
)

// NotificationModel is the GORM model for the notifications table.
type NotificationModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID      `gorm:"type:uuid;index;not null"`
	Kind      string         `gorm:"not null;size:50"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (NotificationModel) TableName() string {
	return "notifications"
}

// GormNotificationRepository records notifications.
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository.
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Save records a notification. A zero ID or CreatedAt is filled in.
func (r *GormNotificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return domain.NewValidationError("notification payload is not serializable")
	}

	model := NotificationModel{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      string(n.Kind),
		Payload:   datatypes.JSON(payload),
		CreatedAt: n.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.NewStoreError("save notification", err)
	}
	return nil
}

// ListByUser returns the most recent notifications of a user, newest first.
func (r *GormNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]notification.Notification, error) {
	var models []NotificationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, domain.NewStoreError("list notifications", err)
	}

	out := make([]notification.Notification, len(models))
	for i, m := range models {
		var payload map[string]string
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return nil, domain.NewStoreError("decode notification payload", err)
		}
		out[i] = notification.Notification{
			ID:        m.ID,
			UserID:    m.UserID,
			Kind:      notification.Kind(m.Kind),
			Payload:   payload,
			CreatedAt: m.CreatedAt,
		}
	}
	return out, nil
}
