package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localserve/service-booking/internal/common/domain"
	"github.com/localserve/service-booking/internal/domain/provider"
)

// ProviderModel is the GORM model for the providers table.
type ProviderModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	DisplayName string    `gorm:"not null;size:200"`
	Verified    bool      `gorm:"not null;default:false;index"`
	Active      bool      `gorm:"not null;default:true;index"`
	Rating      float64   `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ProviderModel) TableName() string {
	return "providers"
}

// ProviderServiceModel links a provider to a service it offers.
type ProviderServiceModel struct {
	ProviderID uuid.UUID `gorm:"type:uuid;primaryKey"`
	ServiceID  uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for the GORM model.
func (ProviderServiceModel) TableName() string {
	return "provider_services"
}

// GormProviderDirectory reads providers from the providers and
// provider_services tables.
type GormProviderDirectory struct {
	db *gorm.DB
}

// NewGormProviderDirectory creates a new GormProviderDirectory.
func NewGormProviderDirectory(db *gorm.DB) *GormProviderDirectory {
	return &GormProviderDirectory{db: db}
}

// FindByID retrieves a provider together with the services it offers.
func (d *GormProviderDirectory) FindByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	var model ProviderModel
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Provider", id.String())
		}
		return nil, domain.NewStoreError("find provider by ID", err)
	}

	var services []uuid.UUID
	if err := d.db.WithContext(ctx).
		Model(&ProviderServiceModel{}).
		Where("provider_id = ?", id).
		Order("service_id").
		Pluck("service_id", &services).Error; err != nil {
		return nil, domain.NewStoreError("find provider services", err)
	}

	return &provider.Provider{
		ID:              model.ID,
		DisplayName:     model.DisplayName,
		OfferedServices: services,
		Verified:        model.Verified,
		Active:          model.Active,
		Rating:          model.Rating,
	}, nil
}

// FindEligible returns the verified, active providers offering serviceID,
// minus those in exclude.
func (d *GormProviderDirectory) FindEligible(ctx context.Context, serviceID uuid.UUID, exclude []uuid.UUID) ([]provider.Candidate, error) {
	query := d.db.WithContext(ctx).
		Table("providers AS p").
		Select("p.id AS provider_id, p.rating AS rating").
		Joins("JOIN provider_services ps ON ps.provider_id = p.id").
		Where("ps.service_id = ? AND p.verified = ? AND p.active = ?", serviceID, true, true)
	if len(exclude) > 0 {
		ids := make([]string, len(exclude))
		for i, id := range exclude {
			ids[i] = id.String()
		}
		query = query.Where("p.id NOT IN ?", ids)
	}

	var candidates []provider.Candidate
	if err := query.Scan(&candidates).Error; err != nil {
		return nil, domain.NewStoreError("find eligible providers", err)
	}
	return candidates, nil
}

// Save upserts a provider and replaces its offered services.
func (d *GormProviderDirectory) Save(ctx context.Context, p *provider.Provider) error {
	now := time.Now().UTC()
	model := ProviderModel{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Verified:    p.Verified,
		Active:      p.Active,
		Rating:      p.Rating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "verified", "active", "rating", "updated_at"}),
		}).Create(&model).Error; err != nil {
			return err
		}

		if err := tx.Where("provider_id = ?", p.ID).Delete(&ProviderServiceModel{}).Error; err != nil {
			return err
		}
		if len(p.OfferedServices) == 0 {
			return nil
		}
		links := make([]ProviderServiceModel, len(p.OfferedServices))
		for i, s := range p.OfferedServices {
			links[i] = ProviderServiceModel{ProviderID: p.ID, ServiceID: s}
		}
		return tx.Create(&links).Error
	})
	if err != nil {
		return domain.NewStoreError("save provider", err)
	}
	return nil
}
