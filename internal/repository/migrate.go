package repository

import "gorm.io/gorm"

// AutoMigrate creates or updates every table the service owns. It is meant
// for development and tests; other environments run the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&BookingModel{},
		&BookingAssignmentModel{},
		&ProviderModel{},
		&ProviderServiceModel{},
		&NotificationModel{},
	)
}
