package db

import (
	"gorm.io/gorm"

	"github.com/friendsincode/machinepark/internal/models"
)

// Migrate applies schema migrations for all persisted models.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		&models.Machine{},
	)
}
