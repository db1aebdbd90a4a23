package persistence

import (
	"fmt"

	"github.com/condo/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// AutoMigrate creates the schema from the GORM models.
// Production schemas come from the SQL migrations; this serves tests and local tooling.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return nil
}
