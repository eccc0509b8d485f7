package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"ecitizenpay/internal/models"
)

// Migrate ensures the payment tables and their unique indexes exist.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		&models.PaymentAttempt{},
		&models.CallbackRecord{},
	}
}
