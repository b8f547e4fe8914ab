package model

import (
	"fmt"

	"gorm.io/gorm"
)

// All returns every model the application persists, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{}, &Session{}, &Patient{}, &Physician{}, &Appointment{}, &SecurityLog{},
	}
}

// AutoMigrate creates or updates the schema for every model.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
