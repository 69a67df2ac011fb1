package db

import (
	"fmt"

	"github.com/dreamreel/dreamreel-api/internal/models"
	"gorm.io/gorm"
)

// Migrate applies schema migrations for all persisted models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.Subscription{},
		&models.UsageCounter{},
		&models.WebhookEvent{},
		&models.GeneratedImage{},
		&models.GeneratedVideo{},
	)
}
