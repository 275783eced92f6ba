package database

import (
	"log"

	"github.com/ruadoceu33/rua-do-ceu-api/internal/config"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto Migrate
	err = db.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.Location{},
		&models.Child{},
		&models.Donation{},
		&models.GiftRecipient{},
		&models.ConsumptionRecord{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate: %v", err)
	}

	return db
}
