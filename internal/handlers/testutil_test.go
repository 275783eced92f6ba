package handlers

import (
	"testing"
	"time"

	"github.com/ruadoceu33/rua-do-ceu-api/internal/auth"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/config"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testEnv bundles the fixtures most handler tests need: a location, two
// children in it, and an authenticated collaborator cookie.
type testEnv struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
	cookie      string
	user        models.User
	location    models.Location
	childA      models.Child
	childB      models.Child
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// A single connection keeps the in-memory database shared.
	sqlDB.SetMaxOpenConns(1)

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
		t.Fatalf("failed to auto migrate: %v", err)
	}

	user := models.User{DiscordID: "123456789", Username: "colaborador"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	location := models.Location{Name: "Centro Comunitário Sul"}
	if err := db.Create(&location).Error; err != nil {
		t.Fatalf("failed to create location: %v", err)
	}

	childA := models.Child{Name: "Ana", BirthDate: time.Date(2016, 5, 1, 0, 0, 0, 0, time.UTC), LocationID: location.ID}
	childB := models.Child{Name: "Bruno", BirthDate: time.Date(2015, 9, 20, 0, 0, 0, 0, time.UTC), LocationID: location.ID}
	if err := db.Create(&childA).Error; err != nil {
		t.Fatalf("failed to create child: %v", err)
	}
	if err := db.Create(&childB).Error; err != nil {
		t.Fatalf("failed to create child: %v", err)
	}

	authHandler := auth.NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)
	token, err := authHandler.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	return &testEnv{
		db:          db,
		authHandler: authHandler,
		cookie:      "auth_token=" + token,
		user:        user,
		location:    location,
		childA:      childA,
		childB:      childB,
	}
}

func (e *testEnv) authInput() auth.AuthInput {
	return auth.AuthInput{Cookie: e.cookie}
}

func (e *testEnv) createDonation(t *testing.T, category models.DonationCategory, quantity *int, unit string) models.Donation {
	t.Helper()

	donation := models.Donation{
		Donor:      "Mercado União",
		Category:   category,
		Quantity:   quantity,
		Unit:       unit,
		Date:       time.Now(),
		LocationID: e.location.ID,
	}
	if err := e.db.Create(&donation).Error; err != nil {
		t.Fatalf("failed to create donation: %v", err)
	}
	return donation
}

func (e *testEnv) createGift(t *testing.T, recipient models.Child) models.Donation {
	t.Helper()

	one := 1
	donation := models.Donation{
		Donor:      "Dona Célia",
		Category:   models.CategoryBirthdayGift,
		Quantity:   &one,
		Unit:       "gift",
		Date:       time.Now(),
		LocationID: e.location.ID,
		Recipient:  &models.GiftRecipient{ChildID: recipient.ID},
	}
	if err := e.db.Create(&donation).Error; err != nil {
		t.Fatalf("failed to create gift donation: %v", err)
	}
	return donation
}

func intPtr(v int) *int {
	return &v
}

func uintPtr(v uint) *uint {
	return &v
}
