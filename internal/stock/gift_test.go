package stock

import (
	"errors"
	"testing"
	"time"

	"github.com/ruadoceu33/rua-do-ceu-api/internal/models"
	"gorm.io/gorm"
)

func createGift(t *testing.T, db *gorm.DB) (models.Donation, models.Child, models.Child) {
	t.Helper()

	location := models.Location{Name: "Centro Aniversários"}
	if err := db.Create(&location).Error; err != nil {
		t.Fatalf("failed to create location: %v", err)
	}

	recipient := models.Child{Name: "Xuxa", BirthDate: time.Date(2018, 3, 14, 0, 0, 0, 0, time.UTC), LocationID: location.ID}
	other := models.Child{Name: "Yago", BirthDate: time.Date(2017, 7, 2, 0, 0, 0, 0, time.UTC), LocationID: location.ID}
	if err := db.Create(&recipient).Error; err != nil {
		t.Fatalf("failed to create child: %v", err)
	}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("failed to create child: %v", err)
	}

	one := 1
	donation := models.Donation{
		Donor:      "Tia Maria",
		Category:   models.CategoryBirthdayGift,
		Quantity:   &one,
		Unit:       "gift",
		Date:       time.Now(),
		LocationID: location.ID,
		Recipient:  &models.GiftRecipient{ChildID: recipient.ID},
	}
	if err := db.Create(&donation).Error; err != nil {
		t.Fatalf("failed to create gift donation: %v", err)
	}

	return donation, recipient, other
}

func TestDeliver_ScenarioB(t *testing.T) {
	db := setupTestDB(t)
	donation, recipient, other := createGift(t, db)

	// First delivery succeeds.
	err := db.Transaction(func(tx *gorm.DB) error {
		return Deliver(tx, donation.ID, recipient.ID)
	})
	if err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}

	var flag models.GiftRecipient
	if err := db.Where("donation_id = ?", donation.ID).First(&flag).Error; err != nil {
		t.Fatalf("failed to load recipient: %v", err)
	}
	if !flag.Delivered {
		t.Error("expected delivered flag to be set")
	}

	// Second delivery fails, whoever asks.
	err = db.Transaction(func(tx *gorm.DB) error {
		return Deliver(tx, donation.ID, recipient.ID)
	})
	var already *AlreadyDeliveredError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadyDeliveredError, got %v", err)
	}

	// Wrong child fails with a distinct error.
	err = db.Transaction(func(tx *gorm.DB) error {
		return Deliver(tx, donation.ID, other.ID)
	})
	var wrong *WrongRecipientError
	if !errors.As(err, &wrong) {
		t.Fatalf("expected WrongRecipientError, got %v", err)
	}
	if wrong.RecipientID != recipient.ID {
		t.Errorf("expected recipient id %d in error, got %d", recipient.ID, wrong.RecipientID)
	}
}

func TestDeliver_WrongRecipientHasNoSideEffect(t *testing.T) {
	db := setupTestDB(t)
	donation, _, other := createGift(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Deliver(tx, donation.ID, other.ID)
	})
	var wrong *WrongRecipientError
	if !errors.As(err, &wrong) {
		t.Fatalf("expected WrongRecipientError, got %v", err)
	}

	var flag models.GiftRecipient
	if err := db.Where("donation_id = ?", donation.ID).First(&flag).Error; err != nil {
		t.Fatalf("failed to load recipient: %v", err)
	}
	if flag.Delivered {
		t.Error("wrong-recipient attempt must not flip the delivered flag")
	}
}

func TestDeliver_NotAGift(t *testing.T) {
	db := setupTestDB(t)
	five := 5
	donation := createDonation(t, db, models.CategoryFood, &five, "kg")

	err := db.Transaction(func(tx *gorm.DB) error {
		return Deliver(tx, donation.ID, 1)
	})
	if !errors.Is(err, ErrNotGift) {
		t.Fatalf("expected ErrNotGift, got %v", err)
	}
}

func TestResetDelivery(t *testing.T) {
	db := setupTestDB(t)
	donation, recipient, _ := createGift(t, db)

	if err := db.Transaction(func(tx *gorm.DB) error {
		return Deliver(tx, donation.ID, recipient.ID)
	}); err != nil {
		t.Fatalf("delivery failed: %v", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return ResetDelivery(tx, donation.ID)
	}); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	// Deliverable again after reset.
	if err := db.Transaction(func(tx *gorm.DB) error {
		return Deliver(tx, donation.ID, recipient.ID)
	}); err != nil {
		t.Fatalf("second delivery after reset failed: %v", err)
	}
}
