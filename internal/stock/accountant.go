// Package stock guards the donation ledger: it decides whether a consumption
// may happen, inside the transaction that records it. Remaining stock is
// never stored; it is always derived from the consumption history.
package stock

import (
	"errors"

	"github.com/ruadoceu33/rua-do-ceu-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reserve checks that amount units can still be consumed from a donation.
// It must run inside the transaction that inserts the resulting consumption
// record: the donation row is locked before the consumed total is computed,
// so no concurrent check-in can read the same remainder. Reserve itself
// writes nothing.
func Reserve(tx *gorm.DB, donationID uint, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	var donation models.Donation
	err := LockForUpdate(tx).First(&donation, donationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDonationNotFound
		}
		return err
	}

	// Unquantified donations (e.g. plain monetary notes) are not stock-limited.
	if donation.Quantity == nil {
		return nil
	}

	consumed, err := Consumed(tx, donationID)
	if err != nil {
		return err
	}

	if consumed+amount > *donation.Quantity {
		return &InsufficientStockError{
			DonationID: donationID,
			Available:  *donation.Quantity - consumed,
			Requested:  amount,
		}
	}

	return nil
}

// Consumed sums quantity_consumed over the donation's present consumption
// records. Callers that need a consistent remaining value must run this in
// the same transaction or snapshot as the donation read.
func Consumed(tx *gorm.DB, donationID uint) (int, error) {
	var total int64
	err := tx.Model(&models.ConsumptionRecord{}).
		Where("donation_id = ? AND present = ?", donationID, true).
		Select("COALESCE(SUM(quantity_consumed), 0)").
		Scan(&total).Error
	return int(total), err
}

// LockForUpdate applies a row-level lock where the dialect supports it.
// SQLite has no FOR UPDATE; its writers already serialize per transaction.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Remaining computes quantity - consumed in one transaction. The second
// return value is false for unquantified donations.
func Remaining(tx *gorm.DB, donation *models.Donation) (int, bool, error) {
	if donation.Quantity == nil {
		return 0, false, nil
	}
	consumed, err := Consumed(tx, donation.ID)
	if err != nil {
		return 0, false, err
	}
	return *donation.Quantity - consumed, true, nil
}
