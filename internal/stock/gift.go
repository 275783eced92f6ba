package stock

import (
	"errors"
	"fmt"

	"github.com/ruadoceu33/rua-do-ceu-api/internal/models"
	"gorm.io/gorm"
)

// Deliver hands a birthday gift to its designated recipient. The delivered
// flag is flipped by a conditional update, so of two concurrent attempts
// exactly one sees RowsAffected == 1; the loser gets AlreadyDeliveredError.
// A wrong-recipient call fails before touching the flag.
func Deliver(tx *gorm.DB, donationID, childID uint) error {
	var donation models.Donation
	err := LockForUpdate(tx).First(&donation, donationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDonationNotFound
		}
		return err
	}
	if donation.Category != models.CategoryBirthdayGift {
		return ErrNotGift
	}

	var recipient models.GiftRecipient
	if err := tx.Where("donation_id = ?", donationID).First(&recipient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("birthday gift %d has no recipient on record", donationID)
		}
		return err
	}
	if recipient.ChildID != childID {
		return &WrongRecipientError{
			DonationID:  donationID,
			ChildID:     childID,
			RecipientID: recipient.ChildID,
		}
	}

	res := tx.Model(&models.GiftRecipient{}).
		Where("donation_id = ? AND delivered = ?", donationID, false).
		Update("delivered", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &AlreadyDeliveredError{DonationID: donationID}
	}

	return nil
}

// ResetDelivery flips a gift's delivered flag back to false. Used when the
// session holding the gift's consumption record is deleted.
func ResetDelivery(tx *gorm.DB, donationID uint) error {
	return tx.Model(&models.GiftRecipient{}).
		Where("donation_id = ?", donationID).
		Update("delivered", false).Error
}
