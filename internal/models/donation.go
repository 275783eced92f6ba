package models

import (
	"time"

	"gorm.io/gorm"
)

type DonationCategory string

const (
	CategoryMoney          DonationCategory = "money"
	CategoryFood           DonationCategory = "food"
	CategoryClothing       DonationCategory = "clothing"
	CategorySchoolSupplies DonationCategory = "school-supplies"
	CategoryToys           DonationCategory = "toys"
	CategoryMedicine       DonationCategory = "medicine"
	CategoryBirthdayGift   DonationCategory = "birthday-gift"
	CategoryOther          DonationCategory = "other"
)

// DonationCategories lists every accepted category value, in the order the
// console presents them.
var DonationCategories = []DonationCategory{
	CategoryMoney,
	CategoryFood,
	CategoryClothing,
	CategorySchoolSupplies,
	CategoryToys,
	CategoryMedicine,
	CategoryBirthdayGift,
	CategoryOther,
}

type DistributionStatus string

const (
	StatusNotDistributed       DistributionStatus = "not_distributed"
	StatusPartiallyDistributed DistributionStatus = "partially_distributed"
	StatusFullyDistributed     DistributionStatus = "fully_distributed"
)

type Donation struct {
	gorm.Model
	Donor       string           `json:"donor"`
	Category    DonationCategory `json:"category" gorm:"index"`
	Quantity    *int             `json:"quantity"` // nil for non-quantifiable donations
	Unit        string           `json:"unit"`
	Description string           `json:"description"`
	Date        time.Time        `json:"date"`
	LocationID  uint             `json:"location_id" gorm:"index"`
	Location    Location         `json:"location" gorm:"foreignKey:LocationID"`
	Recipient   *GiftRecipient   `json:"recipient,omitempty" gorm:"foreignKey:DonationID"`
}

// GiftRecipient is the single designated recipient of a birthday-gift
// donation. Delivered flips true exactly once, via a conditional update.
type GiftRecipient struct {
	gorm.Model
	DonationID uint  `json:"donation_id" gorm:"uniqueIndex"`
	ChildID    uint  `json:"child_id" gorm:"index"`
	Child      Child `json:"child" gorm:"foreignKey:ChildID"`
	Delivered  bool  `json:"delivered"`
}

// Status derives the distribution status from the consumed total. Remaining
// stock is never stored; callers compute consumed from the ledger.
func (d *Donation) Status(consumed int) DistributionStatus {
	if consumed == 0 {
		return StatusNotDistributed
	}
	if d.Quantity != nil && consumed >= *d.Quantity {
		return StatusFullyDistributed
	}
	return StatusPartiallyDistributed
}
