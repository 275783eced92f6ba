package models

import (
	"gorm.io/gorm"
)

// ConsumptionRecord is one child's attendance outcome within a roll-call
// session. Absent children get a row too, so headcount stays auditable.
// Records are never edited in place: corrections delete and recreate the
// whole session.
type ConsumptionRecord struct {
	gorm.Model
	SessionID        string    `json:"session_id" gorm:"index;not null"`
	ChildID          uint      `json:"child_id" gorm:"index"`
	Child            Child     `json:"child" gorm:"foreignKey:ChildID"`
	LocationID       uint      `json:"location_id" gorm:"index"`
	Present          bool      `json:"present"`
	DonationID       *uint     `json:"donation_id" gorm:"index"`
	Donation         *Donation `json:"donation,omitempty" gorm:"foreignKey:DonationID"`
	QuantityConsumed *int      `json:"quantity_consumed"`
	Observations     string    `json:"observations"`
	RecordedByID     uint      `json:"recorded_by_id"`
}
