package models

import (
	"time"

	"gorm.io/gorm"
)

type Child struct {
	gorm.Model
	Name       string    `json:"name"`
	BirthDate  time.Time `json:"birth_date"`
	LocationID uint      `json:"location_id" gorm:"index"`
	Location   Location  `json:"location" gorm:"foreignKey:LocationID"`
}
