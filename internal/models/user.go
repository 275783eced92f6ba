package models

import (
	"gorm.io/gorm"
)

// User is a collaborator account, provisioned on first Discord login.
// Roles and profile management live outside this service.
type User struct {
	gorm.Model
	DiscordID string `gorm:"uniqueIndex"`
	Username  string
	Email     string
	Avatar    string
}
