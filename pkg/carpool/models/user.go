package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered person who can own or join groups
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `json:"-"`
	Name         string         `gorm:"not null" json:"name"`

	// OwnedGroupCount is the guard column for the ownership cap. It is only
	// incremented inside the transaction that inserts the owned group.
	OwnedGroupCount int `gorm:"not null;default:0" json:"-"`

	// Relationships
	GroupMemberships []GroupMembership `gorm:"foreignKey:UserID" json:"-"`
}
