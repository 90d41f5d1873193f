package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxOwnedGroups is the number of groups a single user may own at once
const MaxOwnedGroups = 4

// Group is a car-sharing group. The owner is the creator and is always a member.
type Group struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	OwnerID     uint           `gorm:"not null;index" json:"owner_id"`

	// Optional commute endpoints entered on the creation form
	HomeName        string   `json:"home_name,omitempty"`
	HomeLat         *float64 `json:"home_lat,omitempty"`
	HomeLng         *float64 `json:"home_lng,omitempty"`
	DestinationName string   `json:"destination_name,omitempty"`
	DestinationLat  *float64 `json:"destination_lat,omitempty"`
	DestinationLng  *float64 `json:"destination_lng,omitempty"`

	// Relationships
	Owner   User              `gorm:"foreignKey:OwnerID" json:"-"`
	Members []GroupMembership `gorm:"foreignKey:GroupID" json:"-"`
	Rides   []Ride            `gorm:"foreignKey:GroupID" json:"-"`
}
