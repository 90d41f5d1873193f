package models

import (
	"time"

	"gorm.io/gorm"
)

// Ride is one scheduled trip of a group. The meeting point is the anchor the
// waypoints are measured from; it is not itself a stop.
type Ride struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	GroupID     uint           `gorm:"not null;index:idx_group_date" json:"group_id"`
	Date        time.Time      `gorm:"not null;index:idx_group_date" json:"date"`
	MeetingName string         `json:"meeting_name"`
	MeetingLat  float64        `gorm:"not null" json:"meeting_lat"`
	MeetingLng  float64        `gorm:"not null" json:"meeting_lng"`

	// Relationships
	Group      Group           `gorm:"foreignKey:GroupID" json:"-"`
	Passengers []RidePassenger `gorm:"foreignKey:RideID" json:"-"`
	Locations  []Location      `gorm:"foreignKey:RideID" json:"-"`
}

// BeforeSave stores ride dates in UTC so window queries compare like values
func (r *Ride) BeforeSave(tx *gorm.DB) error {
	r.Date = r.Date.UTC()
	return nil
}

// RidePassenger links a group member to a ride
type RidePassenger struct {
	ID     uint `gorm:"primarykey" json:"id"`
	RideID uint `gorm:"not null;uniqueIndex:idx_ride_user" json:"ride_id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_ride_user" json:"user_id"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Location is a pickup or drop-off waypoint of a ride. It refers to its ride
// and passenger by id only.
type Location struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	RideID      uint      `gorm:"not null;index" json:"ride_id"`
	PassengerID *uint     `gorm:"index" json:"passenger_id,omitempty"`
	Name        string    `json:"name"`
	Lat         float64   `gorm:"not null" json:"lat"`
	Lng         float64   `gorm:"not null" json:"lng"`
	OrderNumber *int      `json:"order_number,omitempty"` // set by drag reordering
}
