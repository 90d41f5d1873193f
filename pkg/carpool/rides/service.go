package rides

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jezdimedoprace/carpool/pkg/carpool/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	ErrRideNotFound    = errors.New("ride not found")
	ErrUnknownLocation = errors.New("location does not belong to ride")
	ErrInvalidOrder    = errors.New("order number must be positive")
)

// WindowDays is the number of calendar days, today included, a ride week covers
const WindowDays = 8

// convertLimit bounds the goroutines converting one week
const convertLimit = 4

// OrderAssignment sets or clears the explicit order number of a location
type OrderAssignment struct {
	LocationID  uint `json:"location_id" binding:"required"`
	OrderNumber *int `json:"order_number" binding:"omitempty,min=1"`
}

// Service assembles and reorders the rides of a group
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService creates a ride service using the wall clock.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// WithClock returns a copy of the service that reads the time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

// WeekWindow returns the half-open interval [start, end) covering today and
// the following seven days in now's location.
func WeekWindow(now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end = start.AddDate(0, 0, WindowDays)
	return start, end
}

// RidesForCurrentWeek loads the group's rides scheduled in the current week
// window with passengers and locations, ordered by date then id.
func (s *Service) RidesForCurrentWeek(ctx context.Context, groupID uint) ([]models.Ride, error) {
	start, end := WeekWindow(s.now())

	var rides []models.Ride
	err := s.db.WithContext(ctx).
		Preload("Passengers", func(db *gorm.DB) *gorm.DB { return db.Order("ride_passengers.id ASC") }).
		Preload("Passengers.User").
		Preload("Locations", func(db *gorm.DB) *gorm.DB { return db.Order("locations.id ASC") }).
		Where("group_id = ? AND date >= ? AND date < ?", groupID, start.UTC(), end.UTC()).
		Order("date ASC, id ASC").
		Find(&rides).Error
	if err != nil {
		return nil, fmt.Errorf("load rides for group %d: %w", groupID, err)
	}
	return rides, nil
}

// OrderedWeek assembles the week and converts every ride with its waypoints
// in route order. The output keeps the assembled ride order.
func (s *Service) OrderedWeek(ctx context.Context, groupID uint) ([]RideTransfer, error) {
	rides, err := s.RidesForCurrentWeek(ctx, groupID)
	if err != nil {
		return nil, err
	}

	out := make([]RideTransfer, len(rides))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(convertLimit)
	for i := range rides {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = ToTransfer(rides[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetWaypointOrder writes explicit order numbers for locations of a ride. The
// caller must be a member of the group owning the ride; otherwise the ride is
// reported as not found. Every location must belong to the ride or nothing
// is written.
func (s *Service) SetWaypointOrder(ctx context.Context, groupID, userID, rideID uint, assignments []OrderAssignment) (RideTransfer, error) {
	var ride models.Ride
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member int64
		if err := tx.Model(&models.GroupMembership{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Count(&member).Error; err != nil {
			return err
		}
		if member == 0 {
			return ErrRideNotFound
		}

		if err := tx.Where("id = ? AND group_id = ?", rideID, groupID).First(&ride).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRideNotFound
			}
			return err
		}

		var ids []uint
		if err := tx.Model(&models.Location{}).Where("ride_id = ?", rideID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		known := make(map[uint]bool, len(ids))
		for _, id := range ids {
			known[id] = true
		}
		for _, a := range assignments {
			if !known[a.LocationID] {
				return fmt.Errorf("location %d: %w", a.LocationID, ErrUnknownLocation)
			}
			if a.OrderNumber != nil && *a.OrderNumber < 1 {
				return fmt.Errorf("location %d: %w", a.LocationID, ErrInvalidOrder)
			}
		}

		for _, a := range assignments {
			var value interface{} = gorm.Expr("NULL")
			if a.OrderNumber != nil {
				value = *a.OrderNumber
			}
			if err := tx.Model(&models.Location{}).
				Where("id = ? AND ride_id = ?", a.LocationID, rideID).
				Update("order_number", value).Error; err != nil {
				return err
			}
		}

		return tx.Preload("Passengers.User").
			Preload("Locations", func(db *gorm.DB) *gorm.DB { return db.Order("locations.id ASC") }).
			First(&ride, rideID).Error
	})
	if err != nil {
		if errors.Is(err, ErrRideNotFound) || errors.Is(err, ErrUnknownLocation) || errors.Is(err, ErrInvalidOrder) {
			return RideTransfer{}, err
		}
		return RideTransfer{}, fmt.Errorf("set waypoint order for ride %d: %w", rideID, err)
	}

	slog.InfoContext(ctx, "waypoint order written", "ride_id", rideID, "group_id", groupID, "user_id", userID, "locations", len(assignments))
	return ToTransfer(ride), nil
}
