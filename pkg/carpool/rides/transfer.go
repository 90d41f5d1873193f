package rides

import (
	"time"

	"github.com/jezdimedoprace/carpool/pkg/carpool/models"
	"github.com/jezdimedoprace/carpool/pkg/carpool/route"
)

// MeetingPoint is the anchor a ride's waypoints are ordered from
type MeetingPoint struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// WaypointTransfer is one ordered stop of a ride
type WaypointTransfer struct {
	LocationID    uint    `json:"location_id"`
	PassengerName string  `json:"passenger_name"`
	Name          string  `json:"name"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	OrderNumber   *int    `json:"order_number,omitempty"`
}

// RideTransfer is a ride flattened for the API. It holds plain values only.
type RideTransfer struct {
	ID           uint               `json:"id"`
	Date         time.Time          `json:"date"`
	MeetingPoint MeetingPoint       `json:"meeting_point"`
	Waypoints    []WaypointTransfer `json:"waypoints"`
}

// Waypoints converts a ride's locations into ordering engine input.
func Waypoints(locations []models.Location) []route.Waypoint {
	wps := make([]route.Waypoint, len(locations))
	for i, loc := range locations {
		var passenger uint
		if loc.PassengerID != nil {
			passenger = *loc.PassengerID
		}
		wps[i] = route.Waypoint{
			ID:          loc.ID,
			PassengerID: passenger,
			Point:       route.Point{Lat: loc.Lat, Lng: loc.Lng},
			Order:       loc.OrderNumber,
		}
	}
	return wps
}

// ToTransfer flattens a ride with its passengers and locations loaded. The
// waypoints come out in route.Order sequence.
func ToTransfer(ride models.Ride) RideTransfer {
	names := make(map[uint]string, len(ride.Passengers))
	for _, p := range ride.Passengers {
		names[p.UserID] = p.User.Name
	}
	byID := make(map[uint]models.Location, len(ride.Locations))
	for _, loc := range ride.Locations {
		byID[loc.ID] = loc
	}

	meeting := route.Point{Lat: ride.MeetingLat, Lng: ride.MeetingLng}
	ordered := route.Order(meeting, Waypoints(ride.Locations))

	waypoints := make([]WaypointTransfer, len(ordered))
	for i, wp := range ordered {
		loc := byID[wp.ID]
		waypoints[i] = WaypointTransfer{
			LocationID:    loc.ID,
			PassengerName: names[wp.PassengerID],
			Name:          loc.Name,
			Lat:           loc.Lat,
			Lng:           loc.Lng,
			OrderNumber:   copyInt(loc.OrderNumber),
		}
	}

	return RideTransfer{
		ID:   ride.ID,
		Date: ride.Date,
		MeetingPoint: MeetingPoint{
			Name: ride.MeetingName,
			Lat:  ride.MeetingLat,
			Lng:  ride.MeetingLng,
		},
		Waypoints: waypoints,
	}
}

func copyInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
