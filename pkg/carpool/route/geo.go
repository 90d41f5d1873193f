// Package route orders the waypoints of a ride around its meeting point.
package route

import "math"

const earthRadiusKm = 6371.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Waypoint is a passenger stop. Order is the user-assigned position, nil when
// the stop follows the distance order.
type Waypoint struct {
	ID          uint
	PassengerID uint
	Point       Point
	Order       *int
}

// HasOrder reports whether the waypoint carries an explicit order number.
func (w Waypoint) HasOrder() bool {
	return w.Order != nil
}

// DistanceKm returns the great-circle distance in kilometres between a and b.
func DistanceKm(a, b Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
