package route

import (
	"cmp"
	"slices"
)

type ranked struct {
	wp       Waypoint
	dist     float64
	rank     int // explicit order number, or 1-based distance position
	explicit bool
	pos      int // distance position, the final tiebreak
}

// ByDistance returns the waypoints sorted nearest-first from meeting. Equal
// distances fall back to passenger id, then waypoint id.
func ByDistance(meeting Point, waypoints []Waypoint) []Waypoint {
	items := distancePass(meeting, waypoints)
	out := make([]Waypoint, len(items))
	for i, it := range items {
		out[i] = it.wp
	}
	return out
}

// Order computes the visiting sequence of waypoints for a ride meeting at
// meeting. Waypoints are first ranked by distance; a waypoint with an explicit
// order number then takes that number as its rank while the others keep their
// distance position. On equal rank numbered waypoints go first, and the
// distance order settles the rest.
//
// The input slice is not modified. The result depends only on coordinates,
// ids and order numbers, so ordering an already ordered slice is a no-op.
func Order(meeting Point, waypoints []Waypoint) []Waypoint {
	items := distancePass(meeting, waypoints)

	for i := range items {
		items[i].pos = i + 1
		items[i].rank = i + 1
		if items[i].wp.Order != nil {
			items[i].rank = *items[i].wp.Order
			items[i].explicit = true
		}
	}

	slices.SortStableFunc(items, func(a, b ranked) int {
		if c := cmp.Compare(a.rank, b.rank); c != 0 {
			return c
		}
		if a.explicit != b.explicit {
			if a.explicit {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.pos, b.pos)
	})

	out := make([]Waypoint, len(items))
	for i, it := range items {
		out[i] = it.wp
	}
	return out
}

func distancePass(meeting Point, waypoints []Waypoint) []ranked {
	items := make([]ranked, len(waypoints))
	for i, wp := range waypoints {
		items[i] = ranked{wp: wp, dist: DistanceKm(meeting, wp.Point)}
	}
	slices.SortStableFunc(items, func(a, b ranked) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		if c := cmp.Compare(a.wp.PassengerID, b.wp.PassengerID); c != 0 {
			return c
		}
		return cmp.Compare(a.wp.ID, b.wp.ID)
	})
	return items
}
