package groups

import (
	"time"

	"github.com/jezdimedoprace/carpool/pkg/carpool/models"
)

// Flags are the status flags the client renders messages from
type Flags struct {
	NoGroupsFound         bool `json:"no_groups_found"`
	OwnershipLimitReached bool `json:"ownership_limit_reached"`
	FormErrorsPresent     bool `json:"form_errors_present"`
	GroupCreated          bool `json:"group_created"`
	DefaultError          bool `json:"default_error"`
}

// Place is an optional named coordinate on a group
type Place struct {
	Name string   `json:"name,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
}

// MemberResponse represents a group member in API responses
type MemberResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// GroupSummary is a group as shown in the group list
type GroupSummary struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsOwner     bool      `json:"is_owner"`
	CreatedAt   time.Time `json:"created_at"`
}

// GroupView is a group with its owner and members
type GroupView struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Owner       MemberResponse   `json:"owner"`
	Members     []MemberResponse `json:"members"`
	Home        *Place           `json:"home,omitempty"`
	Destination *Place           `json:"destination,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func toSummary(g models.Group, userID uint) GroupSummary {
	return GroupSummary{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		IsOwner:     g.OwnerID == userID,
		CreatedAt:   g.CreatedAt,
	}
}

func toMember(m models.GroupMembership) MemberResponse {
	return MemberResponse{
		ID:    m.User.ID,
		Email: m.User.Email,
		Name:  m.User.Name,
		Role:  string(m.Role),
	}
}

func toPlace(name string, lat, lng *float64) *Place {
	if name == "" && lat == nil && lng == nil {
		return nil
	}
	return &Place{Name: name, Lat: copyFloat(lat), Lng: copyFloat(lng)}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// toView expects Owner and Members.User to be loaded.
func toView(g models.Group) GroupView {
	members := make([]MemberResponse, len(g.Members))
	for i, m := range g.Members {
		members[i] = toMember(m)
	}
	return GroupView{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Owner: MemberResponse{
			ID:    g.Owner.ID,
			Email: g.Owner.Email,
			Name:  g.Owner.Name,
			Role:  string(models.GroupRoleOwner),
		},
		Members:     members,
		Home:        toPlace(g.HomeName, g.HomeLat, g.HomeLng),
		Destination: toPlace(g.DestinationName, g.DestinationLat, g.DestinationLng),
		CreatedAt:   g.CreatedAt,
	}
}
