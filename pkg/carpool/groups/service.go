package groups

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jezdimedoprace/carpool/pkg/carpool/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	ErrOwnershipLimitExceeded = errors.New("ownership limit exceeded")
	ErrGroupNotFound          = errors.New("group not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrNotOwner               = errors.New("only the group owner can manage members")
	ErrAlreadyMember          = errors.New("user is already a member")
	ErrMemberNotFound         = errors.New("member not found")
	ErrCannotRemoveOwner      = errors.New("the group owner cannot be removed")
)

var (
	groupsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carpool_groups_created_total",
		Help: "Total number of groups created",
	})
	ownershipLimitRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carpool_group_ownership_limit_rejections_total",
		Help: "Group creations rejected because the owner reached the ownership cap",
	})
)

// CreateGroupRequest is the group creation form
type CreateGroupRequest struct {
	Name            string   `json:"name" binding:"required,max=100"`
	Description     string   `json:"description" binding:"max=500"`
	HomeName        string   `json:"home_name" binding:"max=200"`
	HomeLat         *float64 `json:"home_lat" binding:"omitempty,latitude"`
	HomeLng         *float64 `json:"home_lng" binding:"omitempty,longitude"`
	DestinationName string   `json:"destination_name" binding:"max=200"`
	DestinationLat  *float64 `json:"destination_lat" binding:"omitempty,latitude"`
	DestinationLng  *float64 `json:"destination_lng" binding:"omitempty,longitude"`
}

// formErrors trims the name and reports what binding cannot catch: a blank
// name and coordinates given without their counterpart.
func (r *CreateGroupRequest) formErrors() map[string]string {
	errs := map[string]string{}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		errs["name"] = "This field is required"
	}
	check := func(latField, lngField string, lat, lng *float64) {
		switch {
		case lat != nil && lng == nil:
			errs[lngField] = pairMessage
		case lat == nil && lng != nil:
			errs[latField] = pairMessage
		}
	}
	check("home_lat", "home_lng", r.HomeLat, r.HomeLng)
	check("destination_lat", "destination_lng", r.DestinationLat, r.DestinationLng)
	return errs
}

const pairMessage = "Latitude and longitude must be given together"

// Service owns group lifecycle and membership rules
type Service struct {
	db       *gorm.DB
	maxOwned int
}

// NewService creates a group service. maxOwned outside 1..models.MaxOwnedGroups
// selects models.MaxOwnedGroups.
func NewService(db *gorm.DB, maxOwned int) *Service {
	if maxOwned <= 0 || maxOwned > models.MaxOwnedGroups {
		maxOwned = models.MaxOwnedGroups
	}
	return &Service{db: db, maxOwned: maxOwned}
}

// MaxOwnedGroups returns the ownership cap the service enforces.
func (s *Service) MaxOwnedGroups() int {
	return s.maxOwned
}

// FindGroupsContaining returns every group the user belongs to, owned or not,
// oldest first.
func (s *Service) FindGroupsContaining(ctx context.Context, userID uint) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).
		Joins("JOIN group_memberships ON group_memberships.group_id = groups.id AND group_memberships.deleted_at IS NULL").
		Where("group_memberships.user_id = ?", userID).
		Order("groups.created_at ASC, groups.id ASC").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("find groups for user %d: %w", userID, err)
	}
	return groups, nil
}

// CountOwnedGroups returns the number of groups owned by the user.
func (s *Service) CountOwnedGroups(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("owner_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count owned groups for user %d: %w", userID, err)
	}
	return count, nil
}

// CanCreateGroup reports whether the user is below the ownership cap. It is
// advisory only; CreateGroup enforces the cap itself.
func (s *Service) CanCreateGroup(ctx context.Context, userID uint) (bool, error) {
	count, err := s.CountOwnedGroups(ctx, userID)
	if err != nil {
		return false, err
	}
	return count < int64(s.maxOwned), nil
}

// CreateGroup creates a group owned by ownerID and makes the owner its first
// member. The owner's counter is bumped with a conditional update in the same
// transaction, so concurrent creations by one owner cannot exceed the cap.
func (s *Service) CreateGroup(ctx context.Context, req CreateGroupRequest, ownerID uint) (models.Group, error) {
	var group models.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND owned_group_count < ?", ownerID, s.maxOwned).
			UpdateColumn("owned_group_count", gorm.Expr("owned_group_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.User{}).Where("id = ?", ownerID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return ErrUserNotFound
			}
			return ErrOwnershipLimitExceeded
		}

		group = models.Group{
			Name:            strings.TrimSpace(req.Name),
			Description:     strings.TrimSpace(req.Description),
			OwnerID:         ownerID,
			HomeName:        strings.TrimSpace(req.HomeName),
			HomeLat:         req.HomeLat,
			HomeLng:         req.HomeLng,
			DestinationName: strings.TrimSpace(req.DestinationName),
			DestinationLat:  req.DestinationLat,
			DestinationLng:  req.DestinationLng,
		}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}

		membership := models.GroupMembership{
			UserID:  ownerID,
			GroupID: group.ID,
			Role:    models.GroupRoleOwner,
		}
		return tx.Create(&membership).Error
	})

	switch {
	case err == nil:
		groupsCreatedTotal.Inc()
		slog.InfoContext(ctx, "group created", "group_id", group.ID, "owner_id", ownerID)
		return group, nil
	case errors.Is(err, ErrOwnershipLimitExceeded):
		ownershipLimitRejectionsTotal.Inc()
		slog.InfoContext(ctx, "group ownership limit reached", "owner_id", ownerID, "limit", s.maxOwned)
		return models.Group{}, err
	case errors.Is(err, ErrUserNotFound):
		return models.Group{}, err
	default:
		return models.Group{}, fmt.Errorf("create group for user %d: %w", ownerID, err)
	}
}

// FindGroupForUser returns the group only when the user is a member of it.
// A missing group and a group the user does not belong to both yield
// ErrGroupNotFound.
func (s *Service) FindGroupForUser(ctx context.Context, groupID, userID uint) (models.Group, error) {
	var group models.Group
	err := s.db.WithContext(ctx).
		Joins("JOIN group_memberships ON group_memberships.group_id = groups.id AND group_memberships.deleted_at IS NULL").
		Where("groups.id = ? AND group_memberships.user_id = ?", groupID, userID).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Group{}, ErrGroupNotFound
		}
		return models.Group{}, fmt.Errorf("find group %d for user %d: %w", groupID, userID, err)
	}
	return group, nil
}

// IsMember reports whether the user belongs to the group.
func (s *Service) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	_, err := s.FindGroupForUser(ctx, groupID, userID)
	if errors.Is(err, ErrGroupNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindGroupWithMembers loads the group with its owner and members. Callers
// authorize with FindGroupForUser first.
func (s *Service) FindGroupWithMembers(ctx context.Context, groupID uint) (models.Group, error) {
	var group models.Group
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("group_memberships.id ASC") }).
		Preload("Members.User").
		First(&group, groupID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Group{}, ErrGroupNotFound
		}
		return models.Group{}, fmt.Errorf("load group %d: %w", groupID, err)
	}
	return group, nil
}

// requireOwner checks inside tx that actorID owns groupID. Non-members get
// ErrGroupNotFound, plain members ErrNotOwner.
func requireOwner(tx *gorm.DB, groupID, actorID uint) (models.Group, error) {
	var group models.Group
	err := tx.Joins("JOIN group_memberships ON group_memberships.group_id = groups.id AND group_memberships.deleted_at IS NULL").
		Where("groups.id = ? AND group_memberships.user_id = ?", groupID, actorID).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Group{}, ErrGroupNotFound
		}
		return models.Group{}, err
	}
	if group.OwnerID != actorID {
		return models.Group{}, ErrNotOwner
	}
	return group, nil
}

// AddMember adds the user registered under email to the group. Only the owner
// may add members.
func (s *Service) AddMember(ctx context.Context, groupID, actorID uint, email string) (models.GroupMembership, error) {
	var membership models.GroupMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireOwner(tx, groupID, actorID); err != nil {
			return err
		}

		var target models.User
		if err := tx.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.GroupMembership{}).Where("user_id = ? AND group_id = ?", target.ID, groupID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyMember
		}

		membership = models.GroupMembership{
			UserID:  target.ID,
			GroupID: groupID,
			Role:    models.GroupRoleMember,
			User:    target,
		}
		return tx.Omit("User", "Group").Create(&membership).Error
	})
	if err != nil {
		if isDomainError(err) {
			return models.GroupMembership{}, err
		}
		return models.GroupMembership{}, fmt.Errorf("add member to group %d: %w", groupID, err)
	}

	slog.InfoContext(ctx, "group member added", "group_id", groupID, "user_id", membership.UserID, "actor_id", actorID)
	return membership, nil
}

// RemoveMember removes memberID from the group. Only the owner may remove
// members and the owner can never be removed.
func (s *Service) RemoveMember(ctx context.Context, groupID, actorID, memberID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := requireOwner(tx, groupID, actorID)
		if err != nil {
			return err
		}
		if memberID == group.OwnerID {
			return ErrCannotRemoveOwner
		}

		// Hard delete so the (user, group) unique index allows re-adding later
		res := tx.Unscoped().Where("user_id = ? AND group_id = ?", memberID, groupID).Delete(&models.GroupMembership{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMemberNotFound
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return fmt.Errorf("remove member %d from group %d: %w", memberID, groupID, err)
	}

	slog.InfoContext(ctx, "group member removed", "group_id", groupID, "user_id", memberID, "actor_id", actorID)
	return nil
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrGroupNotFound, ErrUserNotFound, ErrNotOwner,
		ErrAlreadyMember, ErrMemberNotFound, ErrCannotRemoveOwner,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
