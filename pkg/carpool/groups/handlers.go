package groups

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jezdimedoprace/carpool/pkg/carpool/auth"
	"github.com/jezdimedoprace/carpool/pkg/carpool/rides"
)

// Handler handles group-related requests
type Handler struct {
	service *Service
	rides   *rides.Service
}

// NewHandler creates a new groups handler
func NewHandler(service *Service, rideService *rides.Service) *Handler {
	useJSONFieldNames()
	return &Handler{service: service, rides: rideService}
}

// ListResponse is the group list page
type ListResponse struct {
	Groups []GroupSummary `json:"groups"`
	Flags  Flags          `json:"flags"`
}

// NewGroupResponse is the empty creation form, or the limit flag
type NewGroupResponse struct {
	Form           *CreateGroupRequest `json:"form,omitempty"`
	OwnedGroups    int64               `json:"owned_groups"`
	MaxOwnedGroups int                 `json:"max_owned_groups"`
	Flags          Flags               `json:"flags"`
}

// CreateResponse is the outcome of a creation form submission
type CreateResponse struct {
	Group  *GroupView          `json:"group,omitempty"`
	Form   *CreateGroupRequest `json:"form,omitempty"`
	Errors map[string]string   `json:"errors,omitempty"`
	Flags  Flags               `json:"flags"`
}

// GroupPageResponse is a group with its members and ride week
type GroupPageResponse struct {
	Group GroupView            `json:"group"`
	Rides []rides.RideTransfer `json:"rides"`
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report json field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// validationMessages maps each invalid field to a readable message.
func validationMessages(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": "Malformed request body"}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out[field] = "This field is required"
		case "max":
			out[field] = "Must be at most " + fe.Param() + " characters"
		case "latitude":
			out[field] = "Must be a latitude between -90 and 90"
		case "longitude":
			out[field] = "Must be a longitude between -180 and 180"
		default:
			out[field] = "Invalid value"
		}
	}
	return out
}

func parseGroupID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// List returns all groups the current user is a member of
// @Summary List groups
// @Description Get all groups the current user owns or belongs to
// @Tags groups
// @Produce json
// @Success 200 {object} ListResponse
// @Security BearerAuth
// @Router /groups [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	groups, err := h.service.FindGroupsContaining(c.Request.Context(), userID)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "list groups failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, ListResponse{Groups: []GroupSummary{}, Flags: Flags{DefaultError: true}})
		return
	}

	summaries := make([]GroupSummary, len(groups))
	for i, g := range groups {
		summaries[i] = toSummary(g, userID)
	}

	c.JSON(http.StatusOK, ListResponse{
		Groups: summaries,
		Flags:  Flags{NoGroupsFound: len(groups) == 0},
	})
}

// New returns an empty creation form, or the limit flag when the user cannot
// create another group
// @Summary New group form
// @Description Check whether the current user may create another group
// @Tags groups
// @Produce json
// @Success 200 {object} NewGroupResponse
// @Security BearerAuth
// @Router /groups/new [get]
func (h *Handler) New(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	ctx := c.Request.Context()

	allowed, err := h.service.CanCreateGroup(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "check ownership limit failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, NewGroupResponse{Flags: Flags{DefaultError: true}})
		return
	}
	owned, err := h.service.CountOwnedGroups(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "count owned groups failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, NewGroupResponse{Flags: Flags{DefaultError: true}})
		return
	}

	resp := NewGroupResponse{OwnedGroups: owned, MaxOwnedGroups: h.service.MaxOwnedGroups()}
	if allowed {
		resp.Form = &CreateGroupRequest{}
	} else {
		resp.Flags.OwnershipLimitReached = true
	}
	c.JSON(http.StatusOK, resp)
}

// Create creates a new group owned by the current user
// @Summary Create a group
// @Description Create a new group with the current user as owner. A user may own at most four groups.
// @Tags groups
// @Accept json
// @Produce json
// @Param request body CreateGroupRequest true "Group details"
// @Success 201 {object} CreateResponse
// @Failure 400 {object} CreateResponse "Validation error"
// @Failure 409 {object} CreateResponse "Ownership limit reached"
// @Security BearerAuth
// @Router /groups [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, CreateResponse{
			Form:   &req,
			Errors: validationMessages(err),
			Flags:  Flags{FormErrorsPresent: true},
		})
		return
	}
	if errs := req.formErrors(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, CreateResponse{
			Form:   &req,
			Errors: errs,
			Flags:  Flags{FormErrorsPresent: true},
		})
		return
	}

	group, err := h.service.CreateGroup(c.Request.Context(), req, userID)
	switch {
	case err == nil:
	case errors.Is(err, ErrOwnershipLimitExceeded):
		c.JSON(http.StatusConflict, CreateResponse{Flags: Flags{OwnershipLimitReached: true}})
		return
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	default:
		slog.ErrorContext(c.Request.Context(), "create group failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, CreateResponse{Form: &req, Flags: Flags{DefaultError: true}})
		return
	}

	full, err := h.service.FindGroupWithMembers(c.Request.Context(), group.ID)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "load created group failed", "group_id", group.ID, "error", err)
		c.JSON(http.StatusInternalServerError, CreateResponse{Flags: Flags{DefaultError: true}})
		return
	}

	view := toView(full)
	c.JSON(http.StatusCreated, CreateResponse{Group: &view, Flags: Flags{GroupCreated: true}})
}

// Get returns a group with its members and ordered ride week
// @Summary Get a group
// @Description Group details, members and the rides of the current week with ordered waypoints
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} GroupPageResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /groups/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, ok := parseGroupID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}
	ctx := c.Request.Context()

	if _, err := h.service.FindGroupForUser(ctx, groupID, userID); err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
			return
		}
		slog.ErrorContext(ctx, "find group failed", "group_id", groupID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}

	group, err := h.service.FindGroupWithMembers(ctx, groupID)
	if err != nil {
		slog.ErrorContext(ctx, "load group members failed", "group_id", groupID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}

	week, err := h.rides.OrderedWeek(ctx, groupID)
	if err != nil {
		slog.ErrorContext(ctx, "assemble ride week failed", "group_id", groupID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rides"})
		return
	}

	c.JSON(http.StatusOK, GroupPageResponse{Group: toView(group), Rides: week})
}

// RegisterRoutes registers group routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/new", h.New)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
}
