package rides

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jezdimedoprace/carpool/pkg/carpool/auth"
)

// MembershipChecker authorizes access to a group's rides
type MembershipChecker interface {
	IsMember(ctx context.Context, groupID, userID uint) (bool, error)
}

// Handler serves ride endpoints nested under a group
type Handler struct {
	service *Service
	members MembershipChecker
}

// NewHandler creates a new rides handler
func NewHandler(service *Service, members MembershipChecker) *Handler {
	return &Handler{service: service, members: members}
}

// WeekResponse is the ordered ride week of a group
type WeekResponse struct {
	GroupID uint           `json:"group_id"`
	Rides   []RideTransfer `json:"rides"`
}

// SetOrderRequest carries drag-reorder results for one ride
type SetOrderRequest struct {
	Assignments []OrderAssignment `json:"assignments" binding:"required,dive"`
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// Week returns the group's rides for the current week
// @Summary Ride week
// @Description Rides of the group scheduled from today through the next seven days, waypoints in route order
// @Tags rides
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} WeekResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /groups/{id}/rides [get]
func (h *Handler) Week(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	member, err := h.members.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "membership check failed", "group_id", groupID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rides"})
		return
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	week, err := h.service.OrderedWeek(c.Request.Context(), groupID)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "assemble ride week failed", "group_id", groupID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rides"})
		return
	}

	c.JSON(http.StatusOK, WeekResponse{GroupID: groupID, Rides: week})
}

// SetOrder stores explicit waypoint order numbers
// @Summary Set waypoint order
// @Description Set or clear explicit order numbers of a ride's waypoints
// @Tags rides
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param rideId path int true "Ride ID"
// @Param request body SetOrderRequest true "Order assignments"
// @Success 200 {object} RideTransfer
// @Failure 400 {object} map[string]string "Validation error or unknown location"
// @Failure 404 {object} map[string]string "Ride not found"
// @Security BearerAuth
// @Router /groups/{id}/rides/{rideId}/order [put]
func (h *Handler) SetOrder(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}
	rideID, ok := parseID(c, "rideId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ride ID"})
		return
	}

	var req SetOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ride, err := h.service.SetWaypointOrder(c.Request.Context(), groupID, userID, rideID, req.Assignments)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, ride)
	case errors.Is(err, ErrRideNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Ride not found"})
	case errors.Is(err, ErrUnknownLocation), errors.Is(err, ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "set waypoint order failed", "ride_id", rideID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update waypoint order"})
	}
}

// RegisterRoutes registers ride routes on the groups router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/rides", h.Week)
	rg.PUT("/:id/rides/:rideId/order", h.SetOrder)
}
