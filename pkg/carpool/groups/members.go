package groups

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jezdimedoprace/carpool/pkg/carpool/auth"
)

// AddMemberRequest represents a request to add a member
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// memberErrorStatus maps membership errors to HTTP responses.
func memberErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrGroupNotFound):
		return http.StatusNotFound, "Group not found"
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden, "Owner access required"
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, ErrAlreadyMember):
		return http.StatusConflict, "User is already a member"
	case errors.Is(err, ErrMemberNotFound):
		return http.StatusNotFound, "Member not found"
	case errors.Is(err, ErrCannotRemoveOwner):
		return http.StatusBadRequest, "Cannot remove the group owner"
	default:
		return http.StatusInternalServerError, ""
	}
}

// ListMembers returns all members of a group
// @Summary List members
// @Tags members
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {array} MemberResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /groups/{id}/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, ok := parseGroupID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	if _, err := h.service.FindGroupForUser(c.Request.Context(), groupID, userID); err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	group, err := h.service.FindGroupWithMembers(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	c.JSON(http.StatusOK, toView(group).Members)
}

// AddMember adds a registered user to a group (owner only)
// @Summary Add member
// @Tags members
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body AddMemberRequest true "Member email"
// @Success 201 {object} MemberResponse
// @Failure 403 {object} map[string]string "Owner access required"
// @Failure 409 {object} map[string]string "Already a member"
// @Security BearerAuth
// @Router /groups/{id}/members [post]
func (h *Handler) AddMember(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, ok := parseGroupID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	membership, err := h.service.AddMember(c.Request.Context(), groupID, userID, req.Email)
	if err != nil {
		status, msg := memberErrorStatus(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "add member failed", "group_id", groupID, "error", err)
			msg = "Failed to add member"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, toMember(membership))
}

// RemoveMember removes a user from a group (owner only)
// @Summary Remove member
// @Tags members
// @Produce json
// @Param id path int true "Group ID"
// @Param userId path int true "User ID"
// @Success 200 {object} map[string]string "Member removed"
// @Failure 400 {object} map[string]string "Cannot remove the group owner"
// @Failure 403 {object} map[string]string "Owner access required"
// @Security BearerAuth
// @Router /groups/{id}/members/{userId} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, ok := parseGroupID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}
	memberID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), groupID, userID, uint(memberID)); err != nil {
		status, msg := memberErrorStatus(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "remove member failed", "group_id", groupID, "error", err)
			msg = "Failed to remove member"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// RegisterMemberRoutes registers member management routes
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/members", h.ListMembers)
	rg.POST("/:id/members", h.AddMember)
	rg.DELETE("/:id/members/:userId", h.RemoveMember)
}
