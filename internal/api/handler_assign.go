package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"room-status-backend/internal/access"
	"room-status-backend/internal/alloc"
	"room-status-backend/internal/store"
)

type assignRequest struct {
	DisplayName     string `json:"display_name" binding:"required"`
	UserID          *int64 `json:"user_id"`
	DurationMinutes int    `json:"duration_minutes"`
	Replace         bool   `json:"replace"`
}

// PostAssign handles POST /api/rooms/:number/assign.
func (h *Handler) PostAssign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var id access.Identity
	if req.UserID != nil {
		id = access.Known(*req.UserID, req.DisplayName)
	} else {
		id = access.Unregistered(req.DisplayName)
	}

	err := h.alloc.Assign(c.Request.Context(), c.Param("number"), id, req.DurationMinutes, req.Replace)
	if err != nil {
		writeAllocError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// PostExit handles POST /api/rooms/:number/exit.
func (h *Handler) PostExit(c *gin.Context) {
	if err := h.alloc.Exit(c.Request.Context(), c.Param("number")); err != nil {
		writeAllocError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type unavailableRequest struct {
	// Optional board label for the block, e.g. "MAINTENANCE" or the name of
	// a class holding the room indefinitely.
	Label   string `json:"label"`
	Replace bool   `json:"replace"`
}

// PostUnavailable handles POST /api/rooms/:number/unavailable.
func (h *Handler) PostUnavailable(c *gin.Context) {
	var req unavailableRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := h.alloc.MakeUnavailable(c.Request.Context(), c.Param("number"), req.Label, req.Replace); err != nil {
		writeAllocError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// PostExtend handles POST /api/rooms/:number/extend.
func (h *Handler) PostExtend(c *gin.Context) {
	if err := h.alloc.Extend(c.Request.Context(), c.Param("number")); err != nil {
		writeAllocError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeAllocError maps the allocation and access rejections onto HTTP
// statuses. Infrastructure failures fall through to 500.
func writeAllocError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, alloc.ErrNoIdentity), errors.Is(err, alloc.ErrInvalidDuration):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, alloc.ErrBanned),
		errors.Is(err, access.ErrNotAuthorized),
		errors.Is(err, access.ErrCannotVerify):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, alloc.ErrRoomOccupied),
		errors.Is(err, alloc.ErrDisplaceNotAllowed),
		errors.Is(err, alloc.ErrNoOpenUse),
		errors.Is(err, store.ErrUseConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
