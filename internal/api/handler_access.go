package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"room-status-backend/internal/model"
	"room-status-backend/internal/store"
)

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return 0, false
	}
	return id, true
}

// GetAccessGrants handles GET /api/users/:user_id/access.
func (h *Handler) GetAccessGrants(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	grants, err := h.store.ListAccessGrants(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"grants": grants})
}

type addAccessRequest struct {
	RoomNumber string     `json:"room_number" binding:"required"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// PostAccessGrant handles POST /api/users/:user_id/access.
func (h *Handler) PostAccessGrant(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	var req addAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.store.GetRoom(c.Request.Context(), req.RoomNumber); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown room"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	grant := &model.AccessGrant{
		UserID:     userID,
		RoomNumber: req.RoomNumber,
		ExpiresAt:  req.ExpiresAt,
	}
	if err := h.store.AddAccessGrant(c.Request.Context(), grant); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, grant)
}

// DeleteAccessGrant handles DELETE /api/access/:id.
func (h *Handler) DeleteAccessGrant(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grant ID"})
		return
	}
	if err := h.store.DeleteAccessGrant(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "grant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetBan handles GET /api/users/:user_id/ban: the governing active ban, if
// any.
func (h *Handler) GetBan(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	ban, err := h.store.FindActiveBan(c.Request.Context(), userID, time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active ban"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ban)
}

type addBanRequest struct {
	Reason    *string    `json:"reason"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// PostBan handles POST /api/users/:user_id/ban.
func (h *Handler) PostBan(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	var req addBanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	ban := &model.Ban{
		UserID:    userID,
		Reason:    req.Reason,
		ExpiresAt: req.ExpiresAt,
	}
	if err := h.store.AddBan(c.Request.Context(), ban); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ban)
}

// DeleteBan handles DELETE /api/bans/:id.
func (h *Handler) DeleteBan(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ban ID"})
		return
	}
	if err := h.store.DeleteBan(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ban not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
