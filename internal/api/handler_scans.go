package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"room-status-backend/internal/store"
)

type scanRequest struct {
	Code string `json:"code" binding:"required"`
}

type scanResponse struct {
	Code            string  `json:"code"`
	UserID          *int64  `json:"userId"`
	UserFullName    *string `json:"userFullName"`
	DurationMinutes int     `json:"durationMinutes"`
}

// PostScan handles POST /api/scans: resolve a badge code against the user
// registry. An unknown code is not an error: the scan stays unregistered
// and restricted rooms will refuse it with a "cannot verify" message.
func (h *Handler) PostScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := scanResponse{
		Code:            req.Code,
		DurationMinutes: h.alloc.DefaultDuration(),
	}

	user, err := h.store.FindUserByBarcode(c.Request.Context(), req.Code)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user != nil {
		resp.UserID = &user.ID
		resp.UserFullName = &user.FullName
	}

	c.JSON(http.StatusOK, resp)
}
