package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetLatestUses handles GET /api/uses/latest.
func (h *Handler) GetLatestUses(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	uses, err := h.store.ListLatestUses(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uses": uses})
}
