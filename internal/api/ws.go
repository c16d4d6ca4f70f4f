package api

import (
	"log"

	"github.com/gin-gonic/gin"
)

// GetDisplaySocket handles GET /ws/display: upgrades the connection and
// attaches the display board to the snapshot hub.
func (h *Handler) GetDisplaySocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}
	h.hub.Register(conn)
}
