package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"room-status-backend/internal/alloc"
	"room-status-backend/internal/model"
	"room-status-backend/internal/occupancy"
)

// roomViewResponse is the flattened structure for one derived room view.
type roomViewResponse struct {
	model.Room
	State      int    `json:"state"`
	StateLabel string `json:"stateLabel"`
	// Signed seconds: positive while occupied, negative overrun once
	// kickable, absent for free and unavailable rooms.
	TimeRemainingSeconds *int64     `json:"timeRemainingSeconds"`
	PlannedEnd           *time.Time `json:"plannedEnd"`
	CurrentUse           *model.Use `json:"currentUse"`
}

func newRoomViewResponse(v occupancy.RoomView) roomViewResponse {
	resp := roomViewResponse{
		Room:       v.Room,
		State:      int(v.State),
		StateLabel: v.State.String(),
		CurrentUse: v.CurrentUse,
	}
	if v.TimeRemaining != nil {
		secs := int64(v.TimeRemaining.Seconds())
		resp.TimeRemainingSeconds = &secs
	}
	if v.CurrentUse != nil && v.CurrentUse.MaxDuration > 0 {
		end := v.CurrentUse.PlannedEnd()
		resp.PlannedEnd = &end
	}
	return resp
}

// SnapshotPayload renders a full snapshot the way the display boards expect
// it; the same shape GET /api/rooms returns.
func SnapshotPayload(views []occupancy.RoomView) []byte {
	resp := make([]roomViewResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, newRoomViewResponse(v))
	}
	payload, err := json.Marshal(gin.H{"rooms": resp})
	if err != nil {
		return nil
	}
	return payload
}

// GetRooms handles GET /api/rooms. Views come straight from the tracker
// snapshot; no database read happens on this path.
func (h *Handler) GetRooms(c *gin.Context) {
	roomType := model.RoomType(c.Query("type"))
	views := h.tracker.Snapshot()

	resp := make([]roomViewResponse, 0, len(views))
	for _, v := range views {
		if roomType != "" && v.Room.Type != roomType {
			continue
		}
		resp = append(resp, newRoomViewResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"rooms": resp})
}

type roomRequest struct {
	Floor             int            `json:"floor"`
	Type              model.RoomType `json:"type" binding:"required"`
	Score             int            `json:"score"`
	Reserved          *string        `json:"reserved"`
	IsRestricted      bool           `json:"isRestricted"`
	Description       string         `json:"description"`
	HiddenDescription *string        `json:"hiddenDescription"`
	Name              *string        `json:"name"`
}

// PutRoom handles PUT /api/rooms/:number: staff upsert of one inventory
// room. Rooms are otherwise static; the engine only reads them.
func (h *Handler) PutRoom(c *gin.Context) {
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room := &model.Room{
		Number:            c.Param("number"),
		Floor:             req.Floor,
		Type:              req.Type,
		Score:             req.Score,
		Reserved:          req.Reserved,
		IsRestricted:      req.IsRestricted,
		Description:       req.Description,
		HiddenDescription: req.HiddenDescription,
		Name:              req.Name,
	}
	if err := h.store.SaveRoom(c.Request.Context(), room); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Room writes are not on the use-table change feed, so refresh the
	// snapshot directly instead of waiting for the next occupancy write.
	if h.tracker != nil {
		h.tracker.Resync(c.Request.Context())
	}

	c.JSON(http.StatusOK, room)
}

// GetPriority handles GET /api/rooms/priority: the ranked candidate list for
// the next scanned person, plus the occupied rooms that will free up
// soonest.
func (h *Handler) GetPriority(c *gin.Context) {
	roomType := model.RoomType(c.Query("type"))
	strict := h.strict
	if v, ok := c.GetQuery("strict"); ok {
		strict = v == "true" || v == "1"
	}

	views := h.tracker.Snapshot()
	candidates := alloc.Rank(views, roomType, alloc.RankOptions{StrictReserved: strict})
	soon := alloc.SoonFree(views, roomType)

	candidateResp := make([]roomViewResponse, 0, len(candidates))
	for _, v := range candidates {
		candidateResp = append(candidateResp, newRoomViewResponse(v))
	}
	soonResp := make([]roomViewResponse, 0, len(soon))
	for _, v := range soon {
		soonResp = append(soonResp, newRoomViewResponse(v))
	}

	c.JSON(http.StatusOK, gin.H{
		"candidates": candidateResp,
		"soonFree":   soonResp,
	})
}
