package api

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gorilla/websocket"

	"room-status-backend/internal/alloc"
	"room-status-backend/internal/occupancy"
	"room-status-backend/internal/store"
	"room-status-backend/internal/ws"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	tracker  *occupancy.Tracker
	alloc    *alloc.Service
	hub      *ws.Hub
	webpush  *webpush.Options
	strict   bool
	upgrader websocket.Upgrader
}

// NewHandler creates a new API handler. strictReserved is the default for
// excluding reserved rooms from the priority list; callers can override it
// per request.
func NewHandler(s store.Store, tracker *occupancy.Tracker, allocSvc *alloc.Service, hub *ws.Hub, webpushOptions *webpush.Options, strictReserved bool) *Handler {
	return &Handler{
		store:   s,
		tracker: tracker,
		alloc:   allocSvc,
		hub:     hub,
		webpush: webpushOptions,
		strict:  strictReserved,
		upgrader: websocket.Upgrader{
			// Display boards run on the same trusted network as the service.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}
