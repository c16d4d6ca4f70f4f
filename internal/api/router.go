package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"room-status-backend/config"
	"room-status-backend/internal/alloc"
	"room-status-backend/internal/mw"
	"room-status-backend/internal/occupancy"
	"room-status-backend/internal/store"
	"room-status-backend/internal/ws"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, tracker *occupancy.Tracker, allocSvc *alloc.Service, hub *ws.Hub, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, tracker, allocSvc, hub, webpushOptions, cfg.Allocation.StrictReserved)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), 5, cfg.Server.RequestIPHeader)

	// Response cache for history endpoints only. Live occupancy views are
	// served from the tracker snapshot and must not be cached.
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/rooms", handler.GetRooms)
		api.GET("/rooms/priority", handler.GetPriority)
		api.PUT("/rooms/:number", handler.PutRoom)

		api.POST("/rooms/:number/assign", handler.PostAssign)
		api.POST("/rooms/:number/exit", handler.PostExit)
		api.POST("/rooms/:number/unavailable", handler.PostUnavailable)
		api.POST("/rooms/:number/extend", handler.PostExtend)

		api.POST("/scans", handler.PostScan)

		api.GET("/uses/latest", caching, handler.GetLatestUses)

		api.GET("/users/:user_id/access", handler.GetAccessGrants)
		api.POST("/users/:user_id/access", handler.PostAccessGrant)
		api.DELETE("/access/:id", handler.DeleteAccessGrant)
		api.GET("/users/:user_id/ban", handler.GetBan)
		api.POST("/users/:user_id/ban", handler.PostBan)
		api.DELETE("/bans/:id", handler.DeleteBan)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	r.GET("/ws/display", handler.GetDisplaySocket)

	return r
}
