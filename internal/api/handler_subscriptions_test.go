package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"room-status-backend/internal/db"
	"room-status-backend/internal/model"
	"room-status-backend/internal/store"
)

func setupSubscriptionRouter(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	s := store.NewGormStore(gormDB)
	handler := NewHandler(s, nil, nil, nil, nil, false)

	r := gin.Default()
	r.GET("/api/subscriptions", handler.GetSubscription)
	r.PUT("/api/subscriptions", handler.PutSubscription)
	r.DELETE("/api/subscriptions", handler.DeleteSubscription)
	r.GET("/api/vapid_public_key", handler.GetVAPIDPublicKey)
	return r, s
}

func TestPutSubscriptionRejectsBadBody(t *testing.T) {
	router, _ := setupSubscriptionRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/api/subscriptions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionRoundTrip(t *testing.T) {
	router, s := setupSubscriptionRouter(t)
	require.NoError(t, s.DB().Create(&model.Room{Number: "101", Type: model.RoomTypeStudio}).Error)

	body := `{
		"endpoint": "https://push.example.com/sub?token=a%2Fb",
		"p256dh": "key",
		"auth": "secret",
		"subscribed_rooms": ["101"]
	}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/api/subscriptions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	// The endpoint carries percent-encoded bytes that must survive the
	// lookup untouched.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/subscriptions?endpoint=https://push.example.com/sub?token=a%2Fb", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed_rooms":["101"]}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodDelete, "/api/subscriptions", strings.NewReader(`{"endpoint":"https://push.example.com/sub?token=a%2Fb"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	require.NoError(t, s.DB().Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetVAPIDPublicKeyUnconfigured(t *testing.T) {
	router, _ := setupSubscriptionRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/vapid_public_key", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
