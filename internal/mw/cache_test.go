package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
)

func newCachedRouter(hits *int, status *int) *gin.Engine {
	store := cache.New(time.Minute, 2*time.Minute)
	r := gin.New()
	r.GET("/history", Cache(store), func(c *gin.Context) {
		*hits++
		c.JSON(*status, gin.H{"hits": *hits})
	})
	r.POST("/history", Cache(store), func(c *gin.Context) {
		*hits++
		c.Status(http.StatusCreated)
	})
	return r
}

func get(r *gin.Engine, uri string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, uri, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestCacheServesRepeatedGets(t *testing.T) {
	hits, status := 0, http.StatusOK
	r := newCachedRouter(&hits, &status)

	first := get(r, "/history?limit=10")
	second := get(r, "/history?limit=10")

	assert.Equal(t, 1, hits)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))

	// A different URI is a different page.
	get(r, "/history?limit=20")
	assert.Equal(t, 2, hits)
}

func TestCacheSkipsNonGet(t *testing.T) {
	hits, status := 0, http.StatusOK
	r := newCachedRouter(&hits, &status)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/history", nil)
		r.ServeHTTP(w, req)
	}
	assert.Equal(t, 2, hits)
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	hits, status := 0, http.StatusInternalServerError
	r := newCachedRouter(&hits, &status)

	get(r, "/history")
	assert.Equal(t, 1, hits)

	// The failure must not be pinned for the TTL: once the handler
	// recovers, callers see the fresh response.
	status = http.StatusOK
	w := get(r, "/history")
	assert.Equal(t, 2, hits)
	assert.Equal(t, http.StatusOK, w.Code)
}
