package mw

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// Cached history pages are immutable for their TTL: use records only gain
// rows, and the boards poll the live snapshot endpoints instead, so serving
// a slightly stale page here is fine. Only the body and content type are
// retained; per-request headers are not worth replaying.
type historyPage struct {
	status      int
	contentType string
	body        []byte
}

type recordingWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves GET responses for the history endpoints out of an in-memory
// store, keyed on the full request URI so different limits cache separately.
// Never mount this on live occupancy views.
func Cache(store *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := "history:" + c.Request.RequestURI
		if hit, ok := store.Get(key); ok {
			page := hit.(historyPage)
			c.Header("Content-Type", page.contentType)
			c.Writer.WriteHeader(page.status)
			c.Writer.Write(page.body)
			c.Abort()
			return
		}

		rec := &recordingWriter{ResponseWriter: c.Writer, buf: bytes.NewBuffer(nil)}
		c.Writer = rec

		c.Next()

		// Error responses (bad limit, store failure) stay uncached so a
		// transient failure does not stick for the whole TTL.
		if rec.Status() == http.StatusOK {
			store.SetDefault(key, historyPage{
				status:      rec.Status(),
				contentType: rec.Header().Get("Content-Type"),
				body:        rec.buf.Bytes(),
			})
		}
	}
}
