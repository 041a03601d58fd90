package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// stream implements Listener Attach: an indefinite chunked audio/mpeg
// response fed from the broadcast bus until the client disconnects.
func (h *handlers) stream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}

	sink := h.deps.Engine.Bus().Subscribe()
	defer h.deps.Engine.Bus().Unsubscribe(sink)

	c.Header("Content-Type", "audio/mpeg")
	c.Header("Cache-Control", "no-store")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	flusher.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-sink.C():
			if !ok {
				return
			}
			if _, err := c.Writer.Write(chunk); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
