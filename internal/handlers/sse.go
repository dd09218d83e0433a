package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/logger"
)

// sseKeepAlive is how often an idle stream sends a comment line so proxies
// keep the connection open.
var sseKeepAlive = 25 * time.Second

// SSEHandler streams the caller's notifications.
type SSEHandler struct {
	hub *services.EventHub
}

func NewSSEHandler(hub *services.EventHub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// Stream sends each notification as an event named after its level. It runs
// behind AuthRequired, which accepts ?token= for EventSource.
// GET /api/events
func (h *SSEHandler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.NewString()
	events := h.hub.Subscribe(clientID, owner(c))
	defer h.hub.Unsubscribe(clientID)

	// Send headers now so EventSource reports the stream open.
	c.Status(http.StatusOK)
	c.Writer.Flush()

	logger.Info().Str("client_id", clientID).Uint("owner", owner(c)).
		Int("clients", h.hub.ClientCount()).Msg("SSE client connected")

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(n.Level, n)
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}
