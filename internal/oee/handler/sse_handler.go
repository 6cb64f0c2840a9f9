package handler

import (
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/oee/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 心跳间隔
const heartbeatInterval = 30 * time.Second

// SSEHandler handles SSE connections
type SSEHandler struct {
	hub *sse.Hub
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// Stream handles the SSE endpoint
// GET /api/v1/events?token=xxx
func (h *SSEHandler) Stream(c *gin.Context) {
	clientID := uuid.New().String()

	client := &sse.Client{
		ID:     clientID,
		UserID: GetUserID(c),
		Events: make(chan sse.Event, 64),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(clientID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteString("event: connected\ndata: {\"client_id\":\"" + clientID + "\"}\n\n")
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			c.Writer.WriteString(fmt.Sprintf("event: %s\ndata: %s\n\n", event.EventType, event.Data))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
