package handler

import (
	"net/http"

	"wastewatch/backend/internal/hub"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served from this origin or embedded in the mobile app.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades GET /ws and subscribes the dashboard to events.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := hub.NewWebSocketClient(h.Hub, conn)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	client.Run()
}
