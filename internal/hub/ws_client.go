package hub

import (
	"encoding/json"
	"sync"
	"time"

	"wastewatch/backend/internal/models"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketClient is a dashboard connected over a websocket. Dashboards only
// listen; anything they send is read and discarded.
type WebSocketClient struct {
	ID   string
	Conn *websocket.Conn
	Hub  *ManagerService
	Send chan models.ComplaintEvent

	closeOnce sync.Once
}

func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn) *WebSocketClient {
	return &WebSocketClient{
		ID:   uuid.New().String(),
		Conn: conn,
		Hub:  hub,
		Send: make(chan models.ComplaintEvent, 32),
	}
}

func (c *WebSocketClient) GetID() string                                { return c.ID }
func (c *WebSocketClient) GetSendChannel() chan<- models.ComplaintEvent { return c.Send }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump, which closes the connection.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("client", c.ID).Warn("dashboard read error")
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				log.WithError(err).WithField("client", c.ID).Error("encode event")
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
