package eventhub

import (
	"encoding/json"
	"log"
	"time"

	"roomresq/backend/internal/config"
	"roomresq/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketClient streams events to a browser dashboard. It is push-only: anything the
// browser sends is read and ignored to keep the pong handler running.
type WebSocketClient struct {
	User *models.User
	Conn *websocket.Conn
	Hub  *Hub
	Send chan models.ComplaintEvent
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, user *models.User) *WebSocketClient {
	return &WebSocketClient{
		User: user,
		Conn: conn,
		Hub:  hub,
		Send: make(chan models.ComplaintEvent, config.ClientSendBuffer),
	}
}

func (c *WebSocketClient) GetUserID() string                            { return c.User.ID }
func (c *WebSocketClient) Wants(ev models.ComplaintEvent) bool          { return Visible(c.User, ev) }
func (c *WebSocketClient) GetSendChannel() chan<- models.ComplaintEvent { return c.Send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump.
func (c *WebSocketClient) Close() {
	close(c.Send)
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
				log.Printf("WARNING: Reading from websocket of %s: %v", c.User.ID, err)
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
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("ERROR: Encoding event for %s: %v", c.User.ID, err)
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
