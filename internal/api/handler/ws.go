package handler

import (
	"log"
	"net/http"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/eventhub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// NewUpgrader accepts same-origin requests and the configured browser origin.
func NewUpgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
		},
	}
}

// ServeWebSocket upgrades to a push-only event stream. Browsers cannot set headers on
// websocket requests, so the token may also come as ?token=.
func (h *Handler) ServeWebSocket(upgrader websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := c.GetHeader("Authorization")
		if bearer == "" {
			bearer = c.Query("token")
		}
		u, err := h.Auth.Resolve(c.Request.Context(), bearer)
		if err != nil {
			respondError(c, err)
			return
		}
		if h.Hub == nil {
			respondError(c, apperr.Wrap(apperr.KindNetwork, nil, "live updates are unavailable"))
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WARNING: Websocket upgrade for %s failed: %v", u.ID, err)
			return
		}

		client := eventhub.NewWebSocketClient(h.Hub, conn, u)
		if !h.Hub.Register(client) {
			conn.Close()
		}
	}
}
