package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/YusovID/onetalk-router/pkg/logger/sl"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Handler upgrades HTTP connections to live feed subscribers.
// The optional department query parameter narrows the feed.
type Handler struct {
	Hub      *Hub
	Log      *slog.Logger
	Upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, log *slog.Logger) *Handler {
	return &Handler{
		Hub: hub,
		Log: log,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.ws.Handler.ServeHTTP"

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", slog.String("op", op), sl.Err(err))
		return
	}

	client := NewClient(h.Hub, conn, r.URL.Query().Get("department"))
	if !h.Hub.Register(client) {
		_ = conn.Close()
		return
	}

	h.Log.Debug("websocket client connected", slog.String("op", op), slog.String("department", client.Department))

	go client.WritePump()
	client.ReadPump()
}

// ReadPump drains the connection so control frames are processed. Clients
// are not expected to send anything.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
