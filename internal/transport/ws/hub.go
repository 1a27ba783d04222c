// Package ws serves the live feed of routing events over websockets.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/gorilla/websocket"
)

type broadcastMessage struct {
	department string
	payload    []byte
}

// Hub tracks connected clients and fans events out to them. Clients with a
// department filter only receive events of that department.
type Hub struct {
	log        *slog.Logger
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMessage
	done       chan struct{}
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMessage, 64),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}

			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				if client.Department != "" && client.Department != message.department {
					continue
				}

				select {
				case client.Send <- message.payload:
				default:
					h.log.Warn("dropping slow websocket client", slog.String("department", client.Department))
					delete(h.clients, client)
					close(client.Send)
				}
			}
		}
	}
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish implements the notification sink contract.
func (h *Hub) Publish(ctx context.Context, event domain.Event) error {
	const op = "internal.transport.ws.Hub.Publish"

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal event: %w", op, err)
	}

	select {
	case h.broadcast <- broadcastMessage{department: event.Communication.DepartmentID, payload: payload}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client is one websocket subscriber.
type Client struct {
	Conn       *websocket.Conn
	Hub        *Hub
	Send       chan []byte
	Department string
}

func NewClient(hub *Hub, conn *websocket.Conn, department string) *Client {
	return &Client{
		Conn:       conn,
		Hub:        hub,
		Send:       make(chan []byte, 256),
		Department: department,
	}
}
