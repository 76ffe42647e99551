package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"colorcard-server/config"
	"colorcard-server/lobby"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains the set of active clients and routes disconnects into the
// owning lobby's actor.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Registry   *lobby.Registry
	Config     *config.Config
}

// NewHub creates a new Hub.
func NewHub(cfg *config.Config, registry *lobby.Registry) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Registry:   registry,
		Config:     cfg,
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled (e.g. on server shutdown), Run returns and no
// longer accepts new registrations.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "hub")
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Info("client connected", "tag", "hub", "total", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				slog.Info("client disconnected", "tag", "hub", "total", len(h.Clients))

				// Mark the seat inactive inside every joined lobby's
				// actor; seats themselves are never removed.
				for _, l := range client.Lobbies {
					l.Dispatch(lobby.Command{Kind: lobby.CmdDisconnect, ConnID: client.ConnID})
				}
			}
		}
	}
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", "tag", "hub", "err", err)
		return
	}

	client := &Client{
		Hub:    h,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		ConnID: uuid.NewString(),
	}

	h.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
