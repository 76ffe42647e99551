package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"colorcard-server/auth"
	"colorcard-server/game"
	"colorcard-server/lobby"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the hub.
// Lobbies holds every lobby this connection has joined; a disconnect must
// reach all of them, not just the most recent.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	ConnID   string
	PlayerID string
	Lobbies  []*lobby.Lobby
}

// rememberLobby records a joined lobby once. Only called from ReadPump,
// and read by the hub after the pump exits, so no locking is needed.
func (c *Client) rememberLobby(l *lobby.Lobby) {
	for _, known := range c.Lobbies {
		if known == l {
			return
		}
	}
	c.Lobbies = append(c.Lobbies, l)
}

// ReadPump pumps messages from the websocket connection to the hub.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "err", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	switch envelope.Type {
	case "join_lobby":
		c.handleJoinLobby(envelope.Raw)
	case "start_game":
		c.handleStartGame(envelope.Raw)
	case "player_action":
		c.handlePlayerAction(envelope.Raw)
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

func (c *Client) handleJoinLobby(raw json.RawMessage) {
	var msg JoinLobbyMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid join_lobby message.")
		return
	}
	if msg.LobbyCode == "" {
		c.sendError("Lobby code is required.")
		return
	}
	if n := utf8.RuneCountInString(msg.PlayerName); n < 1 || n > c.Hub.Config.MaxNameLength {
		c.sendError(fmt.Sprintf("Name must be between 1 and %d characters.", c.Hub.Config.MaxNameLength))
		return
	}

	if c.PlayerID == "" {
		playerID, err := auth.ResolvePlayerID(c.Hub.Config.AuthJWKSURL, c.Hub.Config.AuthTokenSecret, msg.Token)
		if err != nil {
			slog.Warn("identity token rejected", "tag", "ws", "err", err)
		}
		if playerID == "" {
			// Fresh identity; hand it back so the client can rejoin with it.
			playerID = uuid.NewString()
			token, err := auth.IssueToken(c.Hub.Config.AuthTokenSecret, playerID)
			if err != nil {
				slog.Warn("issuing identity token", "tag", "ws", "err", err)
			}
			c.sendJSON(IdentityMsg{Type: "identity", PlayerID: playerID, Token: token})
		}
		c.PlayerID = playerID
	}

	l := c.Hub.Registry.GetOrCreate(msg.LobbyCode, c.ConnID)
	c.rememberLobby(l)
	l.Dispatch(lobby.Command{
		Kind:     lobby.CmdJoin,
		ConnID:   c.ConnID,
		PlayerID: c.PlayerID,
		Name:     msg.PlayerName,
		Send:     c.Send,
	})
}

func (c *Client) handleStartGame(raw json.RawMessage) {
	var msg StartGameMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid start_game message.")
		return
	}
	l, ok := c.Hub.Registry.Get(msg.LobbyCode)
	if !ok {
		// Unknown lobby codes are ignored.
		return
	}
	l.Dispatch(lobby.Command{Kind: lobby.CmdStart, ConnID: c.ConnID, Send: c.Send})
}

func (c *Client) handlePlayerAction(raw json.RawMessage) {
	var msg PlayerActionMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid player_action message.")
		return
	}
	l, ok := c.Hub.Registry.Get(msg.LobbyCode)
	if !ok {
		return
	}

	switch msg.Action {
	case "playcard":
		if msg.CardIndex == nil {
			c.sendError("Invalid card")
			return
		}
		l.Dispatch(lobby.Command{Kind: lobby.CmdPlayCard, ConnID: c.ConnID, CardIndex: *msg.CardIndex})
	case "drawcard":
		l.Dispatch(lobby.Command{Kind: lobby.CmdDrawCard, ConnID: c.ConnID})
	case "calluno":
		l.Dispatch(lobby.Command{Kind: lobby.CmdCallLastCard, ConnID: c.ConnID})
	case "choosecolor":
		color, ok := game.ParseColor(msg.ChosenColor)
		if !ok {
			c.sendError("Invalid color")
			return
		}
		l.Dispatch(lobby.Command{Kind: lobby.CmdChooseColor, ConnID: c.ConnID, Color: color})
	default:
		c.sendError("Unknown action: " + msg.Action)
	}
}

func (c *Client) sendError(message string) {
	c.sendJSON(ErrorMsg{Type: "error", Message: message})
}

func (c *Client) sendJSON(v any) {
	data, _ := json.Marshal(v)
	select {
	case c.Send <- data:
	default:
	}
}
