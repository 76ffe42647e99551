package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"colorcard-server/config"
	"colorcard-server/game"
	"colorcard-server/lobbyerrors"
	"colorcard-server/wsutil"
)

// StatsRecorder is the external stats collaborator. Calls are
// fire-and-forget relative to gameplay; failures never block a round.
type StatsRecorder interface {
	GetOrCreatePlayer(ctx context.Context, playerID, displayName string) error
	RecordGameResult(ctx context.Context, playerID string, isWin bool) error
}

const statsTimeout = 5 * time.Second

// Player is one seated player: the stable identity, the seat position in
// the game state, and the connection binding (rebound on reconnect).
type Player struct {
	ConnID   string
	PlayerID string
	Name     string
	Seat     int
	Send     chan []byte
}

// CommandKind enumerates everything a lobby actor can be asked to do.
// The set is closed: the ws layer maps wire actions onto these and
// rejects anything unknown before it reaches the lobby.
type CommandKind int

const (
	CmdJoin CommandKind = iota
	CmdStart
	CmdPlayCard
	CmdDrawCard
	CmdCallLastCard
	CmdChooseColor
	CmdDisconnect
	cmdNewRound // internal: restart timer fired
)

// Command is one unit of work for a lobby actor. Fields beyond Kind and
// ConnID are set only where the kind needs them.
type Command struct {
	Kind      CommandKind
	ConnID    string
	PlayerID  string
	Name      string
	Send      chan []byte
	CardIndex int
	Color     game.Color
}

// Lobby is one game room. All mutation runs on the actor goroutine
// consuming Commands, which gives each lobby the at-most-one-in-flight
// discipline the state machine requires.
type Lobby struct {
	Code string

	cfg     *config.Config
	stats   StatsRecorder
	state   *game.State
	players []*Player

	hostConnID string
	started    bool

	commands      chan Command
	quit          chan struct{}
	restartCancel chan struct{}
}

// New creates a lobby for code owned by the creator connection. rng seeds
// the game state; pass a fixed-seed source in tests for reproducible
// deals. Run must be started by the caller.
func New(code, creatorConnID string, cfg *config.Config, stats StatsRecorder, rng *rand.Rand) *Lobby {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Lobby{
		Code:       code,
		cfg:        cfg,
		stats:      stats,
		state:      game.New(rng, cfg.HandSize),
		hostConnID: creatorConnID,
		commands:   make(chan Command, 32),
		quit:       make(chan struct{}),
	}
}

// Dispatch queues a command for the actor. Dropped without blocking if
// the lobby has been stopped.
func (l *Lobby) Dispatch(cmd Command) {
	select {
	case l.commands <- cmd:
	case <-l.quit:
	}
}

// Stop terminates the actor loop and cancels any pending restart timer.
func (l *Lobby) Stop() {
	close(l.quit)
}

// Run is the lobby's actor loop. Should be run as a goroutine; exactly
// one per lobby.
func (l *Lobby) Run() {
	for {
		select {
		case <-l.quit:
			l.cancelRestart()
			return
		case cmd := <-l.commands:
			l.handle(cmd)
		}
	}
}

func (l *Lobby) handle(cmd Command) {
	switch cmd.Kind {
	case CmdJoin:
		l.handleJoin(cmd)
	case CmdStart:
		l.handleStart(cmd)
	case CmdPlayCard:
		l.handlePlayCard(cmd.ConnID, cmd.CardIndex)
	case CmdDrawCard:
		l.handleDrawCard(cmd.ConnID)
	case CmdCallLastCard:
		l.handleCallLastCard(cmd.ConnID)
	case CmdChooseColor:
		l.handleChooseColor(cmd.ConnID, cmd.Color)
	case CmdDisconnect:
		l.handleDisconnect(cmd.ConnID)
	case cmdNewRound:
		l.restartCancel = nil
		l.startRound()
	}
}

func (l *Lobby) playerByConn(connID string) *Player {
	for _, p := range l.players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (l *Lobby) playerByID(playerID string) *Player {
	for _, p := range l.players {
		if strings.EqualFold(p.PlayerID, playerID) {
			return p
		}
	}
	return nil
}

func (l *Lobby) handleJoin(cmd Command) {
	if l.stats != nil {
		go func(playerID, name string) {
			ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
			defer cancel()
			if err := l.stats.GetOrCreatePlayer(ctx, playerID, name); err != nil {
				slog.Warn("get-or-create player failed", "tag", "lobby", "playerId", playerID, "err", err)
			}
		}(cmd.PlayerID, cmd.Name)
	}

	if existing := l.playerByID(cmd.PlayerID); existing != nil {
		// Reconnect: rebind the connection, keep the seat.
		existing.ConnID = cmd.ConnID
		existing.Name = cmd.Name
		existing.Send = cmd.Send
		l.state.Seats[existing.Seat].Active = true
		l.state.Seats[existing.Seat].Name = cmd.Name
		slog.Info("player rejoined", "tag", "lobby", "code", l.Code, "name", cmd.Name)
	} else {
		if len(l.players) >= l.cfg.MaxPlayers {
			l.sendError(cmd.Send, fmt.Sprintf("Game is full (max %d players)", l.cfg.MaxPlayers))
			return
		}
		if l.state.Phase != game.Waiting {
			l.sendError(cmd.Send, errMessage(lobbyerrors.ErrInProgress))
			return
		}
		seat := l.state.AddSeat(cmd.Name)
		l.players = append(l.players, &Player{
			ConnID:   cmd.ConnID,
			PlayerID: cmd.PlayerID,
			Name:     cmd.Name,
			Seat:     seat,
			Send:     cmd.Send,
		})
		slog.Info("player joined", "tag", "lobby", "code", l.Code, "name", cmd.Name, "seat", seat)
	}

	l.sendTo(cmd.Send, map[string]string{"type": "set_connection_id", "connectionId": cmd.ConnID})
	l.broadcastPlayerList()

	if l.started {
		l.sendTo(cmd.Send, map[string]string{"type": "game_started", "lobbyCode": l.Code})
	}
	l.broadcastState()
}

func (l *Lobby) handleStart(cmd Command) {
	// Rejections go back on the caller's own channel, so even a
	// connection without a seat hears why it was refused.
	reply := cmd.Send
	if reply == nil {
		if p := l.playerByConn(cmd.ConnID); p != nil {
			reply = p.Send
		}
	}
	if cmd.ConnID != l.hostConnID {
		l.sendError(reply, lobbyerrors.ErrNotHost.Error())
		return
	}
	if len(l.players) < l.cfg.MinPlayers {
		l.sendError(reply, lobbyerrors.ErrNotEnoughPlayers.Error())
		return
	}
	l.started = true
	l.broadcast(map[string]string{"type": "game_started", "lobbyCode": l.Code})
	l.startRound()
}

func (l *Lobby) startRound() {
	l.state.NewRound()
	slog.Info("round started", "tag", "lobby", "code", l.Code, "players", len(l.players))
	l.broadcastState()
	l.notifyCurrentPlayer()
}

// notifyCurrentPlayer tells the current seat it is their turn. An
// inactive current seat (possible right after a deal) draws automatically
// so the round never stalls waiting on a disconnected player.
func (l *Lobby) notifyCurrentPlayer() {
	for range l.players {
		seat := l.state.Current
		if seat >= len(l.state.Seats) {
			return
		}
		if l.state.Seats[seat].Active {
			break
		}
		res, err := l.state.DrawCard(seat)
		if err != nil {
			return
		}
		if res.Playable {
			// Nobody is there to take the offer; pass the turn.
			l.state.Advance()
		}
		l.broadcastState()
	}
	cur := l.state.Current
	for _, p := range l.players {
		if p.Seat == cur {
			l.sendTo(p.Send, map[string]string{"type": "your_turn"})
			return
		}
	}
}

func (l *Lobby) handlePlayCard(connID string, idx int) {
	p := l.playerByConn(connID)
	if p == nil {
		return
	}
	res, err := l.state.PlayCard(p.Seat, idx)
	if err != nil {
		// Out-of-turn plays are dropped without a response; stale UIs
		// fire these constantly.
		if err != lobbyerrors.ErrNotYourTurn {
			l.sendError(p.Send, errMessage(err))
		}
		return
	}
	if res.Won {
		l.endRound(p)
		return
	}
	if res.NeedColor {
		l.sendTo(p.Send, map[string]string{"type": "choose_color_prompt"})
	}
	l.broadcastState()
	l.notifyCurrentPlayer()
}

func (l *Lobby) handleDrawCard(connID string) {
	p := l.playerByConn(connID)
	if p == nil {
		return
	}
	res, err := l.state.DrawCard(p.Seat)
	if err != nil {
		return
	}
	if res.Playable {
		l.sendTo(p.Send, map[string]any{"type": "can_play_drawn_card", "handIndex": res.HandIndex})
		l.broadcastState()
		return
	}
	l.broadcastState()
	l.notifyCurrentPlayer()
}

func (l *Lobby) handleCallLastCard(connID string) {
	p := l.playerByConn(connID)
	if p == nil {
		return
	}
	if err := l.state.CallLastCard(p.Seat); err != nil {
		return
	}
	l.broadcastState()
}

func (l *Lobby) handleChooseColor(connID string, c game.Color) {
	p := l.playerByConn(connID)
	if p == nil {
		return
	}
	if err := l.state.ChooseColor(p.Seat, c); err != nil {
		if err == lobbyerrors.ErrInvalidColor {
			l.sendError(p.Send, errMessage(err))
		}
		return
	}
	l.broadcastState()
	l.notifyCurrentPlayer()
}

func (l *Lobby) handleDisconnect(connID string) {
	p := l.playerByConn(connID)
	if p == nil {
		return
	}
	l.state.Seats[p.Seat].Active = false
	slog.Info("player disconnected", "tag", "lobby", "code", l.Code, "name", p.Name)
	l.broadcast(map[string]string{"type": "player_disconnected", "name": p.Name})
	l.broadcastState()
}

// Result is the end-of-round report broadcast to the whole lobby.
type Result struct {
	WinnerName  string             `json:"winnerName"`
	WinnerID    string             `json:"winnerId"`
	FinalScores []game.PlayerScore `json:"finalScores"`
}

func (l *Lobby) endRound(winner *Player) {
	result := Result{
		WinnerName:  winner.Name,
		WinnerID:    winner.PlayerID,
		FinalScores: l.state.Scoreboard(),
	}
	slog.Info("round over", "tag", "lobby", "code", l.Code, "winner", winner.Name)

	if l.stats != nil {
		ids := make([]string, 0, len(l.players))
		for _, p := range l.players {
			ids = append(ids, p.PlayerID)
		}
		winnerID := winner.PlayerID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
			defer cancel()
			for _, id := range ids {
				if err := l.stats.RecordGameResult(ctx, id, id == winnerID); err != nil {
					slog.Warn("record game result failed", "tag", "lobby", "playerId", id, "err", err)
				}
			}
		}()
	}

	l.broadcast(map[string]any{"type": "game_over", "result": result})
	l.broadcastState()
	l.scheduleRestart()
}

// scheduleRestart arms the delayed automatic next round. The timer
// re-enters the actor loop through the command channel, never mutating
// state from its own goroutine. Stopping the lobby cancels it.
func (l *Lobby) scheduleRestart() {
	l.cancelRestart()
	cancel := make(chan struct{})
	l.restartCancel = cancel
	delay := time.Duration(l.cfg.RestartDelaySec) * time.Second
	go func() {
		select {
		case <-time.After(delay):
			l.Dispatch(Command{Kind: cmdNewRound})
		case <-cancel:
		case <-l.quit:
		}
	}()
}

func (l *Lobby) cancelRestart() {
	if l.restartCancel != nil {
		close(l.restartCancel)
		l.restartCancel = nil
	}
}

func (l *Lobby) broadcastPlayerList() {
	names := make([]string, 0, len(l.players))
	for _, p := range l.players {
		names = append(names, p.Name)
	}
	l.broadcast(map[string]any{"type": "update_player_list", "players": names, "hostConnectionId": l.hostConnID})
}

func (l *Lobby) broadcastState() {
	for _, p := range l.players {
		view := l.state.BuildViewForSeat(p.Seat, p.ConnID == l.hostConnID, l.cfg.LogTail)
		l.sendTo(p.Send, view)
	}
}

func (l *Lobby) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshaling broadcast", "tag", "lobby", "err", err)
		return
	}
	for _, p := range l.players {
		if p.Send != nil {
			wsutil.SafeSend(p.Send, data)
		}
	}
}

func (l *Lobby) sendTo(ch chan []byte, v any) {
	if ch == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshaling message", "tag", "lobby", "err", err)
		return
	}
	wsutil.SafeSend(ch, data)
}

func (l *Lobby) sendError(ch chan []byte, message string) {
	l.sendTo(ch, map[string]string{"type": "error", "message": message})
}

// errMessage maps rule errors onto the client-facing wording.
func errMessage(err error) string {
	switch err {
	case lobbyerrors.ErrInProgress:
		return "Game already in progress"
	case lobbyerrors.ErrInvalidCard:
		return "Invalid card"
	case lobbyerrors.ErrCannotPlay:
		return "Cannot play that card"
	case lobbyerrors.ErrInvalidColor:
		return "Invalid color"
	default:
		return err.Error()
	}
}
