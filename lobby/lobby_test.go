package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"colorcard-server/config"
	"colorcard-server/game"
)

type statsMock struct {
	mu      sync.Mutex
	created []string
	results chan recordedResult
}

type recordedResult struct {
	playerID string
	win      bool
}

func newStatsMock() *statsMock {
	return &statsMock{results: make(chan recordedResult, 16)}
}

func (m *statsMock) GetOrCreatePlayer(ctx context.Context, playerID, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, playerID)
	return nil
}

func (m *statsMock) RecordGameResult(ctx context.Context, playerID string, isWin bool) error {
	m.results <- recordedResult{playerID: playerID, win: isWin}
	return nil
}

func newTestLobby(t *testing.T, stats StatsRecorder) *Lobby {
	t.Helper()
	l := New("TEST", "conn-0", config.Defaults(), stats, rand.New(rand.NewSource(7)))
	t.Cleanup(l.Stop)
	return l
}

// join enqueues a join directly through the handler, bypassing the actor
// goroutine so tests stay single threaded and deterministic.
func join(t *testing.T, l *Lobby, connID, playerID, name string) chan []byte {
	t.Helper()
	ch := make(chan []byte, 64)
	l.handle(Command{Kind: CmdJoin, ConnID: connID, PlayerID: playerID, Name: name, Send: ch})
	return ch
}

func recvMsg(t *testing.T, ch chan []byte) map[string]any {
	t.Helper()
	select {
	case data := <-ch:
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal message: %v", err)
		}
		return m
	default:
		t.Fatal("expected a message, channel empty")
		return nil
	}
}

// recvType drains ch until a message of the given type arrives.
func recvType(t *testing.T, ch chan []byte, typ string) map[string]any {
	t.Helper()
	for i := 0; i < 64; i++ {
		select {
		case data := <-ch:
			var m map[string]any
			if err := json.Unmarshal(data, &m); err != nil {
				t.Fatalf("unmarshal message: %v", err)
			}
			if m["type"] == typ {
				return m
			}
		default:
			t.Fatalf("no %q message received", typ)
		}
	}
	t.Fatalf("no %q message in first 64", typ)
	return nil
}

func drain(ch chan []byte) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func assertEmpty(t *testing.T, ch chan []byte) {
	t.Helper()
	select {
	case data := <-ch:
		t.Fatalf("unexpected message: %s", data)
	default:
	}
}

func TestJoinBroadcastsRoster(t *testing.T) {
	l := newTestLobby(t, nil)
	ch1 := join(t, l, "conn-0", "p1", "Alice")

	msg := recvMsg(t, ch1)
	if msg["type"] != "set_connection_id" || msg["connectionId"] != "conn-0" {
		t.Fatalf("first message = %v", msg)
	}

	ch2 := join(t, l, "conn-1", "p2", "Bob")
	list := recvType(t, ch2, "update_player_list")
	players, _ := list["players"].([]any)
	if len(players) != 2 || players[0] != "Alice" || players[1] != "Bob" {
		t.Errorf("players = %v", players)
	}
	if list["hostConnectionId"] != "conn-0" {
		t.Errorf("hostConnectionId = %v", list["hostConnectionId"])
	}
}

func TestJoinRejectsWhenFull(t *testing.T) {
	l := newTestLobby(t, nil)
	for i := 0; i < l.cfg.MaxPlayers; i++ {
		join(t, l, fmt.Sprintf("conn-%d", i), fmt.Sprintf("p%d", i), fmt.Sprintf("Player%d", i))
	}
	extra := join(t, l, "conn-x", "px", "Extra")
	msg := recvMsg(t, extra)
	if msg["type"] != "error" || msg["message"] != "Game is full (max 5 players)" {
		t.Errorf("got %v", msg)
	}
	if len(l.players) != l.cfg.MaxPlayers {
		t.Errorf("player count = %d", len(l.players))
	}
}

func TestJoinRejectsInProgress(t *testing.T) {
	l := newTestLobby(t, nil)
	join(t, l, "conn-0", "p1", "Alice")
	join(t, l, "conn-1", "p2", "Bob")
	l.handle(Command{Kind: CmdStart, ConnID: "conn-0"})

	late := join(t, l, "conn-2", "p3", "Cara")
	msg := recvMsg(t, late)
	if msg["type"] != "error" || msg["message"] != "Game already in progress" {
		t.Errorf("got %v", msg)
	}
}

func TestRejoinRebindsSeat(t *testing.T) {
	l := newTestLobby(t, nil)
	join(t, l, "conn-0", "p1", "Alice")
	join(t, l, "conn-1", "p2", "Bob")
	l.handle(Command{Kind: CmdStart, ConnID: "conn-0"})

	l.handle(Command{Kind: CmdDisconnect, ConnID: "conn-1"})
	if l.state.Seats[1].Active {
		t.Fatal("seat still active after disconnect")
	}

	ch := join(t, l, "conn-9", "p2", "Bob")
	if len(l.players) != 2 {
		t.Fatalf("rejoin grew the roster to %d", len(l.players))
	}
	if !l.state.Seats[1].Active {
		t.Error("seat not reactivated on rejoin")
	}
	recvType(t, ch, "game_started")
	state := recvType(t, ch, "game_state")
	if state["phase"] != "Playing" {
		t.Errorf("phase = %v", state["phase"])
	}
}

func TestStartRequiresHost(t *testing.T) {
	l := newTestLobby(t, nil)
	join(t, l, "conn-0", "p1", "Alice")
	ch2 := join(t, l, "conn-1", "p2", "Bob")
	drain(ch2)

	l.handle(Command{Kind: CmdStart, ConnID: "conn-1"})
	msg := recvMsg(t, ch2)
	if msg["type"] != "error" {
		t.Fatalf("got %v", msg)
	}
	if l.state.Phase != game.Waiting {
		t.Error("non-host start changed the phase")
	}
}

func TestStartRequiresMinPlayers(t *testing.T) {
	l := newTestLobby(t, nil)
	ch := join(t, l, "conn-0", "p1", "Alice")
	drain(ch)

	l.handle(Command{Kind: CmdStart, ConnID: "conn-0"})
	msg := recvMsg(t, ch)
	if msg["type"] != "error" {
		t.Fatalf("got %v", msg)
	}
	if l.state.Phase != game.Waiting {
		t.Error("underfilled start changed the phase")
	}
}

func TestStartDealsAndNotifiesTurn(t *testing.T) {
	l := newTestLobby(t, nil)
	ch1 := join(t, l, "conn-0", "p1", "Alice")
	ch2 := join(t, l, "conn-1", "p2", "Bob")
	drain(ch1)
	drain(ch2)

	l.handle(Command{Kind: CmdStart, ConnID: "conn-0"})

	recvType(t, ch1, "game_started")
	state1 := recvType(t, ch1, "game_state")
	if got := len(state1["myHand"].([]any)); got != 7 {
		t.Errorf("host hand size = %d, want 7", got)
	}
	if state1["isMyTurn"] != true || state1["isHost"] != true {
		t.Errorf("host flags: isMyTurn=%v isHost=%v", state1["isMyTurn"], state1["isHost"])
	}
	recvType(t, ch1, "your_turn")

	recvType(t, ch2, "game_started")
	state2 := recvType(t, ch2, "game_state")
	if state2["isMyTurn"] != false || state2["isHost"] != false {
		t.Errorf("guest flags: isMyTurn=%v isHost=%v", state2["isMyTurn"], state2["isHost"])
	}
}

func TestStateBroadcastHidesOtherHands(t *testing.T) {
	l := newTestLobby(t, nil)
	ch1 := join(t, l, "conn-0", "p1", "Alice")
	ch2 := join(t, l, "conn-1", "p2", "Bob")
	drain(ch1)
	drain(ch2)

	l.handle(Command{Kind: CmdStart, ConnID: "conn-0"})
	state := recvType(t, ch2, "game_state")

	players := state["players"].([]any)
	for _, p := range players {
		entry := p.(map[string]any)
		if _, leaked := entry["hand"]; leaked {
			t.Errorf("roster entry leaks a hand: %v", entry)
		}
		if entry["cardCount"] != float64(7) {
			t.Errorf("cardCount = %v", entry["cardCount"])
		}
	}
	hand := state["myHand"].([]any)
	if len(hand) != 7 {
		t.Errorf("own hand size = %d", len(hand))
	}
	first := hand[0].(map[string]any)
	if first["index"] != float64(0) {
		t.Errorf("hand entries not index tagged: %v", first)
	}
}

func TestOutOfTurnPlayIsSilent(t *testing.T) {
	l := newTestLobby(t, nil)
	ch1 := join(t, l, "conn-0", "p1", "Alice")
	ch2 := join(t, l, "conn-1", "p2", "Bob")
	l.handle(Command{Kind: CmdStart, ConnID: "conn-0"})
	drain(ch1)
	drain(ch2)

	l.handle(Command{Kind: CmdPlayCard, ConnID: "conn-1", CardIndex: 0})
	assertEmpty(t, ch2)
}

func TestDisconnectBroadcasts(t *testing.T) {
	l := newTestLobby(t, nil)
	ch1 := join(t, l, "conn-0", "p1", "Alice")
	join(t, l, "conn-1", "p2", "Bob")
	drain(ch1)

	l.handle(Command{Kind: CmdDisconnect, ConnID: "conn-1"})
	msg := recvType(t, ch1, "player_disconnected")
	if msg["name"] != "Bob" {
		t.Errorf("name = %v", msg["name"])
	}
}

func TestJoinCreatesPlayerRecords(t *testing.T) {
	stats := newStatsMock()
	l := newTestLobby(t, stats)
	join(t, l, "conn-0", "p1", "Alice")
	join(t, l, "conn-1", "p2", "Bob")

	deadline := time.After(2 * time.Second)
	for {
		stats.mu.Lock()
		n := len(stats.created)
		stats.mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("GetOrCreatePlayer called %d times, want 2", n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWinEndsRoundAndRecordsStats(t *testing.T) {
	stats := newStatsMock()
	l := newTestLobby(t, stats)
	ch1 := join(t, l, "conn-0", "p1", "Alice")
	ch2 := join(t, l, "conn-1", "p2", "Bob")
	l.handle(Command{Kind: CmdStart, ConnID: "conn-0"})
	drain(ch1)
	drain(ch2)

	// Hand the host a guaranteed winning position.
	top, _ := l.state.TopCard()
	l.state.Seats[0].Hand = []game.Card{{Color: top.Color, Value: top.Value}}
	l.state.Seats[0].CalledLastCard = true
	l.state.Current = 0

	l.handle(Command{Kind: CmdPlayCard, ConnID: "conn-0", CardIndex: 0})

	over := recvType(t, ch1, "game_over")
	result := over["result"].(map[string]any)
	if result["winnerName"] != "Alice" || result["winnerId"] != "p1" {
		t.Errorf("result = %v", result)
	}
	scores := result["finalScores"].([]any)
	first := scores[0].(map[string]any)
	if first["name"] != "Alice" || first["cardsLeft"] != float64(0) {
		t.Errorf("winner row = %v", first)
	}
	recvType(t, ch2, "game_over")

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-stats.results:
			got[r.playerID] = r.win
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stats records")
		}
	}
	if !got["p1"] || got["p2"] {
		t.Errorf("recorded results = %v", got)
	}
}

func TestStartFromUnseatedConnectionGetsError(t *testing.T) {
	l := newTestLobby(t, nil)
	join(t, l, "conn-0", "p1", "Alice")
	join(t, l, "conn-1", "p2", "Bob")

	ch := make(chan []byte, 8)
	l.handle(Command{Kind: CmdStart, ConnID: "stranger", Send: ch})
	msg := recvMsg(t, ch)
	if msg["type"] != "error" {
		t.Fatalf("got %v", msg)
	}
	if l.state.Phase != game.Waiting {
		t.Error("unseated start changed the phase")
	}
}

func TestNewRoundAutoDrawsForInactiveCurrentSeat(t *testing.T) {
	l := newTestLobby(t, nil)
	ch1 := join(t, l, "conn-0", "p1", "Alice")
	ch2 := join(t, l, "conn-1", "p2", "Bob")
	ch3 := join(t, l, "conn-2", "p3", "Cara")
	l.handle(Command{Kind: CmdStart, ConnID: "conn-0"})

	l.handle(Command{Kind: CmdDisconnect, ConnID: "conn-0"})
	drain(ch1)
	drain(ch2)
	drain(ch3)

	// The restart deal leaves the turn on the disconnected seat 0; the
	// round must move past it instead of stalling.
	l.handle(Command{Kind: cmdNewRound})

	if l.state.Current != 1 {
		t.Errorf("current = %d, want 1", l.state.Current)
	}
	if got := len(l.state.Seats[0].Hand); got != 8 {
		t.Errorf("inactive seat drew to %d cards, want 8", got)
	}
	recvType(t, ch2, "your_turn")
}

func TestRestartTimerDealsNewRound(t *testing.T) {
	l := New("TEST", "conn-0", config.Defaults(), nil, rand.New(rand.NewSource(7)))
	l.cfg.RestartDelaySec = 0
	t.Cleanup(l.Stop)

	ch1 := join(t, l, "conn-0", "p1", "Alice")
	ch2 := join(t, l, "conn-1", "p2", "Bob")
	l.handle(Command{Kind: CmdStart, ConnID: "conn-0"})
	drain(ch1)
	drain(ch2)

	top, _ := l.state.TopCard()
	l.state.Seats[0].Hand = []game.Card{{Color: top.Color, Value: top.Value}}
	l.state.Seats[0].CalledLastCard = true
	l.state.Current = 0
	l.handle(Command{Kind: CmdPlayCard, ConnID: "conn-0", CardIndex: 0})
	if l.state.Phase != game.GameOver {
		t.Fatalf("phase after win = %s", l.state.Phase)
	}

	// The zero-delay restart timer re-enters through the command channel.
	select {
	case cmd := <-l.commands:
		if cmd.Kind != cmdNewRound {
			t.Fatalf("queued command kind = %d", cmd.Kind)
		}
		l.handle(cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("restart command never arrived")
	}

	if l.state.Phase != game.Playing {
		t.Errorf("phase after restart = %s", l.state.Phase)
	}
	for i, seat := range l.state.Seats {
		if len(seat.Hand) != 7 {
			t.Errorf("seat %d redealt %d cards", i, len(seat.Hand))
		}
	}
}
