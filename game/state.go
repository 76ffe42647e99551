package game

import (
	"fmt"
	"math/rand"
	"sort"

	"colorcard-server/lobbyerrors"
)

// Phase is the lifecycle phase of a round.
type Phase int

const (
	Waiting Phase = iota
	Playing
	GameOver
)

// String returns the wire form of a Phase.
func (p Phase) String() string {
	switch p {
	case Waiting:
		return "Waiting"
	case Playing:
		return "Playing"
	case GameOver:
		return "GameOver"
	default:
		return "unknown"
	}
}

// Seat holds the per-seat mutable state owned by the state machine.
// Connection identity lives in the lobby layer; the state machine only
// needs the hand, the inactive flag for turn advancement, and the
// last-card call flag.
type Seat struct {
	Name           string
	Hand           []Card
	Active         bool
	CalledLastCard bool
}

// State is the per-lobby rules engine. It is an exclusive-owner type: it
// has no internal locking and every method assumes the caller serializes
// access (the lobby actor does).
type State struct {
	rng      *rand.Rand
	handSize int

	Deck    []Card
	Discard []Card

	Current      int
	Clockwise    bool
	ActiveColor  Color
	PendingDraw  int
	Phase        Phase
	Log          []string
	Seats        []*Seat

	// ColorChooser is the seat owing a color choice after a wild play,
	// or -1. advanceOnChoose distinguishes Wild (turn held until the
	// choice) from WildDrawFour (turn already advanced at play time).
	ColorChooser    int
	advanceOnChoose bool
}

// New returns an empty Waiting state. handSize <= 0 falls back to 7.
func New(rng *rand.Rand, handSize int) *State {
	if handSize <= 0 {
		handSize = 7
	}
	return &State{
		rng:          rng,
		handSize:     handSize,
		Clockwise:    true,
		Phase:        Waiting,
		ColorChooser: -1,
	}
}

// AddSeat appends a new active seat and returns its position.
func (s *State) AddSeat(name string) int {
	s.Seats = append(s.Seats, &Seat{Name: name, Active: true})
	return len(s.Seats) - 1
}

// TopCard returns the top of the discard pile.
func (s *State) TopCard() (Card, bool) {
	if len(s.Discard) == 0 {
		return Card{}, false
	}
	return s.Discard[len(s.Discard)-1], true
}

// CardCount returns deck + discard + all hands. It is 108 at all times
// while a round is in progress.
func (s *State) CardCount() int {
	n := len(s.Deck) + len(s.Discard)
	for _, seat := range s.Seats {
		n += len(seat.Hand)
	}
	return n
}

func (s *State) logf(format string, args ...any) {
	s.Log = append(s.Log, fmt.Sprintf(format, args...))
}

// NewRound resets the state and deals a fresh round: shuffled full deck,
// 7 cards per seat dealt round-robin, and a numeric starting card on the
// discard pile. Starting-card candidates that are wild or action-ranked
// are cycled to the bottom of the deck rather than discarded, so the
// 108-card invariant holds from the first instant of Playing.
func (s *State) NewRound() {
	s.Deck = BuildDeck()
	ShuffleDeck(s.Deck, s.rng)
	s.Discard = s.Discard[:0]
	s.Current = 0
	s.Clockwise = true
	s.ActiveColor = NoColor
	s.PendingDraw = 0
	s.ColorChooser = -1
	s.Log = s.Log[:0]

	for _, seat := range s.Seats {
		seat.Hand = seat.Hand[:0]
		seat.CalledLastCard = false
	}
	for i := 0; i < s.handSize; i++ {
		for _, seat := range s.Seats {
			if c, ok := s.drawFromDeck(); ok {
				seat.Hand = append(seat.Hand, c)
			}
		}
	}

	var first Card
	for tries := 0; tries < len(s.Deck)*2; tries++ {
		c, ok := s.drawFromDeck()
		if !ok {
			break
		}
		if c.Color != Wild && c.Value <= Nine {
			first = c
			break
		}
		s.Deck = append(s.Deck, c)
	}
	s.Discard = append(s.Discard, first)
	s.ActiveColor = first.Color
	s.Phase = Playing
	s.logf("Game started! First card: %s %s", first.Color, first.Value)
}

// drawFromDeck pops the front of the deck, reshuffling the discard pile
// back in when the deck runs dry. The top discard card is set aside first
// and restored as the sole discard entry, so the active color context
// survives the reshuffle and the top card never re-enters the deck.
func (s *State) drawFromDeck() (Card, bool) {
	if len(s.Deck) == 0 {
		if len(s.Discard) <= 1 {
			return Card{}, false
		}
		top := s.Discard[len(s.Discard)-1]
		s.Deck = append(s.Deck, s.Discard[:len(s.Discard)-1]...)
		ShuffleDeck(s.Deck, s.rng)
		s.Discard = s.Discard[:0]
		s.Discard = append(s.Discard, top)
	}
	c := s.Deck[0]
	s.Deck = s.Deck[1:]
	return c, true
}

// Advance moves the turn pointer one step in the current direction,
// skipping inactive seats. Bounded by one full loop so a lobby of only
// inactive seats cannot spin.
func (s *State) Advance() {
	n := len(s.Seats)
	if n == 0 {
		return
	}
	step := 1
	if !s.Clockwise {
		step = n - 1
	}
	s.Current = (s.Current + step) % n
	for attempts := 0; attempts < n && !s.Seats[s.Current].Active; attempts++ {
		s.Current = (s.Current + step) % n
	}
}

// PlayResult describes what a successful PlayCard did, so the lobby can
// emit the matching protocol events.
type PlayResult struct {
	Card      Card
	Won       bool // hand emptied; round is over
	Penalized bool // missed last-card call; two cards drawn back
	NeedColor bool // the playing seat owes a color choice
}

// PlayCard plays the card at idx from seat's hand. The seat must hold the
// turn; illegal indices and unplayable cards are rejected with no state
// change. Emptying the hand ends the round immediately and skips the
// card's special effect.
func (s *State) PlayCard(seat, idx int) (PlayResult, error) {
	if s.Phase != Playing || seat != s.Current {
		return PlayResult{}, lobbyerrors.ErrNotYourTurn
	}
	p := s.Seats[seat]
	if idx < 0 || idx >= len(p.Hand) {
		return PlayResult{}, lobbyerrors.ErrInvalidCard
	}
	card := p.Hand[idx]
	top, _ := s.TopCard()
	if !CanPlay(card, top, s.ActiveColor) {
		return PlayResult{}, lobbyerrors.ErrCannotPlay
	}

	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	s.Discard = append(s.Discard, card)
	s.logf("%s played %s %s", p.Name, card.Color, card.Value)

	res := PlayResult{Card: card}
	if len(p.Hand) == 1 && !p.CalledLastCard {
		s.logf("%s forgot to call last card! Drawing 2 cards.", p.Name)
		for i := 0; i < 2; i++ {
			if c, ok := s.drawFromDeck(); ok {
				p.Hand = append(p.Hand, c)
			}
		}
		res.Penalized = true
	}

	if len(p.Hand) == 0 {
		s.Phase = GameOver
		s.logf("%s wins!", p.Name)
		res.Won = true
		return res, nil
	}

	s.resolveSpecial(card, &res)
	return res, nil
}

func (s *State) resolveSpecial(card Card, res *PlayResult) {
	switch card.Value {
	case Skip:
		s.logf("Next player skipped!")
		s.Advance()
		s.Advance()
	case Reverse:
		s.Clockwise = !s.Clockwise
		s.logf("Direction reversed!")
		// With two seats a reverse comes straight back, so it acts as a skip.
		if len(s.Seats) == 2 {
			s.Advance()
		}
		s.Advance()
	case DrawTwo:
		s.PendingDraw += 2
		s.logf("Next player must draw %d cards!", s.PendingDraw)
		s.Advance()
	case WildCard:
		s.ColorChooser = s.Current
		s.advanceOnChoose = true
		res.NeedColor = true
	case WildDrawFour:
		s.PendingDraw += 4
		s.logf("Next player must draw %d cards!", s.PendingDraw)
		s.ColorChooser = s.Current
		s.advanceOnChoose = false
		res.NeedColor = true
		s.Advance()
	default:
		s.ActiveColor = card.Color
		s.Advance()
	}
}

// ChooseColor resolves an outstanding color choice. Only the prompted seat
// may answer. After a plain Wild the turn advances now; after a
// WildDrawFour it already advanced at play time.
func (s *State) ChooseColor(seat int, c Color) error {
	if s.Phase != Playing || s.ColorChooser < 0 || seat != s.ColorChooser {
		return lobbyerrors.ErrNotYourTurn
	}
	if c == NoColor || c == Wild {
		return lobbyerrors.ErrInvalidColor
	}
	s.ActiveColor = c
	s.ColorChooser = -1
	s.logf("%s chose %s", s.Seats[seat].Name, c)
	if s.advanceOnChoose {
		s.Advance()
	}
	return nil
}

// DrawResult describes what DrawCard did.
type DrawResult struct {
	Forced    int  // penalty cards drawn; 0 means a normal single draw
	Drawn     Card // the drawn card when Forced == 0
	Playable  bool // drawn card may be played right now; turn not advanced
	HandIndex int  // hand position of the drawn card
}

// DrawCard applies the pending draw penalty if one is owed, otherwise
// draws a single card. A playable drawn card holds the turn so the seat
// can choose to play it.
func (s *State) DrawCard(seat int) (DrawResult, error) {
	if s.Phase != Playing || seat != s.Current {
		return DrawResult{}, lobbyerrors.ErrNotYourTurn
	}
	p := s.Seats[seat]

	if s.PendingDraw > 0 {
		n := s.PendingDraw
		for i := 0; i < n; i++ {
			if c, ok := s.drawFromDeck(); ok {
				p.Hand = append(p.Hand, c)
			}
		}
		s.logf("%s drew %d cards", p.Name, n)
		s.PendingDraw = 0
		s.Advance()
		return DrawResult{Forced: n}, nil
	}

	c, ok := s.drawFromDeck()
	if !ok {
		s.Advance()
		return DrawResult{}, nil
	}
	p.Hand = append(p.Hand, c)
	s.logf("%s drew a card", p.Name)

	top, _ := s.TopCard()
	if CanPlay(c, top, s.ActiveColor) {
		return DrawResult{Drawn: c, Playable: true, HandIndex: len(p.Hand) - 1}, nil
	}
	s.Advance()
	return DrawResult{Drawn: c}, nil
}

// CallLastCard sets seat's last-card flag. Any seat may call on its own
// hand at any time; the turn does not change.
func (s *State) CallLastCard(seat int) error {
	if s.Phase != Playing {
		return lobbyerrors.ErrNotYourTurn
	}
	p := s.Seats[seat]
	p.CalledLastCard = true
	s.logf("%s called last card!", p.Name)
	return nil
}

// PlayerScore is one row of the end-of-round scoreboard.
type PlayerScore struct {
	Name      string `json:"name"`
	CardsLeft int    `json:"cardsLeft"`
	Points    int    `json:"points"`
}

// Scoreboard returns remaining-card counts and point totals for every
// seat, ordered ascending by cards left (winner first with zero).
func (s *State) Scoreboard() []PlayerScore {
	scores := make([]PlayerScore, 0, len(s.Seats))
	for _, seat := range s.Seats {
		points := 0
		for _, c := range seat.Hand {
			points += Points(c)
		}
		scores = append(scores, PlayerScore{Name: seat.Name, CardsLeft: len(seat.Hand), Points: points})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].CardsLeft < scores[j].CardsLeft
	})
	return scores
}
