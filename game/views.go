package game

// SeatView is the public roster entry for one seat. Hand contents are
// never included here; only the count.
type SeatView struct {
	Name           string `json:"name"`
	CardCount      int    `json:"cardCount"`
	CalledLastCard bool   `json:"calledLastCard"`
	SeatPosition   int    `json:"seatPosition"`
	IsActive       bool   `json:"isActive"`
}

// HandCard is one index-tagged card in the recipient's own hand.
type HandCard struct {
	Index int    `json:"index"`
	Card  string `json:"card"`
}

// StateMsg is the full game snapshot broadcast to a specific seat.
// MyHand holds only the recipient's cards.
type StateMsg struct {
	Type               string     `json:"type"`
	Players            []SeatView `json:"players"`
	TopCard            *string    `json:"topCard"`
	ActiveColor        *string    `json:"activeColor"`
	DeckCount          int        `json:"deckCount"`
	CurrentPlayerIndex int        `json:"currentPlayerIndex"`
	IsClockwise        bool       `json:"isClockwise"`
	Phase              string     `json:"phase"`
	GameLog            []string   `json:"gameLog"`
	MyHand             []HandCard `json:"myHand"`
	IsMyTurn           bool       `json:"isMyTurn"`
	IsHost             bool       `json:"isHost"`
}

// BuildViewForSeat returns the snapshot for one recipient seat. logTail
// bounds the number of trailing log lines included.
func (s *State) BuildViewForSeat(seat int, isHost bool, logTail int) StateMsg {
	players := make([]SeatView, len(s.Seats))
	for i, p := range s.Seats {
		players[i] = SeatView{
			Name:           p.Name,
			CardCount:      len(p.Hand),
			CalledLastCard: p.CalledLastCard,
			SeatPosition:   i,
			IsActive:       p.Active,
		}
	}

	var topCard, activeColor *string
	if top, ok := s.TopCard(); ok {
		str := top.String()
		topCard = &str
	}
	if s.ActiveColor != NoColor {
		str := s.ActiveColor.String()
		activeColor = &str
	}

	tail := s.Log
	if logTail > 0 && len(tail) > logTail {
		tail = tail[len(tail)-logTail:]
	}
	logLines := make([]string, len(tail))
	copy(logLines, tail)

	hand := []HandCard{}
	if seat >= 0 && seat < len(s.Seats) {
		for i, c := range s.Seats[seat].Hand {
			hand = append(hand, HandCard{Index: i, Card: c.String()})
		}
	}

	return StateMsg{
		Type:               "game_state",
		Players:            players,
		TopCard:            topCard,
		ActiveColor:        activeColor,
		DeckCount:          len(s.Deck),
		CurrentPlayerIndex: s.Current,
		IsClockwise:        s.Clockwise,
		Phase:              s.Phase.String(),
		GameLog:            logLines,
		MyHand:             hand,
		IsMyTurn:           seat == s.Current,
		IsHost:             isHost,
	}
}
