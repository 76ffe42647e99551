package game

import "math/rand"

// Color is a card color. NoColor is the zero value and means "no color
// constraint"; Wild is the color carried by the wild-family cards themselves.
type Color uint8

const (
	NoColor Color = iota
	Red
	Blue
	Green
	Yellow
	Wild
)

// String returns the wire form of a Color ("" for NoColor).
func (c Color) String() string {
	switch c {
	case Red:
		return "Red"
	case Blue:
		return "Blue"
	case Green:
		return "Green"
	case Yellow:
		return "Yellow"
	case Wild:
		return "Wild"
	default:
		return ""
	}
}

// ParseColor maps a wire color name to a Color. Only the four playable
// colors parse; anything else returns NoColor and false.
func ParseColor(s string) (Color, bool) {
	switch s {
	case "Red":
		return Red, true
	case "Blue":
		return Blue, true
	case "Green":
		return Green, true
	case "Yellow":
		return Yellow, true
	default:
		return NoColor, false
	}
}

// Value is a card face value. Zero through Nine are the numeric cards and
// convert directly to their point value.
type Value uint8

const (
	Zero Value = iota
	One
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Skip
	Reverse
	DrawTwo
	WildCard
	WildDrawFour
)

// String returns the wire form of a Value.
func (v Value) String() string {
	switch {
	case v <= Nine:
		return string(rune('0' + v))
	case v == Skip:
		return "Skip"
	case v == Reverse:
		return "Reverse"
	case v == DrawTwo:
		return "DrawTwo"
	case v == WildCard:
		return "Wild"
	case v == WildDrawFour:
		return "WildDrawFour"
	default:
		return "unknown"
	}
}

// Card is an immutable color/value pair.
type Card struct {
	Color Color
	Value Value
}

// String returns the wire form "<Color>_<Value>", e.g. "Red_7" or
// "Wild_WildDrawFour".
func (c Card) String() string {
	return c.Color.String() + "_" + c.Value.String()
}

// CanPlay reports whether card may be played on top given the active color
// constraint. Wild-family cards always match; otherwise the card must match
// the active color, the top card's color, or the top card's value. When
// active is NoColor only the top card is consulted.
func CanPlay(card, top Card, active Color) bool {
	if card.Color == Wild {
		return true
	}
	if active != NoColor && card.Color == active {
		return true
	}
	return card.Color == top.Color || card.Value == top.Value
}

// Points returns the scoring value of a card: face value for numerics,
// 20 for Skip/Reverse/DrawTwo, 50 for the wild family.
func Points(c Card) int {
	switch c.Value {
	case Skip, Reverse, DrawTwo:
		return 20
	case WildCard, WildDrawFour:
		return 50
	default:
		return int(c.Value)
	}
}

// BuildDeck returns the full 108-card deck in deterministic composition
// order: per color one 0, two each of 1-9, two Skip, two Reverse, two
// DrawTwo, plus four Wild and four WildDrawFour. Shuffling is separate.
func BuildDeck() []Card {
	deck := make([]Card, 0, 108)
	for _, color := range []Color{Red, Blue, Green, Yellow} {
		deck = append(deck, Card{Color: color, Value: Zero})
		for i := 0; i < 2; i++ {
			for v := One; v <= Nine; v++ {
				deck = append(deck, Card{Color: color, Value: v})
			}
			deck = append(deck, Card{Color: color, Value: Skip})
			deck = append(deck, Card{Color: color, Value: Reverse})
			deck = append(deck, Card{Color: color, Value: DrawTwo})
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, Card{Color: Wild, Value: WildCard})
		deck = append(deck, Card{Color: Wild, Value: WildDrawFour})
	}
	return deck
}

// ShuffleDeck permutes cards in place using rng, so round setup is
// reproducible from a seeded source in tests.
func ShuffleDeck(cards []Card, rng *rand.Rand) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
