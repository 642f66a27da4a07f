package cards

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit string

const (
	Clubs    Suit = "♣"
	Diamonds Suit = "♦"
	Hearts   Suit = "♥"
	Spades   Suit = "♠"
)

// Suits lists the four suits in deck order.
var Suits = []Suit{Clubs, Diamonds, Hearts, Spades}

// Letter returns the ASCII shorthand of the suit (c, d, h, s).
func (s Suit) Letter() string {
	switch s {
	case Clubs:
		return "c"
	case Diamonds:
		return "d"
	case Hearts:
		return "h"
	case Spades:
		return "s"
	}
	return "?"
}

// Rank represents a card rank. Ace is high (14); evaluators treat it as 1
// only inside a wheel straight.
type Rank int

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

// Ranks lists every rank from Two to Ace.
var Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

// String returns the short form of the rank ("2".."10", "J", "Q", "K", "A")
func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	}
	if r >= Two && r <= Ten {
		return fmt.Sprintf("%d", int(r))
	}
	return "?"
}

// Name returns the english name of the rank, used in hand descriptions.
func (r Rank) Name() string {
	names := map[Rank]string{
		Two: "Two", Three: "Three", Four: "Four", Five: "Five", Six: "Six",
		Seven: "Seven", Eight: "Eight", Nine: "Nine", Ten: "Ten", Jack: "Jack",
		Queen: "Queen", King: "King", Ace: "Ace",
	}
	if n, ok := names[r]; ok {
		return n
	}
	return "Unknown"
}

// LowValue returns the value of the rank when aces play low.
func (r Rank) LowValue() int {
	if r == Ace {
		return 1
	}
	return int(r)
}

// Card represents a playing card
type Card struct {
	Rank Rank
	Suit Suit
}

// New creates a card
func New(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the string representation of a card, e.g. "10♠"
func (c Card) String() string {
	if c.IsZero() {
		return ""
	}
	return c.Rank.String() + string(c.Suit)
}

// IsZero reports whether the card carries no identity (a hidden card).
func (c Card) IsZero() bool {
	return c.Rank == 0 && c.Suit == ""
}

// Equals checks if two cards are the same rank and suit
func (c Card) Equals(other Card) bool {
	return c.Rank == other.Rank && c.Suit == other.Suit
}

// Compare orders cards by rank only. Suits never break ties.
func (c Card) Compare(other Card) int {
	switch {
	case c.Rank < other.Rank:
		return -1
	case c.Rank > other.Rank:
		return 1
	}
	return 0
}

// MarshalText encodes the card in its short form.
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a card from its short form. An empty string is the
// zero card.
func (c *Card) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*c = Card{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse creates a card from a string representation
// e.g., "10♠", "10s", "Ts" or "10S" -> Card{Rank: Ten, Suit: Spades}
func Parse(s string) (Card, error) {
	if len(s) < 2 {
		return Card{}, fmt.Errorf("invalid card shorthand: %q", s)
	}

	var suit Suit
	var rankPart string
	switch {
	case strings.HasSuffix(s, string(Spades)):
		suit, rankPart = Spades, strings.TrimSuffix(s, string(Spades))
	case strings.HasSuffix(s, string(Hearts)):
		suit, rankPart = Hearts, strings.TrimSuffix(s, string(Hearts))
	case strings.HasSuffix(s, string(Diamonds)):
		suit, rankPart = Diamonds, strings.TrimSuffix(s, string(Diamonds))
	case strings.HasSuffix(s, string(Clubs)):
		suit, rankPart = Clubs, strings.TrimSuffix(s, string(Clubs))
	default:
		rankPart = s[:len(s)-1]
		switch s[len(s)-1:] {
		case "s", "S":
			suit = Spades
		case "h", "H":
			suit = Hearts
		case "d", "D":
			suit = Diamonds
		case "c", "C":
			suit = Clubs
		default:
			return Card{}, fmt.Errorf("invalid card suit: %q", s[len(s)-1:])
		}
	}

	var rank Rank
	switch strings.ToUpper(rankPart) {
	case "A":
		rank = Ace
	case "K":
		rank = King
	case "Q":
		rank = Queen
	case "J":
		rank = Jack
	case "10", "T":
		rank = Ten
	case "9":
		rank = Nine
	case "8":
		rank = Eight
	case "7":
		rank = Seven
	case "6":
		rank = Six
	case "5":
		rank = Five
	case "4":
		rank = Four
	case "3":
		rank = Three
	case "2":
		rank = Two
	default:
		return Card{}, fmt.Errorf("invalid card rank: %q", rankPart)
	}

	return Card{Rank: rank, Suit: suit}, nil
}

// MustParse is Parse for literals in tests and fixtures; it panics on error.
func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseList parses a whitespace separated list such as "Ah Kd 10c".
func ParseList(s string) ([]Card, error) {
	fields := strings.Fields(s)
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MustParseList is ParseList for literals; it panics on error.
func MustParseList(s string) []Card {
	cs, err := ParseList(s)
	if err != nil {
		panic(err)
	}
	return cs
}
