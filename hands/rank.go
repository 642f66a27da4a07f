package hands

import "fmt"

// HandRank represents the strength category of a poker hand
type HandRank int

const (
	HighCard HandRank = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var handRankNames = map[HandRank]string{
	HighCard:      "HIGH_CARD",
	OnePair:       "ONE_PAIR",
	TwoPair:       "TWO_PAIR",
	ThreeOfAKind:  "THREE_OF_A_KIND",
	Straight:      "STRAIGHT",
	Flush:         "FLUSH",
	FullHouse:     "FULL_HOUSE",
	FourOfAKind:   "FOUR_OF_A_KIND",
	StraightFlush: "STRAIGHT_FLUSH",
	RoyalFlush:    "ROYAL_FLUSH",
}

func (r HandRank) String() string {
	if n, ok := handRankNames[r]; ok {
		return n
	}
	return fmt.Sprintf("HandRank(%d)", int(r))
}

// MarshalText encodes the rank by name.
func (r HandRank) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a rank name.
func (r *HandRank) UnmarshalText(text []byte) error {
	for k, v := range handRankNames {
		if v == string(text) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown hand rank %q", text)
}
