package hands

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lazharichir/pokerroom/cards"
)

func plural(r cards.Rank) string {
	if r == cards.Six {
		return "Sixes"
	}
	return r.Name() + "s"
}

func valueRank(v int) cards.Rank {
	if v == 1 {
		return cards.Ace
	}
	return cards.Rank(v)
}

// Describe returns a human readable name for the hand, e.g. "Pair of Queens".
func Describe(h EvaluatedHand) string {
	if h.Low {
		parts := make([]string, len(h.Primary))
		for i, v := range h.Primary {
			parts[i] = valueRank(v).String()
		}
		return strings.Join(parts, "-") + " low"
	}
	if len(h.Primary) == 0 {
		return h.Rank.String()
	}
	top := valueRank(h.Primary[0])
	switch h.Rank {
	case RoyalFlush:
		return "Royal flush"
	case StraightFlush:
		return fmt.Sprintf("Straight flush, %s high", top.Name())
	case FourOfAKind:
		return "Four " + plural(top)
	case FullHouse:
		return fmt.Sprintf("Full house, %s over %s", plural(top), plural(valueRank(h.Primary[1])))
	case Flush:
		return fmt.Sprintf("Flush, %s high", top.Name())
	case Straight:
		return fmt.Sprintf("Straight, %s high", top.Name())
	case ThreeOfAKind:
		return "Three " + plural(top)
	case TwoPair:
		return fmt.Sprintf("Two pair, %s and %s", plural(top), plural(valueRank(h.Primary[1])))
	case OnePair:
		return "Pair of " + plural(top)
	}
	return top.Name() + " high"
}

// PartialHand describes hole cards before any board card is known. It never
// claims a final category.
type PartialHand struct {
	Description string
	Pairs       int
	Suited      bool
	Connected   bool
	HighRank    cards.Rank
}

// EvaluatePartial describes hold'em (2) or omaha (4) hole cards.
func EvaluatePartial(hole []cards.Card) (PartialHand, error) {
	if len(hole) != 2 && len(hole) != 4 {
		return PartialHand{}, fmt.Errorf("%w: partial evaluation needs 2 or 4 hole cards, got %d", ErrInvalidHandSize, len(hole))
	}
	sorted := sortCardsByRank(hole)
	p := PartialHand{HighRank: sorted[0].Rank}

	groups := groupByRank(sorted)
	for _, g := range groups {
		if g.count >= 2 {
			p.Pairs++
		}
	}
	suits := map[cards.Suit]int{}
	for _, c := range hole {
		suits[c.Suit]++
	}
	suitedGroups := 0
	for _, n := range suits {
		if n >= 2 {
			suitedGroups++
		}
	}
	p.Suited = suitedGroups > 0

	if len(hole) == 2 {
		gap := int(sorted[0].Rank - sorted[1].Rank)
		p.Connected = gap == 1 || (sorted[0].Rank == cards.Ace && sorted[1].Rank == cards.Two)
		switch {
		case p.Pairs == 1:
			p.Description = "pocket pair of " + plural(sorted[0].Rank)
		case p.Suited && p.Connected:
			p.Description = "suited connectors"
		case p.Suited:
			p.Description = fmt.Sprintf("%s high suited", sorted[0].Rank.Name())
		case p.Connected:
			p.Description = "offsuit connectors"
		default:
			p.Description = fmt.Sprintf("%s high offsuit", sorted[0].Rank.Name())
		}
		return p, nil
	}

	var parts []string
	switch p.Pairs {
	case 0:
		parts = append(parts, sorted[0].Rank.Name()+" high")
	case 1:
		parts = append(parts, "paired")
	default:
		parts = append(parts, "double paired")
	}
	switch suitedGroups {
	case 1:
		parts = append(parts, "single suited")
	case 2:
		parts = append(parts, "double suited")
	}
	p.Description = strings.Join(parts, ", ")
	return p, nil
}

// HandComparisonResult represents one player's place in a showdown
type HandComparisonResult struct {
	PlayerID   string        `json:"playerId"`
	Hand       EvaluatedHand `json:"hand"`
	IsWinner   bool          `json:"isWinner"`
	PlaceIndex int           `json:"placeIndex"` // 0 for first place; tied hands share a place
}

// ErrNoHands is returned by RankPlayers when there is nothing to rank.
var ErrNoHands = errors.New("hands: no hands to rank")

// RankPlayers sorts players by hand strength, best first. Ties share a
// place index and are listed by player id.
func RankPlayers(playerHands map[string]EvaluatedHand) ([]HandComparisonResult, error) {
	if len(playerHands) == 0 {
		return nil, ErrNoHands
	}
	results := make([]HandComparisonResult, 0, len(playerHands))
	for id, h := range playerHands {
		results = append(results, HandComparisonResult{PlayerID: id, Hand: h})
	}
	better := func(a, b EvaluatedHand) int {
		if a.Low {
			return CompareLow(a, b)
		}
		return Compare(a, b)
	}
	sortResults(results, better)

	place := 0
	for i := range results {
		if i > 0 && better(results[i].Hand, results[i-1].Hand) != 0 {
			place = i
		}
		results[i].PlaceIndex = place
		results[i].IsWinner = place == 0
	}
	return results, nil
}

func sortResults(results []HandComparisonResult, better func(a, b EvaluatedHand) int) {
	sort.Slice(results, func(i, j int) bool {
		if c := better(results[i].Hand, results[j].Hand); c != 0 {
			return c > 0
		}
		return results[i].PlayerID < results[j].PlayerID
	})
}
