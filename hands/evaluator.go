package hands

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sort"

	"github.com/lazharichir/pokerroom/cards"
)

var ErrInvalidHandSize = errors.New("hands: invalid number of cards for evaluation")

// EvaluatedHand is the value of a five card hand.
//
// Primary holds the values that define the category (the pair, the trips
// then the pair of a full house, the top card of a straight, every card of a
// flush). Kickers holds the remaining values, highest first. Values are rank
// values except for a wheel, whose ace counts as 1.
type EvaluatedHand struct {
	Rank    HandRank     `json:"rank"`
	Cards   []cards.Card `json:"cards"`
	Primary []int        `json:"primary"`
	Kickers []int        `json:"kickers"`
	Low     bool         `json:"low,omitempty"`
}

// Compare orders two high hands: it returns 1 when a is better, -1 when b is
// better and 0 on a tie. Suits never break ties.
func Compare(a, b EvaluatedHand) int {
	if a.Rank != b.Rank {
		return compareInt(int(a.Rank), int(b.Rank))
	}
	if c := compareValues(a.Primary, b.Primary); c != 0 {
		return c
	}
	return compareValues(a.Kickers, b.Kickers)
}

// CompareLow orders two qualifying low hands: it returns 1 when a is the
// better (lower) hand.
func CompareLow(a, b EvaluatedHand) int {
	return -compareValues(a.Primary, b.Primary)
}

func compareValues(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareInt(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInt(len(a), len(b))
}

// compareInt is a helper function to compare two integers
func compareInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Combinations lazily yields every k card subset of cs, in lexicographic
// index order. Each yielded slice is freshly allocated.
func Combinations(cs []cards.Card, k int) iter.Seq[[]cards.Card] {
	return func(yield func([]cards.Card) bool) {
		n := len(cs)
		if k <= 0 || k > n {
			return
		}
		idx := make([]int, k)
		for i := range idx {
			idx[i] = i
		}
		for {
			combo := make([]cards.Card, k)
			for i, j := range idx {
				combo[i] = cs[j]
			}
			if !yield(combo) {
				return
			}
			i := k - 1
			for i >= 0 && idx[i] == n-k+i {
				i--
			}
			if i < 0 {
				return
			}
			idx[i]++
			for j := i + 1; j < k; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
}

// Evaluate5 evaluates exactly five cards.
func Evaluate5(hand []cards.Card) (EvaluatedHand, error) {
	if len(hand) != 5 {
		return EvaluatedHand{}, fmt.Errorf("%w: need 5 cards, got %d", ErrInvalidHandSize, len(hand))
	}
	return evaluateHand(hand), nil
}

// Best returns the best five card hand from five or more cards.
func Best(cs []cards.Card) (EvaluatedHand, error) {
	if len(cs) < 5 {
		return EvaluatedHand{}, fmt.Errorf("%w: need at least 5 cards, got %d", ErrInvalidHandSize, len(cs))
	}
	var best EvaluatedHand
	found := false
	for combo := range Combinations(cs, 5) {
		h := evaluateHand(combo)
		if !found || Compare(h, best) > 0 {
			best, found = h, true
		}
	}
	return best, nil
}

type rankGroup struct {
	rank  cards.Rank
	count int
}

// groupByRank returns rank groups ordered by count then rank, both descending.
func groupByRank(hand []cards.Card) []rankGroup {
	counts := map[cards.Rank]int{}
	for _, c := range hand {
		counts[c.Rank]++
	}
	groups := make([]rankGroup, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, rankGroup{rank: r, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})
	return groups
}

// sortCardsByRank sorts cards by rank in descending order
func sortCardsByRank(hand []cards.Card) []cards.Card {
	result := slices.Clone(hand)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Rank > result[j].Rank
	})
	return result
}

// orderBySignificance lays the cards out the way the hand reads: grouped
// cards first, kickers after.
func orderBySignificance(hand []cards.Card, groups []rankGroup) []cards.Card {
	out := make([]cards.Card, 0, len(hand))
	for _, g := range groups {
		for _, c := range hand {
			if c.Rank == g.rank {
				out = append(out, c)
			}
		}
	}
	return out
}

// evaluateHand evaluates a 5-card poker hand
func evaluateHand(hand []cards.Card) EvaluatedHand {
	sorted := sortCardsByRank(hand)
	groups := groupByRank(sorted)
	flush := isFlush(sorted)
	straightHigh := straightHighValue(sorted)

	values := func(gs []rankGroup) []int {
		out := make([]int, len(gs))
		for i, g := range gs {
			out[i] = int(g.rank)
		}
		return out
	}

	if flush && straightHigh > 0 {
		ordered := sorted
		if isA5Straight(sorted) {
			ordered = append(slices.Clone(sorted[1:]), sorted[0])
		}
		rank := StraightFlush
		if straightHigh == int(cards.Ace) {
			rank = RoyalFlush
		}
		return EvaluatedHand{Rank: rank, Cards: ordered, Primary: []int{straightHigh}, Kickers: []int{}}
	}

	ordered := orderBySignificance(sorted, groups)
	switch {
	case groups[0].count == 4:
		return EvaluatedHand{Rank: FourOfAKind, Cards: ordered, Primary: values(groups[:1]), Kickers: values(groups[1:])}
	case groups[0].count == 3 && groups[1].count == 2:
		return EvaluatedHand{Rank: FullHouse, Cards: ordered, Primary: values(groups[:2]), Kickers: []int{}}
	case flush:
		return EvaluatedHand{Rank: Flush, Cards: sorted, Primary: values(groups), Kickers: []int{}}
	case straightHigh > 0:
		ordered := sorted
		if isA5Straight(sorted) {
			ordered = append(slices.Clone(sorted[1:]), sorted[0])
		}
		return EvaluatedHand{Rank: Straight, Cards: ordered, Primary: []int{straightHigh}, Kickers: []int{}}
	case groups[0].count == 3:
		return EvaluatedHand{Rank: ThreeOfAKind, Cards: ordered, Primary: values(groups[:1]), Kickers: values(groups[1:])}
	case groups[0].count == 2 && groups[1].count == 2:
		return EvaluatedHand{Rank: TwoPair, Cards: ordered, Primary: values(groups[:2]), Kickers: values(groups[2:])}
	case groups[0].count == 2:
		return EvaluatedHand{Rank: OnePair, Cards: ordered, Primary: values(groups[:1]), Kickers: values(groups[1:])}
	}
	return EvaluatedHand{Rank: HighCard, Cards: sorted, Primary: values(groups[:1]), Kickers: values(groups[1:])}
}

// isFlush checks if all cards are of the same suit
func isFlush(hand []cards.Card) bool {
	if len(hand) == 0 {
		return false
	}
	for _, c := range hand[1:] {
		if c.Suit != hand[0].Suit {
			return false
		}
	}
	return true
}

// straightHighValue returns the top value of a straight, 5 for the wheel,
// or 0 when the cards are not a straight. hand must be sorted descending.
func straightHighValue(hand []cards.Card) int {
	if isA5Straight(hand) {
		return 5
	}
	for i := 1; i < len(hand); i++ {
		if hand[i-1].Rank != hand[i].Rank+1 {
			return 0
		}
	}
	return int(hand[0].Rank)
}

// isA5Straight checks for A-5-4-3-2 (where Ace is low)
func isA5Straight(hand []cards.Card) bool {
	want := map[cards.Rank]bool{cards.Ace: false, cards.Two: false, cards.Three: false, cards.Four: false, cards.Five: false}
	for _, c := range hand {
		if _, ok := want[c.Rank]; !ok {
			return false
		}
		want[c.Rank] = true
	}
	for _, seen := range want {
		if !seen {
			return false
		}
	}
	return len(hand) == 5
}

// evaluateLow returns the low value of five cards when they qualify as an
// eight-or-better low (five distinct ranks, all eight or below, aces low).
func evaluateLow(hand []cards.Card) (EvaluatedHand, bool) {
	seen := map[int]bool{}
	vals := make([]int, 0, 5)
	for _, c := range hand {
		v := c.Rank.LowValue()
		if v > 8 || seen[v] {
			return EvaluatedHand{}, false
		}
		seen[v] = true
		vals = append(vals, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(vals)))
	ordered := slices.Clone(hand)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Rank.LowValue() > ordered[j].Rank.LowValue()
	})
	return EvaluatedHand{Rank: HighCard, Cards: ordered, Primary: vals, Kickers: []int{}, Low: true}, true
}
