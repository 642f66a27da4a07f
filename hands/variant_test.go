package hands

import (
	"testing"

	"github.com/lazharichir/pokerroom/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldemFindBestHand(t *testing.T) {
	e, err := ForVariant(TexasHoldem)
	require.NoError(t, err)
	assert.Equal(t, 2, e.HoleCards())

	got, err := e.FindBestHand(cards.MustParseList("As Ad"), cards.MustParseList("Ah Kc Kd 2s 3h"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, FullHouse, got[0].Rank)

	got, err = e.FindBestHand(cards.MustParseList("7s 2d"), cards.MustParseList("As Ks Qs"))
	require.NoError(t, err)
	assert.Equal(t, HighCard, got[0].Rank)

	t.Run("invalid sizes", func(t *testing.T) {
		_, err := e.FindBestHand(cards.MustParseList("As"), cards.MustParseList("Ah Kc Kd"))
		assert.ErrorIs(t, err, ErrInvalidHandSize)
		_, err = e.FindBestHand(cards.MustParseList("As Ad"), cards.MustParseList("Ah Kc"))
		assert.ErrorIs(t, err, ErrInvalidHandSize)
		_, err = e.FindBestHand(cards.MustParseList("As Ad"), cards.MustParseList("Ah Kc Kd 2s 3h 4h"))
		assert.ErrorIs(t, err, ErrInvalidHandSize)
	})
}

func TestOmahaUsesExactlyTwoHoleCards(t *testing.T) {
	e, err := ForVariant(Omaha)
	require.NoError(t, err)

	hole := cards.MustParseList("As Ks Qs Js")
	board := cards.MustParseList("Ts 9s 8s 2c 3d")

	got, err := e.FindBestHand(hole, board)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StraightFlush, got[0].Rank)
	assert.Equal(t, []int{12}, got[0].Primary, "A-K-Q-J-T would need four hole cards")

	holdem, err := Best(append(hole, board...))
	require.NoError(t, err)
	assert.Equal(t, RoyalFlush, holdem.Rank)

	_, err = e.FindBestHand(cards.MustParseList("As Ks"), board)
	assert.ErrorIs(t, err, ErrInvalidHandSize)
}

func TestOmahaHiLoWithoutQualifyingLow(t *testing.T) {
	e, err := ForVariant(OmahaHiLo)
	require.NoError(t, err)

	got, err := e.FindBestHand(cards.MustParseList("Qh 4d 2s Ad"), cards.MustParseList("Qs 5h 3c"))
	require.NoError(t, err)
	require.Len(t, got, 1, "only two low ranks on the board")
	assert.Equal(t, OnePair, got[0].Rank)
	assert.Equal(t, []int{12}, got[0].Primary)
	assert.Equal(t, "Pair of Queens", Describe(got[0]))
}

func TestOmahaHiLoWithLow(t *testing.T) {
	e, err := ForVariant(OmahaHiLo)
	require.NoError(t, err)

	got, err := e.FindBestHand(cards.MustParseList("Ah 2d Kc Ks"), cards.MustParseList("3s 5h 7c Qd Jh"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, OnePair, got[0].Rank)
	assert.Equal(t, []int{13}, got[0].Primary)

	assert.True(t, got[1].Low)
	assert.Equal(t, []int{7, 5, 3, 2, 1}, got[1].Primary)
	assert.Equal(t, "7-5-3-2-A low", Describe(got[1]))
}

func TestOmahaHiLoPairedBoardLowRanks(t *testing.T) {
	e, err := ForVariant(OmahaHiLo)
	require.NoError(t, err)

	got, err := e.FindBestHand(cards.MustParseList("Ah 2d 4c 6s"), cards.MustParseList("3s 3h 5c Kd Qh"))
	require.NoError(t, err)
	assert.Len(t, got, 1, "paired low board cards count once")
}

func TestCompareLow(t *testing.T) {
	a, ok := evaluateLow(cards.MustParseList("6c 4d 3h 2s Ac"))
	require.True(t, ok)
	b, ok := evaluateLow(cards.MustParseList("7c 5d 3h 2s Ac"))
	require.True(t, ok)
	assert.Equal(t, 1, CompareLow(a, b))
	assert.Equal(t, -1, CompareLow(b, a))

	_, ok = evaluateLow(cards.MustParseList("9c 5d 3h 2s Ac"))
	assert.False(t, ok)
	_, ok = evaluateLow(cards.MustParseList("5c 5d 3h 2s Ac"))
	assert.False(t, ok)
}

func TestUnknownVariant(t *testing.T) {
	_, err := ForVariant("razz")
	assert.Error(t, err)
}
