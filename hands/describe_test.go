package hands

import (
	"testing"

	"github.com/lazharichir/pokerroom/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Royal flush", Describe(eval(t, "Ah Kh Qh Jh Th")))
	assert.Equal(t, "Straight, Five high", Describe(eval(t, "Ac 2d 3h 4s 5c")))
	assert.Equal(t, "Full house, Kings over Twos", Describe(eval(t, "Kh Kd Ks 2c 2d")))
	assert.Equal(t, "Two pair, Jacks and Sixes", Describe(eval(t, "Jc Jd 6h 6s Ac")))
	assert.Equal(t, "Ace high", Describe(eval(t, "Ac Jd 9h 5s 2c")))
}

func TestEvaluatePartial(t *testing.T) {
	tests := []struct {
		hole string
		want string
	}{
		{"Ah Ad", "pocket pair of Aces"},
		{"Ks Qs", "suited connectors"},
		{"Ks 9s", "King high suited"},
		{"9c 8d", "offsuit connectors"},
		{"Kc 7d", "King high offsuit"},
		{"As Ah Ks Kh", "double paired, double suited"},
		{"As Jh 8s 4d", "Ace high, single suited"},
	}
	for _, tt := range tests {
		t.Run(tt.hole, func(t *testing.T) {
			p, err := EvaluatePartial(cards.MustParseList(tt.hole))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Description)
		})
	}

	_, err := EvaluatePartial(cards.MustParseList("As Ah Ks"))
	assert.ErrorIs(t, err, ErrInvalidHandSize)
}

func TestRankPlayers(t *testing.T) {
	_, err := RankPlayers(nil)
	assert.ErrorIs(t, err, ErrNoHands)

	results, err := RankPlayers(map[string]EvaluatedHand{
		"carol": eval(t, "7h 7d 7c 7s Kh"),
		"alice": eval(t, "Ac Kd 9h 5s 2c"),
		"bob":   eval(t, "Ad Kh 9s 5c 2d"),
		"dave":  eval(t, "Ah Kh Qh Jh Th"),
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "dave", results[0].PlayerID)
	assert.True(t, results[0].IsWinner)
	assert.Equal(t, 0, results[0].PlaceIndex)

	assert.Equal(t, "carol", results[1].PlayerID)
	assert.Equal(t, 1, results[1].PlaceIndex)

	assert.Equal(t, "alice", results[2].PlayerID)
	assert.Equal(t, "bob", results[3].PlayerID)
	assert.Equal(t, 2, results[2].PlaceIndex)
	assert.Equal(t, 2, results[3].PlaceIndex, "tied hands share a place")
	assert.False(t, results[3].IsWinner)
}
