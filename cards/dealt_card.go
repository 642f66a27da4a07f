package cards

type Visibility string

const (
	Private Visibility = "PRIVATE" // Only the owner can see
	Public  Visibility = "PUBLIC"  // Everyone can see
)

// DealtCard represents a card that's in play with visibility information.
// When Hidden is set the card identity has been withheld from the viewer.
type DealtCard struct {
	Card       Card       `json:"card"`
	Visibility Visibility `json:"visibility"`
	Hidden     bool       `json:"hidden,omitempty"`
}

// NewDealtCard creates a new dealt card with the specified visibility
func NewDealtCard(card Card, visibility Visibility) DealtCard {
	return DealtCard{Card: card, Visibility: visibility}
}

// Masked returns the card with its identity removed.
func (c DealtCard) Masked() DealtCard {
	return DealtCard{Visibility: c.Visibility, Hidden: true}
}

// Reveal turns the card face up to all.
func (c *DealtCard) Reveal() {
	c.Visibility = Public
}

// Plain returns the underlying cards of a dealt hand.
func Plain(dealt []DealtCard) []Card {
	out := make([]Card, 0, len(dealt))
	for _, dc := range dealt {
		out = append(out, dc.Card)
	}
	return out
}
