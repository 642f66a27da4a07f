// Package pot turns wagers into a main pot and side pots.
package pot

import (
	"slices"
	"sort"
)

// Pot is a pile of chips and the players who can win it.
type Pot struct {
	Amount   int64    `json:"amount"`
	Eligible []string `json:"eligible"`
	Main     bool     `json:"main"`
}

// IsEligible reports whether the player can win the pot.
func (p Pot) IsEligible(playerID string) bool {
	_, found := slices.BinarySearch(p.Eligible, playerID)
	return found
}

// Manager keeps the pots of one hand.
//
// Every collected wager is added to a per-player running total and the pots
// are rebuilt from those totals, so eligibility always reflects who has
// contributed at each level and who is still in the hand. Antes count toward
// a player's level like any wager: a player all in for the ante still plays
// for the antes. Dead money goes to the main pot and never creates a side pot.
type Manager struct {
	Pots          []Pot            `json:"pots"`
	Contributions map[string]int64 `json:"contributions"`
	Antes         map[string]int64 `json:"antes,omitempty"`
	Removed       map[string]bool  `json:"removed,omitempty"`
	DeadMoney     int64            `json:"deadMoney"`
	DeadEligible  []string         `json:"deadEligible,omitempty"`
}

// NewManager creates an empty pot manager
func NewManager() *Manager {
	return &Manager{
		Contributions: map[string]int64{},
		Antes:         map[string]int64{},
		Removed:       map[string]bool{},
	}
}

func (m *Manager) init() {
	if m.Contributions == nil {
		m.Contributions = map[string]int64{}
	}
	if m.Antes == nil {
		m.Antes = map[string]int64{}
	}
	if m.Removed == nil {
		m.Removed = map[string]bool{}
	}
}

// CollectBets moves one betting round's wagers into the pots. Zero and
// negative amounts are ignored.
func (m *Manager) CollectBets(playerBets map[string]int64) {
	m.init()
	for id, amount := range playerBets {
		if amount > 0 {
			m.Contributions[id] += amount
		}
	}
	m.rebuild()
}

// PostAntes records each player's ante. Zero and negative amounts are
// ignored.
func (m *Manager) PostAntes(antes map[string]int64) {
	m.init()
	for id, amount := range antes {
		if amount > 0 {
			m.Antes[id] += amount
		}
	}
	m.rebuild()
}

// AddDeadMoney puts an amount straight into the main pot. The eligible
// players are used only when no pot exists yet.
func (m *Manager) AddDeadMoney(amount int64, eligible []string) {
	if amount <= 0 {
		return
	}
	m.init()
	m.DeadMoney += amount
	if len(m.DeadEligible) == 0 {
		m.DeadEligible = sortedCopy(eligible)
	} else {
		m.DeadEligible = union(m.DeadEligible, eligible)
	}
	m.rebuild()
}

// RemovePlayer strips a player from every pot's eligibility. Chips the
// player already put in stay in the pots.
func (m *Manager) RemovePlayer(playerID string) {
	m.init()
	m.Removed[playerID] = true
	m.rebuild()
}

// Total returns the chips in all pots.
func (m *Manager) Total() int64 {
	var total int64
	for _, p := range m.Pots {
		total += p.Amount
	}
	return total
}

// Contributed returns what a player has put into the pots this hand, antes
// included.
func (m *Manager) Contributed(playerID string) int64 {
	return m.Contributions[playerID] + m.Antes[playerID]
}

// Clear empties the manager after payout.
func (m *Manager) Clear() {
	m.Pots = nil
	m.Contributions = map[string]int64{}
	m.Antes = map[string]int64{}
	m.Removed = map[string]bool{}
	m.DeadMoney = 0
	m.DeadEligible = nil
}

// Clone returns a deep copy.
func (m *Manager) Clone() *Manager {
	if m == nil {
		return nil
	}
	cp := &Manager{
		Pots:          make([]Pot, len(m.Pots)),
		Contributions: make(map[string]int64, len(m.Contributions)),
		Antes:         make(map[string]int64, len(m.Antes)),
		Removed:       make(map[string]bool, len(m.Removed)),
		DeadMoney:     m.DeadMoney,
		DeadEligible:  slices.Clone(m.DeadEligible),
	}
	for i, p := range m.Pots {
		cp.Pots[i] = Pot{Amount: p.Amount, Eligible: slices.Clone(p.Eligible), Main: p.Main}
	}
	for k, v := range m.Contributions {
		cp.Contributions[k] = v
	}
	for k, v := range m.Antes {
		cp.Antes[k] = v
	}
	for k, v := range m.Removed {
		cp.Removed[k] = v
	}
	return cp
}

// totals sums each player's antes and wagers.
func (m *Manager) totals() map[string]int64 {
	out := make(map[string]int64, len(m.Contributions)+len(m.Antes))
	for id, amount := range m.Antes {
		out[id] += amount
	}
	for id, amount := range m.Contributions {
		out[id] += amount
	}
	return out
}

// rebuild bands the running totals: for each distinct contribution level,
// the slice above the previous level times the number of players who reached
// it forms a pot open to those players. Bands with the same eligible set are
// merged. A band nobody remaining can win is added to the pot below it.
func (m *Manager) rebuild() {
	totals := m.totals()
	levels := make([]int64, 0, len(totals))
	seen := map[int64]bool{}
	for _, amount := range totals {
		if amount > 0 && !seen[amount] {
			seen[amount] = true
			levels = append(levels, amount)
		}
	}
	slices.Sort(levels)

	var pots []Pot
	var orphan int64
	var prev int64
	for _, level := range levels {
		var contributors int64
		var eligible []string
		for id, amount := range totals {
			if amount >= level {
				contributors++
				if !m.Removed[id] {
					eligible = append(eligible, id)
				}
			}
		}
		amount := (level - prev) * contributors
		prev = level
		sort.Strings(eligible)

		if len(eligible) == 0 {
			if len(pots) > 0 {
				pots[len(pots)-1].Amount += amount
			} else {
				orphan += amount
			}
			continue
		}
		if i := slices.IndexFunc(pots, func(p Pot) bool { return slices.Equal(p.Eligible, eligible) }); i >= 0 {
			pots[i].Amount += amount
			continue
		}
		pots = append(pots, Pot{Amount: amount, Eligible: eligible})
	}

	dead := m.DeadMoney + orphan
	if dead > 0 {
		if len(pots) == 0 {
			eligible := make([]string, 0, len(m.DeadEligible))
			for _, id := range m.DeadEligible {
				if !m.Removed[id] {
					eligible = append(eligible, id)
				}
			}
			if len(eligible) == 0 {
				eligible = slices.Clone(m.DeadEligible)
			}
			pots = append(pots, Pot{Amount: dead, Eligible: eligible})
		} else {
			pots[0].Amount += dead
		}
	}
	if len(pots) > 0 {
		pots[0].Main = true
	}
	m.Pots = pots
}

func sortedCopy(ids []string) []string {
	out := slices.Clone(ids)
	sort.Strings(out)
	return slices.Compact(out)
}

func union(a, b []string) []string {
	return sortedCopy(append(slices.Clone(a), b...))
}
