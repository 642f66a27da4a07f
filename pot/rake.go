package pot

// RakeCalculator computes the house fee withheld from a single pot.
type RakeCalculator interface {
	Rake(p Pot) int64
}

// NoRake never takes a fee.
type NoRake struct{}

func (NoRake) Rake(Pot) int64 { return 0 }

// PercentRake takes a percentage of each pot, capped, and rounded down to a
// chip denomination. Cap of 0 means uncapped; a Denomination below 1 is 1.
type PercentRake struct {
	BasisPoints  int64 `json:"basisPoints"` // 500 is 5%
	Cap          int64 `json:"cap"`
	Denomination int64 `json:"denomination"`
}

func (r PercentRake) Rake(p Pot) int64 {
	if p.Amount <= 0 || r.BasisPoints <= 0 {
		return 0
	}
	rake := p.Amount * r.BasisPoints / 10000
	if r.Cap > 0 && rake > r.Cap {
		rake = r.Cap
	}
	denom := r.Denomination
	if denom < 1 {
		denom = 1
	}
	return rake / denom * denom
}

// RakePots rakes every pot on its own and returns the fee per pot, in pot
// order, and the total.
func RakePots(calc RakeCalculator, pots []Pot) ([]int64, int64) {
	if calc == nil {
		calc = NoRake{}
	}
	fees := make([]int64, len(pots))
	var total int64
	for i, p := range pots {
		fee := calc.Rake(p)
		if fee > p.Amount {
			fee = p.Amount
		}
		fees[i] = fee
		total += fee
	}
	return fees, total
}
