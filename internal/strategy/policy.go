// Package strategy turns signal readings into an advisory label. It never trades.
package strategy

// Fixed calibration knobs.
const (
	// MinSpread is the smallest spread, in price units, worth acting on.
	MinSpread = 0.01
	// MomentumThreshold is the absolute momentum that tips a recommendation to BUY or SELL.
	MomentumThreshold = 0.01
)

// Recommendation is the advisory label shown each cycle.
type Recommendation string

const (
	HoldSpreadTooSmall Recommendation = "HOLD (spread too small)"
	BuySmall           Recommendation = "BUY small (momentum up)"
	SellSmall          Recommendation = "SELL small (momentum down)"
	HoldWatch          Recommendation = "HOLD / watch"
)

func (r Recommendation) String() string { return string(r) }

// Recommend is a pure function of spread, momentum and the held position.
// spreadKnown is false when the book had no two-sided quote.
func Recommend(spread float64, spreadKnown bool, momentum, position float64) Recommendation {
	switch {
	case !spreadKnown || spread < MinSpread:
		return HoldSpreadTooSmall
	case momentum > MomentumThreshold:
		return BuySmall
	case momentum < -MomentumThreshold && position > 0:
		return SellSmall
	default:
		return HoldWatch
	}
}
