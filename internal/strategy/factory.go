package strategy

import (
	"fmt"
	"strings"
)

// ModeSpreadMomentum selects the spread-gated momentum policy.
const ModeSpreadMomentum = "spread_momentum"

// Policy maps the current market view to a recommendation.
type Policy interface {
	Recommend(spread float64, spreadKnown bool, momentum, position float64) Recommendation
	Name() string
}

type spreadMomentum struct{}

func (spreadMomentum) Name() string { return "SpreadMomentum" }

func (spreadMomentum) Recommend(spread float64, spreadKnown bool, momentum, position float64) Recommendation {
	return Recommend(spread, spreadKnown, momentum, position)
}

// Build returns the policy matching the configured mode.
func Build(mode string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeSpreadMomentum, "default":
		return spreadMomentum{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy mode %q", mode)
	}
}
