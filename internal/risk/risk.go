// Package risk holds pre-trade guard-rails applied to paper commands.
package risk

import (
	"errors"
	"fmt"
)

// ErrLimitExceeded rejects an order before it reaches the account.
var ErrLimitExceeded = errors.New("risk limit exceeded")

// Limits caps per-trade notional. Zero disables the cap.
type Limits struct {
	MaxNotionalPerTrade float64
}

// Allow reports whether notional fits under the cap.
func (l Limits) Allow(notional float64) bool {
	return l.MaxNotionalPerTrade <= 0 || notional <= l.MaxNotionalPerTrade
}

// Check is Allow with a descriptive error.
func (l Limits) Check(notional float64) error {
	if l.Allow(notional) {
		return nil
	}
	return fmt.Errorf("%w: notional %.4f over cap %.4f", ErrLimitExceeded, notional, l.MaxNotionalPerTrade)
}
