// Package signal derives mid, spread, momentum and an interest score from successive books.
package signal

import (
	"math"

	"polybot-go/internal/book"
)

const (
	// WindowCapacity is how many accepted mid samples are retained.
	WindowCapacity = 30
	// MomentumLookback is the number of samples momentum is measured across.
	MomentumLookback = 10
	// UninterestingScore is returned when a book has no mid.
	UninterestingScore = -1e9
)

// MidAndSpread needs both sides quoted. A crossed book yields a negative spread.
func MidAndSpread(top book.Top) (mid, spread float64, ok bool) {
	if !top.TwoSided() {
		return 0, 0, false
	}
	bid, ask := top.Bid.Price, top.Ask.Price
	return (bid + ask) / 2, ask - bid, true
}

// InterestScore rewards edge (spread in cents) plus log depth on each side.
func InterestScore(top book.Top) float64 {
	_, spread, ok := MidAndSpread(top)
	if !ok {
		return UninterestingScore
	}
	liquidity := 0.0
	if top.Bid.Size != 0 {
		liquidity += math.Log1p(top.Bid.Size)
	}
	if top.Ask.Size != 0 {
		liquidity += math.Log1p(top.Ask.Size)
	}
	return spread*100 + liquidity
}

// Momentum is the change between the newest sample and the one MomentumLookback-1 places before it.
func Momentum(samples []float64) float64 {
	n := len(samples)
	if n < MomentumLookback {
		return 0
	}
	return samples[n-1] - samples[n-MomentumLookback]
}

// Reading is everything the engine derived from one two-sided book.
type Reading struct {
	Mid      float64
	Spread   float64
	Momentum float64
	Score    float64
	Samples  int
	Crossed  bool
}

// Engine owns the rolling mid window for one token.
type Engine struct {
	window *Window
}

// NewEngine returns an engine with an empty window of WindowCapacity.
func NewEngine() *Engine {
	return &Engine{window: NewWindow(WindowCapacity)}
}

// Observe folds a new book into the window. One-sided books leave the window untouched.
func (e *Engine) Observe(top book.Top) (Reading, bool) {
	mid, spread, ok := MidAndSpread(top)
	if !ok {
		return Reading{}, false
	}
	e.window.Append(mid)
	return Reading{
		Mid:      mid,
		Spread:   spread,
		Momentum: e.window.Momentum(),
		Score:    InterestScore(top),
		Samples:  e.window.Len(),
		Crossed:  spread < 0,
	}, true
}

// Window exposes the rolling mid samples, oldest first.
func (e *Engine) Window() []float64 { return e.window.Samples() }
