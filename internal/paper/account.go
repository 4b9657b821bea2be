// Package paper simulates a cash-and-shares account for marketable paper orders.
package paper

import (
	"errors"
	"fmt"
	"sync"

	"polybot-go/internal/execution"
)

// DefaultStartingCash is the bankroll of a fresh session.
const DefaultStartingCash = 100.0

// dust absorbs float residue when a sell closes out a position built from fractional buys.
const dust = 1e-9

var (
	// ErrInsufficientCash rejects a buy whose cost plus fee exceeds available cash.
	ErrInsufficientCash = errors.New("not enough cash")
	// ErrInsufficientPosition rejects a sell larger than the held quantity.
	ErrInsufficientPosition = errors.New("not enough position")
	// ErrInvalidOrder rejects non-positive sizes or prices and unknown sides.
	ErrInvalidOrder = errors.New("invalid order")
)

type positionState struct {
	Qty     float64
	AvgCost float64
}

// Account tracks virtual cash, fees, and per-token positions. Shorts are not modeled.
type Account struct {
	mu           sync.Mutex
	startingCash float64
	cash         float64
	feesPaid     float64
	realizedPnL  float64
	positions    map[string]positionState
}

// PositionSnapshot exposes a read-only view of a single token position.
type PositionSnapshot struct {
	Qty         float64
	AvgCost     float64
	MarketValue float64
	Unrealized  float64
	Marked      bool
}

// Snapshot is a point-in-time copy of the account, marked with whichever prices were supplied.
type Snapshot struct {
	Cash        float64
	FeesPaid    float64
	RealizedPnL float64
	Equity      float64
	Positions   map[string]PositionSnapshot
}

// NewAccount constructs an account holding startingCash and no positions.
func NewAccount(startingCash float64) *Account {
	return &Account{
		startingCash: startingCash,
		cash:         startingCash,
		positions:    make(map[string]positionState),
	}
}

// StartingCash returns the initial bankroll.
func (a *Account) StartingCash() float64 { return a.startingCash }

// Fill executes the whole order at price or rejects it without touching state.
func (a *Account) Fill(side execution.Side, token string, price, qty, feeRate float64) (execution.Fill, error) {
	if qty <= 0 {
		return execution.Fill{}, fmt.Errorf("%w: size must be positive", ErrInvalidOrder)
	}
	if price <= 0 {
		return execution.Fill{}, fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	}
	if feeRate < 0 {
		return execution.Fill{}, fmt.Errorf("%w: fee rate must be non-negative", ErrInvalidOrder)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.positions[token]
	cost := price * qty
	fee := cost * feeRate

	switch side {
	case execution.Buy:
		if a.cash < cost+fee {
			return execution.Fill{}, fmt.Errorf("%w: need %.4f, have %.4f", ErrInsufficientCash, cost+fee, a.cash)
		}
		newQty := state.Qty + qty
		newAvg := (state.Qty*state.AvgCost + cost) / newQty
		a.cash -= cost + fee
		a.feesPaid += fee
		a.positions[token] = positionState{Qty: newQty, AvgCost: newAvg}

	case execution.Sell:
		if state.Qty+dust < qty {
			return execution.Fill{}, fmt.Errorf("%w: hold %g, selling %g", ErrInsufficientPosition, state.Qty, qty)
		}
		newQty := state.Qty - qty
		if newQty < dust {
			newQty = 0
		}
		a.realizedPnL += (price-state.AvgCost)*qty - fee
		a.cash += cost - fee
		a.feesPaid += fee
		// The average cost stays as it was, even at zero quantity.
		a.positions[token] = positionState{Qty: newQty, AvgCost: state.AvgCost}

	default:
		return execution.Fill{}, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, side)
	}
	return execution.NewFill(token, side, qty, price, fee), nil
}

// MarkToMarket values cash plus every position that has a price in prices. Unpriced positions are left out.
func (a *Account) MarkToMarket(prices map[string]float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	nav := a.cash
	for token, pos := range a.positions {
		if mark, ok := prices[token]; ok {
			nav += pos.Qty * mark
		}
	}
	return nav
}

// Snapshot returns a copy of balances, marked using the supplied prices map.
func (a *Account) Snapshot(prices map[string]float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make(map[string]PositionSnapshot, len(a.positions))
	equity := a.cash
	for token, pos := range a.positions {
		snap := PositionSnapshot{Qty: pos.Qty, AvgCost: pos.AvgCost}
		if mark, ok := prices[token]; ok {
			snap.Marked = true
			snap.MarketValue = pos.Qty * mark
			snap.Unrealized = (mark - pos.AvgCost) * pos.Qty
			equity += snap.MarketValue
		}
		positions[token] = snap
	}

	return Snapshot{
		Cash:        a.cash,
		FeesPaid:    a.feesPaid,
		RealizedPnL: a.realizedPnL,
		Equity:      equity,
		Positions:   positions,
	}
}

// Cash reports free cash.
func (a *Account) Cash() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cash
}

// Position returns the held quantity for token.
func (a *Account) Position(token string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[token].Qty
}

// AvgCost returns the volume-weighted entry price. It is only meaningful while a position is held.
func (a *Account) AvgCost(token string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[token].AvgCost
}

// FeesPaid returns cumulative fees.
func (a *Account) FeesPaid() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.feesPaid
}

// RealizedPnL returns profit and loss booked by sells, net of their fees.
func (a *Account) RealizedPnL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}
