// Package execution routes simulated orders to a fill venue and records the outcome.
package execution

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"polybot-go/internal/metrics"
)

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy opens or adds to a long position.
	Buy Side = "BUY"
	// Sell reduces a held position.
	Sell Side = "SELL"
)

// ParseSide accepts BUY/SELL in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Buy):
		return Buy, nil
	case string(Sell):
		return Sell, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Order is a marketable paper order priced by the caller.
type Order struct {
	Token   string
	Side    Side
	Qty     float64
	Price   float64
	FeeRate float64
}

// Fill is a fully executed paper order.
type Fill struct {
	ID    string    `json:"id"`
	Token string    `json:"token"`
	Side  Side      `json:"side"`
	Qty   float64   `json:"qty"`
	Price float64   `json:"price"`
	Fee   float64   `json:"fee"`
	Ts    time.Time `json:"ts"`
}

// NewFill stamps a fill with a fresh id and the current time.
func NewFill(token string, side Side, qty, price, fee float64) Fill {
	return Fill{
		ID:    uuid.NewString(),
		Token: token,
		Side:  side,
		Qty:   qty,
		Price: price,
		Fee:   fee,
		Ts:    time.Now().UTC(),
	}
}

// String is the confirmation shown to the user.
func (f Fill) String() string {
	return fmt.Sprintf("%s %g @ %.4f", f.Side, f.Qty, f.Price)
}

// Venue applies an order atomically: it fills in full or returns an error and changes nothing.
type Venue interface {
	Fill(side Side, token string, price, qty, feeRate float64) (Fill, error)
}

// Recorder captures fills for later inspection. A failing recorder never undoes the fill.
type Recorder interface {
	Record(Fill) error
}

// Executor submits orders to a venue, logging and counting every attempt.
type Executor struct {
	log       zerolog.Logger
	venue     Venue
	recorders []Recorder
}

// NewExecutor wires a venue and any number of fill recorders.
func NewExecutor(log zerolog.Logger, venue Venue, recorders ...Recorder) *Executor {
	return &Executor{log: log, venue: venue, recorders: recorders}
}

// Submit executes the order against the venue.
func (executor *Executor) Submit(order Order) (Fill, error) {
	fill, err := executor.venue.Fill(order.Side, order.Token, order.Price, order.Qty, order.FeeRate)
	if err != nil {
		metrics.FillsTotal.WithLabelValues(order.Token, string(order.Side), "rejected").Inc()
		executor.log.Warn().Err(err).Str("token", order.Token).Str("side", string(order.Side)).
			Float64("qty", order.Qty).Float64("px", order.Price).Msg("paper order rejected")
		return Fill{}, err
	}
	metrics.FillsTotal.WithLabelValues(order.Token, string(order.Side), "filled").Inc()
	executor.log.Info().Str("id", fill.ID).Str("token", fill.Token).Str("side", string(fill.Side)).
		Float64("qty", fill.Qty).Float64("px", fill.Price).Float64("fee", fill.Fee).Msg("paper order filled")
	for _, r := range executor.recorders {
		if err := r.Record(fill); err != nil {
			executor.log.Error().Err(err).Str("id", fill.ID).Msg("record fill")
		}
	}
	return fill, nil
}
