// Package book normalizes raw order book payloads into validated levels and a top-of-book view.
package book

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ErrMalformedBook marks a payload whose shape cannot be trusted. Retrying will not fix it.
var ErrMalformedBook = errors.New("malformed order book")

// Level is a single resting price and the size available at it.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Snapshot is a validated order book with both sides ordered best-first.
type Snapshot struct {
	TokenID   string
	Bids      []Level
	Asks      []Level
	Hash      string
	Timestamp time.Time
}

// Quote is the best price on one side and the size shown there.
type Quote struct {
	Price float64
	Size  float64
}

// Top is the best bid and best ask. A nil side means that side of the book is empty.
type Top struct {
	Bid *Quote
	Ask *Quote
}

// TwoSided reports whether both sides are quoted.
func (t Top) TwoSided() bool { return t.Bid != nil && t.Ask != nil }

// TopOfBook takes the first level of each side.
func TopOfBook(s Snapshot) Top {
	var top Top
	if len(s.Bids) > 0 {
		top.Bid = levelQuote(s.Bids[0])
	}
	if len(s.Asks) > 0 {
		top.Ask = levelQuote(s.Asks[0])
	}
	return top
}

func levelQuote(l Level) *Quote {
	return &Quote{Price: l.Price.InexactFloat64(), Size: l.Size.InexactFloat64()}
}

// Decode parses a {"bids":[{"price":..,"size":..}],"asks":[..]} payload. Prices and sizes may be
// strings or numbers. Missing or null sides are empty; anything else that is off-shape is rejected.
func Decode(tokenID string, raw []byte) (Snapshot, error) {
	if !gjson.ValidBytes(raw) {
		return Snapshot{}, fmt.Errorf("%w: invalid json", ErrMalformedBook)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return Snapshot{}, fmt.Errorf("%w: expected object, got %s", ErrMalformedBook, root.Type)
	}
	return FromResult(tokenID, root)
}

// FromResult builds a snapshot from an already-parsed book object, e.g. a websocket "book" event.
func FromResult(tokenID string, root gjson.Result) (Snapshot, error) {
	bids, err := decodeSide(root, "bids", "buys")
	if err != nil {
		return Snapshot{}, err
	}
	asks, err := decodeSide(root, "asks", "sells")
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		TokenID: tokenID,
		Bids:    bids,
		Asks:    asks,
		Hash:    root.Get("hash").String(),
	}
	snap.sortLevels()
	if snap.TokenID == "" {
		snap.TokenID = root.Get("asset_id").String()
	}
	if ts := root.Get("timestamp"); ts.Exists() {
		if ms := ts.Int(); ms > 0 {
			snap.Timestamp = time.UnixMilli(ms).UTC()
		}
	}
	return snap, nil
}

func decodeSide(root gjson.Result, key, alias string) ([]Level, error) {
	side := root.Get(key)
	if !side.Exists() || side.Type == gjson.Null {
		side = root.Get(alias)
	}
	if !side.Exists() || side.Type == gjson.Null {
		return nil, nil
	}
	if !side.IsArray() {
		return nil, fmt.Errorf("%w: %s is %s, not an array", ErrMalformedBook, key, side.Type)
	}
	entries := side.Array()
	levels := make([]Level, 0, len(entries))
	for i, entry := range entries {
		price, err := decimalField(entry, "price")
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrMalformedBook, key, i, err)
		}
		size, err := decimalField(entry, "size")
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrMalformedBook, key, i, err)
		}
		if price.IsNegative() || size.IsNegative() {
			return nil, fmt.Errorf("%w: %s[%d]: negative price or size", ErrMalformedBook, key, i)
		}
		levels = append(levels, Level{Price: price, Size: size})
	}
	return levels, nil
}

func decimalField(entry gjson.Result, name string) (decimal.Decimal, error) {
	if !entry.IsObject() {
		return decimal.Zero, fmt.Errorf("level is %s, not an object", entry.Type)
	}
	field := entry.Get(name)
	switch field.Type {
	case gjson.String, gjson.Number:
		d, err := decimal.NewFromString(strings.TrimSpace(field.String()))
		if err != nil {
			return decimal.Zero, fmt.Errorf("bad %s %q", name, field.String())
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("missing %s", name)
	}
}
