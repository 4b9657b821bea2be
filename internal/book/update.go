package book

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// sortLevels orders bids descending and asks ascending, keeping ties in arrival order.
func (s *Snapshot) sortLevels() {
	sort.SliceStable(s.Bids, func(i, j int) bool { return s.Bids[i].Price.GreaterThan(s.Bids[j].Price) })
	sort.SliceStable(s.Asks, func(i, j int) bool { return s.Asks[i].Price.LessThan(s.Asks[j].Price) })
}

func (s Snapshot) clone() Snapshot {
	s.Bids = append([]Level(nil), s.Bids...)
	s.Asks = append([]Level(nil), s.Asks...)
	return s
}

// ApplyChange folds one incremental level update into s and returns the result; s is left untouched.
// The change is {"price","size","side":"BUY"|"SELL"} and a zero size removes the level.
// Optional best_bid/best_ask drop any level priced better than the venue's reported top.
func ApplyChange(s Snapshot, change gjson.Result) (Snapshot, error) {
	price, err := decimalField(change, "price")
	if err != nil {
		return s, fmt.Errorf("%w: change: %v", ErrMalformedBook, err)
	}
	size, err := decimalField(change, "size")
	if err != nil {
		return s, fmt.Errorf("%w: change: %v", ErrMalformedBook, err)
	}
	if price.IsNegative() || size.IsNegative() {
		return s, fmt.Errorf("%w: change: negative price or size", ErrMalformedBook)
	}

	out := s.clone()
	switch side := strings.ToUpper(strings.TrimSpace(change.Get("side").String())); side {
	case "BUY", "BID":
		out.Bids = setLevel(out.Bids, price, size)
	case "SELL", "ASK":
		out.Asks = setLevel(out.Asks, price, size)
	default:
		return s, fmt.Errorf("%w: change: unknown side %q", ErrMalformedBook, side)
	}

	if best, ok := optionalDecimal(change, "best_bid"); ok && best.IsPositive() {
		out.Bids = keep(out.Bids, func(p decimal.Decimal) bool { return p.LessThanOrEqual(best) })
	}
	if best, ok := optionalDecimal(change, "best_ask"); ok && best.IsPositive() {
		out.Asks = keep(out.Asks, func(p decimal.Decimal) bool { return p.GreaterThanOrEqual(best) })
	}
	out.sortLevels()
	return out, nil
}

func setLevel(levels []Level, price, size decimal.Decimal) []Level {
	for i, l := range levels {
		if !l.Price.Equal(price) {
			continue
		}
		if size.IsZero() {
			return append(levels[:i], levels[i+1:]...)
		}
		levels[i].Size = size
		return levels
	}
	if size.IsZero() {
		return levels
	}
	return append(levels, Level{Price: price, Size: size})
}

func keep(levels []Level, ok func(decimal.Decimal) bool) []Level {
	out := levels[:0]
	for _, l := range levels {
		if ok(l.Price) {
			out = append(out, l)
		}
	}
	return out
}

func optionalDecimal(entry gjson.Result, name string) (decimal.Decimal, bool) {
	if !entry.Get(name).Exists() {
		return decimal.Zero, false
	}
	d, err := decimalField(entry, name)
	return d, err == nil
}
