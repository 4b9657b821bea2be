package signal

import (
	"math"
	"testing"

	"polybot-go/internal/book"
)

const tolerance = 1e-9

func top(bid, bidSize, ask, askSize float64) book.Top {
	return book.Top{
		Bid: &book.Quote{Price: bid, Size: bidSize},
		Ask: &book.Quote{Price: ask, Size: askSize},
	}
}

func TestMidAndSpread(t *testing.T) {
	mid, spread, ok := MidAndSpread(top(0.48, 10, 0.52, 10))
	if !ok {
		t.Fatalf("expected mid for two-sided book")
	}
	if math.Abs(mid-0.50) > tolerance || math.Abs(spread-0.04) > tolerance {
		t.Fatalf("unexpected mid/spread %.6f/%.6f", mid, spread)
	}
}

func TestMidAndSpreadOneSided(t *testing.T) {
	cases := []book.Top{
		{},
		{Bid: &book.Quote{Price: 0.4, Size: 1}},
		{Ask: &book.Quote{Price: 0.6, Size: 1}},
	}
	for i, tp := range cases {
		if _, _, ok := MidAndSpread(tp); ok {
			t.Fatalf("case %d: expected absent mid/spread", i)
		}
	}
}

func TestMidAndSpreadCrossedPassesThrough(t *testing.T) {
	_, spread, ok := MidAndSpread(top(0.55, 1, 0.50, 1))
	if !ok || spread >= 0 {
		t.Fatalf("expected negative spread for crossed book, got %.4f ok=%v", spread, ok)
	}
}

func TestInterestScore(t *testing.T) {
	got := InterestScore(top(0.48, 9, 0.52, 0))
	want := 0.04*100 + math.Log1p(9)
	if math.Abs(got-want) > tolerance {
		t.Fatalf("expected %.6f got %.6f", want, got)
	}
	if InterestScore(book.Top{Bid: &book.Quote{Price: 0.4, Size: 5}}) != UninterestingScore {
		t.Fatalf("expected sentinel score for one-sided book")
	}
}

func TestUpdateWindowKeepsLastThirty(t *testing.T) {
	var samples []float64
	for i := 1; i <= 35; i++ {
		samples = UpdateWindow(samples, float64(i), WindowCapacity)
	}
	if len(samples) != 30 {
		t.Fatalf("expected 30 samples, got %d", len(samples))
	}
	for i, v := range samples {
		if v != float64(i+6) {
			t.Fatalf("sample %d: expected %.0f got %.0f", i, float64(i+6), v)
		}
	}
}

func TestUpdateWindowDoesNotAlias(t *testing.T) {
	base := []float64{1, 2, 3}
	next := UpdateWindow(base, 4, 3)
	if base[0] != 1 || len(base) != 3 {
		t.Fatalf("input mutated: %v", base)
	}
	if len(next) != 3 || next[0] != 2 || next[2] != 4 {
		t.Fatalf("unexpected window %v", next)
	}
}

func TestWindowAppendEvictsOldest(t *testing.T) {
	w := NewWindow(WindowCapacity)
	for i := 1; i <= 35; i++ {
		w.Append(float64(i))
	}
	samples := w.Samples()
	if w.Len() != 30 || samples[0] != 6 || samples[29] != 35 {
		t.Fatalf("unexpected window contents %v", samples)
	}
	if latest, ok := w.Latest(); !ok || latest != 35 {
		t.Fatalf("unexpected latest %.0f", latest)
	}
}

func TestMomentum(t *testing.T) {
	var samples []float64
	for i := 0; i < 9; i++ {
		samples = append(samples, 0.5+float64(i)*0.01)
		if Momentum(samples) != 0 {
			t.Fatalf("expected zero momentum with %d samples", len(samples))
		}
	}
	samples = append(samples, 0.7)
	want := samples[len(samples)-1] - samples[len(samples)-10]
	if math.Abs(Momentum(samples)-want) > tolerance {
		t.Fatalf("expected %.4f got %.4f", want, Momentum(samples))
	}

	samples = append(samples, 0.1, 0.2)
	want = 0.2 - samples[len(samples)-10]
	if math.Abs(Momentum(samples)-want) > tolerance {
		t.Fatalf("expected %.4f got %.4f", want, Momentum(samples))
	}
}

func TestEngineObserve(t *testing.T) {
	engine := NewEngine()
	if _, ok := engine.Observe(book.Top{Bid: &book.Quote{Price: 0.4, Size: 1}}); ok {
		t.Fatalf("expected incomplete book to be skipped")
	}
	if len(engine.Window()) != 0 {
		t.Fatalf("incomplete book must not advance window")
	}

	var reading Reading
	for i := 0; i < 10; i++ {
		bid := 0.40 + float64(i)*0.01
		reading, _ = engine.Observe(top(bid, 10, bid+0.02, 10))
	}
	if reading.Samples != 10 {
		t.Fatalf("expected 10 samples, got %d", reading.Samples)
	}
	if math.Abs(reading.Momentum-0.09) > tolerance {
		t.Fatalf("expected momentum 0.09, got %.6f", reading.Momentum)
	}
	if reading.Crossed {
		t.Fatalf("book should not be crossed")
	}

	crossed, ok := engine.Observe(top(0.6, 1, 0.5, 1))
	if !ok || !crossed.Crossed {
		t.Fatalf("expected crossed reading, got %+v", crossed)
	}
}
