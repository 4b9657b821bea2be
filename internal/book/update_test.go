package book

import (
	"errors"
	"testing"

	"github.com/tidwall/gjson"
)

func baseBook(t *testing.T) Snapshot {
	t.Helper()
	snap, err := Decode("tok", []byte(`{"bids":[{"price":"0.40","size":"10"},{"price":"0.38","size":"5"}],"asks":[{"price":"0.44","size":"7"}]}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	return snap
}

func TestApplyChangeImprovesBid(t *testing.T) {
	snap := baseBook(t)
	next, err := ApplyChange(snap, gjson.Parse(`{"price":"0.45","size":"20","side":"BUY","best_bid":"0.45","best_ask":"0.44"}`))
	if err != nil {
		t.Fatalf("ApplyChange returned error: %v", err)
	}
	top := TopOfBook(next)
	if top.Bid.Price != 0.45 || top.Bid.Size != 20 {
		t.Fatalf("expected new best bid 0.45x20, got %+v", *top.Bid)
	}
	if len(next.Bids) != 3 {
		t.Fatalf("expected 3 bid levels, got %d", len(next.Bids))
	}
	if TopOfBook(snap).Bid.Price != 0.40 {
		t.Fatalf("original snapshot must not change")
	}
}

func TestApplyChangeRemovesAndResizes(t *testing.T) {
	snap := baseBook(t)
	next, err := ApplyChange(snap, gjson.Parse(`{"price":"0.40","size":"0","side":"BUY"}`))
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if top := TopOfBook(next); top.Bid.Price != 0.38 {
		t.Fatalf("expected 0.38 after removing 0.40, got %.2f", top.Bid.Price)
	}
	next, err = ApplyChange(next, gjson.Parse(`{"price":"0.44","size":"3","side":"SELL"}`))
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if top := TopOfBook(next); top.Ask.Size != 3 || len(next.Asks) != 1 {
		t.Fatalf("expected resized ask, got %+v (%d levels)", *top.Ask, len(next.Asks))
	}
}

func TestApplyChangeDropsLevelsPastReportedTop(t *testing.T) {
	snap := baseBook(t)
	next, err := ApplyChange(snap, gjson.Parse(`{"price":"0.46","size":"4","side":"SELL","best_bid":"0.38","best_ask":"0.46"}`))
	if err != nil {
		t.Fatalf("ApplyChange returned error: %v", err)
	}
	top := TopOfBook(next)
	if top.Bid.Price != 0.38 || top.Ask.Price != 0.46 {
		t.Fatalf("expected top 0.38/0.46, got %.2f/%.2f", top.Bid.Price, top.Ask.Price)
	}
}

func TestApplyChangeRejectsMalformed(t *testing.T) {
	for name, raw := range map[string]string{
		"no side":   `{"price":"0.4","size":"1"}`,
		"bad price": `{"price":"x","size":"1","side":"BUY"}`,
		"negative":  `{"price":"0.4","size":"-1","side":"SELL"}`,
	} {
		if _, err := ApplyChange(baseBook(t), gjson.Parse(raw)); !errors.Is(err, ErrMalformedBook) {
			t.Fatalf("%s: expected ErrMalformedBook, got %v", name, err)
		}
	}
}
