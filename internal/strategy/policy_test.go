package strategy

import "testing"

func TestRecommend(t *testing.T) {
	cases := []struct {
		name        string
		spread      float64
		spreadKnown bool
		momentum    float64
		position    float64
		want        Recommendation
	}{
		{"momentum up", 0.02, true, 0.02, 0, BuySmall},
		{"tight spread", 0.005, true, 0.5, 0, HoldSpreadTooSmall},
		{"tight spread negative momentum", 0.005, true, -0.5, 10, HoldSpreadTooSmall},
		{"no spread", 0, false, 0.02, 0, HoldSpreadTooSmall},
		{"crossed book", -0.02, true, 0.02, 0, HoldSpreadTooSmall},
		{"momentum down with position", 0.02, true, -0.02, 5, SellSmall},
		{"momentum down flat", 0.02, true, -0.02, 0, HoldWatch},
		{"flat", 0.02, true, 0, 0, HoldWatch},
		{"threshold is exclusive", 0.02, true, 0.01, 0, HoldWatch},
		{"spread threshold is inclusive", 0.01, true, 0.02, 0, BuySmall},
	}
	for _, tc := range cases {
		if got := Recommend(tc.spread, tc.spreadKnown, tc.momentum, tc.position); got != tc.want {
			t.Fatalf("%s: expected %q got %q", tc.name, tc.want, got)
		}
	}
}

func TestBuild(t *testing.T) {
	for _, mode := range []string{"", "spread_momentum", " SPREAD_MOMENTUM "} {
		policy, err := Build(mode)
		if err != nil {
			t.Fatalf("Build(%q) returned error: %v", mode, err)
		}
		if policy.Name() != "SpreadMomentum" {
			t.Fatalf("unexpected policy %s", policy.Name())
		}
		if got := policy.Recommend(0.02, true, 0.02, 0); got != BuySmall {
			t.Fatalf("unexpected recommendation %q", got)
		}
	}
	if _, err := Build("obi"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
