package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"polybot-go/internal/book"
	"polybot-go/internal/execution"
	"polybot-go/internal/signal"
	"polybot-go/internal/strategy"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"", Command{Kind: Skip}},
		{"   ", Command{Kind: Skip}},
		{"skip", Command{Kind: Skip}},
		{"b 2", Command{Kind: BuyCmd, Size: 2}},
		{"BUY 0.5", Command{Kind: BuyCmd, Size: 0.5}},
		{"s 1.5", Command{Kind: SellCmd, Size: 1.5}},
		{"sell 3", Command{Kind: SellCmd, Size: 3}},
		{"q", Command{Kind: Quit}},
		{"exit", Command{Kind: Quit}},
	}
	for _, tc := range cases {
		got, err := ParseCommand(tc.line)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.line, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %+v, got %+v", tc.line, tc.want, got)
		}
	}
}

func TestParseCommandRejects(t *testing.T) {
	for _, line := range []string{"hold", "b", "b 0", "s -1", "b abc", "b 1 2", "b NaN", "s inf"} {
		if _, err := ParseCommand(line); !errors.Is(err, ErrInvalidCommand) {
			t.Fatalf("%q: expected ErrInvalidCommand, got %v", line, err)
		}
	}
}

func TestConsoleCommands(t *testing.T) {
	var prompts bytes.Buffer
	commands := NewConsoleCommands(strings.NewReader("b\n2\ns 1\n\nq\n"), &prompts)
	ctx := context.Background()

	want := []Command{
		{Kind: BuyCmd, Size: 2},
		{Kind: SellCmd, Size: 1},
		{Kind: Skip},
		{Kind: Quit},
		{Kind: Quit},
	}
	for i, w := range want {
		got, err := commands.Next(ctx, Report{})
		if err != nil {
			t.Fatalf("command %d: %v", i, err)
		}
		if got != w {
			t.Fatalf("command %d: expected %+v, got %+v", i, w, got)
		}
	}
	if !strings.Contains(prompts.String(), "size (shares)") {
		t.Fatalf("size prompt missing: %q", prompts.String())
	}
}

func TestConsoleCommandsBadSize(t *testing.T) {
	commands := NewConsoleCommands(strings.NewReader("s\nlots\n"), &bytes.Buffer{})
	if _, err := commands.Next(context.Background(), Report{}); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
}

func TestConsoleCommandsLastLineWithoutNewline(t *testing.T) {
	commands := NewConsoleCommands(strings.NewReader("b 4"), &bytes.Buffer{})
	got, err := commands.Next(context.Background(), Report{})
	if err != nil || got != (Command{Kind: BuyCmd, Size: 4}) {
		t.Fatalf("expected BUY 4, got %+v err %v", got, err)
	}
}

func TestScriptedCommandsSkipWhenExhausted(t *testing.T) {
	commands := NewScriptedCommands("b 1")
	ctx := context.Background()
	if got, _ := commands.Next(ctx, Report{}); got.Kind != BuyCmd {
		t.Fatalf("expected BUY, got %s", got.Kind)
	}
	if got, _ := commands.Next(ctx, Report{}); got.Kind != Skip {
		t.Fatalf("expected SKIP, got %s", got.Kind)
	}
}

func TestTextPresenter(t *testing.T) {
	var out bytes.Buffer
	presenter := NewTextPresenter(&out)
	presenter.Present(Report{
		Cycle: 1,
		Top: book.Top{
			Bid: &book.Quote{Price: 0.49, Size: 100},
			Ask: &book.Quote{Price: 0.51, Size: 80},
		},
		Reading:        signal.Reading{Mid: 0.5, Spread: 0.02, Score: 10.8, Samples: 1},
		NAV:            100,
		Recommendation: strategy.HoldWatch,
	})
	presenter.FillResult(execution.Fill{Side: execution.Buy, Qty: 10, Price: 0.51}, nil)
	presenter.FillResult(execution.Fill{}, errors.New("not enough cash"))

	text := out.String()
	for _, want := range []string{
		"mid=0.5000 spr=0.0200 topBid=0.4900(100) topAsk=0.5100(80)",
		"NAV=100.00",
		"suggestion: HOLD / watch",
		"OK: BUY 10 @ 0.5100",
		"NO: not enough cash",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestConsoleCommandsHonorsCancel(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	commands := NewConsoleCommands(reader, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	if _, err := commands.Next(ctx, Report{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
