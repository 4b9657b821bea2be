package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
)

// ErrInvalidCommand marks unparseable user input. It aborts the command, not the cycle.
var ErrInvalidCommand = errors.New("invalid command")

// CommandKind is what the operator asked for this cycle.
type CommandKind int

const (
	Skip CommandKind = iota
	BuyCmd
	SellCmd
	Quit
)

func (k CommandKind) String() string {
	switch k {
	case BuyCmd:
		return "BUY"
	case SellCmd:
		return "SELL"
	case Quit:
		return "QUIT"
	default:
		return "SKIP"
	}
}

// Command is one per-cycle instruction. Size is set for BUY and SELL only.
type Command struct {
	Kind CommandKind
	Size float64
}

// ParseCommand reads "b 2", "buy 2", "s 1.5", "sell 1.5", "q", "quit", "skip" or an empty line.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{Kind: Skip}, nil
	}
	var kind CommandKind
	switch fields[0] {
	case "skip", "-":
		return Command{Kind: Skip}, nil
	case "q", "quit", "exit":
		return Command{Kind: Quit}, nil
	case "b", "buy":
		kind = BuyCmd
	case "s", "sell":
		kind = SellCmd
	default:
		return Command{}, fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, fields[0])
	}
	if len(fields) != 2 {
		return Command{}, fmt.Errorf("%w: %s needs exactly one size", ErrInvalidCommand, kind)
	}
	return withSize(kind, fields[1])
}

func withSize(kind CommandKind, raw string) (Command, error) {
	size, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Command{}, fmt.Errorf("%w: size %q is not a number", ErrInvalidCommand, raw)
	}
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return Command{}, fmt.Errorf("%w: size must be positive", ErrInvalidCommand)
	}
	return Command{Kind: kind, Size: size}, nil
}

// CommandSource yields at most one command per presented cycle.
type CommandSource interface {
	Next(ctx context.Context, report Report) (Command, error)
}

// PassiveCommands never trades; the loop just watches.
type PassiveCommands struct{}

func (PassiveCommands) Next(context.Context, Report) (Command, error) {
	return Command{Kind: Skip}, nil
}

// ConsoleCommands prompts on out and reads answers from in. It mirrors the
// "[b]uy / [s]ell / [enter] / [q]" interaction: an action, then a size prompt if none was typed.
type ConsoleCommands struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan consoleLine
}

type consoleLine struct {
	text string
	err  error
}

// NewConsoleCommands wraps a reader such as os.Stdin.
func NewConsoleCommands(in io.Reader, out io.Writer) *ConsoleCommands {
	return &ConsoleCommands{in: bufio.NewReader(in), out: out}
}

// Next blocks until a line arrives or ctx is done. EOF is treated as QUIT.
func (c *ConsoleCommands) Next(ctx context.Context, _ Report) (Command, error) {
	if err := ctx.Err(); err != nil {
		return Command{}, err
	}
	fmt.Fprint(c.out, "command: [b]uy / [s]ell / [enter]=skip / [q]=quit: ")
	line, err := c.readLine(ctx)
	if err != nil {
		return c.stop(ctx)
	}
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 1 && (fields[0] == "b" || fields[0] == "buy" || fields[0] == "s" || fields[0] == "sell") {
		kind := BuyCmd
		if fields[0][0] == 's' {
			kind = SellCmd
		}
		fmt.Fprint(c.out, "size (shares), e.g. 2: ")
		raw, err := c.readLine(ctx)
		if err != nil {
			return c.stop(ctx)
		}
		return withSize(kind, raw)
	}
	return ParseCommand(line)
}

func (c *ConsoleCommands) stop(ctx context.Context) (Command, error) {
	if err := ctx.Err(); err != nil {
		return Command{}, err
	}
	return Command{Kind: Quit}, nil
}

// readLine waits for the next trimmed line. The reader goroutine lives until in is exhausted.
func (c *ConsoleCommands) readLine(ctx context.Context) (string, error) {
	c.once.Do(c.start)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

func (c *ConsoleCommands) start() {
	c.lines = make(chan consoleLine)
	go func() {
		defer close(c.lines)
		for {
			line, err := c.in.ReadString('\n')
			if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
				c.lines <- consoleLine{err: err}
				return
			}
			c.lines <- consoleLine{text: strings.TrimSpace(line)}
			if err != nil {
				return
			}
		}
	}()
}

// ScriptedCommands replays a fixed list, then SKIPs. Handy for tests and batch runs.
type ScriptedCommands struct {
	lines []string
}

// NewScriptedCommands replays lines in order.
func NewScriptedCommands(lines ...string) *ScriptedCommands {
	return &ScriptedCommands{lines: lines}
}

func (s *ScriptedCommands) Next(ctx context.Context, _ Report) (Command, error) {
	if err := ctx.Err(); err != nil {
		return Command{}, err
	}
	if len(s.lines) == 0 {
		return Command{Kind: Skip}, nil
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return ParseCommand(line)
}
