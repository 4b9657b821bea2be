// Package session drives the fetch → signal → recommend → paper-trade loop for one token.
//
// A Session is single-threaded: cycles run strictly one after another, and the signal window
// and paper account it owns are never touched from another goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"polybot-go/internal/book"
	"polybot-go/internal/exchange"
	"polybot-go/internal/execution"
	"polybot-go/internal/metrics"
	"polybot-go/internal/paper"
	"polybot-go/internal/risk"
	"polybot-go/internal/signal"
	"polybot-go/internal/strategy"
)

// State is the loop's position within a cycle.
type State string

const (
	StateFetching        State = "FETCHING"
	StateNormalizing     State = "NORMALIZING"
	StateSignaling       State = "SIGNALING"
	StatePresenting      State = "PRESENTING"
	StateAwaitingCommand State = "AWAITING_COMMAND"
	StateSleeping        State = "SLEEPING"
	StateStopped         State = "STOPPED"
)

var (
	// ErrStructural ends Run after too many consecutive non-transport failures.
	ErrStructural = errors.New("order book source keeps returning unusable data")
	// ErrNoQuote rejects a trade command on a cycle without a two-sided book.
	ErrNoQuote = errors.New("no two-sided quote to trade against")
)

// Config is the per-session tuning.
type Config struct {
	TokenID             string
	Outcome             string
	FeeRate             float64
	PollInterval        time.Duration
	RetryInterval       time.Duration
	IncompleteWait      time.Duration
	MaxStructuralErrors int
	Limits              risk.Limits
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 2 * time.Second
	}
	if c.IncompleteWait <= 0 {
		c.IncompleteWait = c.RetryInterval
	}
	if c.MaxStructuralErrors <= 0 {
		c.MaxStructuralErrors = 5
	}
}

// Report is what one completed cycle observed and suggests.
type Report struct {
	Cycle          int
	TokenID        string
	At             time.Time
	Top            book.Top
	Skipped        bool
	Reading        signal.Reading
	NAV            float64
	Position       float64
	AvgCost        float64
	Account        paper.Snapshot
	Recommendation strategy.Recommendation
}

// Option customizes a Session.
type Option func(*Session)

// WithPolicy swaps the recommendation policy.
func WithPolicy(p strategy.Policy) Option {
	return func(s *Session) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithRecorders attaches fill recorders to the session's executor.
func WithRecorders(recorders ...execution.Recorder) Option {
	return func(s *Session) { s.recorders = append(s.recorders, recorders...) }
}

// WithSleep replaces the pause between cycles.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Session) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithStateHook is called on every state transition.
func WithStateHook(hook func(State)) Option {
	return func(s *Session) { s.onState = hook }
}

// Session owns the signal window and paper account for the lifetime of the loop.
type Session struct {
	cfg       Config
	log       zerolog.Logger
	source    exchange.BookSource
	account   *paper.Account
	signals   *signal.Engine
	policy    strategy.Policy
	recorders []execution.Recorder
	exec      *execution.Executor
	sleep     func(ctx context.Context, d time.Duration) error
	onState   func(State)

	state          State
	cycles         int
	structuralErrs int
}

// New builds a session reading books from source and trading against account.
func New(cfg Config, source exchange.BookSource, account *paper.Account, log zerolog.Logger, opts ...Option) *Session {
	cfg.applyDefaults()
	s := &Session{
		cfg:     cfg,
		log:     log.With().Str("token", exchange.ShortToken(cfg.TokenID)).Logger(),
		source:  source,
		account: account,
		signals: signal.NewEngine(),
		sleep:   sleepContext,
		state:   StateSleeping,
	}
	s.policy, _ = strategy.Build(strategy.ModeSpreadMomentum)
	for _, opt := range opts {
		opt(s)
	}
	s.exec = execution.NewExecutor(s.log, account, s.recorders...)
	return s
}

// State returns the current loop state.
func (s *Session) State() State { return s.state }

// Window returns the accepted mid samples, oldest first.
func (s *Session) Window() []float64 { return s.signals.Window() }

func (s *Session) setState(st State) {
	s.state = st
	if s.onState != nil {
		s.onState(st)
	}
}

// Cycle fetches one book and derives the report. A one-sided book gives Skipped=true and no error;
// fetch failures are returned unchanged for the caller to classify.
func (s *Session) Cycle(ctx context.Context) (Report, error) {
	s.cycles++
	s.setState(StateFetching)
	snap, err := s.source.FetchOrderBook(ctx, s.cfg.TokenID)
	if err != nil {
		return Report{}, err
	}

	s.setState(StateNormalizing)
	report := Report{
		Cycle:   s.cycles,
		TokenID: s.cfg.TokenID,
		At:      time.Now().UTC(),
		Top:     book.TopOfBook(snap),
	}

	s.setState(StateSignaling)
	reading, ok := s.signals.Observe(report.Top)
	if !ok {
		report.Skipped = true
		metrics.CyclesTotal.WithLabelValues(s.cfg.TokenID, "incomplete").Inc()
		return report, nil
	}
	if reading.Crossed {
		s.log.Warn().Float64("spread", reading.Spread).Msg("crossed book")
	}
	report.Reading = reading

	prices := map[string]float64{s.cfg.TokenID: reading.Mid}
	report.NAV = s.account.MarkToMarket(prices)
	report.Account = s.account.Snapshot(prices)
	report.Position = s.account.Position(s.cfg.TokenID)
	report.AvgCost = s.account.AvgCost(s.cfg.TokenID)
	report.Recommendation = s.policy.Recommend(reading.Spread, true, reading.Momentum, report.Position)

	metrics.CyclesTotal.WithLabelValues(s.cfg.TokenID, "ok").Inc()
	metrics.MidPrice.WithLabelValues(s.cfg.TokenID).Set(reading.Mid)
	metrics.Spread.WithLabelValues(s.cfg.TokenID).Set(reading.Spread)
	metrics.NAV.Set(report.NAV)
	s.log.Debug().Float64("mid", reading.Mid).Float64("spread", reading.Spread).
		Float64("momentum", reading.Momentum).Str("suggestion", report.Recommendation.String()).Msg("cycle")
	return report, nil
}

// Apply executes a BUY at the best ask or a SELL at the best bid seen in report.
func (s *Session) Apply(cmd Command, report Report) (execution.Fill, error) {
	var side execution.Side
	var price float64
	switch cmd.Kind {
	case BuyCmd:
		side, price = execution.Buy, report.Reading.Mid
		if report.Top.Ask != nil {
			price = report.Top.Ask.Price
		}
	case SellCmd:
		side, price = execution.Sell, report.Reading.Mid
		if report.Top.Bid != nil {
			price = report.Top.Bid.Price
		}
	default:
		return execution.Fill{}, fmt.Errorf("%w: %s is not a trade", ErrInvalidCommand, cmd.Kind)
	}
	if report.Skipped {
		return execution.Fill{}, ErrNoQuote
	}
	if err := s.cfg.Limits.Check(price * cmd.Size); err != nil {
		metrics.FillsTotal.WithLabelValues(s.cfg.TokenID, string(side), "risk").Inc()
		return execution.Fill{}, err
	}
	return s.exec.Submit(execution.Order{
		Token:   s.cfg.TokenID,
		Side:    side,
		Qty:     cmd.Size,
		Price:   price,
		FeeRate: s.cfg.FeeRate,
	})
}

// Run loops until QUIT, ctx cancellation, or the structural error budget is spent.
func (s *Session) Run(ctx context.Context, commands CommandSource, presenter Presenter) error {
	defer s.setState(StateStopped)
	s.log.Info().Str("outcome", s.cfg.Outcome).Dur("interval", s.cfg.PollInterval).Msg("session started")

	for {
		if ctx.Err() != nil {
			return nil
		}
		report, err := s.Cycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if fatal := s.classify(err, presenter); fatal != nil {
				return fatal
			}
			if !s.pause(ctx, s.cfg.RetryInterval) {
				return nil
			}
			continue
		}
		s.structuralErrs = 0

		if report.Skipped {
			presenter.Notice("no two-sided bid/ask, waiting")
			if !s.pause(ctx, s.cfg.IncompleteWait) {
				return nil
			}
			continue
		}

		s.setState(StatePresenting)
		presenter.Present(report)

		s.setState(StateAwaitingCommand)
		cmd, err := commands.Next(ctx, report)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			presenter.Notice("NO: " + err.Error())
		case cmd.Kind == Quit:
			s.log.Info().Msg("quit requested")
			return nil
		case cmd.Kind == BuyCmd || cmd.Kind == SellCmd:
			fill, err := s.Apply(cmd, report)
			presenter.FillResult(fill, err)
		}

		if !s.pause(ctx, s.cfg.PollInterval) {
			return nil
		}
	}
}

// classify reports a failed fetch and returns non-nil only when the loop must stop.
func (s *Session) classify(err error, presenter Presenter) error {
	if exchange.IsTransport(err) {
		s.structuralErrs = 0
		metrics.FetchErrorsTotal.WithLabelValues(s.cfg.TokenID, "transport").Inc()
		s.log.Warn().Err(err).Dur("retry_in", s.cfg.RetryInterval).Msg("book fetch failed")
		presenter.Notice("ERROR: " + err.Error())
		return nil
	}
	s.structuralErrs++
	metrics.FetchErrorsTotal.WithLabelValues(s.cfg.TokenID, "structural").Inc()
	s.log.Error().Err(err).Int("consecutive", s.structuralErrs).Int("budget", s.cfg.MaxStructuralErrors).
		Msg("unusable order book")
	presenter.Notice(fmt.Sprintf("BAD BOOK (%d/%d): %v", s.structuralErrs, s.cfg.MaxStructuralErrors, err))
	if s.structuralErrs >= s.cfg.MaxStructuralErrors {
		return fmt.Errorf("%w: %d consecutive failures, last: %w", ErrStructural, s.structuralErrs, err)
	}
	return nil
}

// pause sleeps d and reports whether the loop should continue.
func (s *Session) pause(ctx context.Context, d time.Duration) bool {
	s.setState(StateSleeping)
	return s.sleep(ctx, d) == nil && ctx.Err() == nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
