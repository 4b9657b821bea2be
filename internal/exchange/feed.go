// Package exchange hosts the Polymarket connectors: order book sources and market discovery.
package exchange

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"polybot-go/internal/book"
)

const (
	// ProviderStub serves deterministic synthetic books (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderHTTP polls the CLOB REST /book endpoint.
	ProviderHTTP = "http"
	// ProviderWS keeps the latest book pushed on the CLOB market websocket channel.
	ProviderWS = "ws"
)

const (
	defaultCLOBBaseURL    = "https://clob.polymarket.com"
	defaultMarketWSURL    = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	defaultRequestTimeout = 15 * time.Second
	userAgent             = "polybot-go/1.0 (paper)"
)

// BookSource returns the current order book for a token.
type BookSource interface {
	FetchOrderBook(ctx context.Context, tokenID string) (book.Snapshot, error)
}

type sourceOptions struct {
	clobBaseURL string
	wsURL       string
	timeout     time.Duration
}

// Option configures NewSource.
type Option func(*sourceOptions)

// WithCLOBBaseURL overrides the REST endpoint root.
func WithCLOBBaseURL(baseURL string) Option {
	return func(o *sourceOptions) {
		if baseURL != "" {
			o.clobBaseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithWSURL overrides the market channel URL.
func WithWSURL(u string) Option {
	return func(o *sourceOptions) {
		if u != "" {
			o.wsURL = u
		}
	}
}

// WithRequestTimeout bounds each REST call.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *sourceOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewSource builds the book source for provider. The websocket source starts streaming under ctx.
func NewSource(ctx context.Context, provider string, tokens []string, log zerolog.Logger, opts ...Option) (BookSource, error) {
	o := sourceOptions{
		clobBaseURL: defaultCLOBBaseURL,
		wsURL:       defaultMarketWSURL,
		timeout:     defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderHTTP:
		return NewCLOBClient(o.clobBaseURL, o.timeout), nil
	case ProviderWS:
		stream := NewStreamSource(o.wsURL, tokens, log)
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("market stream stopped")
			}
		}()
		return stream, nil
	case ProviderStub:
		return NewStubSource(0.5), nil
	default:
		return nil, fmt.Errorf("unknown book provider %q", provider)
	}
}

// StubSource walks a synthetic two-sided book around a starting mid.
type StubSource struct {
	mu   sync.Mutex
	mid  float64
	step int
}

// NewStubSource starts the walk at mid.
func NewStubSource(mid float64) *StubSource {
	return &StubSource{mid: mid}
}

// FetchOrderBook returns the next synthetic book; successive calls trace a slow sine wave.
func (s *StubSource) FetchOrderBook(ctx context.Context, tokenID string) (book.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return book.Snapshot{}, &TransportError{Op: "stub", Err: err}
	}
	s.mu.Lock()
	s.step++
	mid := s.mid + 0.05*math.Sin(float64(s.step)/8)
	s.mu.Unlock()

	mid = math.Round(mid*1000) / 1000
	snap := book.Snapshot{TokenID: tokenID, Timestamp: time.Now().UTC()}
	for i := 0; i < 3; i++ {
		offset := 0.01 * float64(i+1)
		size := decimal.NewFromInt(int64(100 * (i + 1)))
		snap.Bids = append(snap.Bids, book.Level{Price: decimal.NewFromFloat(mid - offset).Round(3), Size: size})
		snap.Asks = append(snap.Asks, book.Level{Price: decimal.NewFromFloat(mid + offset).Round(3), Size: size})
	}
	return snap, nil
}
