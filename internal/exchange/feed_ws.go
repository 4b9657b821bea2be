package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"polybot-go/internal/book"
)

type marketSubscription struct {
	AssetsIDs []string `json:"assets_ids"`
	Type      string   `json:"type"`
}

// StreamSource subscribes to the CLOB market channel and serves the latest book per token.
// A "book" event replaces the stored snapshot and "price_change" events patch its levels.
// Books are dropped on disconnect and refused once the stream has been silent for maxAge.
type StreamSource struct {
	url          string
	tokens       []string
	log          zerolog.Logger
	pingInterval time.Duration
	maxAge       time.Duration
	now          func() time.Time

	mu        sync.RWMutex
	books     map[string]book.Snapshot
	lastFrame time.Time
}

// NewStreamSource prepares a source for tokens; call Run to connect.
func NewStreamSource(url string, tokens []string, log zerolog.Logger) *StreamSource {
	if url == "" {
		url = defaultMarketWSURL
	}
	return &StreamSource{
		url:          url,
		tokens:       append([]string(nil), tokens...),
		log:          log,
		pingInterval: 10 * time.Second,
		maxAge:       30 * time.Second,
		now:          time.Now,
		books:        make(map[string]book.Snapshot),
	}
}

// FetchOrderBook returns the most recent book for tokenID.
func (s *StreamSource) FetchOrderBook(ctx context.Context, tokenID string) (book.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return book.Snapshot{}, &TransportError{Op: "stream", Err: err}
	}
	s.mu.RLock()
	snap, ok := s.books[tokenID]
	last := s.lastFrame
	s.mu.RUnlock()
	if !ok {
		return book.Snapshot{}, &TransportError{Op: "stream", Err: ErrNotSynced}
	}
	if age := s.now().Sub(last); s.maxAge > 0 && age > s.maxAge {
		return book.Snapshot{}, &TransportError{Op: "stream", Err: fmt.Errorf("%w: last frame %s ago", ErrStaleBook, age.Round(time.Second))}
	}
	return snap, nil
}

// reset forgets every book; the next subscription starts with fresh "book" events.
func (s *StreamSource) reset() {
	s.mu.Lock()
	s.books = make(map[string]book.Snapshot)
	s.mu.Unlock()
}

// Run keeps the subscription alive, reconnecting with backoff until ctx is canceled.
func (s *StreamSource) Run(ctx context.Context) error {
	if len(s.tokens) == 0 {
		return fmt.Errorf("market stream requires at least one token")
	}
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).Dur("backoff", backoff).Msg("market stream disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
	}
}

func (s *StreamSource) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer s.reset()

	sub, err := json.Marshal(marketSubscription{AssetsIDs: s.tokens, Type: "market"})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.log.Info().Str("url", s.url).Int("tokens", len(s.tokens)).Msg("connected market stream")

	var writeMu sync.Mutex
	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				writeMu.Lock()
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				err := conn.WriteMessage(websocket.TextMessage, []byte("PING"))
				writeMu.Unlock()
				if err != nil {
					s.log.Warn().Err(err).Msg("market stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()
	go func() {
		<-pingCtx.Done()
		_ = conn.Close()
	}()

	conn.SetReadLimit(8 << 20)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(3 * s.pingInterval))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if _, err := s.handleMessage(message); err != nil {
			s.log.Warn().Err(err).Msg("dropped market stream message")
		}
	}
}

// handleMessage applies every book and price_change event in message, which may be a single event
// or an array. It returns how many books were stored or patched.
func (s *StreamSource) handleMessage(message []byte) (int, error) {
	s.mu.Lock()
	s.lastFrame = s.now()
	s.mu.Unlock()

	trimmed := strings.TrimSpace(string(message))
	if trimmed == "" || strings.EqualFold(trimmed, "PONG") {
		return 0, nil
	}
	if !gjson.Valid(trimmed) {
		return 0, fmt.Errorf("%w: invalid stream frame", book.ErrMalformedBook)
	}
	root := gjson.Parse(trimmed)
	events := []gjson.Result{root}
	if root.IsArray() {
		events = root.Array()
	}
	stored := 0
	for _, ev := range events {
		kind := ev.Get("event_type").String()
		if kind == "" {
			kind = ev.Get("type").String()
		}
		switch kind {
		case "book", "orderbook":
			snap, err := book.FromResult(ev.Get("asset_id").String(), ev)
			if err != nil {
				return stored, err
			}
			if snap.TokenID == "" {
				continue
			}
			s.mu.Lock()
			s.books[snap.TokenID] = snap
			s.mu.Unlock()
			stored++
		case "price_change":
			n, err := s.applyPriceChange(ev)
			stored += n
			if err != nil {
				return stored, err
			}
		}
	}
	return stored, nil
}

// applyPriceChange patches stored books. Changes come either as "price_changes" entries carrying
// their own asset_id or as "changes" under the event's asset_id. Assets without a base book are skipped.
func (s *StreamSource) applyPriceChange(ev gjson.Result) (int, error) {
	changes := ev.Get("price_changes")
	if !changes.IsArray() {
		changes = ev.Get("changes")
	}
	if !changes.IsArray() {
		return 0, fmt.Errorf("%w: price_change without changes", book.ErrMalformedBook)
	}
	fallback := ev.Get("asset_id").String()
	ts := ev.Get("timestamp").Int()

	s.mu.Lock()
	defer s.mu.Unlock()
	patched := make(map[string]struct{})
	for i, change := range changes.Array() {
		asset := change.Get("asset_id").String()
		if asset == "" {
			asset = fallback
		}
		snap, ok := s.books[asset]
		if !ok {
			continue
		}
		next, err := book.ApplyChange(snap, change)
		if err != nil {
			return len(patched), fmt.Errorf("price_change[%d]: %w", i, err)
		}
		if hash := change.Get("hash").String(); hash != "" {
			next.Hash = hash
		}
		if ts > 0 {
			next.Timestamp = time.UnixMilli(ts).UTC()
		}
		s.books[asset] = next
		patched[asset] = struct{}{}
	}
	return len(patched), nil
}
