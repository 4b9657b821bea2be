package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const defaultGammaBaseURL = "https://gamma-api.polymarket.com"

// Candidate is a market whose question matched a search, with its outcome token ids.
type Candidate struct {
	ID         string
	Question   string
	YesTokenID string
	NoTokenID  string
}

// Token picks the YES token, falling back to NO. ok is false when the market carries neither.
func (c Candidate) Token() (id, outcome string, ok bool) {
	switch {
	case c.YesTokenID != "":
		return c.YesTokenID, "YES", true
	case c.NoTokenID != "":
		return c.NoTokenID, "NO", true
	}
	return "", "", false
}

// Discovery searches open markets on the Gamma listing API. Listings are cached for a short TTL.
type Discovery struct {
	log     zerolog.Logger
	client  *http.Client
	baseURL string
	limit   int
	ttl     time.Duration
	cache   *ristretto.Cache
}

// NewDiscovery builds a searcher over the first limit open markets. ttl <= 0 disables caching.
func NewDiscovery(log zerolog.Logger, baseURL string, limit int, ttl time.Duration) (*Discovery, error) {
	if baseURL == "" {
		baseURL = defaultGammaBaseURL
	}
	if limit <= 0 {
		limit = 200
	}
	d := &Discovery{
		log:     log,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		limit:   limit,
		ttl:     ttl,
	}
	if ttl > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e3,
			MaxCost:     64,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("listing cache: %w", err)
		}
		d.cache = cache
	}
	return d, nil
}

// Search returns up to maxHits markets whose question contains query, case-insensitively.
func (d *Discovery) Search(ctx context.Context, query string, maxHits int) ([]Candidate, error) {
	if maxHits <= 0 {
		maxHits = 10
	}
	markets, err := d.markets(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	hits := make([]Candidate, 0, maxHits)
	for _, m := range markets {
		if !strings.Contains(strings.ToLower(m.Question), q) {
			continue
		}
		hits = append(hits, m)
		if len(hits) >= maxHits {
			break
		}
	}
	d.log.Debug().Str("query", query).Int("hits", len(hits)).Int("scanned", len(markets)).Msg("market search")
	return hits, nil
}

func (d *Discovery) cacheKey() string { return fmt.Sprintf("markets:%d", d.limit) }

func (d *Discovery) markets(ctx context.Context) ([]Candidate, error) {
	if d.cache != nil {
		if v, ok := d.cache.Get(d.cacheKey()); ok {
			if markets, ok := v.([]Candidate); ok {
				return markets, nil
			}
		}
	}
	markets, err := d.fetchMarkets(ctx)
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		d.cache.SetWithTTL(d.cacheKey(), markets, 1, d.ttl)
		d.cache.Wait()
	}
	return markets, nil
}

func (d *Discovery) fetchMarkets(ctx context.Context) ([]Candidate, error) {
	params := url.Values{}
	params.Set("closed", "false")
	params.Set("limit", fmt.Sprintf("%d", d.limit))
	endpoint := d.baseURL + "/markets?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "polybot-go/1.0 (discovery)")
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "list markets", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "list markets", Status: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, &TransportError{Op: "read markets", Err: err}
	}
	return parseMarkets(body)
}

func parseMarkets(body []byte) ([]Candidate, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode markets: invalid json")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		// Also accept {"data":[...]}.
		root = root.Get("data")
		if !root.IsArray() {
			return nil, fmt.Errorf("decode markets: expected array")
		}
	}
	entries := root.Array()
	out := make([]Candidate, 0, len(entries))
	for _, m := range entries {
		ids := tokenIDs(m.Get("clobTokenIds"))
		c := Candidate{
			ID:       m.Get("id").String(),
			Question: m.Get("question").String(),
		}
		if len(ids) > 0 {
			c.YesTokenID = ids[0]
		}
		if len(ids) > 1 {
			c.NoTokenID = ids[1]
		}
		out = append(out, c)
	}
	return out, nil
}

// tokenIDs accepts both a JSON array and the JSON-encoded string form Gamma usually returns.
func tokenIDs(field gjson.Result) []string {
	if field.Type == gjson.String {
		field = gjson.Parse(field.String())
	}
	if !field.IsArray() {
		return nil
	}
	var ids []string
	for _, v := range field.Array() {
		if id := strings.TrimSpace(v.String()); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
