package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"polybot-go/internal/book"
)

const maxBookBody = 4 << 20

// CLOBClient reads order books from the public CLOB REST API.
type CLOBClient struct {
	baseURL string
	client  *http.Client
}

// NewCLOBClient targets baseURL with a per-request timeout.
func NewCLOBClient(baseURL string, timeout time.Duration) *CLOBClient {
	if baseURL == "" {
		baseURL = defaultCLOBBaseURL
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &CLOBClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchOrderBook calls GET /book?token_id=. Transport problems come back as *TransportError,
// an unusable payload as book.ErrMalformedBook.
func (c *CLOBClient) FetchOrderBook(ctx context.Context, tokenID string) (book.Snapshot, error) {
	endpoint := fmt.Sprintf("%s/book?token_id=%s", c.baseURL, url.QueryEscape(tokenID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return book.Snapshot{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return book.Snapshot{}, &TransportError{Op: "get book", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return book.Snapshot{}, &TransportError{
			Op:     "get book",
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode)),
		}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBookBody))
	if err != nil {
		return book.Snapshot{}, &TransportError{Op: "read book", Err: err}
	}
	return book.Decode(tokenID, body)
}
