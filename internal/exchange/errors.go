package exchange

import (
	"errors"
	"fmt"
)

// ErrNotSynced is returned by a stream source that has not received a book for the token yet.
var ErrNotSynced = errors.New("no book received yet")

// ErrStaleBook is returned by a stream source whose connection has gone quiet for too long.
var ErrStaleBook = errors.New("order book stream is stale")

// TransportError covers network failures, timeouts and non-success statuses. It is always retryable.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err came from the transport layer.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
