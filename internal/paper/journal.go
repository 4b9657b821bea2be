package paper

import (
	"sync"

	"polybot-go/internal/execution"
)

// Journal stores paper fills in memory for the lifetime of a session.
type Journal struct {
	mu    sync.Mutex
	fills []execution.Fill
}

// NewJournal creates an empty journal optionally pre-sizing storage.
func NewJournal(capacity int) *Journal {
	if capacity < 0 {
		capacity = 0
	}
	return &Journal{fills: make([]execution.Fill, 0, capacity)}
}

// Record appends a fill. It never fails.
func (j *Journal) Record(fill execution.Fill) error {
	j.mu.Lock()
	j.fills = append(j.fills, fill)
	j.mu.Unlock()
	return nil
}

// Fills returns a copy of the recorded fills.
func (j *Journal) Fills() []execution.Fill {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]execution.Fill, len(j.fills))
	copy(out, j.fills)
	return out
}

// Len is the number of recorded fills.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.fills)
}
