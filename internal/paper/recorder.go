package paper

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"polybot-go/internal/execution"
)

// ErrRecorderClosed is returned by Record after Close.
var ErrRecorderClosed = errors.New("fills recorder closed")

// fillLine is one JSONL row: the fill plus the cash it moved.
type fillLine struct {
	Seq int `json:"seq"`
	execution.Fill
	Notional float64 `json:"notional"`
	CashFlow float64 `json:"cash_flow"`
}

func newFillLine(seq int, fill execution.Fill) fillLine {
	notional := fill.Qty * fill.Price
	flow := notional - fill.Fee
	if fill.Side == execution.Buy {
		flow = -(notional + fill.Fee)
	}
	return fillLine{Seq: seq, Fill: fill, Notional: notional, CashFlow: flow}
}

// JSONLRecorder appends fills as JSON lines for later analysis. The file is never read back.
type JSONLRecorder struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
	seq  int
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("fills dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open fills file: %w", err)
	}
	return &JSONLRecorder{
		path: path,
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single fill, numbered within this session.
func (r *JSONLRecorder) Record(fill execution.Fill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return ErrRecorderClosed
	}
	r.seq++
	if err := r.enc.Encode(newFillLine(r.seq, fill)); err != nil {
		return fmt.Errorf("append %s: %w", r.path, err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
