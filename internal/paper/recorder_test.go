package paper

import (
	"bufio"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"polybot-go/internal/execution"
)

func TestJSONLRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fills.jsonl")

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	buy := execution.NewFill("123", execution.Buy, 10, 0.5, 0.05)
	sell := execution.NewFill("123", execution.Sell, 2, 0.61, 0.001)
	for _, f := range []execution.Fill{buy, sell} {
		if err := recorder.Record(f); err != nil {
			t.Fatalf("Record error: %v", err)
		}
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := recorder.Record(sell); !errors.Is(err, ErrRecorderClosed) {
		t.Fatalf("expected ErrRecorderClosed, got %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	var lines []fillLine
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line fillLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("json decode: %v", err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(lines))
	}
	if lines[0].Seq != 1 || lines[0].ID != buy.ID || lines[0].Side != execution.Buy || lines[0].Token != "123" {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if math.Abs(lines[0].Notional-5) > 1e-9 || math.Abs(lines[0].CashFlow+5.05) > 1e-9 {
		t.Fatalf("unexpected buy amounts notional=%.4f flow=%.4f", lines[0].Notional, lines[0].CashFlow)
	}
	if lines[1].Seq != 2 || math.Abs(lines[1].CashFlow-(1.22-0.001)) > 1e-9 {
		t.Fatalf("unexpected sell line %+v", lines[1])
	}
}

func TestJSONLRecorderBadPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewJSONLRecorder(filepath.Join(blocker, "fills.jsonl")); err == nil {
		t.Fatalf("expected error when parent is a file")
	}
}
