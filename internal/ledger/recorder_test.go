package ledger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue"
)

func TestJSONLRecorderAppendsTrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trades.jsonl")
	rec, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder returned error: %v", err)
	}
	rec.Record(venue.Trade{Venue: "orca", Signature: "sig1", OutputAmount: "99700000", Successful: true, Outcome: venue.OutcomeConfirmed})
	rec.Record(venue.Trade{Venue: "raydium", Signature: "sig2", Outcome: venue.OutcomeFailed})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	// Close is idempotent.
	if err := rec.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer file.Close()

	var trades []venue.Trade
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var trade venue.Trade
		if err := json.Unmarshal(scanner.Bytes(), &trade); err != nil {
			t.Fatalf("bad JSONL line: %v", err)
		}
		trades = append(trades, trade)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(trades))
	}
	if trades[0].Venue != "orca" || trades[0].OutputAmount != "99700000" {
		t.Fatalf("unexpected first trade: %+v", trades[0])
	}
	if trades[1].Outcome != venue.OutcomeFailed {
		t.Fatalf("unexpected second trade: %+v", trades[1])
	}
}
