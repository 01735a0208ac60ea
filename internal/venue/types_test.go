package venue

import (
	"errors"
	"testing"
	"time"
)

func TestAmountRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 99700000, 18446744073709551615} {
		got, err := ParseAmount(FormatAmount(v))
		if err != nil {
			t.Fatalf("ParseAmount(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip %d -> %d", v, got)
		}
	}
	if _, err := ParseAmount("-1"); err == nil {
		t.Fatalf("negative amount must not parse")
	}
	if _, err := ParseAmount("1.5"); err == nil {
		t.Fatalf("fractional amount must not parse")
	}
}

func TestQuoteAge(t *testing.T) {
	q := Quote{CreatedAt: time.Now().Add(-3 * time.Second)}
	age := q.Age(time.Now())
	if age < 2*time.Second || age > 4*time.Second {
		t.Fatalf("unexpected age: %s", age)
	}
}

func TestFailedTrade(t *testing.T) {
	req := SwapRequest{InputMint: "mintA", OutputMint: "mintB", Amount: 500}
	trade := FailedTrade("orca", req, "submit: connection refused")
	if trade.Successful {
		t.Fatalf("failed trade reported success")
	}
	if trade.Outcome != OutcomeFailed {
		t.Fatalf("unexpected outcome: %s", trade.Outcome)
	}
	if trade.OutputAmount != "0" || trade.FeePaid != "0" {
		t.Fatalf("failed trade must report zero amounts: %+v", trade)
	}
	if trade.InAmount != "500" {
		t.Fatalf("unexpected input amount: %s", trade.InAmount)
	}
	if trade.Error == "" {
		t.Fatalf("expected reason to be carried")
	}
}

func TestAnalyticsUnavailable(t *testing.T) {
	pool := PoolInfo{Venue: "orca", Address: "poolA"}
	if _, err := pool.Analytics(); !errors.Is(err, ErrAnalyticsUnavailable) {
		t.Fatalf("expected ErrAnalyticsUnavailable, got %v", err)
	}
	pos := Position{ID: "pos1"}
	if _, err := pos.Analytics(); !errors.Is(err, ErrAnalyticsUnavailable) {
		t.Fatalf("expected ErrAnalyticsUnavailable, got %v", err)
	}

	pool.Stats = &PoolStats{TVLUSD: 1_000_000}
	stats, err := pool.Analytics()
	if err != nil {
		t.Fatalf("Analytics returned error: %v", err)
	}
	if stats.TVLUSD != 1_000_000 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
