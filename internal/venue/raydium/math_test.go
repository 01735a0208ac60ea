package raydium

import "testing"

func TestQuoteConstantProductExactOut(t *testing.T) {
	// 30 bps fee on 100_000_000 leaves 99_700_000; with reserveOut sized to
	// reserveIn plus the after-fee input the division comes out exact.
	out, fee, impact := quoteConstantProduct(100_000_000, 1_000_000_000_000, 1_000_099_700_000, 3, 1000)
	if fee != 300_000 {
		t.Fatalf("unexpected fee: %d", fee)
	}
	if out != 99_700_000 {
		t.Fatalf("unexpected output: %d", out)
	}
	if impact <= 0 || impact >= 0.02 {
		t.Fatalf("unexpected impact for deep pool: %f", impact)
	}
}

func TestQuoteConstantProductThinPoolImpact(t *testing.T) {
	out, _, impact := quoteConstantProduct(100_000_000, 731_100_000, 731_100_000, 3, 1000)
	if out == 0 {
		t.Fatalf("expected non-zero output")
	}
	if impact < 11 || impact > 13 {
		t.Fatalf("expected ~12%% impact, got %f", impact)
	}
}

func TestQuoteConstantProductZeroInputs(t *testing.T) {
	if out, _, _ := quoteConstantProduct(0, 1000, 1000, 3, 1000); out != 0 {
		t.Fatalf("zero input must yield zero output")
	}
	if out, _, _ := quoteConstantProduct(100, 0, 1000, 3, 1000); out != 0 {
		t.Fatalf("empty pool must yield zero output")
	}
}

func TestLpForDeposit(t *testing.T) {
	// First deposit mints the geometric mean.
	if lp := lpForDeposit(400, 900, 0, 0, 0); lp != 600 {
		t.Fatalf("empty pool lp = %d, want 600", lp)
	}
	// Existing pool mints the smaller proportional claim.
	if lp := lpForDeposit(1_000_000_000, 1_000_000_000, 1_000_000_000_000, 1_000_000_000_000, 500_000_000_000); lp != 500_000_000 {
		t.Fatalf("proportional lp = %d, want 500000000", lp)
	}
	if lp := lpForDeposit(1_000_000_000, 2_000_000_000, 1_000_000_000_000, 1_000_000_000_000, 500_000_000_000); lp != 500_000_000 {
		t.Fatalf("lopsided deposit lp = %d, want 500000000", lp)
	}
}

func TestShareOfReserves(t *testing.T) {
	a, b := shareOfReserves(250_000_000, 500_000_000_000, 1_000_000_000_000, 2_000_000_000_000)
	if a != 500_000_000 || b != 1_000_000_000 {
		t.Fatalf("unexpected share: %d, %d", a, b)
	}
	if a, b := shareOfReserves(1, 0, 10, 10); a != 0 || b != 0 {
		t.Fatalf("zero supply must return zero amounts")
	}
}
