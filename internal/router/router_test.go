package router

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/risk"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue"
)

// fakeAdapter serves canned quotes and records which operations ran.
type fakeAdapter struct {
	name      string
	ready     bool
	initErr   error
	quote     *venue.Quote
	quoteErr  error
	trade     *venue.Trade
	positions []venue.Position
	balances  []venue.Balance
	balErr    error
	pools     []venue.PoolInfo

	executed  atomic.Int64
	refreshed atomic.Int64
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Ready() bool  { return f.ready }

func (f *fakeAdapter) Initialize(ctx context.Context) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.ready = true
	return nil
}

func (f *fakeAdapter) GetSwapQuote(ctx context.Context, req venue.QuoteRequest) (*venue.Quote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

func (f *fakeAdapter) ExecuteSwap(ctx context.Context, req venue.SwapRequest) (*venue.Trade, error) {
	f.executed.Add(1)
	return f.trade, nil
}

func (f *fakeAdapter) AddLiquidity(ctx context.Context, req venue.AddLiquidityRequest) (*venue.LiquidityResult, error) {
	return &venue.LiquidityResult{}, nil
}

func (f *fakeAdapter) RemoveLiquidity(ctx context.Context, positionID string, percentage float64) (*venue.RemovalResult, error) {
	return &venue.RemovalResult{}, nil
}

func (f *fakeAdapter) CollectFees(ctx context.Context, positionID string) (*venue.RemovalResult, error) {
	return &venue.RemovalResult{}, nil
}

func (f *fakeAdapter) GetBalances(ctx context.Context) ([]venue.Balance, error) {
	return f.balances, f.balErr
}

func (f *fakeAdapter) GetPositions(ctx context.Context) ([]venue.Position, error) {
	return f.positions, nil
}

func (f *fakeAdapter) GetAvailablePools(ctx context.Context) ([]venue.PoolInfo, error) {
	return f.pools, nil
}

func (f *fakeAdapter) RefreshPools(ctx context.Context) error {
	f.refreshed.Add(1)
	return nil
}

func freshQuote(name string, price, impact float64) *venue.Quote {
	return &venue.Quote{
		Venue:          name,
		OutAmount:      "1000",
		ExecutionPrice: price,
		PriceImpactPct: impact,
		Valid:          true,
		CreatedAt:      time.Now(),
	}
}

func TestGetSwapQuotePicksBestPrice(t *testing.T) {
	a := &fakeAdapter{name: "orca", ready: true, quote: freshQuote("orca", 0.995, 0.01)}
	b := &fakeAdapter{name: "raydium", ready: true, quote: freshQuote("raydium", 0.997, 0.02)}
	r := New(zerolog.Nop(), []venue.Adapter{a, b})

	quote, err := r.GetSwapQuote(context.Background(), venue.QuoteRequest{Amount: 100})
	if err != nil {
		t.Fatalf("GetSwapQuote returned error: %v", err)
	}
	if quote.Venue != "raydium" {
		t.Fatalf("expected raydium to win, got %s", quote.Venue)
	}
}

func TestGetSwapQuoteTieBreaksOnImpact(t *testing.T) {
	a := &fakeAdapter{name: "orca", ready: true, quote: freshQuote("orca", 0.997, 0.01)}
	b := &fakeAdapter{name: "raydium", ready: true, quote: freshQuote("raydium", 0.997, 0.02)}
	r := New(zerolog.Nop(), []venue.Adapter{b, a})

	quote, err := r.GetSwapQuote(context.Background(), venue.QuoteRequest{Amount: 100})
	if err != nil {
		t.Fatalf("GetSwapQuote returned error: %v", err)
	}
	if quote.Venue != "orca" {
		t.Fatalf("tie must break to lower impact, got %s", quote.Venue)
	}
}

func TestGetSwapQuoteTieBreaksOnPriority(t *testing.T) {
	a := &fakeAdapter{name: "orca", ready: true, quote: freshQuote("orca", 0.997, 0.01)}
	b := &fakeAdapter{name: "raydium", ready: true, quote: freshQuote("raydium", 0.997, 0.01)}
	r := New(zerolog.Nop(), []venue.Adapter{a, b}, WithPriority([]string{"raydium", "orca"}))

	quote, err := r.GetSwapQuote(context.Background(), venue.QuoteRequest{Amount: 100})
	if err != nil {
		t.Fatalf("GetSwapQuote returned error: %v", err)
	}
	if quote.Venue != "raydium" {
		t.Fatalf("full tie must break to configured priority, got %s", quote.Venue)
	}
}

func TestGetSwapQuoteToleratesOneVenueFailing(t *testing.T) {
	a := &fakeAdapter{name: "orca", ready: true, quoteErr: errors.New("rpc down")}
	b := &fakeAdapter{name: "raydium", ready: true, quote: freshQuote("raydium", 0.99, 0.05)}
	r := New(zerolog.Nop(), []venue.Adapter{a, b})

	quote, err := r.GetSwapQuote(context.Background(), venue.QuoteRequest{Amount: 100})
	if err != nil {
		t.Fatalf("GetSwapQuote returned error: %v", err)
	}
	if quote.Venue != "raydium" {
		t.Fatalf("surviving venue must win, got %s", quote.Venue)
	}
}

func TestGetSwapQuoteNoRouteCarriesReasons(t *testing.T) {
	invalid := freshQuote("raydium", 0.8, 12.0)
	invalid.Valid = false
	a := &fakeAdapter{name: "orca", ready: true, quoteErr: &venue.NoPoolFoundError{Venue: "orca", InputMint: "A", OutputMint: "B"}}
	b := &fakeAdapter{name: "raydium", ready: true, quote: invalid}
	r := New(zerolog.Nop(), []venue.Adapter{a, b})

	_, err := r.GetSwapQuote(context.Background(), venue.QuoteRequest{Amount: 100})
	var noRoute *venue.NoRouteFoundError
	if !errors.As(err, &noRoute) {
		t.Fatalf("expected NoRouteFoundError, got %v", err)
	}
	if len(noRoute.Failures) != 2 {
		t.Fatalf("expected both venues reported, got %+v", noRoute.Failures)
	}
	// Failures come back sorted by venue name.
	if noRoute.Failures[0].Venue != "orca" || noRoute.Failures[1].Venue != "raydium" {
		t.Fatalf("unexpected order: %+v", noRoute.Failures)
	}
	if !strings.Contains(noRoute.Failures[0].Reason, "no pool") {
		t.Fatalf("unexpected orca reason: %s", noRoute.Failures[0].Reason)
	}
	if !strings.Contains(noRoute.Failures[1].Reason, "price impact") {
		t.Fatalf("unexpected raydium reason: %s", noRoute.Failures[1].Reason)
	}
}

func TestGetSwapQuoteDropsStaleQuotes(t *testing.T) {
	stale := freshQuote("orca", 0.999, 0.01)
	stale.CreatedAt = time.Now().Add(-time.Minute)
	a := &fakeAdapter{name: "orca", ready: true, quote: stale}
	b := &fakeAdapter{name: "raydium", ready: true, quote: freshQuote("raydium", 0.99, 0.05)}
	r := New(zerolog.Nop(), []venue.Adapter{a, b})

	quote, err := r.GetSwapQuote(context.Background(), venue.QuoteRequest{Amount: 100})
	if err != nil {
		t.Fatalf("GetSwapQuote returned error: %v", err)
	}
	if quote.Venue != "raydium" {
		t.Fatalf("stale quote must lose despite better price, got %s", quote.Venue)
	}
}

func TestExecuteSwapDelegatesToWinner(t *testing.T) {
	a := &fakeAdapter{name: "orca", ready: true, quote: freshQuote("orca", 0.99, 0.01), trade: &venue.Trade{Venue: "orca"}}
	b := &fakeAdapter{name: "raydium", ready: true, quote: freshQuote("raydium", 0.997, 0.01), trade: &venue.Trade{Venue: "raydium", Successful: true, Outcome: venue.OutcomeConfirmed}}
	r := New(zerolog.Nop(), []venue.Adapter{a, b})

	trade, err := r.ExecuteSwap(context.Background(), venue.SwapRequest{Amount: 100})
	if err != nil {
		t.Fatalf("ExecuteSwap returned error: %v", err)
	}
	if trade.Venue != "raydium" {
		t.Fatalf("expected raydium execution, got %s", trade.Venue)
	}
	if b.executed.Load() != 1 || a.executed.Load() != 0 {
		t.Fatalf("execution delegated to the wrong venue")
	}
}

func TestExecuteSwapEnforcesLimits(t *testing.T) {
	a := &fakeAdapter{name: "orca", ready: true, quote: freshQuote("orca", 0.99, 0.01)}
	r := New(zerolog.Nop(), []venue.Adapter{a}, WithLimits(risk.Limits{MaxAmountPerSwap: 50}))

	_, err := r.ExecuteSwap(context.Background(), venue.SwapRequest{Amount: 100})
	if err == nil {
		t.Fatalf("expected limit violation")
	}
	if a.executed.Load() != 0 {
		t.Fatalf("limited swap must not execute")
	}
}

func TestInitializeFailsFast(t *testing.T) {
	a := &fakeAdapter{name: "orca", initErr: errors.New("pool account missing")}
	b := &fakeAdapter{name: "raydium"}
	r := New(zerolog.Nop(), []venue.Adapter{a, b})

	if err := r.Initialize(context.Background()); err == nil {
		t.Fatalf("expected initialization failure")
	}
	if b.ready {
		t.Fatalf("later adapters must not initialize after a failure")
	}
}

func TestAggregators(t *testing.T) {
	a := &fakeAdapter{
		name: "orca", ready: true,
		positions: []venue.Position{{ID: "p1", Venue: "orca"}},
		pools:     []venue.PoolInfo{{Venue: "orca", Address: "pool1"}},
		balErr:    errors.New("rpc down"),
	}
	b := &fakeAdapter{
		name: "raydium", ready: true,
		positions: []venue.Position{{ID: "p2", Venue: "raydium"}},
		pools:     []venue.PoolInfo{{Venue: "raydium", Address: "pool2"}},
		balances:  []venue.Balance{{Mint: "So11111111111111111111111111111111111111112", Symbol: "SOL"}},
	}
	r := New(zerolog.Nop(), []venue.Adapter{a, b})
	ctx := context.Background()

	positions, err := r.Positions(ctx)
	if err != nil || len(positions) != 2 {
		t.Fatalf("unexpected positions: %v, %v", positions, err)
	}
	pools, err := r.Pools(ctx)
	if err != nil || len(pools) != 2 {
		t.Fatalf("unexpected pools: %v, %v", pools, err)
	}
	// Balances fall through to the first adapter that answers.
	balances, err := r.Balances(ctx)
	if err != nil || len(balances) != 1 || balances[0].Symbol != "SOL" {
		t.Fatalf("unexpected balances: %v, %v", balances, err)
	}

	if r.Adapter("orca") != venue.Adapter(a) {
		t.Fatalf("Adapter lookup failed")
	}
	if r.Adapter("missing") != nil {
		t.Fatalf("unknown adapter must be nil")
	}
}

func TestPollerRefreshSkipsNotReady(t *testing.T) {
	ready := &fakeAdapter{name: "orca", ready: true}
	notReady := &fakeAdapter{name: "raydium"}
	p := NewPoller(zerolog.Nop(), []venue.Adapter{ready, notReady}, time.Hour)

	p.Refresh(context.Background())
	if ready.refreshed.Load() != 1 {
		t.Fatalf("ready adapter not refreshed")
	}
	if notReady.refreshed.Load() != 0 {
		t.Fatalf("not-ready adapter must be skipped")
	}
}

func TestPollerLoopRefreshesOnStart(t *testing.T) {
	a := &fakeAdapter{name: "orca", ready: true}
	p := NewPoller(zerolog.Nop(), []venue.Adapter{a}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for a.refreshed.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if a.refreshed.Load() == 0 {
		t.Fatalf("poller never refreshed after Start")
	}
}
