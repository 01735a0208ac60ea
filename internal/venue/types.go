// Package venue defines the common contract every liquidity venue adapter
// implements, plus the venue-agnostic data shapes shared with the router.
package venue

import (
	"context"
	"strconv"
	"time"
)

// Outcome classifies the terminal state of a submitted transaction.
type Outcome string

const (
	// OutcomeConfirmed means the transaction reached the configured commitment.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeFailed means the transaction was rejected or never submitted.
	OutcomeFailed Outcome = "failed"
	// OutcomeUnknown means the transaction was submitted but confirmation timed
	// out client-side; it may still land on chain.
	OutcomeUnknown Outcome = "unknown"
)

// QuoteRequest describes a swap to be priced. Amount is in the input mint's
// smallest units. SlippageBps of zero means "use the adapter default".
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps int
}

// SwapRequest describes a swap to be executed. MinimumReceived is the floor in
// output-mint smallest units below which the adapter must not execute.
type SwapRequest struct {
	InputMint       string
	OutputMint      string
	Amount          uint64
	MinimumReceived uint64
	SlippageBps     int
}

// AddLiquidityRequest describes a deposit into one pool. TickRange is only
// meaningful on concentrated-liquidity venues and is ignored elsewhere.
type AddLiquidityRequest struct {
	Pool         string
	TokenAAmount uint64
	TokenBAmount uint64
	TickRange    *TickRange
}

// TickRange bounds the price interval a concentrated position is active in.
type TickRange struct {
	Lower int32
	Upper int32
}

// Quote is an immutable, non-binding estimate of a swap's outcome. Amounts are
// base-10 strings of smallest units. Valid is false when the computed price
// impact exceeds the adapter's configured maximum.
type Quote struct {
	Venue          string    `json:"venue"`
	InputMint      string    `json:"inputMint"`
	OutputMint     string    `json:"outputMint"`
	InAmount       string    `json:"inAmount"`
	OutAmount      string    `json:"outAmount"`
	PriceImpactPct float64   `json:"priceImpactPct"`
	FeeAmount      string    `json:"feeAmount"`
	Route          []string  `json:"route"`
	ExecutionPrice float64   `json:"executionPrice"`
	MinReceived    string    `json:"minReceived"`
	SlippageBps    int       `json:"slippageBps"`
	Valid          bool      `json:"valid"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Age reports how long ago the quote was produced.
func (q *Quote) Age(now time.Time) time.Duration { return now.Sub(q.CreatedAt) }

// Trade is the outcome of attempting a quoted swap. Execution failures are
// carried here as data, never as a returned error: the router compares
// outcomes across venues and partial on-chain effects may already exist.
type Trade struct {
	Venue        string        `json:"venue"`
	InputMint    string        `json:"inputMint"`
	OutputMint   string        `json:"outputMint"`
	InAmount     string        `json:"inAmount"`
	OutputAmount string        `json:"outputAmount"`
	Signature    string        `json:"signature,omitempty"`
	FeePaid      string        `json:"feePaid"`
	Latency      time.Duration `json:"latency"`
	Successful   bool          `json:"successful"`
	Outcome      Outcome       `json:"outcome"`
	Error        string        `json:"error,omitempty"`
	ExecutedAt   time.Time     `json:"executedAt"`
}

// Position is a liquidity stake owned by the adapter's wallet. TickRange is
// nil on venues without concentrated liquidity. Stats is nil whenever the
// venue cannot substantiate valuation or yield figures.
type Position struct {
	ID        string         `json:"id"`
	Venue     string         `json:"venue"`
	Pool      string         `json:"pool"`
	MintA     string         `json:"mintA"`
	MintB     string         `json:"mintB"`
	Liquidity uint64         `json:"liquidity"`
	TickRange *TickRange     `json:"tickRange,omitempty"`
	FeeOwedA  uint64         `json:"feeOwedA"`
	FeeOwedB  uint64         `json:"feeOwedB"`
	Stats     *PositionStats `json:"stats,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// PositionStats carries derived valuation figures when the venue provides the
// inputs to compute them.
type PositionStats struct {
	ValueUSD float64 `json:"valueUsd"`
	APYPct   float64 `json:"apyPct"`
}

// Analytics returns the position's derived figures, or
// ErrAnalyticsUnavailable when the venue could not substantiate them.
func (p *Position) Analytics() (*PositionStats, error) {
	if p.Stats == nil {
		return nil, ErrAnalyticsUnavailable
	}
	return p.Stats, nil
}

// LiquidityResult is the outcome of an add-liquidity attempt. On failure the
// Position pointer is nil and Error is populated.
type LiquidityResult struct {
	Successful bool      `json:"successful"`
	Signature  string    `json:"signature,omitempty"`
	Position   *Position `json:"position,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// RemovalResult is the outcome of a remove-liquidity or fee-collection
// attempt. Amounts are smallest-unit strings; fee amounts cover both sides.
type RemovalResult struct {
	Successful bool   `json:"successful"`
	Signature  string `json:"signature,omitempty"`
	TokenA     string `json:"tokenA"`
	TokenB     string `json:"tokenB"`
	FeesA      string `json:"feesA"`
	FeesB      string `json:"feesB"`
	Error      string `json:"error,omitempty"`
}

// Balance is an on-demand snapshot of one token holding; never persisted.
type Balance struct {
	Mint     string  `json:"mint"`
	Symbol   string  `json:"symbol"`
	Amount   string  `json:"amount"`
	UIAmount float64 `json:"uiAmount"`
	Decimals uint8   `json:"decimals"`
}

// PoolInfo is a best-effort view of one pool, refreshed by the router's
// poller; it is not transactionally consistent with chain state. TickSpacing
// is zero on venues without ticks. Stats is nil when analytics are
// unavailable.
type PoolInfo struct {
	Venue       string     `json:"venue"`
	Address     string     `json:"address"`
	MintA       string     `json:"mintA"`
	MintB       string     `json:"mintB"`
	TickSpacing int32      `json:"tickSpacing,omitempty"`
	Liquidity   string     `json:"liquidity"`
	FeeRateBps  float64    `json:"feeRateBps"`
	Stats       *PoolStats `json:"stats,omitempty"`
	RefreshedAt time.Time  `json:"refreshedAt"`
}

// PoolStats carries derived pool analytics when computable from venue data.
type PoolStats struct {
	Volume24hUSD float64 `json:"volume24hUsd"`
	TVLUSD       float64 `json:"tvlUsd"`
	APYPct       float64 `json:"apyPct"`
}

// Analytics returns the pool's derived figures, or ErrAnalyticsUnavailable
// when the venue could not substantiate them.
func (p *PoolInfo) Analytics() (*PoolStats, error) {
	if p.Stats == nil {
		return nil, ErrAnalyticsUnavailable
	}
	return p.Stats, nil
}

// Adapter is the uniform surface every venue integration exposes. Instances
// are two-state: constructed, then ready after Initialize succeeds. Read
// operations propagate errors; write operations report failures inside their
// result objects (see Trade, LiquidityResult, RemovalResult) and reserve the
// error return for precondition violations such as ErrNotInitialized.
type Adapter interface {
	Name() string
	Ready() bool
	Initialize(ctx context.Context) error

	GetSwapQuote(ctx context.Context, req QuoteRequest) (*Quote, error)
	ExecuteSwap(ctx context.Context, req SwapRequest) (*Trade, error)

	AddLiquidity(ctx context.Context, req AddLiquidityRequest) (*LiquidityResult, error)
	RemoveLiquidity(ctx context.Context, positionID string, percentage float64) (*RemovalResult, error)
	CollectFees(ctx context.Context, positionID string) (*RemovalResult, error)

	GetBalances(ctx context.Context) ([]Balance, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetAvailablePools(ctx context.Context) ([]PoolInfo, error)
	RefreshPools(ctx context.Context) error
}

// FormatAmount renders a smallest-unit amount as the base-10 string used in
// the public types.
func FormatAmount(v uint64) string { return strconv.FormatUint(v, 10) }

// ParseAmount parses a smallest-unit amount string produced by FormatAmount.
func ParseAmount(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) }

// FailedTrade builds a Trade carrying an execution failure for the given
// request. Failed trades always report zero output.
func FailedTrade(venueName string, req SwapRequest, reason string) *Trade {
	return &Trade{
		Venue:        venueName,
		InputMint:    req.InputMint,
		OutputMint:   req.OutputMint,
		InAmount:     FormatAmount(req.Amount),
		OutputAmount: "0",
		FeePaid:      "0",
		Successful:   false,
		Outcome:      OutcomeFailed,
		Error:        reason,
		ExecutedAt:   time.Now(),
	}
}
