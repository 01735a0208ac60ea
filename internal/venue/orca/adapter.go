// Package orca adapts a concentrated-liquidity AMM venue (whirlpool-style
// accounts) to the common venue contract. Quotes walk the current liquidity
// at the pool's Q64.64 sqrt price; positions are tick-ranged and accrue fees
// separately from their principal.
package orca

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/chain"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/metrics"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue"
)

// Name identifies this venue in quotes, trades, and router diagnostics.
const Name = "orca"

const (
	defaultSlippageBps    = 100
	defaultMaxImpactBps   = 500
	defaultReadTimeout    = 5 * time.Second
	defaultConfirmTimeout = 30 * time.Second

	// feeRateDenominator converts the pool fee field (hundredths of a basis
	// point) to a fraction.
	feeRateDenominator = 1_000_000

	// defaultRangeTicks is the half-width, in tick-spacing units, of the
	// range used when AddLiquidity is called without one.
	defaultRangeTicks = 64
)

// Config carries the operator-supplied adapter settings.
type Config struct {
	ProgramID         solana.PublicKey
	Pools             []solana.PublicKey
	SlippageBps       int
	MaxPriceImpactBps int
	ReadTimeout       time.Duration
	ConfirmTimeout    time.Duration
	Commitment        rpc.CommitmentType
	Tokens            map[string]venue.TokenMeta
}

func (c *Config) applyDefaults() {
	if c.SlippageBps <= 0 {
		c.SlippageBps = defaultSlippageBps
	}
	if c.MaxPriceImpactBps <= 0 {
		c.MaxPriceImpactBps = defaultMaxImpactBps
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = defaultConfirmTimeout
	}
	if c.Commitment == "" {
		c.Commitment = rpc.CommitmentConfirmed
	}
}

// positionState pairs the exported position view with the accounts needed to
// operate on it.
type positionState struct {
	pda  solana.PublicKey
	mint solana.PublicKey
	pos  venue.Position
}

// Adapter implements venue.Adapter against one concentrated-liquidity
// program. Pool and position caches are instance-owned.
type Adapter struct {
	log    zerolog.Logger
	client chain.Client
	owner  solana.PrivateKey
	cfg    Config

	mu        sync.RWMutex
	ready     bool
	pools     map[string]*poolState
	positions map[string]*positionState
}

// New constructs an uninitialized adapter; call Initialize before use.
func New(log zerolog.Logger, client chain.Client, owner solana.PrivateKey, cfg Config) *Adapter {
	cfg.applyDefaults()
	return &Adapter{
		log:       log.With().Str("venue", Name).Logger(),
		client:    client,
		owner:     owner,
		cfg:       cfg,
		pools:     make(map[string]*poolState),
		positions: make(map[string]*positionState),
	}
}

func (a *Adapter) Name() string { return Name }

// Ready reports whether Initialize has completed.
func (a *Adapter) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ready
}

func (a *Adapter) requireReady() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.ready {
		return &venue.NotInitializedError{Venue: Name}
	}
	return nil
}

// Initialize enumerates and decodes the configured whirlpools.
func (a *Adapter) Initialize(ctx context.Context) error {
	if len(a.cfg.Pools) == 0 {
		return fmt.Errorf("%s: no pools configured", Name)
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ReadTimeout)
	defer cancel()

	res, err := a.client.GetMultipleAccounts(ctx, a.cfg.Pools...)
	if err != nil {
		return venue.WrapReadError(Name, "enumerate pools", a.cfg.ReadTimeout, err)
	}
	pools := make(map[string]*poolState, len(a.cfg.Pools))
	now := time.Now()
	for i, addr := range a.cfg.Pools {
		if i >= len(res.Value) || res.Value[i] == nil {
			return fmt.Errorf("%s: pool account %s not found", Name, addr)
		}
		var acc WhirlpoolAccount
		if err := decodeTagged(res.Value[i].Data.GetBinary(), anchorAccountTag("Whirlpool"), &acc); err != nil {
			return fmt.Errorf("%s: pool %s: %w", Name, addr, err)
		}
		pools[addr.String()] = &poolState{address: addr, acc: acc, refreshedAt: now}
	}

	a.mu.Lock()
	a.pools = pools
	a.ready = true
	a.mu.Unlock()
	a.log.Info().Int("pools", len(pools)).Msg("adapter initialized")
	return nil
}

func (a *Adapter) refreshPool(ctx context.Context, ps *poolState) error {
	res, err := a.client.GetAccountInfo(ctx, ps.address)
	if err != nil {
		return err
	}
	if res == nil || res.Value == nil {
		return fmt.Errorf("pool %s missing", ps.address)
	}
	var acc WhirlpoolAccount
	if err := decodeTagged(res.Value.Data.GetBinary(), anchorAccountTag("Whirlpool"), &acc); err != nil {
		return fmt.Errorf("pool %s: %w", ps.address, err)
	}
	a.mu.Lock()
	ps.acc = acc
	ps.refreshedAt = time.Now()
	a.mu.Unlock()
	return nil
}

func (a *Adapter) matchingPools(inputMint, outputMint string) []*poolState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*poolState
	for _, ps := range a.pools {
		ma, mb := ps.acc.TokenMintA.String(), ps.acc.TokenMintB.String()
		if (ma == inputMint && mb == outputMint) || (mb == inputMint && ma == outputMint) {
			out = append(out, ps)
		}
	}
	return out
}

// GetSwapQuote prices a swap against freshly fetched pool state. Excessive
// price impact invalidates the quote instead of raising.
func (a *Adapter) GetSwapQuote(ctx context.Context, req venue.QuoteRequest) (*venue.Quote, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	if req.Amount == 0 {
		return nil, fmt.Errorf("%s: swap amount must be positive", Name)
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ReadTimeout)
	defer cancel()

	candidates := a.matchingPools(req.InputMint, req.OutputMint)
	if len(candidates) == 0 {
		return nil, &venue.NoPoolFoundError{Venue: Name, InputMint: req.InputMint, OutputMint: req.OutputMint}
	}

	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = a.cfg.SlippageBps
	}

	var best *venue.Quote
	for _, ps := range candidates {
		if err := a.refreshPool(ctx, ps); err != nil {
			metrics.RPCErrorsTotal.WithLabelValues(Name, "quote").Inc()
			return nil, venue.WrapReadError(Name, "refresh pool", a.cfg.ReadTimeout, err)
		}
		a.mu.RLock()
		acc := ps.acc
		addr := ps.address.String()
		a.mu.RUnlock()

		aToB := acc.TokenMintA.String() == req.InputMint
		fee := feeOnInput(req.Amount, acc.FeeRate)
		afterFee := req.Amount - fee
		out, _ := computeSwapOut(acc.SqrtPrice.big(), acc.Liquidity.big(), afterFee, aToB)
		if out == 0 {
			continue
		}
		impact := priceImpactPct(acc.SqrtPrice.big(), afterFee, out, aToB)
		q := &venue.Quote{
			Venue:          Name,
			InputMint:      req.InputMint,
			OutputMint:     req.OutputMint,
			InAmount:       venue.FormatAmount(req.Amount),
			OutAmount:      venue.FormatAmount(out),
			PriceImpactPct: impact,
			FeeAmount:      venue.FormatAmount(fee),
			Route:          []string{addr},
			ExecutionPrice: float64(out) / float64(req.Amount),
			MinReceived:    venue.FormatAmount(applySlippage(out, slippage)),
			SlippageBps:    slippage,
			Valid:          impact <= float64(a.cfg.MaxPriceImpactBps)/100,
			CreatedAt:      time.Now(),
		}
		if best == nil || q.ExecutionPrice > best.ExecutionPrice {
			best = q
		}
	}
	if best == nil {
		return nil, &venue.NoPoolFoundError{Venue: Name, InputMint: req.InputMint, OutputMint: req.OutputMint}
	}
	metrics.QuotesTotal.WithLabelValues(Name, strconv.FormatBool(best.Valid)).Inc()
	metrics.QuoteLatency.WithLabelValues(Name).Observe(time.Since(start).Seconds())
	return best, nil
}

func applySlippage(amount uint64, bps int) uint64 {
	cut := new(big.Int).SetUint64(amount)
	cut.Mul(cut, big.NewInt(int64(bps)))
	cut.Div(cut, big.NewInt(10_000))
	return amount - cut.Uint64()
}

// ExecuteSwap re-quotes, enforces validity and the caller's floor, submits,
// and waits for confirmation. Chain failures are data on the Trade.
func (a *Adapter) ExecuteSwap(ctx context.Context, req venue.SwapRequest) (*venue.Trade, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	start := time.Now()
	finish := func(t *venue.Trade) (*venue.Trade, error) {
		t.Latency = time.Since(start)
		metrics.SwapsTotal.WithLabelValues(Name, string(t.Outcome)).Inc()
		return t, nil
	}

	quote, err := a.GetSwapQuote(ctx, venue.QuoteRequest{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		Amount:      req.Amount,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		return finish(venue.FailedTrade(Name, req, fmt.Sprintf("quote failed: %v", err)))
	}
	if !quote.Valid {
		return finish(venue.FailedTrade(Name, req, "price impact too high"))
	}
	quotedOut, _ := venue.ParseAmount(quote.OutAmount)
	minReceived := req.MinimumReceived
	if minReceived == 0 {
		minReceived, _ = venue.ParseAmount(quote.MinReceived)
	}
	if quotedOut < minReceived {
		return finish(venue.FailedTrade(Name, req, "quoted output below minimum received"))
	}

	a.mu.RLock()
	ps := a.pools[quote.Route[0]]
	a.mu.RUnlock()
	ix, err := a.buildSwapInstruction(ps, req, minReceived)
	if err != nil {
		return finish(venue.FailedTrade(Name, req, fmt.Sprintf("build instruction: %v", err)))
	}

	sig, err := chain.SubmitInstructions(ctx, a.client, a.owner, a.cfg.Commitment, []solana.Instruction{ix})
	if err != nil {
		return finish(venue.FailedTrade(Name, req, fmt.Sprintf("submit: %v", err)))
	}

	confirmCtx, cancel := context.WithTimeout(ctx, a.cfg.ConfirmTimeout)
	defer cancel()
	if err := chain.AwaitSignature(confirmCtx, a.client, sig, a.cfg.Commitment, 0); err != nil {
		if confirmCtx.Err() != nil {
			trade := venue.FailedTrade(Name, req, "confirmation deadline exceeded; transaction may still land")
			trade.Outcome = venue.OutcomeUnknown
			trade.Signature = sig.String()
			return finish(trade)
		}
		trade := venue.FailedTrade(Name, req, err.Error())
		trade.Signature = sig.String()
		return finish(trade)
	}

	realized, feePaid := a.settledAmounts(ctx, sig, req.OutputMint, quotedOut)
	return finish(&venue.Trade{
		Venue:        Name,
		InputMint:    req.InputMint,
		OutputMint:   req.OutputMint,
		InAmount:     venue.FormatAmount(req.Amount),
		OutputAmount: venue.FormatAmount(realized),
		Signature:    sig.String(),
		FeePaid:      venue.FormatAmount(feePaid),
		Successful:   true,
		Outcome:      venue.OutcomeConfirmed,
		ExecutedAt:   time.Now(),
	})
}

func (a *Adapter) settledAmounts(ctx context.Context, sig solana.Signature, outputMint string, quoted uint64) (realized, feePaid uint64) {
	realized = quoted
	res, err := a.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: a.cfg.Commitment,
	})
	if err != nil || res == nil || res.Meta == nil {
		a.log.Debug().Err(err).Str("sig", sig.String()).Msg("transaction meta unavailable, using quoted output")
		return realized, 0
	}
	feePaid = res.Meta.Fee
	ownerKey := a.owner.PublicKey()
	sum := func(balances []rpc.TokenBalance) uint64 {
		var total uint64
		for _, b := range balances {
			if b.Owner == nil || !b.Owner.Equals(ownerKey) || b.Mint.String() != outputMint || b.UiTokenAmount == nil {
				continue
			}
			v, err := strconv.ParseUint(b.UiTokenAmount.Amount, 10, 64)
			if err == nil {
				total += v
			}
		}
		return total
	}
	post := sum(res.Meta.PostTokenBalances)
	pre := sum(res.Meta.PreTokenBalances)
	if post > pre {
		realized = post - pre
	}
	return realized, feePaid
}

func (a *Adapter) buildSwapInstruction(ps *poolState, req venue.SwapRequest, minOut uint64) (solana.Instruction, error) {
	a.mu.RLock()
	acc := ps.acc
	addr := ps.address
	a.mu.RUnlock()

	aToB := acc.TokenMintA.String() == req.InputMint
	ownerKey := a.owner.PublicKey()
	ataA, _, err := solana.FindAssociatedTokenAddress(ownerKey, acc.TokenMintA)
	if err != nil {
		return nil, err
	}
	ataB, _, err := solana.FindAssociatedTokenAddress(ownerKey, acc.TokenMintB)
	if err != nil {
		return nil, err
	}
	arrays, err := swapTickArrays(a.cfg.ProgramID, addr, acc.TickCurrentIndex, acc.TickSpacing, aToB)
	if err != nil {
		return nil, err
	}
	oracle, err := oraclePDA(a.cfg.ProgramID, addr)
	if err != nil {
		return nil, err
	}

	data := encodeArgs("swap", swapArgs{
		Amount:                 req.Amount,
		OtherAmountThreshold:   minOut,
		AmountSpecifiedIsInput: true,
		AToB:                   aToB,
	})
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(ownerKey, false, true),
		solana.NewAccountMeta(addr, true, false),
		solana.NewAccountMeta(ataA, true, false),
		solana.NewAccountMeta(acc.TokenVaultA, true, false),
		solana.NewAccountMeta(ataB, true, false),
		solana.NewAccountMeta(acc.TokenVaultB, true, false),
		solana.NewAccountMeta(arrays[0], true, false),
		solana.NewAccountMeta(arrays[1], true, false),
		solana.NewAccountMeta(arrays[2], true, false),
		solana.NewAccountMeta(oracle, false, false),
	}
	return solana.NewInstruction(a.cfg.ProgramID, accounts, data), nil
}

// AddLiquidity opens a tick-ranged position and deposits into it in one
// transaction. A nil TickRange gets a symmetric default around the current
// tick, snapped to the pool's spacing.
func (a *Adapter) AddLiquidity(ctx context.Context, req venue.AddLiquidityRequest) (*venue.LiquidityResult, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	if req.TokenAAmount == 0 && req.TokenBAmount == 0 {
		return nil, fmt.Errorf("%s: at least one token amount must be positive", Name)
	}
	a.mu.RLock()
	ps := a.pools[req.Pool]
	a.mu.RUnlock()
	if ps == nil {
		return nil, fmt.Errorf("%s: unknown pool %s", Name, req.Pool)
	}

	fail := func(reason string) (*venue.LiquidityResult, error) {
		metrics.LiquidityOpsTotal.WithLabelValues(Name, "add", "failed").Inc()
		return &venue.LiquidityResult{Successful: false, Error: reason}, nil
	}

	readCtx, cancel := context.WithTimeout(ctx, a.cfg.ReadTimeout)
	err := a.refreshPool(readCtx, ps)
	cancel()
	if err != nil {
		return fail(fmt.Sprintf("refresh pool: %v", err))
	}
	a.mu.RLock()
	acc := ps.acc
	a.mu.RUnlock()

	tickRange := req.TickRange
	if tickRange == nil {
		half := int32(acc.TickSpacing) * defaultRangeTicks
		tickRange = &venue.TickRange{
			Lower: snapTick(acc.TickCurrentIndex-half, acc.TickSpacing),
			Upper: snapTick(acc.TickCurrentIndex+half, acc.TickSpacing),
		}
	}
	if tickRange.Lower >= tickRange.Upper {
		return nil, fmt.Errorf("%s: tick range lower %d must be below upper %d", Name, tickRange.Lower, tickRange.Upper)
	}

	sqrtLower := sqrtPriceFromTick(tickRange.Lower)
	sqrtUpper := sqrtPriceFromTick(tickRange.Upper)
	liquidity := liquidityForAmounts(acc.SqrtPrice.big(), sqrtLower, sqrtUpper, req.TokenAAmount, req.TokenBAmount)
	if liquidity == 0 {
		return fail("amounts too small for the requested range")
	}

	positionMint := solana.NewWallet().PrivateKey
	pda, err := positionPDA(a.cfg.ProgramID, positionMint.PublicKey())
	if err != nil {
		return fail(fmt.Sprintf("derive position: %v", err))
	}
	instrs, err := a.buildOpenAndIncrease(ps, pda, positionMint.PublicKey(), tickRange, liquidity, req.TokenAAmount, req.TokenBAmount)
	if err != nil {
		return fail(fmt.Sprintf("build instructions: %v", err))
	}
	sig, err := chain.SubmitInstructions(ctx, a.client, a.owner, a.cfg.Commitment, instrs, positionMint)
	if err != nil {
		return fail(fmt.Sprintf("submit: %v", err))
	}
	confirmCtx, cancel := context.WithTimeout(ctx, a.cfg.ConfirmTimeout)
	defer cancel()
	if err := chain.AwaitSignature(confirmCtx, a.client, sig, a.cfg.Commitment, 0); err != nil {
		return fail(fmt.Sprintf("confirm %s: %v", sig, err))
	}

	now := time.Now()
	id := positionMint.PublicKey().String()
	state := &positionState{
		pda:  pda,
		mint: positionMint.PublicKey(),
		pos: venue.Position{
			ID:        id,
			Venue:     Name,
			Pool:      req.Pool,
			MintA:     acc.TokenMintA.String(),
			MintB:     acc.TokenMintB.String(),
			Liquidity: liquidity,
			TickRange: &venue.TickRange{Lower: tickRange.Lower, Upper: tickRange.Upper},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	a.mu.Lock()
	a.positions[id] = state
	snapshot := state.pos
	a.mu.Unlock()

	metrics.LiquidityOpsTotal.WithLabelValues(Name, "add", "confirmed").Inc()
	a.log.Info().Str("pool", req.Pool).Str("position", id).Uint64("liquidity", liquidity).Str("sig", sig.String()).Msg("position opened")
	return &venue.LiquidityResult{Successful: true, Signature: sig.String(), Position: &snapshot}, nil
}

func snapTick(tick int32, spacing uint16) int32 {
	s := int32(spacing)
	if s == 0 {
		return tick
	}
	snapped := tick / s * s
	if tick < 0 && tick%s != 0 {
		snapped -= s
	}
	return snapped
}

// RemoveLiquidity withdraws a percentage of a position and collects its
// accrued fees in the same transaction; deferring collection loses fees once
// the position's liquidity reaches zero.
func (a *Adapter) RemoveLiquidity(ctx context.Context, positionID string, percentage float64) (*venue.RemovalResult, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	if percentage <= 0 || percentage > 100 {
		return nil, fmt.Errorf("%s: percentage must be in (0, 100], got %.2f", Name, percentage)
	}
	a.mu.RLock()
	state := a.positions[positionID]
	var ps *poolState
	if state != nil {
		ps = a.pools[state.pos.Pool]
	}
	a.mu.RUnlock()
	if state == nil || ps == nil {
		return nil, fmt.Errorf("%s: unknown position %s", Name, positionID)
	}

	fail := func(reason string) (*venue.RemovalResult, error) {
		metrics.LiquidityOpsTotal.WithLabelValues(Name, "remove", "failed").Inc()
		return &venue.RemovalResult{Successful: false, Error: reason, TokenA: "0", TokenB: "0", FeesA: "0", FeesB: "0"}, nil
	}

	readCtx, cancel := context.WithTimeout(ctx, a.cfg.ReadTimeout)
	err := a.refreshPool(readCtx, ps)
	cancel()
	if err != nil {
		return fail(fmt.Sprintf("refresh pool: %v", err))
	}

	a.mu.RLock()
	acc := ps.acc
	pos := state.pos
	a.mu.RUnlock()
	liquidityOut := uint64(float64(pos.Liquidity) * percentage / 100)
	if liquidityOut == 0 {
		return fail("removal amount rounds to zero")
	}
	sqrtLower := sqrtPriceFromTick(pos.TickRange.Lower)
	sqrtUpper := sqrtPriceFromTick(pos.TickRange.Upper)
	amountA, amountB := amountsForLiquidity(acc.SqrtPrice.big(), sqrtLower, sqrtUpper, liquidityOut)

	instrs, err := a.buildDecreaseAndCollect(ps, state, liquidityOut, amountA, amountB)
	if err != nil {
		return fail(fmt.Sprintf("build instructions: %v", err))
	}
	sig, err := chain.SubmitInstructions(ctx, a.client, a.owner, a.cfg.Commitment, instrs)
	if err != nil {
		return fail(fmt.Sprintf("submit: %v", err))
	}
	confirmCtx, cancel := context.WithTimeout(ctx, a.cfg.ConfirmTimeout)
	defer cancel()
	if err := chain.AwaitSignature(confirmCtx, a.client, sig, a.cfg.Commitment, 0); err != nil {
		return fail(fmt.Sprintf("confirm %s: %v", sig, err))
	}

	a.mu.Lock()
	feesA, feesB := state.pos.FeeOwedA, state.pos.FeeOwedB
	state.pos.Liquidity -= liquidityOut
	state.pos.FeeOwedA = 0
	state.pos.FeeOwedB = 0
	state.pos.UpdatedAt = time.Now()
	if state.pos.Liquidity == 0 {
		delete(a.positions, positionID)
	}
	a.mu.Unlock()

	metrics.LiquidityOpsTotal.WithLabelValues(Name, "remove", "confirmed").Inc()
	return &venue.RemovalResult{
		Successful: true,
		Signature:  sig.String(),
		TokenA:     venue.FormatAmount(amountA),
		TokenB:     venue.FormatAmount(amountB),
		FeesA:      venue.FormatAmount(feesA),
		FeesB:      venue.FormatAmount(feesB),
	}, nil
}

// CollectFees claims a position's accrued fees without touching principal.
// Vault addresses come from the decoded pool state.
func (a *Adapter) CollectFees(ctx context.Context, positionID string) (*venue.RemovalResult, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	state := a.positions[positionID]
	var ps *poolState
	if state != nil {
		ps = a.pools[state.pos.Pool]
	}
	a.mu.RUnlock()
	if state == nil || ps == nil {
		return nil, fmt.Errorf("%s: unknown position %s", Name, positionID)
	}

	fail := func(reason string) (*venue.RemovalResult, error) {
		metrics.LiquidityOpsTotal.WithLabelValues(Name, "collect", "failed").Inc()
		return &venue.RemovalResult{Successful: false, Error: reason, TokenA: "0", TokenB: "0", FeesA: "0", FeesB: "0"}, nil
	}

	if err := a.refreshPositions(ctx); err != nil {
		return fail(fmt.Sprintf("refresh position: %v", err))
	}
	ix, err := a.buildCollectFees(ps, state)
	if err != nil {
		return fail(fmt.Sprintf("build instruction: %v", err))
	}
	sig, err := chain.SubmitInstructions(ctx, a.client, a.owner, a.cfg.Commitment, []solana.Instruction{ix})
	if err != nil {
		return fail(fmt.Sprintf("submit: %v", err))
	}
	confirmCtx, cancel := context.WithTimeout(ctx, a.cfg.ConfirmTimeout)
	defer cancel()
	if err := chain.AwaitSignature(confirmCtx, a.client, sig, a.cfg.Commitment, 0); err != nil {
		return fail(fmt.Sprintf("confirm %s: %v", sig, err))
	}

	a.mu.Lock()
	feesA, feesB := state.pos.FeeOwedA, state.pos.FeeOwedB
	state.pos.FeeOwedA = 0
	state.pos.FeeOwedB = 0
	state.pos.UpdatedAt = time.Now()
	a.mu.Unlock()

	metrics.LiquidityOpsTotal.WithLabelValues(Name, "collect", "confirmed").Inc()
	return &venue.RemovalResult{
		Successful: true,
		Signature:  sig.String(),
		TokenA:     "0",
		TokenB:     "0",
		FeesA:      venue.FormatAmount(feesA),
		FeesB:      venue.FormatAmount(feesB),
	}, nil
}

// refreshPositions reloads liquidity and fee accruals from the position
// accounts on chain.
func (a *Adapter) refreshPositions(ctx context.Context) error {
	a.mu.RLock()
	states := make([]*positionState, 0, len(a.positions))
	pdas := make([]solana.PublicKey, 0, len(a.positions))
	for _, st := range a.positions {
		states = append(states, st)
		pdas = append(pdas, st.pda)
	}
	a.mu.RUnlock()
	if len(pdas) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.ReadTimeout)
	defer cancel()
	res, err := a.client.GetMultipleAccounts(ctx, pdas...)
	if err != nil {
		return err
	}
	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, st := range states {
		if i >= len(res.Value) || res.Value[i] == nil {
			continue
		}
		var acc PositionAccount
		if err := decodeTagged(res.Value[i].Data.GetBinary(), anchorAccountTag("Position"), &acc); err != nil {
			return fmt.Errorf("position %s: %w", st.pos.ID, err)
		}
		st.pos.Liquidity = clampUint64(acc.Liquidity.big())
		st.pos.FeeOwedA = acc.FeeOwedA
		st.pos.FeeOwedB = acc.FeeOwedB
		st.pos.TickRange = &venue.TickRange{Lower: acc.TickLowerIndex, Upper: acc.TickUpperIndex}
		st.pos.UpdatedAt = now
	}
	return nil
}

func (a *Adapter) buildOpenAndIncrease(ps *poolState, pda, positionMint solana.PublicKey, tickRange *venue.TickRange, liquidity, maxA, maxB uint64) ([]solana.Instruction, error) {
	a.mu.RLock()
	acc := ps.acc
	addr := ps.address
	a.mu.RUnlock()
	ownerKey := a.owner.PublicKey()

	positionTokenAccount, _, err := solana.FindAssociatedTokenAddress(ownerKey, positionMint)
	if err != nil {
		return nil, err
	}
	ataA, _, err := solana.FindAssociatedTokenAddress(ownerKey, acc.TokenMintA)
	if err != nil {
		return nil, err
	}
	ataB, _, err := solana.FindAssociatedTokenAddress(ownerKey, acc.TokenMintB)
	if err != nil {
		return nil, err
	}
	lowerArray, err := tickArrayPDA(a.cfg.ProgramID, addr, tickArrayStart(tickRange.Lower, acc.TickSpacing))
	if err != nil {
		return nil, err
	}
	upperArray, err := tickArrayPDA(a.cfg.ProgramID, addr, tickArrayStart(tickRange.Upper, acc.TickSpacing))
	if err != nil {
		return nil, err
	}

	open := solana.NewInstruction(a.cfg.ProgramID, solana.AccountMetaSlice{
		solana.NewAccountMeta(ownerKey, true, true),
		solana.NewAccountMeta(pda, true, false),
		solana.NewAccountMeta(positionMint, true, true),
		solana.NewAccountMeta(positionTokenAccount, true, false),
		solana.NewAccountMeta(addr, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}, encodeArgs("open_position", openPositionArgs{TickLowerIndex: tickRange.Lower, TickUpperIndex: tickRange.Upper}))

	increase := solana.NewInstruction(a.cfg.ProgramID, solana.AccountMetaSlice{
		solana.NewAccountMeta(addr, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(ownerKey, false, true),
		solana.NewAccountMeta(pda, true, false),
		solana.NewAccountMeta(positionTokenAccount, false, false),
		solana.NewAccountMeta(ataA, true, false),
		solana.NewAccountMeta(ataB, true, false),
		solana.NewAccountMeta(acc.TokenVaultA, true, false),
		solana.NewAccountMeta(acc.TokenVaultB, true, false),
		solana.NewAccountMeta(lowerArray, true, false),
		solana.NewAccountMeta(upperArray, true, false),
	}, encodeArgs("increase_liquidity", increaseLiquidityArgs{
		LiquidityAmount: U128{Lo: liquidity},
		TokenMaxA:       maxA,
		TokenMaxB:       maxB,
	}))

	return []solana.Instruction{open, increase}, nil
}

func (a *Adapter) buildDecreaseAndCollect(ps *poolState, state *positionState, liquidity, minA, minB uint64) ([]solana.Instruction, error) {
	a.mu.RLock()
	acc := ps.acc
	addr := ps.address
	pos := state.pos
	a.mu.RUnlock()
	ownerKey := a.owner.PublicKey()

	positionTokenAccount, _, err := solana.FindAssociatedTokenAddress(ownerKey, state.mint)
	if err != nil {
		return nil, err
	}
	ataA, _, err := solana.FindAssociatedTokenAddress(ownerKey, acc.TokenMintA)
	if err != nil {
		return nil, err
	}
	ataB, _, err := solana.FindAssociatedTokenAddress(ownerKey, acc.TokenMintB)
	if err != nil {
		return nil, err
	}
	lowerArray, err := tickArrayPDA(a.cfg.ProgramID, addr, tickArrayStart(pos.TickRange.Lower, acc.TickSpacing))
	if err != nil {
		return nil, err
	}
	upperArray, err := tickArrayPDA(a.cfg.ProgramID, addr, tickArrayStart(pos.TickRange.Upper, acc.TickSpacing))
	if err != nil {
		return nil, err
	}

	decrease := solana.NewInstruction(a.cfg.ProgramID, solana.AccountMetaSlice{
		solana.NewAccountMeta(addr, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(ownerKey, false, true),
		solana.NewAccountMeta(state.pda, true, false),
		solana.NewAccountMeta(positionTokenAccount, false, false),
		solana.NewAccountMeta(ataA, true, false),
		solana.NewAccountMeta(ataB, true, false),
		solana.NewAccountMeta(acc.TokenVaultA, true, false),
		solana.NewAccountMeta(acc.TokenVaultB, true, false),
		solana.NewAccountMeta(lowerArray, true, false),
		solana.NewAccountMeta(upperArray, true, false),
	}, encodeArgs("decrease_liquidity", decreaseLiquidityArgs{
		LiquidityAmount: U128{Lo: liquidity},
		TokenMinA:       minA,
		TokenMinB:       minB,
	}))

	collect, err := a.buildCollectFees(ps, state)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{decrease, collect}, nil
}

func (a *Adapter) buildCollectFees(ps *poolState, state *positionState) (solana.Instruction, error) {
	a.mu.RLock()
	acc := ps.acc
	addr := ps.address
	a.mu.RUnlock()
	ownerKey := a.owner.PublicKey()

	positionTokenAccount, _, err := solana.FindAssociatedTokenAddress(ownerKey, state.mint)
	if err != nil {
		return nil, err
	}
	ataA, _, err := solana.FindAssociatedTokenAddress(ownerKey, acc.TokenMintA)
	if err != nil {
		return nil, err
	}
	ataB, _, err := solana.FindAssociatedTokenAddress(ownerKey, acc.TokenMintB)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(a.cfg.ProgramID, solana.AccountMetaSlice{
		solana.NewAccountMeta(addr, true, false),
		solana.NewAccountMeta(ownerKey, false, true),
		solana.NewAccountMeta(state.pda, true, false),
		solana.NewAccountMeta(positionTokenAccount, false, false),
		solana.NewAccountMeta(ataA, true, false),
		solana.NewAccountMeta(acc.TokenVaultA, true, false),
		solana.NewAccountMeta(ataB, true, false),
		solana.NewAccountMeta(acc.TokenVaultB, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}, encodeArgs("collect_fees", struct{}{})), nil
}

// GetBalances snapshots the wallet's holdings. Read-only; errors propagate.
func (a *Adapter) GetBalances(ctx context.Context) ([]venue.Balance, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ReadTimeout)
	defer cancel()
	balances, err := venue.FetchBalances(ctx, a.client, a.owner.PublicKey(), a.cfg.Commitment, a.cfg.Tokens)
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(Name, "balances").Inc()
		return nil, venue.WrapReadError(Name, "get balances", a.cfg.ReadTimeout, err)
	}
	return balances, nil
}

// GetPositions refreshes fee accruals from chain, then returns copies.
func (a *Adapter) GetPositions(ctx context.Context) ([]venue.Position, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	if err := a.refreshPositions(ctx); err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(Name, "positions").Inc()
		return nil, venue.WrapReadError(Name, "refresh positions", a.cfg.ReadTimeout, err)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]venue.Position, 0, len(a.positions))
	for _, st := range a.positions {
		out = append(out, st.pos)
	}
	return out, nil
}

// GetAvailablePools reports the cached pool views. Stats stays nil: volume
// and yield are not derivable from pool accounts alone.
func (a *Adapter) GetAvailablePools(ctx context.Context) ([]venue.PoolInfo, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]venue.PoolInfo, 0, len(a.pools))
	for _, ps := range a.pools {
		out = append(out, venue.PoolInfo{
			Venue:       Name,
			Address:     ps.address.String(),
			MintA:       ps.acc.TokenMintA.String(),
			MintB:       ps.acc.TokenMintB.String(),
			TickSpacing: int32(ps.acc.TickSpacing),
			Liquidity:   ps.acc.Liquidity.big().String(),
			FeeRateBps:  float64(ps.acc.FeeRate) / 100,
			RefreshedAt: ps.refreshedAt,
		})
	}
	return out, nil
}

// RefreshPools re-reads every pool account; used by the router's poller.
func (a *Adapter) RefreshPools(ctx context.Context) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ReadTimeout)
	defer cancel()
	a.mu.RLock()
	pools := make([]*poolState, 0, len(a.pools))
	for _, ps := range a.pools {
		pools = append(pools, ps)
	}
	a.mu.RUnlock()
	for _, ps := range pools {
		if err := a.refreshPool(ctx, ps); err != nil {
			metrics.RPCErrorsTotal.WithLabelValues(Name, "refresh").Inc()
			return venue.WrapReadError(Name, "refresh pools", a.cfg.ReadTimeout, err)
		}
	}
	return nil
}
