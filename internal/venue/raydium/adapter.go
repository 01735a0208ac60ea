// Package raydium adapts a constant-product AMM venue to the common venue
// contract. Pools are plain x*y=k with the trade fee taken on the input side;
// liquidity positions are pool-wide shares, so tick ranges are ignored and
// swap fees compound into the reserves rather than accruing separately.
package raydium

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/chain"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/metrics"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue"
)

// Name identifies this venue in quotes, trades, and router diagnostics.
const Name = "raydium"

const (
	defaultSlippageBps    = 50
	defaultMaxImpactBps   = 500
	defaultReadTimeout    = 5 * time.Second
	defaultConfirmTimeout = 30 * time.Second
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

// Adapter implements venue.Adapter against one AMM program. All cached state
// (pools, positions) is owned by the instance; multiple adapters never share
// maps.
type Adapter struct {
	log    zerolog.Logger
	client chain.Client
	owner  solana.PrivateKey
	cfg    Config

	mu        sync.RWMutex
	ready     bool
	pools     map[string]*poolState
	positions map[string]*venue.Position
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
		positions: make(map[string]*venue.Position),
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

// Initialize enumerates the configured pools and loads their reserves. The
// adapter stays usable for the process lifetime once this succeeds.
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
	for i, addr := range a.cfg.Pools {
		if i >= len(res.Value) || res.Value[i] == nil {
			return fmt.Errorf("%s: pool account %s not found", Name, addr)
		}
		acc, err := decodeAmmAccount(res.Value[i].Data.GetBinary())
		if err != nil {
			return fmt.Errorf("%s: pool %s: %w", Name, addr, err)
		}
		pools[addr.String()] = &poolState{address: addr, acc: *acc}
	}
	for _, ps := range pools {
		if err := a.refreshReserves(ctx, ps); err != nil {
			return venue.WrapReadError(Name, "load reserves", a.cfg.ReadTimeout, err)
		}
	}

	a.mu.Lock()
	a.pools = pools
	a.ready = true
	a.mu.Unlock()
	a.log.Info().Int("pools", len(pools)).Msg("adapter initialized")
	return nil
}

// refreshReserves reads both vault balances and the LP supply in one batch.
func (a *Adapter) refreshReserves(ctx context.Context, ps *poolState) error {
	res, err := a.client.GetMultipleAccounts(ctx, ps.acc.CoinVault, ps.acc.PcVault, ps.acc.LpMint)
	if err != nil {
		return err
	}
	if len(res.Value) < 3 || res.Value[0] == nil || res.Value[1] == nil || res.Value[2] == nil {
		return fmt.Errorf("pool %s: vault or lp mint account missing", ps.address)
	}
	coin, err := tokenAccountAmount(res.Value[0].Data.GetBinary())
	if err != nil {
		return fmt.Errorf("pool %s coin vault: %w", ps.address, err)
	}
	pc, err := tokenAccountAmount(res.Value[1].Data.GetBinary())
	if err != nil {
		return fmt.Errorf("pool %s pc vault: %w", ps.address, err)
	}
	supply, err := mintSupply(res.Value[2].Data.GetBinary())
	if err != nil {
		return fmt.Errorf("pool %s lp mint: %w", ps.address, err)
	}

	a.mu.Lock()
	ps.reserveCoin = coin
	ps.reservePc = pc
	ps.lpSupply = supply
	ps.refreshedAt = time.Now()
	a.mu.Unlock()
	return nil
}

func tokenAccountAmount(data []byte) (uint64, error) {
	var acc token.Account
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return 0, err
	}
	return acc.Amount, nil
}

func mintSupply(data []byte) (uint64, error) {
	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return 0, err
	}
	return mint.Supply, nil
}

// matchingPools returns pools trading the pair, in either orientation.
func (a *Adapter) matchingPools(inputMint, outputMint string) []*poolState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*poolState
	for _, ps := range a.pools {
		coin, pc := ps.acc.CoinMint.String(), ps.acc.PcMint.String()
		if (coin == inputMint && pc == outputMint) || (pc == inputMint && coin == outputMint) {
			out = append(out, ps)
		}
	}
	return out
}

// GetSwapQuote prices a swap against the freshest reserves. Read-only; a
// quote whose impact exceeds the configured maximum comes back with Valid set
// to false rather than an error.
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
		if err := a.refreshReserves(ctx, ps); err != nil {
			metrics.RPCErrorsTotal.WithLabelValues(Name, "quote").Inc()
			return nil, venue.WrapReadError(Name, "refresh reserves", a.cfg.ReadTimeout, err)
		}
		a.mu.RLock()
		reserveIn, reserveOut := ps.reserveCoin, ps.reservePc
		if ps.acc.PcMint.String() == req.InputMint {
			reserveIn, reserveOut = ps.reservePc, ps.reserveCoin
		}
		feeNum, feeDen := ps.acc.TradeFeeNumerator, ps.acc.TradeFeeDenominator
		addr := ps.address.String()
		a.mu.RUnlock()

		out, fee, impact := quoteConstantProduct(req.Amount, reserveIn, reserveOut, feeNum, feeDen)
		if out == 0 {
			continue
		}
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
	v := new(big.Int).SetUint64(amount)
	v.Mul(v, big.NewInt(int64(10_000-bps)))
	v.Div(v, big.NewInt(10_000))
	return v.Uint64()
}

// ExecuteSwap re-quotes, enforces validity and the caller's floor, then
// submits and awaits confirmation. On-chain failures come back inside the
// Trade; the error return is reserved for calls before Initialize.
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
			// Submitted but unconfirmed: the transaction may still land, so
			// this is an unknown outcome, never a failure.
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

// settledAmounts reads the realized output from the confirmed transaction's
// token balance deltas, falling back to the quoted amount when meta is not
// yet queryable.
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
	authority, err := ammAuthority(a.cfg.ProgramID)
	if err != nil {
		return nil, err
	}
	ownerKey := a.owner.PublicKey()
	inMint, err := solana.PublicKeyFromBase58(req.InputMint)
	if err != nil {
		return nil, fmt.Errorf("input mint: %w", err)
	}
	outMint, err := solana.PublicKeyFromBase58(req.OutputMint)
	if err != nil {
		return nil, fmt.Errorf("output mint: %w", err)
	}
	userSource, _, err := solana.FindAssociatedTokenAddress(ownerKey, inMint)
	if err != nil {
		return nil, err
	}
	userDest, _, err := solana.FindAssociatedTokenAddress(ownerKey, outMint)
	if err != nil {
		return nil, err
	}

	data := encodeInstructionData(swapInstructionData{Tag: instrSwapBaseIn, AmountIn: req.Amount, MinAmountOut: minOut})
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(ps.address, true, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(ps.acc.OpenOrders, true, false),
		solana.NewAccountMeta(ps.acc.CoinVault, true, false),
		solana.NewAccountMeta(ps.acc.PcVault, true, false),
		solana.NewAccountMeta(userSource, true, false),
		solana.NewAccountMeta(userDest, true, false),
		solana.NewAccountMeta(ownerKey, false, true),
	}
	return solana.NewInstruction(a.cfg.ProgramID, accounts, data), nil
}

// AddLiquidity deposits both sides into the pool; TickRange is ignored on
// this venue. Chain failures are reported inside the result.
func (a *Adapter) AddLiquidity(ctx context.Context, req venue.AddLiquidityRequest) (*venue.LiquidityResult, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	if req.TokenAAmount == 0 || req.TokenBAmount == 0 {
		return nil, fmt.Errorf("%s: both token amounts must be positive", Name)
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
	err := a.refreshReserves(readCtx, ps)
	cancel()
	if err != nil {
		return fail(fmt.Sprintf("refresh reserves: %v", err))
	}
	a.mu.RLock()
	lp := lpForDeposit(req.TokenAAmount, req.TokenBAmount, ps.reserveCoin, ps.reservePc, ps.lpSupply)
	a.mu.RUnlock()
	if lp == 0 {
		return fail("deposit too small to mint pool share")
	}

	ix, err := a.buildDepositInstruction(ps, req.TokenAAmount, req.TokenBAmount)
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

	now := time.Now()
	a.mu.Lock()
	pos := a.positions[req.Pool]
	if pos == nil {
		pos = &venue.Position{
			ID:        req.Pool,
			Venue:     Name,
			Pool:      req.Pool,
			MintA:     ps.acc.CoinMint.String(),
			MintB:     ps.acc.PcMint.String(),
			CreatedAt: now,
		}
		a.positions[req.Pool] = pos
	}
	pos.Liquidity += lp
	pos.UpdatedAt = now
	snapshot := *pos
	a.mu.Unlock()

	metrics.LiquidityOpsTotal.WithLabelValues(Name, "add", "confirmed").Inc()
	a.log.Info().Str("pool", req.Pool).Uint64("lp", lp).Str("sig", sig.String()).Msg("liquidity added")
	return &venue.LiquidityResult{Successful: true, Signature: sig.String(), Position: &snapshot}, nil
}

// RemoveLiquidity burns a percentage of a position's pool share. Accrued
// swap fees on this venue compound into the reserves, so they are returned
// inside the token amounts and the separate fee figures are genuinely zero.
func (a *Adapter) RemoveLiquidity(ctx context.Context, positionID string, percentage float64) (*venue.RemovalResult, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	if percentage <= 0 || percentage > 100 {
		return nil, fmt.Errorf("%s: percentage must be in (0, 100], got %.2f", Name, percentage)
	}
	a.mu.RLock()
	pos := a.positions[positionID]
	var ps *poolState
	if pos != nil {
		ps = a.pools[pos.Pool]
	}
	a.mu.RUnlock()
	if pos == nil || ps == nil {
		return nil, fmt.Errorf("%s: unknown position %s", Name, positionID)
	}

	fail := func(reason string) (*venue.RemovalResult, error) {
		metrics.LiquidityOpsTotal.WithLabelValues(Name, "remove", "failed").Inc()
		return &venue.RemovalResult{Successful: false, Error: reason, TokenA: "0", TokenB: "0", FeesA: "0", FeesB: "0"}, nil
	}

	readCtx, cancel := context.WithTimeout(ctx, a.cfg.ReadTimeout)
	err := a.refreshReserves(readCtx, ps)
	cancel()
	if err != nil {
		return fail(fmt.Sprintf("refresh reserves: %v", err))
	}

	a.mu.RLock()
	lpOut := uint64(float64(pos.Liquidity) * percentage / 100)
	amountA, amountB := shareOfReserves(lpOut, ps.lpSupply, ps.reserveCoin, ps.reservePc)
	a.mu.RUnlock()
	if lpOut == 0 {
		return fail("removal amount rounds to zero")
	}

	ix, err := a.buildWithdrawInstruction(ps, lpOut)
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
	pos.Liquidity -= lpOut
	pos.UpdatedAt = time.Now()
	if pos.Liquidity == 0 {
		delete(a.positions, positionID)
	}
	a.mu.Unlock()

	metrics.LiquidityOpsTotal.WithLabelValues(Name, "remove", "confirmed").Inc()
	return &venue.RemovalResult{
		Successful: true,
		Signature:  sig.String(),
		TokenA:     venue.FormatAmount(amountA),
		TokenB:     venue.FormatAmount(amountB),
		FeesA:      "0",
		FeesB:      "0",
	}, nil
}

// CollectFees is a no-op on this venue: fees compound into the reserves and
// are only realized through RemoveLiquidity. The zero amounts here are real
// zeros, not missing data.
func (a *Adapter) CollectFees(ctx context.Context, positionID string) (*venue.RemovalResult, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	_, ok := a.positions[positionID]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: unknown position %s", Name, positionID)
	}
	return &venue.RemovalResult{Successful: true, TokenA: "0", TokenB: "0", FeesA: "0", FeesB: "0"}, nil
}

func (a *Adapter) buildDepositInstruction(ps *poolState, amountCoin, amountPc uint64) (solana.Instruction, error) {
	authority, err := ammAuthority(a.cfg.ProgramID)
	if err != nil {
		return nil, err
	}
	ownerKey := a.owner.PublicKey()
	userCoin, _, err := solana.FindAssociatedTokenAddress(ownerKey, ps.acc.CoinMint)
	if err != nil {
		return nil, err
	}
	userPc, _, err := solana.FindAssociatedTokenAddress(ownerKey, ps.acc.PcMint)
	if err != nil {
		return nil, err
	}
	userLp, _, err := solana.FindAssociatedTokenAddress(ownerKey, ps.acc.LpMint)
	if err != nil {
		return nil, err
	}
	data := encodeInstructionData(depositInstructionData{Tag: instrDeposit, MaxCoinAmount: amountCoin, MaxPcAmount: amountPc})
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(ps.address, true, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(ps.acc.OpenOrders, false, false),
		solana.NewAccountMeta(ps.acc.LpMint, true, false),
		solana.NewAccountMeta(ps.acc.CoinVault, true, false),
		solana.NewAccountMeta(ps.acc.PcVault, true, false),
		solana.NewAccountMeta(userCoin, true, false),
		solana.NewAccountMeta(userPc, true, false),
		solana.NewAccountMeta(userLp, true, false),
		solana.NewAccountMeta(ownerKey, false, true),
	}
	return solana.NewInstruction(a.cfg.ProgramID, accounts, data), nil
}

func (a *Adapter) buildWithdrawInstruction(ps *poolState, lpAmount uint64) (solana.Instruction, error) {
	authority, err := ammAuthority(a.cfg.ProgramID)
	if err != nil {
		return nil, err
	}
	ownerKey := a.owner.PublicKey()
	userCoin, _, err := solana.FindAssociatedTokenAddress(ownerKey, ps.acc.CoinMint)
	if err != nil {
		return nil, err
	}
	userPc, _, err := solana.FindAssociatedTokenAddress(ownerKey, ps.acc.PcMint)
	if err != nil {
		return nil, err
	}
	userLp, _, err := solana.FindAssociatedTokenAddress(ownerKey, ps.acc.LpMint)
	if err != nil {
		return nil, err
	}
	data := encodeInstructionData(withdrawInstructionData{Tag: instrWithdraw, LpAmount: lpAmount})
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(ps.address, true, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(ps.acc.OpenOrders, true, false),
		solana.NewAccountMeta(ps.acc.LpMint, true, false),
		solana.NewAccountMeta(ps.acc.CoinVault, true, false),
		solana.NewAccountMeta(ps.acc.PcVault, true, false),
		solana.NewAccountMeta(userLp, true, false),
		solana.NewAccountMeta(userCoin, true, false),
		solana.NewAccountMeta(userPc, true, false),
		solana.NewAccountMeta(ownerKey, false, true),
	}
	return solana.NewInstruction(a.cfg.ProgramID, accounts, data), nil
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

// GetPositions returns copies of the tracked positions.
func (a *Adapter) GetPositions(ctx context.Context) ([]venue.Position, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]venue.Position, 0, len(a.positions))
	for _, pos := range a.positions {
		out = append(out, *pos)
	}
	return out, nil
}

// GetAvailablePools reports the cached pool views. Volume and yield figures
// are not observable from pool accounts alone, so Stats stays nil rather
// than reporting fabricated zeros.
func (a *Adapter) GetAvailablePools(ctx context.Context) ([]venue.PoolInfo, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]venue.PoolInfo, 0, len(a.pools))
	for _, ps := range a.pools {
		invariant := new(big.Int).Mul(new(big.Int).SetUint64(ps.reserveCoin), new(big.Int).SetUint64(ps.reservePc))
		out = append(out, venue.PoolInfo{
			Venue:       Name,
			Address:     ps.address.String(),
			MintA:       ps.acc.CoinMint.String(),
			MintB:       ps.acc.PcMint.String(),
			Liquidity:   invariant.Sqrt(invariant).String(),
			FeeRateBps:  float64(ps.acc.TradeFeeNumerator) / float64(ps.acc.TradeFeeDenominator) * 10_000,
			RefreshedAt: ps.refreshedAt,
		})
	}
	return out, nil
}

// RefreshPools re-reads every pool's reserves; used by the router's poller.
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
		if err := a.refreshReserves(ctx, ps); err != nil {
			metrics.RPCErrorsTotal.WithLabelValues(Name, "refresh").Inc()
			return venue.WrapReadError(Name, "refresh pools", a.cfg.ReadTimeout, err)
		}
	}
	return nil
}
