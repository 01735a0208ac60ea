package integration

import (
	"bytes"
	"context"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rs/zerolog"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/app"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/chain/chaintest"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/config"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/ledger"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/risk"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/router"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue/orca"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue/raydium"
)

// world is one fake chain carrying a raydium pool and an orca whirlpool over
// the same two mints, so both venues can quote the same pair.
type world struct {
	fake  *chaintest.Fake
	cfg   *config.Config
	mintA solana.PublicKey
	mintB solana.PublicKey
}

func encodeToken(t *testing.T, v any) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := bin.NewBinEncoder(buf).Encode(v); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

// newWorld seeds both pools. The raydium pool quotes slightly better than
// the whirlpool unless raydiumCoin/raydiumPc make it unusable.
func newWorld(t *testing.T, raydiumCoin, raydiumPc uint64) *world {
	t.Helper()
	fake := chaintest.New()
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()

	rayPool := solana.NewWallet().PublicKey()
	rayAcc := raydium.AmmAccount{
		Status:              1,
		Nonce:               1,
		CoinMint:            mintA,
		PcMint:              mintB,
		CoinVault:           solana.NewWallet().PublicKey(),
		PcVault:             solana.NewWallet().PublicKey(),
		LpMint:              solana.NewWallet().PublicKey(),
		OpenOrders:          solana.NewWallet().PublicKey(),
		TradeFeeNumerator:   3,
		TradeFeeDenominator: 1000,
	}
	fake.SetAccount(rayPool, raydium.EncodeAmmAccount(rayAcc))
	fake.SetAccount(rayAcc.CoinVault, encodeToken(t, token.Account{Mint: mintA, Amount: raydiumCoin}))
	fake.SetAccount(rayAcc.PcVault, encodeToken(t, token.Account{Mint: mintB, Amount: raydiumPc}))
	fake.SetAccount(rayAcc.LpMint, encodeToken(t, token.Mint{Supply: 500_000_000_000, Decimals: 9, IsInitialized: true}))

	orcaPool := solana.NewWallet().PublicKey()
	fake.SetAccount(orcaPool, orca.EncodeWhirlpoolAccount(orca.WhirlpoolAccount{
		WhirlpoolsConfig: solana.NewWallet().PublicKey(),
		TickSpacing:      64,
		FeeRate:          3000,
		Liquidity:        orca.U128{Lo: 99_700_000 * 9999},
		SqrtPrice:        orca.U128{Hi: 1},
		TokenMintA:       mintA,
		TokenVaultA:      solana.NewWallet().PublicKey(),
		TokenMintB:       mintB,
		TokenVaultB:      solana.NewWallet().PublicKey(),
	}))

	cfg := &config.Config{
		Chain: config.Chain{Commitment: "confirmed", ReadTimeoutMs: 2000},
		Venues: config.Venues{
			Orca: config.VenueConfig{
				Enabled:          true,
				ProgramID:        solana.NewWallet().PublicKey().String(),
				Pools:            []string{orcaPool.String()},
				ConfirmTimeoutMs: 2000,
			},
			Raydium: config.VenueConfig{
				Enabled:          true,
				ProgramID:        solana.NewWallet().PublicKey().String(),
				Pools:            []string{rayPool.String()},
				ConfirmTimeoutMs: 2000,
			},
		},
		Tokens: map[string]config.Token{
			mintA.String(): {Symbol: "SOL", Decimals: 9},
			mintB.String(): {Symbol: "USDC", Decimals: 6},
		},
	}
	return &world{fake: fake, cfg: cfg, mintA: mintA, mintB: mintB}
}

func buildRouter(t *testing.T, w *world, opts ...router.Option) *router.Router {
	t.Helper()
	adapters, err := app.BuildAdapters(zerolog.Nop(), w.fake, solana.NewWallet().PrivateKey, w.cfg)
	if err != nil {
		t.Fatalf("BuildAdapters returned error: %v", err)
	}
	if len(adapters) != 2 {
		t.Fatalf("expected both venues enabled, got %d adapters", len(adapters))
	}
	rt := router.New(zerolog.Nop(), adapters, opts...)
	if err := rt.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	return rt
}

func TestRouteFlowQuotesAndExecutes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Deep constant-product pool priced so its fill beats the whirlpool.
	w := newWorld(t, 1_000_000_000_000, 1_000_099_700_000)
	rt := buildRouter(t, w)

	quote, err := rt.GetSwapQuote(ctx, venue.QuoteRequest{
		InputMint:  w.mintA.String(),
		OutputMint: w.mintB.String(),
		Amount:     100_000_000,
	})
	if err != nil {
		t.Fatalf("GetSwapQuote returned error: %v", err)
	}
	if quote.Venue != raydium.Name {
		t.Fatalf("expected the deeper venue to win, got %s", quote.Venue)
	}
	if quote.OutAmount != "99700000" {
		t.Fatalf("unexpected output: %s", quote.OutAmount)
	}

	trade, err := rt.ExecuteSwap(ctx, venue.SwapRequest{
		InputMint:  w.mintA.String(),
		OutputMint: w.mintB.String(),
		Amount:     100_000_000,
	})
	if err != nil {
		t.Fatalf("ExecuteSwap returned error: %v", err)
	}
	if trade.Outcome != venue.OutcomeConfirmed || !trade.Successful {
		t.Fatalf("expected confirmed trade, got %+v", trade)
	}
	if trade.Venue != raydium.Name {
		t.Fatalf("trade executed on wrong venue: %s", trade.Venue)
	}
	if trade.Signature == "" {
		t.Fatalf("confirmed trade missing signature")
	}
	if w.fake.Sends() != 1 {
		t.Fatalf("expected one submission, got %d", w.fake.Sends())
	}

	led := ledger.NewLedger(16)
	led.Record(*trade)
	if snap := led.Snapshot(); len(snap) != 1 || snap[0].Venue != raydium.Name {
		t.Fatalf("ledger snapshot mismatch: %+v", snap)
	}
}

func TestRouteFlowFallsBackWhenVenueUnusable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Thin constant-product reserves push its impact over the venue maximum,
	// leaving only the whirlpool quote standing.
	w := newWorld(t, 731_100_000, 731_100_000)
	rt := buildRouter(t, w)

	quote, err := rt.GetSwapQuote(ctx, venue.QuoteRequest{
		InputMint:  w.mintA.String(),
		OutputMint: w.mintB.String(),
		Amount:     100_000_000,
	})
	if err != nil {
		t.Fatalf("GetSwapQuote returned error: %v", err)
	}
	if quote.Venue != orca.Name {
		t.Fatalf("expected fallback to the whirlpool, got %s", quote.Venue)
	}
	if quote.OutAmount != "99690030" {
		t.Fatalf("unexpected output: %s", quote.OutAmount)
	}
}

func TestRouteFlowEnforcesSwapLimit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w := newWorld(t, 1_000_000_000_000, 1_000_099_700_000)
	rt := buildRouter(t, w, router.WithLimits(risk.Limits{MaxAmountPerSwap: 50_000_000}))

	_, err := rt.ExecuteSwap(ctx, venue.SwapRequest{
		InputMint:  w.mintA.String(),
		OutputMint: w.mintB.String(),
		Amount:     100_000_000,
	})
	if err == nil {
		t.Fatalf("expected the swap limit to reject the request")
	}
	if w.fake.Sends() != 0 {
		t.Fatalf("rejected swap must not submit, got %d sends", w.fake.Sends())
	}
}
