// Command pools lists the configured pools, open positions and wallet
// balances for every enabled venue.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/app"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/chain"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/config"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/risk"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/router"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/util"
)

func main() {
	var (
		configPath    = flag.String("config", "config.yaml", "path to YAML configuration")
		showPositions = flag.Bool("positions", false, "include open liquidity positions")
		showBalances  = flag.Bool("balances", false, "include wallet token balances")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := util.NewLogger(cfg.App.LogLevel)

	owner, err := chain.LoadPrivateKey(cfg.Wallet.PrivateKeyBase58)
	if err != nil {
		log.Fatalf("wallet: %v", err)
	}
	client := chain.NewGuarded(rpc.New(app.GetEnv("SOLANA_RPC_URL", cfg.Chain.RpcURL)), cfg.Chain.RequestsPerSec, cfg.Chain.Burst)
	adapters, err := app.BuildAdapters(logger, client, owner, cfg)
	if err != nil {
		log.Fatalf("adapters: %v", err)
	}
	if len(adapters) == 0 {
		log.Fatalf("no venues enabled in config")
	}

	rt := router.New(logger, adapters, router.WithLimits(risk.Limits{MaxAmountPerSwap: cfg.Routing.MaxAmountPerSwap}))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := rt.Initialize(ctx); err != nil {
		log.Fatalf("initialize: %v", err)
	}

	pools, err := rt.Pools(ctx)
	if err != nil {
		log.Fatalf("pools: %v", err)
	}
	for _, p := range pools {
		ev := logger.Info().
			Str("venue", p.Venue).
			Str("pool", p.Address).
			Str("mint_a", p.MintA).
			Str("mint_b", p.MintB).
			Str("liquidity", p.Liquidity).
			Float64("fee_bps", p.FeeRateBps)
		if stats, err := p.Analytics(); err == nil {
			ev = ev.Float64("tvl_usd", stats.TVLUSD).Float64("apy_pct", stats.APYPct)
		}
		ev.Msg("pool")
	}

	if *showPositions {
		positions, err := rt.Positions(ctx)
		if err != nil {
			log.Fatalf("positions: %v", err)
		}
		for _, pos := range positions {
			ev := logger.Info().
				Str("venue", pos.Venue).
				Str("id", pos.ID).
				Str("pool", pos.Pool).
				Uint64("liquidity", pos.Liquidity).
				Uint64("fee_owed_a", pos.FeeOwedA).
				Uint64("fee_owed_b", pos.FeeOwedB)
			if pos.TickRange != nil {
				ev = ev.Int32("tick_lower", pos.TickRange.Lower).Int32("tick_upper", pos.TickRange.Upper)
			}
			ev.Msg("position")
		}
	}

	if *showBalances {
		balances, err := rt.Balances(ctx)
		if err != nil {
			log.Fatalf("balances: %v", err)
		}
		for _, b := range balances {
			logger.Info().
				Str("mint", b.Mint).
				Str("symbol", b.Symbol).
				Str("amount", b.Amount).
				Uint8("decimals", b.Decimals).
				Msg("balance")
		}
	}
}
