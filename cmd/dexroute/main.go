// Command dexroute quotes a swap across every configured venue and
// optionally executes it on the winner.
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
	"github.com/InsideOutbtc/Nockchain-sub002/internal/ledger"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/metrics"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/risk"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/router"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/util"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to YAML configuration")
		inputMint  = flag.String("in", "", "input token mint")
		outputMint = flag.String("out", "", "output token mint")
		amount     = flag.Uint64("amount", 0, "input amount in smallest units")
		minOut     = flag.Uint64("min", 0, "minimum received in smallest units (0 = derive from slippage)")
		execute    = flag.Bool("execute", false, "execute the swap on the winning venue")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := util.NewLogger(cfg.App.LogLevel)
	if cfg.App.MetricsAddr != "" {
		metrics.Serve(cfg.App.MetricsAddr)
	}

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

	rt := router.New(logger, adapters,
		router.WithQuoteTTL(time.Duration(cfg.Routing.QuoteTTLMs)*time.Millisecond),
		router.WithPriceEpsilon(cfg.Routing.PriceEpsilon),
		router.WithPriority(cfg.Routing.VenuePriority),
		router.WithLimits(risk.Limits{MaxAmountPerSwap: cfg.Routing.MaxAmountPerSwap}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := rt.Initialize(ctx); err != nil {
		log.Fatalf("initialize: %v", err)
	}
	router.NewPoller(logger, adapters, time.Duration(cfg.Routing.PollIntervalMs)*time.Millisecond).Start(ctx)

	quote, err := rt.GetSwapQuote(ctx, venue.QuoteRequest{
		InputMint:  *inputMint,
		OutputMint: *outputMint,
		Amount:     *amount,
	})
	if err != nil {
		log.Fatalf("quote: %v", err)
	}
	logger.Info().
		Str("venue", quote.Venue).
		Str("in", quote.InAmount).
		Str("out", quote.OutAmount).
		Float64("impact_pct", quote.PriceImpactPct).
		Str("min_received", quote.MinReceived).
		Msg("best quote")

	if !*execute {
		return
	}

	trade, err := rt.ExecuteSwap(ctx, venue.SwapRequest{
		InputMint:       *inputMint,
		OutputMint:      *outputMint,
		Amount:          *amount,
		MinimumReceived: *minOut,
	})
	if err != nil {
		log.Fatalf("swap: %v", err)
	}
	if cfg.Routing.TradeLogPath != "" {
		if recorder, rerr := ledger.NewJSONLRecorder(cfg.Routing.TradeLogPath); rerr == nil {
			recorder.Record(*trade)
			_ = recorder.Close()
		}
	}
	logger.Info().
		Str("venue", trade.Venue).
		Str("sig", trade.Signature).
		Str("out", trade.OutputAmount).
		Bool("successful", trade.Successful).
		Str("outcome", string(trade.Outcome)).
		Str("error", trade.Error).
		Msg("swap result")
}
