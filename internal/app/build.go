// Package app wires configuration into running components shared by the
// command-line entry points.
package app

import (
	"fmt"
	"os"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/chain"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/config"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue/orca"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue/raydium"
)

// BuildAdapters constructs one adapter per enabled venue from configuration.
func BuildAdapters(logger zerolog.Logger, client chain.Client, owner solana.PrivateKey, cfg *config.Config) ([]venue.Adapter, error) {
	tokens := make(map[string]venue.TokenMeta, len(cfg.Tokens))
	for mint, t := range cfg.Tokens {
		tokens[mint] = venue.TokenMeta{Symbol: t.Symbol, Decimals: t.Decimals}
	}
	commitment := chain.ParseCommitment(GetEnv("SOLANA_COMMITMENT", cfg.Chain.Commitment))
	readTimeout := time.Duration(cfg.Chain.ReadTimeoutMs) * time.Millisecond

	var adapters []venue.Adapter
	if cfg.Venues.Orca.Enabled {
		programID, pools, err := venueKeys(cfg.Venues.Orca)
		if err != nil {
			return nil, fmt.Errorf("orca: %w", err)
		}
		adapters = append(adapters, orca.New(logger, client, owner, orca.Config{
			ProgramID:         programID,
			Pools:             pools,
			SlippageBps:       cfg.Venues.Orca.SlippageBps,
			MaxPriceImpactBps: cfg.Venues.Orca.MaxPriceImpactBps,
			ReadTimeout:       readTimeout,
			ConfirmTimeout:    time.Duration(cfg.Venues.Orca.ConfirmTimeoutMs) * time.Millisecond,
			Commitment:        commitment,
			Tokens:            tokens,
		}))
	}
	if cfg.Venues.Raydium.Enabled {
		programID, pools, err := venueKeys(cfg.Venues.Raydium)
		if err != nil {
			return nil, fmt.Errorf("raydium: %w", err)
		}
		adapters = append(adapters, raydium.New(logger, client, owner, raydium.Config{
			ProgramID:         programID,
			Pools:             pools,
			SlippageBps:       cfg.Venues.Raydium.SlippageBps,
			MaxPriceImpactBps: cfg.Venues.Raydium.MaxPriceImpactBps,
			ReadTimeout:       readTimeout,
			ConfirmTimeout:    time.Duration(cfg.Venues.Raydium.ConfirmTimeoutMs) * time.Millisecond,
			Commitment:        commitment,
			Tokens:            tokens,
		}))
	}
	return adapters, nil
}

func venueKeys(vc config.VenueConfig) (solana.PublicKey, []solana.PublicKey, error) {
	programID, err := solana.PublicKeyFromBase58(vc.ProgramID)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("program id: %w", err)
	}
	pools := make([]solana.PublicKey, 0, len(vc.Pools))
	for _, p := range vc.Pools {
		pk, err := solana.PublicKeyFromBase58(p)
		if err != nil {
			return solana.PublicKey{}, nil, fmt.Errorf("pool %s: %w", p, err)
		}
		pools = append(pools, pk)
	}
	return programID, pools, nil
}

// GetEnv returns the environment value when set, the default otherwise.
func GetEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
