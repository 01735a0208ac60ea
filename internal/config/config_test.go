package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "dexroute-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.MetricsAddr != ":9109" {
		t.Fatalf("unexpected App.MetricsAddr: %s", cfg.App.MetricsAddr)
	}
	if cfg.Chain.RpcURL != "https://api.mainnet-beta.solana.com" {
		t.Fatalf("unexpected Chain.RpcURL: %s", cfg.Chain.RpcURL)
	}
	if cfg.Chain.Commitment != "confirmed" {
		t.Fatalf("unexpected Chain.Commitment: %s", cfg.Chain.Commitment)
	}
	if cfg.Chain.RequestsPerSec != 8 || cfg.Chain.Burst != 16 {
		t.Fatalf("unexpected rate limit settings: %.1f / %d", cfg.Chain.RequestsPerSec, cfg.Chain.Burst)
	}
	if cfg.Routing.QuoteTTLMs != 2000 {
		t.Fatalf("unexpected quote ttl: %d", cfg.Routing.QuoteTTLMs)
	}
	if len(cfg.Routing.VenuePriority) != 2 || cfg.Routing.VenuePriority[0] != "orca" {
		t.Fatalf("unexpected venue priority: %+v", cfg.Routing.VenuePriority)
	}
	if cfg.Routing.MaxAmountPerSwap != 5_000_000_000 {
		t.Fatalf("unexpected max amount: %d", cfg.Routing.MaxAmountPerSwap)
	}
	if !cfg.Venues.Orca.Enabled {
		t.Fatalf("expected orca enabled")
	}
	if cfg.Venues.Raydium.Enabled {
		t.Fatalf("expected raydium disabled")
	}
	if cfg.Venues.Orca.ProgramID != "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc" {
		t.Fatalf("unexpected orca program id: %s", cfg.Venues.Orca.ProgramID)
	}
	if len(cfg.Venues.Raydium.Pools) != 1 {
		t.Fatalf("unexpected raydium pools: %+v", cfg.Venues.Raydium.Pools)
	}
	if cfg.Venues.Orca.SlippageBps != 100 || cfg.Venues.Raydium.SlippageBps != 50 {
		t.Fatalf("unexpected slippage: %d / %d", cfg.Venues.Orca.SlippageBps, cfg.Venues.Raydium.SlippageBps)
	}
	usdc, ok := cfg.Tokens["EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"]
	if !ok || usdc.Symbol != "USDC" || usdc.Decimals != 6 {
		t.Fatalf("unexpected USDC token meta: %+v", usdc)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{}
	cfg.App.Name = "roundtrip"
	cfg.Routing.VenuePriority = []string{"raydium"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.App.Name != "roundtrip" {
		t.Fatalf("unexpected name after round trip: %s", loaded.App.Name)
	}
	if len(loaded.Routing.VenuePriority) != 1 || loaded.Routing.VenuePriority[0] != "raydium" {
		t.Fatalf("unexpected priority after round trip: %+v", loaded.Routing.VenuePriority)
	}
}

func TestSaveNil(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "config.yaml"), nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
