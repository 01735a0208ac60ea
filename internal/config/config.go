// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Chain defines RPC connectivity shared by every venue adapter.
type Chain struct {
	RpcURL         string  `yaml:"rpc_url"`
	Commitment     string  `yaml:"commitment"` // processed|confirmed|finalized
	ReadTimeoutMs  int     `yaml:"read_timeout_ms"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	Burst          int     `yaml:"burst"`
}

// Routing tunes how the router picks among venue quotes.
type Routing struct {
	QuoteTTLMs       int      `yaml:"quote_ttl_ms"`
	PriceEpsilon     float64  `yaml:"price_epsilon"`
	VenuePriority    []string `yaml:"venue_priority"`
	PollIntervalMs   int      `yaml:"poll_interval_ms"`
	MaxAmountPerSwap uint64   `yaml:"max_amount_per_swap"`
	TradeLogPath     string   `yaml:"trade_log_path"`
}

// VenueConfig carries per-venue adapter settings.
type VenueConfig struct {
	Enabled           bool     `yaml:"enabled"`
	ProgramID         string   `yaml:"program_id"`
	Pools             []string `yaml:"pools"`
	SlippageBps       int      `yaml:"slippage_bps"`
	MaxPriceImpactBps int      `yaml:"max_price_impact_bps"`
	ConfirmTimeoutMs  int      `yaml:"confirm_timeout_ms"`
}

// Venues groups the supported liquidity venues.
type Venues struct {
	Orca    VenueConfig `yaml:"orca"`
	Raydium VenueConfig `yaml:"raydium"`
}

// Token describes display metadata for a known mint.
type Token struct {
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
}

// Wallet stores env-backed signing material metadata.
type Wallet struct {
	PrivateKeyBase58 string `yaml:"private_key_base58"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App              `yaml:"app"`
	Chain   Chain            `yaml:"chain"`
	Routing Routing          `yaml:"routing"`
	Venues  Venues           `yaml:"venues"`
	Tokens  map[string]Token `yaml:"tokens"` // keyed by mint address
	Wallet  Wallet           `yaml:"wallet"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
