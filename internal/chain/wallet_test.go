package chain

import (
	"testing"

	solana "github.com/gagliardetto/solana-go"
)

func TestLoadPrivateKeyPrefersEnvironment(t *testing.T) {
	fromEnv := solana.NewWallet().PrivateKey
	fromConfig := solana.NewWallet().PrivateKey
	t.Setenv(walletEnvKey, fromEnv.String())

	key, err := LoadPrivateKey(fromConfig.String())
	if err != nil {
		t.Fatalf("LoadPrivateKey returned error: %v", err)
	}
	if !key.PublicKey().Equals(fromEnv.PublicKey()) {
		t.Fatalf("expected env key %s, got %s", fromEnv.PublicKey(), key.PublicKey())
	}
}

func TestLoadPrivateKeyFallsBackToConfig(t *testing.T) {
	t.Setenv(walletEnvKey, "")
	fromConfig := solana.NewWallet().PrivateKey

	key, err := LoadPrivateKey(fromConfig.String())
	if err != nil {
		t.Fatalf("LoadPrivateKey returned error: %v", err)
	}
	if !key.PublicKey().Equals(fromConfig.PublicKey()) {
		t.Fatalf("expected config key %s, got %s", fromConfig.PublicKey(), key.PublicKey())
	}
}

func TestLoadPrivateKeyMissingEverywhere(t *testing.T) {
	t.Setenv(walletEnvKey, "")
	if _, err := LoadPrivateKey(""); err == nil {
		t.Fatalf("expected error when no key is configured")
	}
}
