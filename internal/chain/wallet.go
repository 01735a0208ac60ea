package chain

import (
	"errors"
	"os"

	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

// walletEnvKey holds the base58 signing key; .env is loaded best-effort so
// local runs don't need to export it manually.
const walletEnvKey = "SOLANA_PRIVATE_KEY_BASE58"

// LoadPrivateKey resolves the signing key, preferring the environment over
// the config-provided value so deployments can keep keys out of YAML.
func LoadPrivateKey(configured string) (solana.PrivateKey, error) {
	_ = godotenv.Load()
	if b58 := os.Getenv(walletEnvKey); b58 != "" {
		return solana.PrivateKeyFromBase58(b58)
	}
	if configured != "" {
		return solana.PrivateKeyFromBase58(configured)
	}
	return nil, errors.New(walletEnvKey + " not set and no key in config")
}
