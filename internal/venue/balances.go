package venue

import (
	"context"
	"fmt"
	"math"
	"sort"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/chain"
)

// TokenMeta maps a mint onto display metadata. Adapters receive the operator
// configured registry; unknown mints still appear in balances with raw
// amounts.
type TokenMeta struct {
	Symbol   string
	Decimals uint8
}

// FetchBalances snapshots the wallet's native SOL plus every SPL token
// account. Shared by both adapters since the query is venue-independent.
func FetchBalances(ctx context.Context, client chain.Client, owner solana.PublicKey, commitment rpc.CommitmentType, meta map[string]TokenMeta) ([]Balance, error) {
	native, err := client.GetBalance(ctx, owner, commitment)
	if err != nil {
		return nil, fmt.Errorf("get native balance: %w", err)
	}
	out := []Balance{{
		Mint:     solana.SolMint.String(),
		Symbol:   "SOL",
		Amount:   FormatAmount(native.Value),
		UIAmount: float64(native.Value) / 1e9,
		Decimals: 9,
	}}

	program := solana.TokenProgramID
	accounts, err := client.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &program},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64, Commitment: commitment},
	)
	if err != nil {
		return nil, fmt.Errorf("get token accounts: %w", err)
	}
	for _, acc := range accounts.Value {
		if acc == nil {
			continue
		}
		var tok token.Account
		if err := bin.NewBinDecoder(acc.Account.Data.GetBinary()).Decode(&tok); err != nil {
			return nil, fmt.Errorf("decode token account %s: %w", acc.Pubkey, err)
		}
		bal := Balance{
			Mint:     tok.Mint.String(),
			Amount:   FormatAmount(tok.Amount),
			UIAmount: float64(tok.Amount),
		}
		if m, ok := meta[bal.Mint]; ok {
			bal.Symbol = m.Symbol
			bal.Decimals = m.Decimals
			bal.UIAmount = float64(tok.Amount) / math.Pow10(int(m.Decimals))
		}
		out = append(out, bal)
	}
	sort.Slice(out[1:], func(i, j int) bool { return out[i+1].Mint < out[j+1].Mint })
	return out, nil
}
