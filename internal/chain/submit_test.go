package chain

import (
	"context"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/chain/chaintest"
)

func TestSubmitInstructionsSignsAndSends(t *testing.T) {
	fake := chaintest.New()
	owner := solana.NewWallet().PrivateKey
	extra := solana.NewWallet().PrivateKey

	memo := solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(owner.PublicKey(), false, true),
			solana.NewAccountMeta(extra.PublicKey(), false, true),
		},
		[]byte("hello"),
	)
	sig, err := SubmitInstructions(context.Background(), fake, owner, rpc.CommitmentConfirmed, []solana.Instruction{memo}, extra)
	if err != nil {
		t.Fatalf("SubmitInstructions returned error: %v", err)
	}
	if sig.IsZero() {
		t.Fatalf("expected a signature")
	}
	if fake.Sends() != 1 {
		t.Fatalf("expected 1 send, got %d", fake.Sends())
	}
}
