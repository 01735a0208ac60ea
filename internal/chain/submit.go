package chain

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SubmitInstructions assembles, signs, and submits a transaction built from
// the provided instructions. extraSigners covers keypairs beyond the fee
// payer (position mints and the like).
func SubmitInstructions(ctx context.Context, client Client, owner solana.PrivateKey, commitment rpc.CommitmentType, instructions []solana.Instruction, extraSigners ...solana.PrivateKey) (solana.Signature, error) {
	var sig solana.Signature

	blockhash, err := client.GetLatestBlockhash(ctx, commitment)
	if err != nil {
		return sig, fmt.Errorf("latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash.Value.Blockhash, solana.TransactionPayer(owner.PublicKey()))
	if err != nil {
		return sig, fmt.Errorf("build tx: %w", err)
	}

	signers := append([]solana.PrivateKey{owner}, extraSigners...)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if key.Equals(signers[i].PublicKey()) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return sig, fmt.Errorf("sign: %w", err)
	}

	sig, err = client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: commitment,
	})
	if err != nil {
		return sig, fmt.Errorf("send: %w", err)
	}
	return sig, nil
}
