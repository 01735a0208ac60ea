package chain

import (
	"context"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const defaultConfirmPoll = 500 * time.Millisecond

// AwaitSignature polls signature status until the transaction reaches the
// requested commitment. It returns nil on success and a descriptive error
// when the chain reports the transaction failed. A context deadline surfaces
// as ctx.Err(): the caller must treat that as an unknown outcome, not a
// failure, because the transaction may still land.
func AwaitSignature(ctx context.Context, client Client, sig solana.Signature, commitment rpc.CommitmentType, pollEvery time.Duration) error {
	if pollEvery <= 0 {
		pollEvery = defaultConfirmPoll
	}
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		res, err := client.GetSignatureStatuses(ctx, false, sig)
		if err == nil && res != nil && len(res.Value) > 0 && res.Value[0] != nil {
			status := res.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on chain: %v", sig, status.Err)
			}
			if commitmentReached(status.ConfirmationStatus, commitment) {
				return nil
			}
		}
		// RPC hiccups while polling are retried until the deadline.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func commitmentReached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case string(rpc.ConfirmationStatusProcessed):
			return 1
		case string(rpc.ConfirmationStatusConfirmed):
			return 2
		case string(rpc.ConfirmationStatusFinalized):
			return 3
		}
		return 0
	}
	wantRank := 2
	switch want {
	case rpc.CommitmentProcessed:
		wantRank = 1
	case rpc.CommitmentFinalized:
		wantRank = 3
	}
	return rank(string(status)) >= wantRank
}
