package chain

import (
	"context"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Guarded wraps a Client with a token-bucket rate limiter on every call and a
// circuit breaker on the read path. Transaction submission bypasses the
// breaker: a half-submitted write must reach the RPC node even when reads are
// tripping.
type Guarded struct {
	inner   Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuarded builds a guarded client. rps/burst bound the request rate; the
// breaker opens after three consecutive read failures or a >5% failure rate
// over at least twenty requests, mirroring the thresholds we run venue APIs
// with elsewhere.
func NewGuarded(inner Client, rps float64, burst int) *Guarded {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = int(rps)
	}
	settings := gobreaker.Settings{Name: "solana-rpc"}
	settings.Interval = 60 * time.Second
	settings.Timeout = 30 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	return &Guarded{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (g *Guarded) read(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.breaker.Execute(fn)
}

func (g *Guarded) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	out, err := g.read(ctx, func() (any, error) { return g.inner.GetAccountInfo(ctx, account) })
	if err != nil {
		return nil, err
	}
	return out.(*rpc.GetAccountInfoResult), nil
}

func (g *Guarded) GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	out, err := g.read(ctx, func() (any, error) { return g.inner.GetMultipleAccounts(ctx, accounts...) })
	if err != nil {
		return nil, err
	}
	return out.(*rpc.GetMultipleAccountsResult), nil
}

func (g *Guarded) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	out, err := g.read(ctx, func() (any, error) { return g.inner.GetBalance(ctx, account, commitment) })
	if err != nil {
		return nil, err
	}
	return out.(*rpc.GetBalanceResult), nil
}

func (g *Guarded) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	out, err := g.read(ctx, func() (any, error) { return g.inner.GetTokenAccountsByOwner(ctx, owner, conf, opts) })
	if err != nil {
		return nil, err
	}
	return out.(*rpc.GetTokenAccountsResult), nil
}

func (g *Guarded) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	out, err := g.read(ctx, func() (any, error) { return g.inner.GetLatestBlockhash(ctx, commitment) })
	if err != nil {
		return nil, err
	}
	return out.(*rpc.GetLatestBlockhashResult), nil
}

func (g *Guarded) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return solana.Signature{}, err
	}
	return g.inner.SendTransactionWithOpts(ctx, tx, opts)
}

func (g *Guarded) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	// Status polling after a submit must not be starved by an open breaker.
	return g.inner.GetSignatureStatuses(ctx, searchTransactionHistory, sigs...)
}

func (g *Guarded) GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	out, err := g.read(ctx, func() (any, error) { return g.inner.GetTransaction(ctx, sig, opts) })
	if err != nil {
		return nil, err
	}
	return out.(*rpc.GetTransactionResult), nil
}
