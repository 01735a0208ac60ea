// Package chaintest provides an in-memory RPC client for adapter and router
// tests. Account data is registered up front; submits hand out deterministic
// signatures and report whatever status the test configures.
package chaintest

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Fake implements the RPC subset the adapters use. Configure the exported
// fields before handing it to an adapter; they must not change while calls
// are in flight.
type Fake struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey][]byte
	sends    int
	polls    int
	lastSig  solana.Signature

	// Read behavior.
	ReadErr   error         // forced onto every account read
	ReadDelay time.Duration // simulated RPC latency per read

	// Wallet views.
	Lamports      uint64
	TokenAccounts []*rpc.TokenAccount

	// Submit and confirmation behavior.
	SendErr      error
	StatusErr    any // on-chain failure reported for submitted signatures
	NeverConfirm bool
	ConfirmAfter int // number of status polls answered empty before confirming

	// Transaction meta served by GetTransaction; nil means not found.
	TxMeta *rpc.TransactionMeta
}

func New() *Fake {
	return &Fake{accounts: make(map[solana.PublicKey][]byte)}
}

// SetAccount registers raw account data under the key.
func (f *Fake) SetAccount(key solana.PublicKey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[key] = data
}

// Sends reports how many transactions were submitted.
func (f *Fake) Sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

// LastSignature returns the signature handed out by the latest submit.
func (f *Fake) LastSignature() solana.Signature {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSig
}

func (f *Fake) beforeRead(ctx context.Context) error {
	if f.ReadDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.ReadDelay):
		}
	}
	return f.ReadErr
}

func (f *Fake) account(key solana.PublicKey) *rpc.Account {
	f.mu.Lock()
	data, ok := f.accounts[key]
	f.mu.Unlock()
	if !ok {
		return nil
	}
	return &rpc.Account{Owner: solana.TokenProgramID, Data: accountData(data)}
}

// accountData round-trips through the JSON wire form so the result matches
// what the real RPC decoder produces.
func accountData(data []byte) *rpc.DataBytesOrJSON {
	raw, err := json.Marshal([]string{base64.StdEncoding.EncodeToString(data), "base64"})
	if err != nil {
		panic(err)
	}
	var out rpc.DataBytesOrJSON
	if err := out.UnmarshalJSON(raw); err != nil {
		panic(err)
	}
	return &out
}

// TokenAccountEntry wraps raw SPL token account bytes for the
// GetTokenAccountsByOwner result list.
func TokenAccountEntry(pubkey solana.PublicKey, data []byte) *rpc.TokenAccount {
	return &rpc.TokenAccount{
		Pubkey:  pubkey,
		Account: rpc.Account{Owner: solana.TokenProgramID, Data: accountData(data)},
	}
}

func (f *Fake) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if err := f.beforeRead(ctx); err != nil {
		return nil, err
	}
	acc := f.account(account)
	if acc == nil {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (f *Fake) GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	if err := f.beforeRead(ctx); err != nil {
		return nil, err
	}
	out := &rpc.GetMultipleAccountsResult{Value: make([]*rpc.Account, len(accounts))}
	for i, key := range accounts {
		out.Value[i] = f.account(key)
	}
	return out, nil
}

func (f *Fake) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	if err := f.beforeRead(ctx); err != nil {
		return nil, err
	}
	return &rpc.GetBalanceResult{Value: f.Lamports}, nil
}

func (f *Fake) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	if err := f.beforeRead(ctx); err != nil {
		return nil, err
	}
	return &rpc.GetTokenAccountsResult{Value: f.TokenAccounts}, nil
}

func (f *Fake) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if err := f.beforeRead(ctx); err != nil {
		return nil, err
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{LastValidBlockHeight: 1},
	}, nil
}

func (f *Fake) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	if f.SendErr != nil {
		return solana.Signature{}, f.SendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	var sig solana.Signature
	binary.LittleEndian.PutUint64(sig[:8], uint64(f.sends))
	f.lastSig = sig
	return sig, nil
}

func (f *Fake) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	f.polls++
	pending := f.NeverConfirm || f.polls <= f.ConfirmAfter
	f.mu.Unlock()
	out := &rpc.GetSignatureStatusesResult{Value: make([]*rpc.SignatureStatusesResult, len(sigs))}
	if pending {
		return out, nil
	}
	for i := range sigs {
		out.Value[i] = &rpc.SignatureStatusesResult{
			Err:                f.StatusErr,
			ConfirmationStatus: rpc.ConfirmationStatusFinalized,
		}
	}
	return out, nil
}

func (f *Fake) GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	if err := f.beforeRead(ctx); err != nil {
		return nil, err
	}
	if f.TxMeta == nil {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetTransactionResult{Meta: f.TxMeta}, nil
}
