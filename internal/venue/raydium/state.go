package raydium

import (
	"bytes"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
)

// Instruction tags understood by the AMM program.
const (
	instrDeposit    uint8 = 3
	instrWithdraw   uint8 = 4
	instrSwapBaseIn uint8 = 9
)

// AmmAccount is the on-chain pool account layout: fixed-width little-endian
// fields, no discriminator.
type AmmAccount struct {
	Status              uint64
	Nonce               uint8
	CoinMint            solana.PublicKey
	PcMint              solana.PublicKey
	CoinVault           solana.PublicKey
	PcVault             solana.PublicKey
	LpMint              solana.PublicKey
	OpenOrders          solana.PublicKey
	TradeFeeNumerator   uint64
	TradeFeeDenominator uint64
}

func decodeAmmAccount(data []byte) (*AmmAccount, error) {
	var acc AmmAccount
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return nil, fmt.Errorf("decode amm account: %w", err)
	}
	if acc.TradeFeeDenominator == 0 {
		return nil, fmt.Errorf("amm account has zero fee denominator")
	}
	return &acc, nil
}

// EncodeAmmAccount renders the pool layout back to bytes; test fixtures use
// it to stand in for chain data.
func EncodeAmmAccount(acc AmmAccount) []byte {
	buf := new(bytes.Buffer)
	if err := bin.NewBinEncoder(buf).Encode(acc); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// poolState is the adapter's live view of one pool. Reserves are read from
// the vault token accounts, never trusted from the pool account itself.
type poolState struct {
	address     solana.PublicKey
	acc         AmmAccount
	reserveCoin uint64
	reservePc   uint64
	lpSupply    uint64
	refreshedAt time.Time
}

type swapInstructionData struct {
	Tag          uint8
	AmountIn     uint64
	MinAmountOut uint64
}

type depositInstructionData struct {
	Tag           uint8
	MaxCoinAmount uint64
	MaxPcAmount   uint64
	BaseSide      uint64
}

type withdrawInstructionData struct {
	Tag      uint8
	LpAmount uint64
}

func encodeInstructionData(v any) []byte {
	buf := new(bytes.Buffer)
	if err := bin.NewBinEncoder(buf).Encode(v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ammAuthority derives the program authority that owns the pool vaults.
func ammAuthority(programID solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{[]byte("amm_authority")}, programID)
	return pda, err
}
