package orca

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
)

// ticksPerArray is the number of initialized ticks one tick-array account
// covers, times the pool's tick spacing.
const ticksPerArray = 88

// U128 is a little-endian 128-bit field as stored on chain.
type U128 struct {
	Lo uint64
	Hi uint64
}

func (u U128) big() *big.Int {
	v := new(big.Int).SetUint64(u.Hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(u.Lo))
}

func u128FromBig(v *big.Int) U128 {
	var out U128
	out.Lo = new(big.Int).And(v, maxUint64).Uint64()
	out.Hi = new(big.Int).Rsh(v, 64).Uint64()
	return out
}

// Anchor-style 8-byte tags derived from the account/instruction name.
func anchorAccountTag(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:8]
}

func anchorInstructionTag(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

// WhirlpoolAccount is the pool account body following the 8-byte tag.
type WhirlpoolAccount struct {
	WhirlpoolsConfig solana.PublicKey
	TickSpacing      uint16
	FeeRate          uint16 // hundredths of a basis point (1e-6 of notional)
	ProtocolFeeRate  uint16
	Liquidity        U128
	SqrtPrice        U128 // Q64.64 sqrt of the B-per-A price
	TickCurrentIndex int32
	TokenMintA       solana.PublicKey
	TokenVaultA      solana.PublicKey
	TokenMintB       solana.PublicKey
	TokenVaultB      solana.PublicKey
}

// PositionAccount is the position account body following the 8-byte tag.
type PositionAccount struct {
	Whirlpool      solana.PublicKey
	PositionMint   solana.PublicKey
	Liquidity      U128
	TickLowerIndex int32
	TickUpperIndex int32
	FeeOwedA       uint64
	FeeOwedB       uint64
}

func decodeTagged(data []byte, tag []byte, out any) error {
	if len(data) < 8 || !bytes.Equal(data[:8], tag) {
		return fmt.Errorf("account tag mismatch")
	}
	return bin.NewBinDecoder(data[8:]).Decode(out)
}

func encodeTagged(tag []byte, v any) []byte {
	buf := bytes.NewBuffer(append([]byte(nil), tag...))
	if err := bin.NewBinEncoder(buf).Encode(v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// EncodeWhirlpoolAccount renders a pool account as chain bytes; test
// fixtures use it to stand in for RPC data.
func EncodeWhirlpoolAccount(acc WhirlpoolAccount) []byte {
	return encodeTagged(anchorAccountTag("Whirlpool"), &acc)
}

// EncodePositionAccount renders a position account as chain bytes.
func EncodePositionAccount(acc PositionAccount) []byte {
	return encodeTagged(anchorAccountTag("Position"), &acc)
}

// poolState is the adapter's cached view of one whirlpool.
type poolState struct {
	address     solana.PublicKey
	acc         WhirlpoolAccount
	refreshedAt time.Time
}

// Instruction argument layouts.

type swapArgs struct {
	Amount                 uint64
	OtherAmountThreshold   uint64
	SqrtPriceLimit         U128
	AmountSpecifiedIsInput bool
	AToB                   bool
}

type openPositionArgs struct {
	TickLowerIndex int32
	TickUpperIndex int32
}

type increaseLiquidityArgs struct {
	LiquidityAmount U128
	TokenMaxA       uint64
	TokenMaxB       uint64
}

type decreaseLiquidityArgs struct {
	LiquidityAmount U128
	TokenMinA       uint64
	TokenMinB       uint64
}

func encodeArgs(name string, v any) []byte {
	return encodeTagged(anchorInstructionTag(name), v)
}

// PDA derivations. The vault addresses are never among them: vaults always
// come from the decoded pool account.

func positionPDA(programID, positionMint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{[]byte("position"), positionMint.Bytes()}, programID)
	return pda, err
}

func oraclePDA(programID, whirlpool solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{[]byte("oracle"), whirlpool.Bytes()}, programID)
	return pda, err
}

func tickArrayPDA(programID, whirlpool solana.PublicKey, startTick int32) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{
		[]byte("tick_array"),
		whirlpool.Bytes(),
		[]byte(strconv.FormatInt(int64(startTick), 10)),
	}, programID)
	return pda, err
}

// tickArrayStart floors a tick to the start of the array holding it.
func tickArrayStart(tick int32, spacing uint16) int32 {
	span := int32(spacing) * ticksPerArray
	start := tick / span
	if tick < 0 && tick%span != 0 {
		start--
	}
	return start * span
}

// swapTickArrays returns the three array addresses a swap may cross, walking
// in the direction of price movement.
func swapTickArrays(programID, whirlpool solana.PublicKey, tick int32, spacing uint16, aToB bool) ([3]solana.PublicKey, error) {
	var out [3]solana.PublicKey
	span := int32(spacing) * ticksPerArray
	step := span
	if aToB {
		step = -span
	}
	start := tickArrayStart(tick, spacing)
	for i := 0; i < 3; i++ {
		pda, err := tickArrayPDA(programID, whirlpool, start+int32(i)*step)
		if err != nil {
			return out, err
		}
		out[i] = pda
	}
	return out, nil
}
