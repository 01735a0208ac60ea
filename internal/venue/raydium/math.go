package raydium

import "math/big"

// quoteConstantProduct prices an exact-in swap on an x*y=k pool with the
// trade fee charged on the input side. Returns the output amount, the fee in
// input units, and the price impact in percent. The impact excludes the fee:
// it is the deviation of the realized price from the pre-trade spot price
// caused purely by trade size.
func quoteConstantProduct(amountIn, reserveIn, reserveOut, feeNum, feeDen uint64) (amountOut, feeAmount uint64, impactPct float64) {
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 || feeDen == 0 {
		return 0, 0, 0
	}
	in := new(big.Int).SetUint64(amountIn)
	fee := new(big.Int).Mul(in, new(big.Int).SetUint64(feeNum))
	fee.Div(fee, new(big.Int).SetUint64(feeDen))
	afterFee := new(big.Int).Sub(in, fee)

	denom := new(big.Int).Add(new(big.Int).SetUint64(reserveIn), afterFee)
	out := new(big.Int).Mul(afterFee, new(big.Int).SetUint64(reserveOut))
	out.Div(out, denom)

	// exec/spot = reserveIn/(reserveIn+afterFee), so impact = afterFee/denom.
	ratio := new(big.Float).Quo(new(big.Float).SetInt(afterFee), new(big.Float).SetInt(denom))
	pct, _ := ratio.Float64()
	return out.Uint64(), fee.Uint64(), pct * 100
}

// lpForDeposit estimates the pool share minted for a two-sided deposit. With
// an existing supply the share is the smaller proportional claim; the first
// deposit into an empty pool mints the geometric mean.
func lpForDeposit(amountA, amountB, reserveA, reserveB, lpSupply uint64) uint64 {
	if lpSupply == 0 || reserveA == 0 || reserveB == 0 {
		prod := new(big.Int).Mul(new(big.Int).SetUint64(amountA), new(big.Int).SetUint64(amountB))
		return prod.Sqrt(prod).Uint64()
	}
	byA := new(big.Int).Mul(new(big.Int).SetUint64(amountA), new(big.Int).SetUint64(lpSupply))
	byA.Div(byA, new(big.Int).SetUint64(reserveA))
	byB := new(big.Int).Mul(new(big.Int).SetUint64(amountB), new(big.Int).SetUint64(lpSupply))
	byB.Div(byB, new(big.Int).SetUint64(reserveB))
	if byA.Cmp(byB) < 0 {
		return byA.Uint64()
	}
	return byB.Uint64()
}

// shareOfReserves converts a pool share back into underlying token amounts.
func shareOfReserves(lpAmount, lpSupply, reserveA, reserveB uint64) (amountA, amountB uint64) {
	if lpSupply == 0 {
		return 0, 0
	}
	a := new(big.Int).Mul(new(big.Int).SetUint64(reserveA), new(big.Int).SetUint64(lpAmount))
	a.Div(a, new(big.Int).SetUint64(lpSupply))
	b := new(big.Int).Mul(new(big.Int).SetUint64(reserveB), new(big.Int).SetUint64(lpAmount))
	b.Div(b, new(big.Int).SetUint64(lpSupply))
	return a.Uint64(), b.Uint64()
}
