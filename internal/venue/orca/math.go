package orca

import (
	"math"
	"math/big"
)

// Sqrt prices are Q64.64 fixed point: the square root of the B-per-A price
// scaled by 2^64, matching the whirlpool account encoding.

var q64 = new(big.Int).Lsh(big.NewInt(1), 64)

// feeOnInput charges the pool fee on the input amount. Widened arithmetic;
// amount*feeRate exceeds 64 bits well inside the valid input range.
func feeOnInput(amount uint64, feeRate uint16) uint64 {
	fee := new(big.Int).SetUint64(amount)
	fee.Mul(fee, big.NewInt(int64(feeRate)))
	fee.Div(fee, big.NewInt(feeRateDenominator))
	return fee.Uint64()
}

// sqrtPriceFromTick converts a tick index into a Q64.64 sqrt price,
// price(tick) = 1.0001^tick. Float precision is plenty for position sizing
// estimates; swap math always uses the chain-provided sqrt price.
func sqrtPriceFromTick(tick int32) *big.Int {
	sqrt := math.Pow(1.0001, float64(tick)/2)
	f := new(big.Float).Mul(big.NewFloat(sqrt), new(big.Float).SetInt(q64))
	out, _ := f.Int(nil)
	return out
}

// computeSwapOut walks one exact-in swap step within the current liquidity,
// returning the output amount and the post-swap sqrt price. amountIn must
// already have the fee deducted.
func computeSwapOut(sqrtPrice, liquidity *big.Int, amountIn uint64, aToB bool) (uint64, *big.Int) {
	if liquidity.Sign() == 0 || sqrtPrice.Sign() == 0 || amountIn == 0 {
		return 0, new(big.Int).Set(sqrtPrice)
	}
	in := new(big.Int).SetUint64(amountIn)
	if aToB {
		// sqrt price falls: s' = L*s<<64 / (L<<64 + dx*s)
		denom := new(big.Int).Lsh(liquidity, 64)
		denom.Add(denom, new(big.Int).Mul(in, sqrtPrice))
		next := new(big.Int).Mul(liquidity, sqrtPrice)
		next.Lsh(next, 64)
		next.Div(next, denom)
		// dy = L*(s - s') >> 64
		out := new(big.Int).Sub(sqrtPrice, next)
		out.Mul(out, liquidity)
		out.Rsh(out, 64)
		return clampUint64(out), next
	}
	// sqrt price rises: s' = s + dy<<64 / L
	delta := new(big.Int).Lsh(in, 64)
	delta.Div(delta, liquidity)
	next := new(big.Int).Add(sqrtPrice, delta)
	// dx = L*(s' - s)<<64 / (s*s')
	out := new(big.Int).Sub(next, sqrtPrice)
	out.Mul(out, liquidity)
	out.Lsh(out, 64)
	out.Div(out, new(big.Int).Mul(sqrtPrice, next))
	return clampUint64(out), next
}

// priceImpactPct measures how far the realized price fell short of the
// pre-trade spot price, in percent. amountIn is fee-deducted so the fee does
// not count as impact.
func priceImpactPct(sqrtPrice *big.Int, amountIn, amountOut uint64, aToB bool) float64 {
	if amountIn == 0 || amountOut == 0 {
		return 0
	}
	s, _ := new(big.Float).Quo(new(big.Float).SetInt(sqrtPrice), new(big.Float).SetInt(q64)).Float64()
	spot := s * s // B per A
	if !aToB {
		if spot == 0 {
			return 0
		}
		spot = 1 / spot
	}
	exec := float64(amountOut) / float64(amountIn)
	if spot <= 0 || exec >= spot {
		return 0
	}
	return (1 - exec/spot) * 100
}

// liquidityForAmounts sizes the largest position the token amounts can fund
// over [sqrtLower, sqrtUpper] at the current price.
func liquidityForAmounts(sqrtPrice, sqrtLower, sqrtUpper *big.Int, amountA, amountB uint64) uint64 {
	sp := clampBig(sqrtPrice, sqrtLower, sqrtUpper)
	a := new(big.Int).SetUint64(amountA)
	b := new(big.Int).SetUint64(amountB)

	if sp.Cmp(sqrtLower) <= 0 {
		return clampUint64(liquidityFromA(a, sqrtLower, sqrtUpper))
	}
	if sp.Cmp(sqrtUpper) >= 0 {
		return clampUint64(liquidityFromB(b, sqrtLower, sqrtUpper))
	}
	la := liquidityFromA(a, sp, sqrtUpper)
	lb := liquidityFromB(b, sqrtLower, sp)
	if la.Cmp(lb) < 0 {
		return clampUint64(la)
	}
	return clampUint64(lb)
}

// la = amountA * (sLow*sHigh) / ((sHigh-sLow) << 64)
func liquidityFromA(amountA, sLow, sHigh *big.Int) *big.Int {
	num := new(big.Int).Mul(sLow, sHigh)
	num.Mul(num, amountA)
	den := new(big.Int).Sub(sHigh, sLow)
	den.Lsh(den, 64)
	if den.Sign() == 0 {
		return big.NewInt(0)
	}
	return num.Div(num, den)
}

// lb = amountB << 64 / (sHigh-sLow)
func liquidityFromB(amountB, sLow, sHigh *big.Int) *big.Int {
	den := new(big.Int).Sub(sHigh, sLow)
	if den.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Lsh(amountB, 64)
	return num.Div(num, den)
}

// amountsForLiquidity converts a liquidity share back into token amounts at
// the current price.
func amountsForLiquidity(sqrtPrice, sqrtLower, sqrtUpper *big.Int, liquidity uint64) (amountA, amountB uint64) {
	sp := clampBig(sqrtPrice, sqrtLower, sqrtUpper)
	l := new(big.Int).SetUint64(liquidity)

	// amountA = L*(sUpper-sp)<<64 / (sp*sUpper)
	if sp.Cmp(sqrtUpper) < 0 {
		a := new(big.Int).Sub(sqrtUpper, sp)
		a.Mul(a, l)
		a.Lsh(a, 64)
		a.Div(a, new(big.Int).Mul(sp, sqrtUpper))
		amountA = clampUint64(a)
	}
	// amountB = L*(sp-sLower) >> 64
	if sp.Cmp(sqrtLower) > 0 {
		b := new(big.Int).Sub(sp, sqrtLower)
		b.Mul(b, l)
		b.Rsh(b, 64)
		amountB = clampUint64(b)
	}
	return amountA, amountB
}

func clampBig(v, lo, hi *big.Int) *big.Int {
	if v.Cmp(lo) < 0 {
		return new(big.Int).Set(lo)
	}
	if v.Cmp(hi) > 0 {
		return new(big.Int).Set(hi)
	}
	return new(big.Int).Set(v)
}

var maxUint64 = new(big.Int).SetUint64(math.MaxUint64)

func clampUint64(v *big.Int) uint64 {
	if v.Sign() < 0 {
		return 0
	}
	if v.Cmp(maxUint64) > 0 {
		return math.MaxUint64
	}
	return v.Uint64()
}
