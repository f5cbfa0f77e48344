package position

import (
	"math/big"
)

var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// liquidityForAmount0 returns amount0 * sqrtA * sqrtB / (Q96 * (sqrtB - sqrtA)), rounded down.
// The imprecise variant floors sqrtA * sqrtB / Q96 first, as the periphery router does.
func liquidityForAmount0(sqrtA, sqrtB, amount0 *big.Int, useFullPrecision bool) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	product := new(big.Int).Mul(sqrtA, sqrtB)
	if useFullPrecision {
		numerator := product.Mul(product, amount0)
		return numerator.Quo(numerator, diff.Mul(diff, q96))
	}
	intermediate := product.Quo(product, q96)
	intermediate.Mul(intermediate, amount0)
	return intermediate.Quo(intermediate, diff)
}

// liquidityForAmount1 returns amount1 * Q96 / (sqrtB - sqrtA), rounded down.
func liquidityForAmount1(sqrtA, sqrtB, amount1 *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	numerator := new(big.Int).Mul(amount1, q96)
	return numerator.Quo(numerator, new(big.Int).Sub(sqrtB, sqrtA))
}

// MaxLiquidityForAmounts returns the most liquidity that amount0 and amount1 can back in the range
// [sqrtA, sqrtB] at the price sqrtPriceX96. Below the range only amount0 counts, above it only amount1.
func MaxLiquidityForAmounts(sqrtPriceX96, sqrtA, sqrtB, amount0, amount1 *big.Int, useFullPrecision bool) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}

	switch {
	case sqrtPriceX96.Cmp(sqrtA) <= 0:
		return liquidityForAmount0(sqrtA, sqrtB, amount0, useFullPrecision)
	case sqrtPriceX96.Cmp(sqrtB) < 0:
		liquidity0 := liquidityForAmount0(sqrtPriceX96, sqrtB, amount0, useFullPrecision)
		liquidity1 := liquidityForAmount1(sqrtA, sqrtPriceX96, amount1)
		if liquidity0.Cmp(liquidity1) < 0 {
			return liquidity0
		}
		return liquidity1
	default:
		return liquidityForAmount1(sqrtA, sqrtB, amount1)
	}
}
