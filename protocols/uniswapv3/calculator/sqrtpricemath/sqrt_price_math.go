package sqrtpricemath

import (
	"fmt"
	"math/big"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/fullmath"
	"github.com/holiman/uint256"
)

var (
	// Q96 is the UQ64.96 fixed-point number representing 1.
	Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), Resolution)

	ErrLiquidityZero        = fmt.Errorf("%w: liquidity must be greater than zero", uniswapv3.ErrInvalidInput)
	ErrSqrtPriceZero        = fmt.Errorf("%w: sqrt price must be greater than zero", uniswapv3.ErrInvalidInput)
	ErrLiquidityTooLarge    = fmt.Errorf("%w: liquidity exceeds 128 bits", uniswapv3.ErrOverflow)
	ErrSqrtPriceTooLarge    = fmt.Errorf("%w: sqrt price exceeds 160 bits", uniswapv3.ErrOverflow)
	ErrProductOverflow      = fmt.Errorf("%w: amount times price exceeds 256 bits", uniswapv3.ErrOverflow)
	ErrInsufficientReserves = fmt.Errorf("%w: amount out exceeds the virtual reserves", uniswapv3.ErrPriceOutOfRange)
)

// Resolution is the number of fractional bits in the Q96 format.
const Resolution = 96

// --- Public API with Destination-Passing ---

// GetNextSqrtPriceFromAmount0RoundingUp calculates the next sqrt price given a delta of token0.
// The price is always rounded up so that, when adding, the price moves less than it exactly would,
// and when removing, the price moves more.
func GetNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amount *uint256.Int, add bool) error {
	if amount.IsZero() {
		dest.Set(sqrtPX96)
		return nil
	}
	if err := checkBounds(sqrtPX96, liquidity); err != nil {
		return err
	}

	var numerator1, product, denominator uint256.Int
	numerator1.Lsh(liquidity, Resolution)
	_, productOverflow := product.MulOverflow(amount, sqrtPX96)

	if add {
		if !productOverflow {
			if _, overflow := denominator.AddOverflow(&numerator1, &product); !overflow {
				// always fits 160 bits since the result is at most sqrtPX96
				return fullmath.MulDivRoundingUp(dest, &numerator1, sqrtPX96, &denominator)
			}
		}
		// numerator1 / (numerator1 / sqrtPX96 + amount), trading precision for range
		denominator.Div(&numerator1, sqrtPX96)
		if _, overflow := denominator.AddOverflow(&denominator, amount); overflow {
			return ErrProductOverflow
		}
		return fullmath.DivRoundingUp(dest, &numerator1, &denominator)
	}

	if productOverflow {
		return ErrProductOverflow
	}
	if !numerator1.Gt(&product) {
		return ErrInsufficientReserves
	}
	denominator.Sub(&numerator1, &product)

	var next uint256.Int
	if err := fullmath.MulDivRoundingUp(&next, &numerator1, sqrtPX96, &denominator); err != nil {
		return err
	}
	if next.BitLen() > 160 {
		return ErrSqrtPriceTooLarge
	}
	dest.Set(&next)
	return nil
}

// GetNextSqrtPriceFromAmount1RoundingDown calculates the next sqrt price given a delta of token1.
// The price is always rounded down, mirroring GetNextSqrtPriceFromAmount0RoundingUp.
func GetNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amount *uint256.Int, add bool) error {
	if err := checkBounds(sqrtPX96, liquidity); err != nil {
		return err
	}

	var quotient, next uint256.Int
	if add {
		if err := fullmath.MulDiv(&quotient, amount, Q96, liquidity); err != nil {
			return err
		}
		if _, overflow := next.AddOverflow(sqrtPX96, &quotient); overflow || next.BitLen() > 160 {
			return ErrSqrtPriceTooLarge
		}
		dest.Set(&next)
		return nil
	}

	if err := fullmath.MulDivRoundingUp(&quotient, amount, Q96, liquidity); err != nil {
		return err
	}
	if !sqrtPX96.Gt(&quotient) {
		return ErrInsufficientReserves
	}
	dest.Sub(sqrtPX96, &quotient)
	return nil
}

// GetNextSqrtPriceFromInput calculates the next sqrt price after adding amountIn of the input token.
// The result is rounded so the price never moves past what the input pays for.
func GetNextSqrtPriceFromInput(dest, sqrtPX96, liquidity, amountIn *uint256.Int, zeroForOne bool) error {
	if sqrtPX96.IsZero() {
		return ErrSqrtPriceZero
	}
	if liquidity.IsZero() {
		return ErrLiquidityZero
	}
	if zeroForOne {
		return GetNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amountIn, true)
	}
	return GetNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amountIn, true)
}

// GetNextSqrtPriceFromOutput calculates the next sqrt price after removing amountOut of the output token.
// The result is rounded so the price always moves at least as far as the output requires.
func GetNextSqrtPriceFromOutput(dest, sqrtPX96, liquidity, amountOut *uint256.Int, zeroForOne bool) error {
	if sqrtPX96.IsZero() {
		return ErrSqrtPriceZero
	}
	if liquidity.IsZero() {
		return ErrLiquidityZero
	}
	if zeroForOne {
		return GetNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amountOut, false)
	}
	return GetNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amountOut, false)
}

// GetAmount0Delta calculates liquidity / sqrt(lower) - liquidity / sqrt(upper),
// i.e. the amount of token0 between the two prices.
func GetAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) error {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.IsZero() {
		return ErrSqrtPriceZero
	}
	if liquidity.BitLen() > 128 {
		return ErrLiquidityTooLarge
	}

	var numerator1, numerator2, tmp uint256.Int
	numerator1.Lsh(liquidity, Resolution)
	numerator2.Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		if err := fullmath.MulDivRoundingUp(&tmp, &numerator1, &numerator2, sqrtRatioBX96); err != nil {
			return err
		}
		return fullmath.DivRoundingUp(dest, &tmp, sqrtRatioAX96)
	}

	if err := fullmath.MulDiv(&tmp, &numerator1, &numerator2, sqrtRatioBX96); err != nil {
		return err
	}
	dest.Div(&tmp, sqrtRatioAX96)
	return nil
}

// GetAmount1Delta calculates liquidity * (sqrt(upper) - sqrt(lower)),
// i.e. the amount of token1 between the two prices.
func GetAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) error {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if liquidity.BitLen() > 128 {
		return ErrLiquidityTooLarge
	}

	var diff uint256.Int
	diff.Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return fullmath.MulDivRoundingUp(dest, liquidity, &diff, Q96)
	}
	return fullmath.MulDiv(dest, liquidity, &diff, Q96)
}

// GetAmount0DeltaSigned returns the signed token0 delta for a signed liquidity change.
// Added liquidity rounds up (owed to the pool), removed liquidity rounds down (owed to the owner).
func GetAmount0DeltaSigned(dest *big.Int, sqrtRatioAX96, sqrtRatioBX96 *uint256.Int, liquidity *big.Int) error {
	return amountDeltaSigned(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity, GetAmount0Delta)
}

// GetAmount1DeltaSigned returns the signed token1 delta for a signed liquidity change.
func GetAmount1DeltaSigned(dest *big.Int, sqrtRatioAX96, sqrtRatioBX96 *uint256.Int, liquidity *big.Int) error {
	return amountDeltaSigned(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity, GetAmount1Delta)
}

type amountDeltaFunc func(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) error

func amountDeltaSigned(dest *big.Int, sqrtRatioAX96, sqrtRatioBX96 *uint256.Int, liquidity *big.Int, delta amountDeltaFunc) error {
	// liquidity deltas are int128
	if liquidity.BitLen() > 127 {
		return ErrLiquidityTooLarge
	}

	negative := liquidity.Sign() < 0
	abs, _ := uint256.FromBig(new(big.Int).Abs(liquidity))

	var amount uint256.Int
	if err := delta(&amount, sqrtRatioAX96, sqrtRatioBX96, abs, !negative); err != nil {
		return err
	}
	amount.IntoBig(&dest)
	if negative {
		dest.Neg(dest)
	}
	return nil
}

func checkBounds(sqrtPX96, liquidity *uint256.Int) error {
	if sqrtPX96.BitLen() > 160 {
		return ErrSqrtPriceTooLarge
	}
	if liquidity.BitLen() > 128 {
		return ErrLiquidityTooLarge
	}
	return nil
}
