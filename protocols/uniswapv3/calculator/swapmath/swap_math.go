package swapmath

import (
	"fmt"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/fullmath"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/sqrtpricemath"
	"github.com/holiman/uint256"
)

// FeeDenominator is the denominator for fee calculations, representing 100% or 1,000,000 pips.
const FeeDenominator = 1_000_000

var (
	ErrInvalidFee = fmt.Errorf("%w: fee must be below %d pips", uniswapv3.ErrInvalidInput, FeeDenominator)

	feeDenominator = uint256.NewInt(FeeDenominator)
)

// ComputeSwapStep calculates the result of a swap within a single tick range.
// It determines the next price, the amounts swapped, and the fee taken.
//
// amountRemaining is a two's complement int256: a non-negative value is the remaining exact input,
// a negative value is the remaining exact output. The direction is implied by the target price:
// a target at or below the current price swaps token0 for token1.
//
// amountIn and feeAmount are rounded up and amountOut is rounded down. When an exact input step
// stops short of the target, the whole remainder not consumed as input is taken as fee.
func ComputeSwapStep(
	// destination pointers
	sqrtRatioNextX96 *uint256.Int,
	amountIn *uint256.Int,
	amountOut *uint256.Int,
	feeAmount *uint256.Int,

	// inputs
	sqrtRatioCurrentX96 *uint256.Int,
	sqrtRatioTargetX96 *uint256.Int,
	liquidity *uint256.Int,
	amountRemaining *uint256.Int,
	feePips uint32,
) error {
	if feePips >= FeeDenominator {
		return ErrInvalidFee
	}

	zeroForOne := !sqrtRatioCurrentX96.Lt(sqrtRatioTargetX96)
	exactIn := amountRemaining.Sign() >= 0

	var next, in, out, fee, remainingAbs, remainingLessFee, feeComplement uint256.Int
	if exactIn {
		remainingAbs.Set(amountRemaining)
	} else {
		remainingAbs.Neg(amountRemaining)
	}
	feeComplement.SetUint64(FeeDenominator - uint64(feePips))

	if exactIn {
		if err := fullmath.MulDiv(&remainingLessFee, &remainingAbs, &feeComplement, feeDenominator); err != nil {
			return err
		}
		var err error
		if zeroForOne {
			err = sqrtpricemath.GetAmount0Delta(&in, sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			err = sqrtpricemath.GetAmount1Delta(&in, sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return err
		}
		if !remainingLessFee.Lt(&in) {
			next.Set(sqrtRatioTargetX96)
		} else if err := sqrtpricemath.GetNextSqrtPriceFromInput(&next, sqrtRatioCurrentX96, liquidity, &remainingLessFee, zeroForOne); err != nil {
			return err
		}
	} else {
		var err error
		if zeroForOne {
			err = sqrtpricemath.GetAmount1Delta(&out, sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			err = sqrtpricemath.GetAmount0Delta(&out, sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if err != nil {
			return err
		}
		if !remainingAbs.Lt(&out) {
			next.Set(sqrtRatioTargetX96)
		} else if err := sqrtpricemath.GetNextSqrtPriceFromOutput(&next, sqrtRatioCurrentX96, liquidity, &remainingAbs, zeroForOne); err != nil {
			return err
		}
	}

	reachedTarget := sqrtRatioTargetX96.Eq(&next)

	// get the input/output amounts
	if zeroForOne {
		if !(reachedTarget && exactIn) {
			if err := sqrtpricemath.GetAmount0Delta(&in, &next, sqrtRatioCurrentX96, liquidity, true); err != nil {
				return err
			}
		}
		if !(reachedTarget && !exactIn) {
			if err := sqrtpricemath.GetAmount1Delta(&out, &next, sqrtRatioCurrentX96, liquidity, false); err != nil {
				return err
			}
		}
	} else {
		if !(reachedTarget && exactIn) {
			if err := sqrtpricemath.GetAmount1Delta(&in, sqrtRatioCurrentX96, &next, liquidity, true); err != nil {
				return err
			}
		}
		if !(reachedTarget && !exactIn) {
			if err := sqrtpricemath.GetAmount0Delta(&out, sqrtRatioCurrentX96, &next, liquidity, false); err != nil {
				return err
			}
		}
	}

	// cap the output amount to not exceed the remaining output amount
	if !exactIn && out.Gt(&remainingAbs) {
		out.Set(&remainingAbs)
	}

	if exactIn && !reachedTarget {
		// we didn't reach the target, so take the remainder of the maximum input as fee
		fee.Sub(&remainingAbs, &in)
	} else if err := fullmath.MulDivRoundingUp(&fee, &in, uint256.NewInt(uint64(feePips)), &feeComplement); err != nil {
		return err
	}

	sqrtRatioNextX96.Set(&next)
	amountIn.Set(&in)
	amountOut.Set(&out)
	feeAmount.Set(&fee)
	return nil
}
