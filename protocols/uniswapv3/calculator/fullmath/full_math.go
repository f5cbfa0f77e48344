package fullmath

import (
	"fmt"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/holiman/uint256"
)

var (
	// ErrDenominatorZero is returned when dividing by zero.
	ErrDenominatorZero = fmt.Errorf("%w: denominator is zero", uniswapv3.ErrOverflow)
	// ErrResultOverflow is returned when the quotient does not fit in 256 bits.
	ErrResultOverflow = fmt.Errorf("%w: mulDiv result exceeds 256 bits", uniswapv3.ErrOverflow)
)

// MulDiv sets dest = floor(a*b/denominator) with a 512 bit intermediate product.
// dest may alias any of the inputs.
// This function is the Go equivalent of the Solidity FullMath.mulDiv function.
func MulDiv(dest, a, b, denominator *uint256.Int) error {
	if denominator.IsZero() {
		return ErrDenominatorZero
	}
	var result uint256.Int
	if _, overflow := result.MulDivOverflow(a, b, denominator); overflow {
		return ErrResultOverflow
	}
	dest.Set(&result)
	return nil
}

// MulDivRoundingUp sets dest = ceil(a*b/denominator) with a 512 bit intermediate product.
// dest may alias any of the inputs.
func MulDivRoundingUp(dest, a, b, denominator *uint256.Int) error {
	if denominator.IsZero() {
		return ErrDenominatorZero
	}
	var result, remainder uint256.Int
	if _, overflow := result.MulDivOverflow(a, b, denominator); overflow {
		return ErrResultOverflow
	}
	remainder.MulMod(a, b, denominator)
	if !remainder.IsZero() {
		if _, overflow := result.AddOverflow(&result, uint256.NewInt(1)); overflow {
			return ErrResultOverflow
		}
	}
	dest.Set(&result)
	return nil
}

// DivRoundingUp sets dest = ceil(x/y).
func DivRoundingUp(dest, x, y *uint256.Int) error {
	if y.IsZero() {
		return ErrDenominatorZero
	}
	var quotient, remainder uint256.Int
	quotient.DivMod(x, y, &remainder)
	if !remainder.IsZero() {
		// x/y < 2^256 when y >= 2 so the increment cannot wrap
		quotient.AddUint64(&quotient, 1)
	}
	dest.Set(&quotient)
	return nil
}
