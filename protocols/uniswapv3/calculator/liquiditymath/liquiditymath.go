package liquiditymath

import (
	"fmt"
	"math/big"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/holiman/uint256"
)

var (
	ErrLiquidityOverflow  = fmt.Errorf("%w: liquidity exceeds 128 bits", uniswapv3.ErrOverflow)
	ErrLiquidityUnderflow = fmt.Errorf("%w: liquidity below zero", uniswapv3.ErrLiquidityUnderflow)
	ErrDeltaOutOfRange    = fmt.Errorf("%w: liquidity delta exceeds int128", uniswapv3.ErrInvalidInput)

	// minInt128 is -2^127, the smallest int128.
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// AddDelta adds a signed int128 liquidity delta to an unsigned uint128 liquidity value,
// returning an error if the operation results in an overflow or underflow.
// dest may alias x.
func AddDelta(dest, x *uint256.Int, y *big.Int) error {
	if y.Cmp(minInt128) < 0 || (y.Sign() > 0 && y.BitLen() > 127) {
		return ErrDeltaOutOfRange
	}
	if x.BitLen() > 128 {
		return ErrLiquidityOverflow
	}

	abs, _ := uint256.FromBig(new(big.Int).Abs(y))

	var result uint256.Int
	if y.Sign() < 0 {
		if x.Lt(abs) {
			return ErrLiquidityUnderflow
		}
		result.Sub(x, abs)
	} else {
		result.Add(x, abs)
		if result.BitLen() > 128 {
			return ErrLiquidityOverflow
		}
	}

	dest.Set(&result)
	return nil
}
