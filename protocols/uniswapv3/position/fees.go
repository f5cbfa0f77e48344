package position

import (
	"math/big"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/fullmath"
	"github.com/holiman/uint256"
)

var q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

// FeeSnapshot is the fee state a position recorded when it was last touched.
type FeeSnapshot struct {
	FeeGrowthInside0LastX128 *big.Int
	FeeGrowthInside1LastX128 *big.Int
	TokensOwed0              *big.Int
	TokensOwed1              *big.Int
}

// fixed reads x as a uint256, treating nil as zero. Values beyond 256 bits wrap.
func fixed(x *big.Int) *uint256.Int {
	z := new(uint256.Int)
	if x != nil {
		z.SetFromBig(x)
	}
	return z
}

// FeeGrowthInside returns the fee growth per unit of liquidity accumulated inside [lower, upper]
// for both tokens. Fee growth counters wrap, so all subtraction is modulo 2^256.
func FeeGrowthInside(tickCurrent int64, lower, upper uniswapv3.TickInfo, feeGrowthGlobal0X128, feeGrowthGlobal1X128 *big.Int) (inside0, inside1 *big.Int) {
	inside0 = feeGrowthInside(tickCurrent, lower.Index, upper.Index,
		fixed(lower.FeeGrowthOutside0X128), fixed(upper.FeeGrowthOutside0X128), fixed(feeGrowthGlobal0X128)).ToBig()
	inside1 = feeGrowthInside(tickCurrent, lower.Index, upper.Index,
		fixed(lower.FeeGrowthOutside1X128), fixed(upper.FeeGrowthOutside1X128), fixed(feeGrowthGlobal1X128)).ToBig()
	return inside0, inside1
}

func feeGrowthInside(tickCurrent, tickLower, tickUpper int64, lower, upper, global *uint256.Int) *uint256.Int {
	inside := new(uint256.Int)
	switch {
	case tickCurrent < tickLower:
		inside.Sub(lower, upper)
	case tickCurrent >= tickUpper:
		inside.Sub(upper, lower)
	default:
		inside.Sub(global, lower)
		inside.Sub(inside, upper)
	}
	return inside
}

// TokensOwed returns the fees earned by liquidity since the last snapshot of fee growth inside:
// (inside - last) * liquidity / 2^128 for each token.
func TokensOwed(last0, last1, inside0, inside1, liquidity *big.Int) (owed0, owed1 *big.Int, err error) {
	l := fixed(liquidity)
	a, err := tokensOwed(fixed(last0), fixed(inside0), l)
	if err != nil {
		return nil, nil, err
	}
	b, err := tokensOwed(fixed(last1), fixed(inside1), l)
	if err != nil {
		return nil, nil, err
	}
	return a.ToBig(), b.ToBig(), nil
}

func tokensOwed(last, inside, liquidity *uint256.Int) (*uint256.Int, error) {
	var delta, owed uint256.Int
	delta.Sub(inside, last)
	if err := fullmath.MulDiv(&owed, &delta, liquidity, q128); err != nil {
		return nil, err
	}
	return &owed, nil
}

// CollectableAmounts returns what a position holding liquidity could collect: the tokens already owed
// in snap plus the fees accrued since snap was taken.
func CollectableAmounts(tickCurrent int64, lower, upper uniswapv3.TickInfo, feeGrowthGlobal0X128, feeGrowthGlobal1X128 *big.Int, snap FeeSnapshot, liquidity *big.Int) (amount0, amount1 *big.Int, err error) {
	inside0, inside1 := FeeGrowthInside(tickCurrent, lower, upper, feeGrowthGlobal0X128, feeGrowthGlobal1X128)
	owed0, owed1, err := TokensOwed(snap.FeeGrowthInside0LastX128, snap.FeeGrowthInside1LastX128, inside0, inside1, liquidity)
	if err != nil {
		return nil, nil, err
	}
	if snap.TokensOwed0 != nil {
		owed0.Add(owed0, snap.TokensOwed0)
	}
	if snap.TokensOwed1 != nil {
		owed1.Add(owed1, snap.TokensOwed1)
	}
	return owed0, owed1, nil
}
