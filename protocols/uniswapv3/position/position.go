// Package position values concentrated liquidity positions: the token amounts a position holds,
// the liquidity a pair of amounts can mint, and the fees a position has accrued.
package position

import (
	"fmt"
	"math/big"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/sqrtpricemath"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/tickmath"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/fraction"
	"github.com/holiman/uint256"
)

var (
	ErrInvalidRange      = fmt.Errorf("%w: lower tick must be below upper tick", uniswapv3.ErrInvalidInput)
	ErrTickNotSpaced     = fmt.Errorf("%w: tick is not a multiple of the pool tick spacing", uniswapv3.ErrInvalidInput)
	ErrInvalidLiquidity  = fmt.Errorf("%w: liquidity must not be negative", uniswapv3.ErrInvalidInput)
	ErrLiquidityTooLarge = fmt.Errorf("%w: liquidity exceeds 128 bits", uniswapv3.ErrOverflow)

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	q192       = new(big.Int).Lsh(big.NewInt(1), 192)
)

// Position is liquidity provided to a pool over [TickLower, TickUpper).
type Position struct {
	Pool      calculator.Pool
	TickLower int64
	TickUpper int64
	Liquidity *big.Int
}

// New validates the range against the pool and returns the position. liquidity is copied.
func New(pool calculator.Pool, tickLower, tickUpper int64, liquidity *big.Int) (Position, error) {
	if tickLower >= tickUpper {
		return Position{}, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, tickLower, tickUpper)
	}
	if tickLower < tickmath.MIN_TICK || tickUpper > tickmath.MAX_TICK {
		return Position{}, fmt.Errorf("%w: [%d, %d]", tickmath.ErrTickOutOfBounds, tickLower, tickUpper)
	}
	spacing := int64(pool.TickSpacing)
	if spacing <= 0 || tickLower%spacing != 0 || tickUpper%spacing != 0 {
		return Position{}, fmt.Errorf("%w: [%d, %d], spacing %d", ErrTickNotSpaced, tickLower, tickUpper, spacing)
	}
	if liquidity == nil || liquidity.Sign() < 0 {
		return Position{}, ErrInvalidLiquidity
	}
	if liquidity.BitLen() > 128 {
		return Position{}, ErrLiquidityTooLarge
	}
	return Position{
		Pool:      pool,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: new(big.Int).Set(liquidity),
	}, nil
}

// FromAmounts returns the position with the most liquidity that amount0 and amount1 can back at
// the pool's current price. useFullPrecision selects exact rounding instead of the periphery's.
func FromAmounts(pool calculator.Pool, tickLower, tickUpper int64, amount0, amount1 *big.Int, useFullPrecision bool) (Position, error) {
	if tickLower >= tickUpper {
		return Position{}, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, tickLower, tickUpper)
	}
	sqrtA, err := sqrtRatioAt(tickLower)
	if err != nil {
		return Position{}, err
	}
	sqrtB, err := sqrtRatioAt(tickUpper)
	if err != nil {
		return Position{}, err
	}
	liquidity := MaxLiquidityForAmounts(pool.SqrtPriceX96, sqrtA.ToBig(), sqrtB.ToBig(), amount0, amount1, useFullPrecision)
	return New(pool, tickLower, tickUpper, liquidity)
}

// FromAmount0 returns the position backed by amount0 and as much token1 as it needs.
func FromAmount0(pool calculator.Pool, tickLower, tickUpper int64, amount0 *big.Int, useFullPrecision bool) (Position, error) {
	return FromAmounts(pool, tickLower, tickUpper, amount0, maxUint256, useFullPrecision)
}

// FromAmount1 returns the position backed by amount1 and as much token0 as it needs.
func FromAmount1(pool calculator.Pool, tickLower, tickUpper int64, amount1 *big.Int) (Position, error) {
	// the amount1 path does not depend on precision
	return FromAmounts(pool, tickLower, tickUpper, maxUint256, amount1, true)
}

func sqrtRatioAt(tick int64) (*uint256.Int, error) {
	price := new(uint256.Int)
	if err := tickmath.GetSqrtRatioAtTick(price, tick); err != nil {
		return nil, err
	}
	return price, nil
}

// amounts returns the token amounts held by the position at the pool's current price.
func (p Position) amounts(roundUp bool) (amount0, amount1 *big.Int, err error) {
	sqrtA, err := sqrtRatioAt(p.TickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtB, err := sqrtRatioAt(p.TickUpper)
	if err != nil {
		return nil, nil, err
	}
	price, overflow := uint256.FromBig(p.Pool.SqrtPriceX96)
	if overflow {
		return nil, nil, tickmath.ErrSqrtPriceOutOfBounds
	}
	liquidity := uint256.MustFromBig(p.Liquidity)

	var a0, a1 uint256.Int
	switch {
	case p.Pool.Tick < p.TickLower:
		err = sqrtpricemath.GetAmount0Delta(&a0, sqrtA, sqrtB, liquidity, roundUp)
	case p.Pool.Tick < p.TickUpper:
		if err = sqrtpricemath.GetAmount0Delta(&a0, price, sqrtB, liquidity, roundUp); err == nil {
			err = sqrtpricemath.GetAmount1Delta(&a1, sqrtA, price, liquidity, roundUp)
		}
	default:
		err = sqrtpricemath.GetAmount1Delta(&a1, sqrtA, sqrtB, liquidity, roundUp)
	}
	if err != nil {
		return nil, nil, err
	}
	return a0.ToBig(), a1.ToBig(), nil
}

// Amount0 is the token0 the position would return if burned now, rounded down.
func (p Position) Amount0() (*big.Int, error) {
	amount0, _, err := p.amounts(false)
	return amount0, err
}

// Amount1 is the token1 the position would return if burned now, rounded down.
func (p Position) Amount1() (*big.Int, error) {
	_, amount1, err := p.amounts(false)
	return amount1, err
}

// MintAmounts is what minting the position would cost, rounded up.
func (p Position) MintAmounts() (amount0, amount1 *big.Int, err error) {
	return p.amounts(true)
}

// InRange reports whether the pool's current tick lies within the position.
func (p Position) InRange() bool {
	return p.Pool.Tick >= p.TickLower && p.Pool.Tick < p.TickUpper
}

// PriceLower is the raw price of token0 in token1 at the lower tick.
func (p Position) PriceLower() (fraction.Fraction, error) {
	return priceAt(p.TickLower)
}

// PriceUpper is the raw price of token0 in token1 at the upper tick.
func (p Position) PriceUpper() (fraction.Fraction, error) {
	return priceAt(p.TickUpper)
}

func priceAt(tick int64) (fraction.Fraction, error) {
	sqrt, err := sqrtRatioAt(tick)
	if err != nil {
		return fraction.Fraction{}, err
	}
	s := sqrt.ToBig()
	return fraction.New(s.Mul(s, s), q192)
}

// Collectable returns the amounts the position could collect from the pool now: the owed tokens
// in snap plus the fees earned since. The range ticks must be initialized in the pool's tick data.
func (p Position) Collectable(snap FeeSnapshot) (amount0, amount1 *big.Int, err error) {
	lower, err := p.Pool.Ticks.GetTick(p.TickLower)
	if err != nil {
		return nil, nil, fmt.Errorf("lower tick %d: %w", p.TickLower, err)
	}
	upper, err := p.Pool.Ticks.GetTick(p.TickUpper)
	if err != nil {
		return nil, nil, fmt.Errorf("upper tick %d: %w", p.TickUpper, err)
	}
	return CollectableAmounts(p.Pool.Tick, lower, upper, p.Pool.FeeGrowthGlobal0X128, p.Pool.FeeGrowthGlobal1X128, snap, p.Liquidity)
}
