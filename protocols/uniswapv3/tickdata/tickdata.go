// Package tickdata provides the tick storage consumed by the swap loop: an immutable sorted list,
// an immutable bitmap-indexed snapshot, and a mutable builder that maintains tick state as
// liquidity is added and removed.
package tickdata

import (
	"fmt"
	"math/big"
	"sort"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/tickmath"
)

var (
	ErrTickNotInitialized  = fmt.Errorf("%w: tick is not initialized", uniswapv3.ErrInvalidInput)
	ErrInvalidTickSpacing  = fmt.Errorf("%w: tick spacing must be positive", uniswapv3.ErrInvalidInput)
	ErrTickSpacingMismatch = fmt.Errorf("%w: tick spacing does not match the provider", uniswapv3.ErrInvalidInput)
	ErrTickNotSpaced       = fmt.Errorf("%w: tick is not a multiple of the tick spacing", uniswapv3.ErrInvalidInput)
	ErrDuplicateTick       = fmt.Errorf("%w: duplicate tick", uniswapv3.ErrInvalidInput)
	ErrMissingLiquidity    = fmt.Errorf("%w: tick liquidity must be set", uniswapv3.ErrInvalidInput)
	ErrZeroGross           = fmt.Errorf("%w: initialized tick has zero gross liquidity", uniswapv3.ErrInvalidInput)
	ErrTickOutOfBounds     = fmt.Errorf("%w: tick must be within [MIN_TICK, MAX_TICK]", uniswapv3.ErrTickOutOfRange)
)

// compress divides tick by tickSpacing, rounding towards negative infinity.
func compress(tick, tickSpacing int64) int64 {
	compressed := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		compressed--
	}
	return compressed
}

func checkTick(tick, tickSpacing int64) error {
	if tick < tickmath.MIN_TICK || tick > tickmath.MAX_TICK {
		return fmt.Errorf("%w: %d", ErrTickOutOfBounds, tick)
	}
	if tick%tickSpacing != 0 {
		return fmt.Errorf("%w: tick %d, spacing %d", ErrTickNotSpaced, tick, tickSpacing)
	}
	return nil
}

// normalize validates ticks and returns a deep-copied slice sorted by index.
func normalize(ticks []uniswapv3.TickInfo, tickSpacing int64) ([]uniswapv3.TickInfo, error) {
	if tickSpacing <= 0 {
		return nil, ErrInvalidTickSpacing
	}

	sorted := make([]uniswapv3.TickInfo, len(ticks))
	for i, tick := range ticks {
		if err := checkTick(tick.Index, tickSpacing); err != nil {
			return nil, err
		}
		if tick.LiquidityGross == nil || tick.LiquidityNet == nil {
			return nil, fmt.Errorf("%w: tick %d", ErrMissingLiquidity, tick.Index)
		}
		if tick.LiquidityGross.Sign() <= 0 {
			return nil, fmt.Errorf("%w: tick %d", ErrZeroGross, tick.Index)
		}
		sorted[i] = uniswapv3.CopyTickInfo(tick)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Index == sorted[i-1].Index {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateTick, sorted[i].Index)
		}
	}
	return sorted, nil
}

// wordBound returns the lowest tick of the word holding compressed when searching left, or
// the highest tick of the word holding compressed+1 when searching right.
func wordBound(compressed, tickSpacing int64, lte bool) int64 {
	if lte {
		return (compressed >> 8 << 8) * tickSpacing
	}
	return ((compressed+1)>>8<<8 + 255) * tickSpacing
}

// SumLiquidityNet returns the total net liquidity of ticks. A consistent set of
// position boundaries sums to zero.
func SumLiquidityNet(ticks []uniswapv3.TickInfo) *big.Int {
	sum := new(big.Int)
	for _, tick := range ticks {
		if tick.LiquidityNet != nil {
			sum.Add(sum, tick.LiquidityNet)
		}
	}
	return sum
}
