package calculator

import (
	"fmt"
	"math/big"
	"sync"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/fullmath"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/liquiditymath"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/swapmath"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/tickmath"
	"github.com/holiman/uint256"
)

var (
	ErrZeroAmount         = fmt.Errorf("%w: amount must be non-zero", uniswapv3.ErrInvalidInput)
	ErrAmountTooLarge     = fmt.Errorf("%w: amount exceeds int256", uniswapv3.ErrOverflow)
	ErrInvalidPriceLimit  = fmt.Errorf("%w: sqrt price limit is on the wrong side of the price or outside the bounds", uniswapv3.ErrPriceOutOfRange)
	ErrTickDataProvider   = fmt.Errorf("%w: tick data provider failed", uniswapv3.ErrInvalidInput)
	ErrUninitializedState = fmt.Errorf("%w: pool liquidity and price must be set", uniswapv3.ErrInvalidInput)

	q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
)

// swapState represents the state of a swap as it progresses.
// It includes all temporary variables needed for the simulation to avoid allocations.
type swapState struct {
	// two's complement int256 amounts
	amountSpecifiedRemaining uint256.Int
	amountCalculated         uint256.Int

	sqrtPriceX96        uint256.Int
	tick                int64
	liquidity           uint256.Int
	feeGrowthGlobalX128 uint256.Int
	feeAmount           uint256.Int
	crossed             []CrossedTick

	// --- Reusable temporary variables for the loop ---
	sqrtPriceStartX96 uint256.Int
	sqrtPriceNextX96  uint256.Int
	targetPrice       uint256.Int
	stepAmountIn      uint256.Int
	stepAmountOut     uint256.Int
	stepFeeAmount     uint256.Int
	tempAmount        uint256.Int
}

// swapStatePool manages a pool of swapState objects for safe concurrent use.
var swapStatePool = sync.Pool{
	New: func() any {
		return new(swapState)
	},
}

// CrossedTick records an initialized tick crossed during a swap, together with the global fee
// growth at the moment of crossing.
type CrossedTick struct {
	Index                int64
	LiquidityNet         *big.Int
	FeeGrowthGlobal0X128 *big.Int
	FeeGrowthGlobal1X128 *big.Int
}

// SwapResult is the outcome of a simulated swap. Amounts are signed from the pool's perspective:
// positive amounts are paid into the pool, negative amounts are paid out.
type SwapResult struct {
	ZeroForOne   bool
	ExactInput   bool
	Amount0      *big.Int
	Amount1      *big.Int
	FeeAmount    *big.Int // total fee paid in the input token
	CrossedTicks []CrossedTick

	// AmountSpecifiedRemaining is the part of the specified amount that could not be swapped
	// before the price limit was reached.
	AmountSpecifiedRemaining *big.Int

	SqrtPriceX96         *big.Int
	Tick                 int64
	Liquidity            *big.Int
	FeeGrowthGlobal0X128 *big.Int
	FeeGrowthGlobal1X128 *big.Int
}

// Filled reports whether the whole specified amount was swapped.
func (r *SwapResult) Filled() bool {
	return r.AmountSpecifiedRemaining.Sign() == 0
}

// AmountIn returns the amount of the input token paid into the pool, fee included.
func (r *SwapResult) AmountIn() *big.Int {
	if r.ZeroForOne {
		return new(big.Int).Set(r.Amount0)
	}
	return new(big.Int).Set(r.Amount1)
}

// AmountOut returns the amount of the output token paid out of the pool.
func (r *SwapResult) AmountOut() *big.Int {
	if r.ZeroForOne {
		return new(big.Int).Neg(r.Amount1)
	}
	return new(big.Int).Neg(r.Amount0)
}

// SimulateSwap runs the swap loop against an immutable copy of the pool state and returns the result.
// amountSpecified is positive for an exact input and negative for an exact output. A nil
// sqrtPriceLimitX96 means no limit: the swap may run until MIN_SQRT_RATIO+1 or MAX_SQRT_RATIO-1.
// The pool is never modified; use Commit to obtain the post-swap pool.
func (p Pool) SimulateSwap(zeroForOne bool, amountSpecified, sqrtPriceLimitX96 *big.Int) (*SwapResult, error) {
	if p.Liquidity == nil || p.SqrtPriceX96 == nil || p.Ticks == nil {
		return nil, ErrUninitializedState
	}
	if amountSpecified == nil || amountSpecified.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	if amountSpecified.BitLen() > 255 {
		return nil, ErrAmountTooLarge
	}

	state := swapStatePool.Get().(*swapState)
	defer swapStatePool.Put(state)

	if err := state.reset(p, zeroForOne, amountSpecified); err != nil {
		return nil, err
	}

	limit, err := p.priceLimit(zeroForOne, sqrtPriceLimitX96, &state.sqrtPriceX96)
	if err != nil {
		return nil, err
	}

	if err := _swap(state, p, limit, zeroForOne); err != nil {
		return nil, err
	}

	return state.result(p, zeroForOne, amountSpecified), nil
}

func (p Pool) priceLimit(zeroForOne bool, sqrtPriceLimitX96 *big.Int, price *uint256.Int) (*uint256.Int, error) {
	limit := new(uint256.Int)
	if sqrtPriceLimitX96 == nil {
		if zeroForOne {
			return limit.AddUint64(tickmath.MIN_SQRT_RATIO, 1), nil
		}
		return limit.SubUint64(tickmath.MAX_SQRT_RATIO, 1), nil
	}

	if sqrtPriceLimitX96.Sign() <= 0 {
		return nil, ErrInvalidPriceLimit
	}
	if overflow := limit.SetFromBig(sqrtPriceLimitX96); overflow {
		return nil, ErrInvalidPriceLimit
	}
	if zeroForOne {
		if !limit.Lt(price) || !limit.Gt(tickmath.MIN_SQRT_RATIO) {
			return nil, fmt.Errorf("%w: %s for a zero for one swap at %s", ErrInvalidPriceLimit, limit.Dec(), price.Dec())
		}
	} else if !limit.Gt(price) || !limit.Lt(tickmath.MAX_SQRT_RATIO) {
		return nil, fmt.Errorf("%w: %s for a one for zero swap at %s", ErrInvalidPriceLimit, limit.Dec(), price.Dec())
	}
	return limit, nil
}

func (s *swapState) reset(p Pool, zeroForOne bool, amountSpecified *big.Int) error {
	s.amountSpecifiedRemaining.SetFromBig(new(big.Int).Abs(amountSpecified))
	if amountSpecified.Sign() < 0 {
		s.amountSpecifiedRemaining.Neg(&s.amountSpecifiedRemaining)
	}
	s.amountCalculated.Clear()
	if overflow := s.sqrtPriceX96.SetFromBig(p.SqrtPriceX96); overflow {
		return ErrUninitializedState
	}
	if overflow := s.liquidity.SetFromBig(p.Liquidity); overflow {
		return ErrUninitializedState
	}
	s.tick = p.Tick
	s.feeAmount.Clear()
	s.crossed = s.crossed[:0]

	global := p.FeeGrowthGlobal1X128
	if zeroForOne {
		global = p.FeeGrowthGlobal0X128
	}
	s.feeGrowthGlobalX128.Clear()
	if global != nil {
		s.feeGrowthGlobalX128.SetFromBig(global)
	}
	return nil
}

// _swap is the internal, core simulation engine.
func _swap(state *swapState, pool Pool, sqrtPriceLimitX96 *uint256.Int, zeroForOne bool) error {
	exactInput := state.amountSpecifiedRemaining.Sign() > 0
	tickSpacing := int64(pool.TickSpacing)
	feePips := uint32(pool.Fee)

	// Main simulation loop.
	for !state.amountSpecifiedRemaining.IsZero() && !state.sqrtPriceX96.Eq(sqrtPriceLimitX96) {
		state.sqrtPriceStartX96.Set(&state.sqrtPriceX96)

		tickNext, initialized, err := pool.Ticks.NextInitializedTickWithinOneWord(state.tick, tickSpacing, zeroForOne)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTickDataProvider, err)
		}
		// the bitmap is unaware of the tick bounds
		if tickNext < tickmath.MIN_TICK {
			tickNext = tickmath.MIN_TICK
		} else if tickNext > tickmath.MAX_TICK {
			tickNext = tickmath.MAX_TICK
		}

		if err := tickmath.GetSqrtRatioAtTick(&state.sqrtPriceNextX96, tickNext); err != nil {
			return err
		}

		if (zeroForOne && state.sqrtPriceNextX96.Lt(sqrtPriceLimitX96)) ||
			(!zeroForOne && state.sqrtPriceNextX96.Gt(sqrtPriceLimitX96)) {
			state.targetPrice.Set(sqrtPriceLimitX96)
		} else {
			state.targetPrice.Set(&state.sqrtPriceNextX96)
		}

		err = swapmath.ComputeSwapStep(
			&state.sqrtPriceX96, &state.stepAmountIn, &state.stepAmountOut, &state.stepFeeAmount, // Destination pointers
			&state.sqrtPriceStartX96,
			&state.targetPrice,
			&state.liquidity,
			&state.amountSpecifiedRemaining,
			feePips,
		)
		if err != nil {
			return err
		}

		state.tempAmount.Add(&state.stepAmountIn, &state.stepFeeAmount)
		if exactInput {
			state.amountSpecifiedRemaining.Sub(&state.amountSpecifiedRemaining, &state.tempAmount)
			state.amountCalculated.Sub(&state.amountCalculated, &state.stepAmountOut)
		} else {
			state.amountSpecifiedRemaining.Add(&state.amountSpecifiedRemaining, &state.stepAmountOut)
			state.amountCalculated.Add(&state.amountCalculated, &state.tempAmount)
		}
		state.feeAmount.Add(&state.feeAmount, &state.stepFeeAmount)

		// fee growth accrues per unit of in-range liquidity and wraps like the on-chain counter
		if !state.liquidity.IsZero() {
			if err := fullmath.MulDiv(&state.tempAmount, &state.stepFeeAmount, q128, &state.liquidity); err != nil {
				return err
			}
			state.feeGrowthGlobalX128.Add(&state.feeGrowthGlobalX128, &state.tempAmount)
		}

		if state.sqrtPriceX96.Eq(&state.sqrtPriceNextX96) {
			if initialized {
				info, err := pool.Ticks.GetTick(tickNext)
				if err != nil {
					return fmt.Errorf("%w: tick %d: %w", ErrTickDataProvider, tickNext, err)
				}
				if info.LiquidityNet == nil {
					return fmt.Errorf("%w: tick %d has no liquidity net", ErrTickDataProvider, tickNext)
				}
				liquidityNet := new(big.Int).Set(info.LiquidityNet)
				if zeroForOne {
					liquidityNet.Neg(liquidityNet)
				}
				if err := liquiditymath.AddDelta(&state.liquidity, &state.liquidity, liquidityNet); err != nil {
					return fmt.Errorf("crossing tick %d: %w", tickNext, err)
				}
				state.crossed = append(state.crossed, state.crossing(pool, zeroForOne, tickNext, info.LiquidityNet))
			}

			if zeroForOne {
				state.tick = tickNext - 1
			} else {
				state.tick = tickNext
			}
		} else if !state.sqrtPriceX96.Eq(&state.sqrtPriceStartX96) {
			// recompute unless we're on a lower tick boundary (i.e. already transitioned ticks),
			// and haven't moved
			state.tick, err = tickmath.GetTickAtSqrtRatio(&state.sqrtPriceX96)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *swapState) crossing(pool Pool, zeroForOne bool, tick int64, liquidityNet *big.Int) CrossedTick {
	c := CrossedTick{Index: tick, LiquidityNet: new(big.Int).Set(liquidityNet)}
	current := s.feeGrowthGlobalX128.ToBig()
	if zeroForOne {
		c.FeeGrowthGlobal0X128 = current
		c.FeeGrowthGlobal1X128 = orZero(pool.FeeGrowthGlobal1X128)
	} else {
		c.FeeGrowthGlobal0X128 = orZero(pool.FeeGrowthGlobal0X128)
		c.FeeGrowthGlobal1X128 = current
	}
	return c
}

func (s *swapState) result(pool Pool, zeroForOne bool, amountSpecified *big.Int) *SwapResult {
	remaining := toSigned(&s.amountSpecifiedRemaining)
	calculated := toSigned(&s.amountCalculated)
	consumed := new(big.Int).Sub(amountSpecified, remaining)
	exactInput := amountSpecified.Sign() > 0

	res := &SwapResult{
		ZeroForOne:               zeroForOne,
		ExactInput:               exactInput,
		FeeAmount:                s.feeAmount.ToBig(),
		AmountSpecifiedRemaining: remaining,
		SqrtPriceX96:             s.sqrtPriceX96.ToBig(),
		Tick:                     s.tick,
		Liquidity:                s.liquidity.ToBig(),
		CrossedTicks:             append([]CrossedTick(nil), s.crossed...),
	}
	if zeroForOne == exactInput {
		res.Amount0, res.Amount1 = consumed, calculated
	} else {
		res.Amount0, res.Amount1 = calculated, consumed
	}

	if zeroForOne {
		res.FeeGrowthGlobal0X128 = s.feeGrowthGlobalX128.ToBig()
		res.FeeGrowthGlobal1X128 = orZero(pool.FeeGrowthGlobal1X128)
	} else {
		res.FeeGrowthGlobal0X128 = orZero(pool.FeeGrowthGlobal0X128)
		res.FeeGrowthGlobal1X128 = s.feeGrowthGlobalX128.ToBig()
	}
	return res
}

// toSigned interprets x as a two's complement int256.
func toSigned(x *uint256.Int) *big.Int {
	if x.Sign() >= 0 {
		return x.ToBig()
	}
	return new(big.Int).Neg(new(uint256.Int).Neg(x).ToBig())
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
