package calculator

import (
	"fmt"
	"math/big"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/swapmath"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/tickmath"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/fraction"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/tickdata"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrTokenMismatch      = fmt.Errorf("%w: token is not in the pool", uniswapv3.ErrInvalidInput)
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be greater than zero", uniswapv3.ErrInvalidInput)
	ErrInvalidFee         = fmt.Errorf("%w: fee must be below %d pips", uniswapv3.ErrInvalidInput, swapmath.FeeDenominator)
	ErrInvalidTickSpacing = fmt.Errorf("%w: tick spacing must be positive", uniswapv3.ErrInvalidInput)
	ErrMissingTicks       = fmt.Errorf("%w: tick data provider is required", uniswapv3.ErrInvalidInput)
	ErrLiquidityTooLarge  = fmt.Errorf("%w: liquidity exceeds 128 bits", uniswapv3.ErrOverflow)
	ErrNegativeLiquidity  = fmt.Errorf("%w: liquidity must not be negative", uniswapv3.ErrInvalidInput)
	ErrTickPriceMismatch  = fmt.Errorf("%w: tick does not match the sqrt price", uniswapv3.ErrInvalidInput)

	q192 = new(big.Int).Lsh(big.NewInt(1), 192)
)

// Pool is an immutable view of a pool's state together with the tick data used to simulate swaps against it.
// Every operation on a Pool returns new values; the receiver is never modified.
type Pool struct {
	uniswapv3.PoolViewMinimal
	Ticks uniswapv3.TickDataProvider
}

// NewPool validates view and pairs it with ticks. The view is deep-copied.
func NewPool(view uniswapv3.PoolViewMinimal, ticks uniswapv3.TickDataProvider) (Pool, error) {
	if view.Fee >= swapmath.FeeDenominator {
		return Pool{}, fmt.Errorf("%w: %d", ErrInvalidFee, view.Fee)
	}
	if view.TickSpacing == 0 || view.TickSpacing > uint64(tickmath.MAX_TICK) {
		return Pool{}, fmt.Errorf("%w: %d", ErrInvalidTickSpacing, view.TickSpacing)
	}
	if ticks == nil {
		return Pool{}, ErrMissingTicks
	}
	if view.Liquidity == nil || view.SqrtPriceX96 == nil {
		return Pool{}, ErrUninitializedState
	}
	if view.Liquidity.Sign() < 0 {
		return Pool{}, ErrNegativeLiquidity
	}
	if view.Liquidity.BitLen() > 128 {
		return Pool{}, ErrLiquidityTooLarge
	}

	price, overflow := uint256.FromBig(view.SqrtPriceX96)
	if overflow || view.SqrtPriceX96.Sign() <= 0 {
		return Pool{}, fmt.Errorf("%w: %s", tickmath.ErrSqrtPriceOutOfBounds, view.SqrtPriceX96)
	}
	tick, err := tickmath.GetTickAtSqrtRatio(price)
	if err != nil {
		return Pool{}, err
	}
	// a pool resting exactly on a tick boundary after a downward swap reports the tick below it
	if tick != view.Tick && !(tick == view.Tick+1 && onBoundary(price, tick)) {
		return Pool{}, fmt.Errorf("%w: tick %d, sqrt price %s implies %d", ErrTickPriceMismatch, view.Tick, view.SqrtPriceX96, tick)
	}

	return Pool{PoolViewMinimal: uniswapv3.CopyView(view), Ticks: ticks}, nil
}

func onBoundary(price *uint256.Int, tick int64) bool {
	var atTick uint256.Int
	if err := tickmath.GetSqrtRatioAtTick(&atTick, tick); err != nil {
		return false
	}
	return atTick.Eq(price)
}

// FromView builds a Pool backed by a sorted tick list.
func FromView(pool uniswapv3.Pool) (Pool, error) {
	if pool.TickSpacing == 0 || pool.TickSpacing > uint64(tickmath.MAX_TICK) {
		return Pool{}, fmt.Errorf("%w: %d", ErrInvalidTickSpacing, pool.TickSpacing)
	}
	ticks, err := tickdata.NewTickList(pool.Ticks, int64(pool.TickSpacing))
	if err != nil {
		return Pool{}, fmt.Errorf("pool %d: %w", pool.ID, err)
	}
	return NewPool(pool.PoolViewMinimal, ticks)
}

// InvolvesToken reports whether token is one of the pool's two tokens.
func (p Pool) InvolvesToken(token common.Address) bool {
	return token == p.Token0 || token == p.Token1
}

// zeroForOne resolves the swap direction for an input token.
func (p Pool) zeroForOne(tokenIn common.Address) (bool, error) {
	switch tokenIn {
	case p.Token0:
		return true, nil
	case p.Token1:
		return false, nil
	}
	return false, fmt.Errorf("%w: token %s is not in pool %d", ErrTokenMismatch, tokenIn.Hex(), p.ID)
}

// Commit returns the pool as it would be after res. The tick data is shared since swaps never
// change liquidity net.
func (p Pool) Commit(res *SwapResult) Pool {
	next := Pool{PoolViewMinimal: uniswapv3.CopyView(p.PoolViewMinimal), Ticks: p.Ticks}
	next.SqrtPriceX96 = new(big.Int).Set(res.SqrtPriceX96)
	next.Tick = res.Tick
	next.Liquidity = new(big.Int).Set(res.Liquidity)
	if p.FeeGrowthGlobal0X128 != nil || p.FeeGrowthGlobal1X128 != nil {
		next.FeeGrowthGlobal0X128 = new(big.Int).Set(res.FeeGrowthGlobal0X128)
		next.FeeGrowthGlobal1X128 = new(big.Int).Set(res.FeeGrowthGlobal1X128)
	}
	return next
}

// GetOutputAmount simulates an exact input swap of amountIn of tokenIn and returns the amount of
// the other token received, along with the pool after the swap.
// Without a price limit the whole input must be consumed, otherwise ErrInsufficientLiquidity is returned.
func (p Pool) GetOutputAmount(tokenIn common.Address, amountIn, sqrtPriceLimitX96 *big.Int) (*big.Int, Pool, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, Pool{}, ErrInvalidAmount
	}
	zeroForOne, err := p.zeroForOne(tokenIn)
	if err != nil {
		return nil, Pool{}, err
	}

	res, err := p.SimulateSwap(zeroForOne, amountIn, sqrtPriceLimitX96)
	if err != nil {
		return nil, Pool{}, err
	}
	if sqrtPriceLimitX96 == nil && !res.Filled() {
		return nil, Pool{}, fmt.Errorf("%w: pool %d filled %s of %s", uniswapv3.ErrInsufficientLiquidity, p.ID, res.AmountIn(), amountIn)
	}
	return res.AmountOut(), p.Commit(res), nil
}

// GetInputAmount simulates an exact output swap returning amountOut of tokenOut and returns the
// amount of the other token required, along with the pool after the swap.
func (p Pool) GetInputAmount(tokenOut common.Address, amountOut, sqrtPriceLimitX96 *big.Int) (*big.Int, Pool, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, Pool{}, ErrInvalidAmount
	}
	oneForZero, err := p.zeroForOne(tokenOut)
	if err != nil {
		return nil, Pool{}, err
	}

	res, err := p.SimulateSwap(!oneForZero, new(big.Int).Neg(amountOut), sqrtPriceLimitX96)
	if err != nil {
		return nil, Pool{}, err
	}
	if sqrtPriceLimitX96 == nil && !res.Filled() {
		return nil, Pool{}, fmt.Errorf("%w: pool %d delivered %s of %s", uniswapv3.ErrInsufficientLiquidity, p.ID, res.AmountOut(), amountOut)
	}
	return res.AmountIn(), p.Commit(res), nil
}

// PriceOf returns the raw price of token in units of the other pool token, without decimal adjustment.
func (p Pool) PriceOf(token common.Address) (fraction.Fraction, error) {
	token0, err := p.zeroForOne(token)
	if err != nil {
		return fraction.Fraction{}, err
	}
	// price of token0 in token1 is sqrtPriceX96^2 / 2^192
	squared := new(big.Int).Mul(p.SqrtPriceX96, p.SqrtPriceX96)
	if token0 {
		return fraction.New(squared, q192)
	}
	return fraction.New(q192, squared)
}

// Token0Price returns the raw price of token0 in token1.
func (p Pool) Token0Price() fraction.Fraction {
	price, _ := p.PriceOf(p.Token0)
	return price
}

// Token1Price returns the raw price of token1 in token0.
func (p Pool) Token1Price() fraction.Fraction {
	price, _ := p.PriceOf(p.Token1)
	return price
}

// VirtualReserves returns the reserves of a constant product pool with the same liquidity
// and price: L / sqrtP for token0 and L * sqrtP for token1.
func (p Pool) VirtualReserves() (reserve0, reserve1 *big.Int) {
	reserve0 = new(big.Int).Lsh(p.Liquidity, 96)
	reserve0.Div(reserve0, p.SqrtPriceX96)
	reserve1 = new(big.Int).Mul(p.Liquidity, p.SqrtPriceX96)
	reserve1.Rsh(reserve1, 96)
	return reserve0, reserve1
}

// ApplyTo returns a copy of pool with the swap result committed: the new price, tick, liquidity
// and fee growth, and the fee growth outside of every crossed tick flipped to the other side.
func (r *SwapResult) ApplyTo(pool uniswapv3.Pool) uniswapv3.Pool {
	next := uniswapv3.CopyPool(pool)
	next.SqrtPriceX96 = new(big.Int).Set(r.SqrtPriceX96)
	next.Tick = r.Tick
	next.Liquidity = new(big.Int).Set(r.Liquidity)
	next.FeeGrowthGlobal0X128 = new(big.Int).Set(r.FeeGrowthGlobal0X128)
	next.FeeGrowthGlobal1X128 = new(big.Int).Set(r.FeeGrowthGlobal1X128)

	crossed := make(map[int64]CrossedTick, len(r.CrossedTicks))
	for _, c := range r.CrossedTicks {
		crossed[c.Index] = c
	}
	for i := range next.Ticks {
		c, ok := crossed[next.Ticks[i].Index]
		if !ok {
			continue
		}
		next.Ticks[i].FeeGrowthOutside0X128 = flipOutside(c.FeeGrowthGlobal0X128, next.Ticks[i].FeeGrowthOutside0X128)
		next.Ticks[i].FeeGrowthOutside1X128 = flipOutside(c.FeeGrowthGlobal1X128, next.Ticks[i].FeeGrowthOutside1X128)
	}
	return next
}

// flipOutside computes global - outside modulo 2^256.
func flipOutside(global, outside *big.Int) *big.Int {
	var g, o uint256.Int
	if global != nil {
		g.SetFromBig(global)
	}
	if outside != nil {
		o.SetFromBig(outside)
	}
	return g.Sub(&g, &o).ToBig()
}
