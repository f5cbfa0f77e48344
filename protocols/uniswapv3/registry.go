package uniswapv3

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolViewMinimal provides a view of a single Uniswap V3 pool's core state.
type PoolViewMinimal struct {
	ID           uint64         `json:"id"`
	Token0       common.Address `json:"token0"`
	Token1       common.Address `json:"token1"`
	Fee          uint64         `json:"fee"` // hundredths of a basis point
	TickSpacing  uint64         `json:"tickSpacing"`
	Tick         int64          `json:"tick"`
	Liquidity    *big.Int       `json:"liquidity"`
	SqrtPriceX96 *big.Int       `json:"sqrtPriceX96"`

	// fee growth is only needed for position accounting and may be absent from a snapshot.
	FeeGrowthGlobal0X128 *big.Int `json:"feeGrowthGlobal0X128,omitempty"`
	FeeGrowthGlobal1X128 *big.Int `json:"feeGrowthGlobal1X128,omitempty"`
}

// TickInfo represents the information about an initialized tick in a Uniswap V3 pool.
// The presence of a TickInfo implicitly means the tick is initialized.
type TickInfo struct {
	Index          int64    `json:"index"`
	LiquidityGross *big.Int `json:"liquidityGross"`
	LiquidityNet   *big.Int `json:"liquidityNet"`

	FeeGrowthOutside0X128 *big.Int `json:"feeGrowthOutside0X128,omitempty"`
	FeeGrowthOutside1X128 *big.Int `json:"feeGrowthOutside1X128,omitempty"`
}

// Pool is the fully enriched view of a pool, combining the minimal
// core data with the detailed tick liquidity information.
type Pool struct {
	PoolViewMinimal `json:",inline"`
	Ticks           []TickInfo `json:"ticks"`
}

// TickDataProvider is the capability the swap loop needs from tick storage.
// Implementations must behave as an immutable snapshot for the duration of a simulation.
type TickDataProvider interface {
	// NextInitializedTickWithinOneWord returns the next initialized tick in the same bitmap word
	// as tick, searching to the left (lte) or to the right. When no tick is initialized in the
	// word the word boundary is returned with initialized set to false.
	NextInitializedTickWithinOneWord(tick, tickSpacing int64, lte bool) (next int64, initialized bool, err error)
	// GetTick returns the stored info for an initialized tick.
	GetTick(tick int64) (TickInfo, error)
}
