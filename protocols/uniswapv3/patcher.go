package uniswapv3

import (
	"fmt"
	"math/big"
	"sort"
)

var ErrPatchConflict = fmt.Errorf("%w: diff does not apply to this snapshot", ErrInvalidInput)

func copyBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

// CopyTickInfo returns a deep copy of t; no *big.Int is shared with the original.
func CopyTickInfo(t TickInfo) TickInfo {
	return TickInfo{
		Index:                 t.Index,
		LiquidityGross:        copyBig(t.LiquidityGross),
		LiquidityNet:          copyBig(t.LiquidityNet),
		FeeGrowthOutside0X128: copyBig(t.FeeGrowthOutside0X128),
		FeeGrowthOutside1X128: copyBig(t.FeeGrowthOutside1X128),
	}
}

// CopyView returns a deep copy of v.
func CopyView(v PoolViewMinimal) PoolViewMinimal {
	c := v
	c.Liquidity = copyBig(v.Liquidity)
	c.SqrtPriceX96 = copyBig(v.SqrtPriceX96)
	c.FeeGrowthGlobal0X128 = copyBig(v.FeeGrowthGlobal0X128)
	c.FeeGrowthGlobal1X128 = copyBig(v.FeeGrowthGlobal1X128)
	return c
}

// CopyPool returns a deep copy of p, including the nested ticks.
func CopyPool(p Pool) Pool {
	c := Pool{PoolViewMinimal: CopyView(p.PoolViewMinimal)}
	if p.Ticks != nil {
		c.Ticks = make([]TickInfo, len(p.Ticks))
		for i, tick := range p.Ticks {
			c.Ticks[i] = CopyTickInfo(tick)
		}
	}
	return c
}

// Patcher constructs the next snapshot by applying diff to prevState.
// The result shares no memory with either input and is ordered by pool ID. A diff that deletes or
// updates a missing pool, or adds a present one, was not computed against prevState and is rejected.
func Patcher(prevState []Pool, diff SnapshotDiff) ([]Pool, error) {
	next := make(map[uint64]Pool, len(prevState)+len(diff.Additions))
	for _, pool := range prevState {
		next[pool.ID] = CopyPool(pool)
	}

	for _, id := range diff.Deletions {
		if _, ok := next[id]; !ok {
			return nil, fmt.Errorf("%w: delete of missing pool %d", ErrPatchConflict, id)
		}
		delete(next, id)
	}
	for _, pool := range diff.Updates {
		if _, ok := next[pool.ID]; !ok {
			return nil, fmt.Errorf("%w: update of missing pool %d", ErrPatchConflict, pool.ID)
		}
		next[pool.ID] = CopyPool(pool)
	}
	for _, pool := range diff.Additions {
		if _, ok := next[pool.ID]; ok {
			return nil, fmt.Errorf("%w: addition of present pool %d", ErrPatchConflict, pool.ID)
		}
		next[pool.ID] = CopyPool(pool)
	}

	pools := make([]Pool, 0, len(next))
	for _, pool := range next {
		pools = append(pools, pool)
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].ID < pools[j].ID })
	return pools, nil
}
