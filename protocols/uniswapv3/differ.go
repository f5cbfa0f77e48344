package uniswapv3

import (
	"math/big"
	"sort"
)

// SnapshotDiff is the set of pool changes between two snapshots.
type SnapshotDiff struct {
	Additions []Pool   `json:"additions,omitempty"`
	Updates   []Pool   `json:"updates,omitempty"`
	Deletions []uint64 `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d SnapshotDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// bigEqual compares two optional values, treating nil as distinct from zero.
func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}

func sortedTicks(ticks []TickInfo) []TickInfo {
	sorted := make([]TickInfo, len(ticks))
	copy(sorted, ticks)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})
	return sorted
}

func poolChanged(old, new Pool) bool {
	// 1. Compare core fields

	if old.Tick != new.Tick || old.Fee != new.Fee || old.TickSpacing != new.TickSpacing {
		return true
	}
	if old.Token0 != new.Token0 || old.Token1 != new.Token1 {
		return true
	}
	if !bigEqual(old.SqrtPriceX96, new.SqrtPriceX96) || !bigEqual(old.Liquidity, new.Liquidity) {
		return true
	}
	if !bigEqual(old.FeeGrowthGlobal0X128, new.FeeGrowthGlobal0X128) ||
		!bigEqual(old.FeeGrowthGlobal1X128, new.FeeGrowthGlobal1X128) {
		return true
	}

	// 2. Compare ticks (order-insensitive)

	if len(old.Ticks) != len(new.Ticks) {
		return true
	}

	oldTicks, newTicks := sortedTicks(old.Ticks), sortedTicks(new.Ticks)
	for i := range oldTicks {
		o, n := oldTicks[i], newTicks[i]
		if o.Index != n.Index {
			return true
		}
		if !bigEqual(o.LiquidityNet, n.LiquidityNet) || !bigEqual(o.LiquidityGross, n.LiquidityGross) {
			return true
		}
		if !bigEqual(o.FeeGrowthOutside0X128, n.FeeGrowthOutside0X128) ||
			!bigEqual(o.FeeGrowthOutside1X128, n.FeeGrowthOutside1X128) {
			return true
		}
	}

	return false
}

// Differ calculates the difference between two snapshots of pools, keyed by pool ID.
// The output lists are ordered by pool ID.
func Differ(old, new []Pool) SnapshotDiff {
	oldPoolsMap := make(map[uint64]Pool, len(old))
	for _, pool := range old {
		oldPoolsMap[pool.ID] = pool
	}

	newPoolsMap := make(map[uint64]Pool, len(new))
	for _, pool := range new {
		newPoolsMap[pool.ID] = pool
	}

	var diff SnapshotDiff

	for newID, newPool := range newPoolsMap {
		oldPool, exists := oldPoolsMap[newID]
		if !exists {
			diff.Additions = append(diff.Additions, newPool)
		} else if poolChanged(oldPool, newPool) {
			diff.Updates = append(diff.Updates, newPool)
		}
	}

	for oldID := range oldPoolsMap {
		if _, exists := newPoolsMap[oldID]; !exists {
			diff.Deletions = append(diff.Deletions, oldID)
		}
	}

	sort.Slice(diff.Additions, func(i, j int) bool { return diff.Additions[i].ID < diff.Additions[j].ID })
	sort.Slice(diff.Updates, func(i, j int) bool { return diff.Updates[i].ID < diff.Updates[j].ID })
	sort.Slice(diff.Deletions, func(i, j int) bool { return diff.Deletions[i] < diff.Deletions[j] })

	return diff
}
