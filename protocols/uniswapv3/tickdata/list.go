package tickdata

import (
	"sort"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
)

// TickList is a TickDataProvider over a sorted slice of initialized ticks.
// It answers word-bounded queries with binary search, returning exactly what a tick bitmap
// holding the same ticks would return. A TickList is immutable and safe for concurrent use.
type TickList struct {
	ticks       []uniswapv3.TickInfo
	tickSpacing int64
}

// NewTickList validates and copies ticks. The input need not be sorted.
func NewTickList(ticks []uniswapv3.TickInfo, tickSpacing int64) (*TickList, error) {
	sorted, err := normalize(ticks, tickSpacing)
	if err != nil {
		return nil, err
	}
	return &TickList{ticks: sorted, tickSpacing: tickSpacing}, nil
}

// GetTick returns the stored info for an initialized tick.
func (l *TickList) GetTick(tick int64) (uniswapv3.TickInfo, error) {
	index := sort.Search(len(l.ticks), func(i int) bool {
		return l.ticks[i].Index >= tick
	})
	if index < len(l.ticks) && l.ticks[index].Index == tick {
		return uniswapv3.CopyTickInfo(l.ticks[index]), nil
	}
	return uniswapv3.TickInfo{}, ErrTickNotInitialized
}

// NextInitializedTickWithinOneWord finds the next initialized tick within the bitmap word of tick.
//
//   - If lte is true, it finds the largest initialized tick less than or equal to tick.
//   - If lte is false, it finds the smallest initialized tick greater than tick.
//
// When the candidate lies outside the word, the word boundary is returned with initialized false.
func (l *TickList) NextInitializedTickWithinOneWord(tick, tickSpacing int64, lte bool) (next int64, initialized bool, err error) {
	if tickSpacing != l.tickSpacing {
		return 0, false, ErrTickSpacingMismatch
	}
	bound := wordBound(compress(tick, tickSpacing), tickSpacing, lte)

	if lte {
		// smallest index whose tick is above the target; the one before it is the answer
		index := sort.Search(len(l.ticks), func(i int) bool {
			return l.ticks[i].Index > tick
		})
		if index == 0 || l.ticks[index-1].Index < bound {
			return bound, false, nil
		}
		return l.ticks[index-1].Index, true, nil
	}

	index := sort.Search(len(l.ticks), func(i int) bool {
		return l.ticks[i].Index > tick
	})
	if index >= len(l.ticks) || l.ticks[index].Index > bound {
		return bound, false, nil
	}
	return l.ticks[index].Index, true, nil
}

// Ticks returns a deep copy of the initialized ticks in ascending order.
func (l *TickList) Ticks() []uniswapv3.TickInfo {
	out := make([]uniswapv3.TickInfo, len(l.ticks))
	for i, tick := range l.ticks {
		out[i] = uniswapv3.CopyTickInfo(tick)
	}
	return out
}

// TickSpacing returns the spacing the list was validated against.
func (l *TickList) TickSpacing() int64 {
	return l.tickSpacing
}
