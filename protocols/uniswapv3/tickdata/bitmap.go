package tickdata

import (
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/tickbitmap"
)

// Bitmap is a TickDataProvider backed by a tick bitmap for word searches and a map for tick lookups.
// A Bitmap is immutable and safe for concurrent use.
type Bitmap struct {
	bitmap      *tickbitmap.Bitmap
	ticks       map[int64]uniswapv3.TickInfo
	tickSpacing int64
}

// NewBitmap validates and indexes ticks.
func NewBitmap(ticks []uniswapv3.TickInfo, tickSpacing int64) (*Bitmap, error) {
	sorted, err := normalize(ticks, tickSpacing)
	if err != nil {
		return nil, err
	}

	b := &Bitmap{
		bitmap:      tickbitmap.New(),
		ticks:       make(map[int64]uniswapv3.TickInfo, len(sorted)),
		tickSpacing: tickSpacing,
	}
	for _, tick := range sorted {
		if err := b.bitmap.FlipTick(tick.Index, tickSpacing); err != nil {
			return nil, err
		}
		b.ticks[tick.Index] = tick
	}
	return b, nil
}

func (b *Bitmap) GetTick(tick int64) (uniswapv3.TickInfo, error) {
	info, ok := b.ticks[tick]
	if !ok {
		return uniswapv3.TickInfo{}, ErrTickNotInitialized
	}
	return uniswapv3.CopyTickInfo(info), nil
}

func (b *Bitmap) NextInitializedTickWithinOneWord(tick, tickSpacing int64, lte bool) (int64, bool, error) {
	if tickSpacing != b.tickSpacing {
		return 0, false, ErrTickSpacingMismatch
	}
	return b.bitmap.NextInitializedTickWithinOneWord(tick, tickSpacing, lte)
}

// Ticks returns a deep copy of the initialized ticks in ascending order.
func (b *Bitmap) Ticks() []uniswapv3.TickInfo {
	indices := b.bitmap.Ticks(b.tickSpacing)
	out := make([]uniswapv3.TickInfo, len(indices))
	for i, index := range indices {
		out[i] = uniswapv3.CopyTickInfo(b.ticks[index])
	}
	return out
}

// TickSpacing returns the spacing the bitmap was built with.
func (b *Bitmap) TickSpacing() int64 {
	return b.tickSpacing
}
