package tickdata

import (
	"fmt"
	"math/big"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/liquiditymath"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/tickbitmap"
	"github.com/holiman/uint256"
)

var (
	ErrInvalidRange   = fmt.Errorf("%w: lower tick must be below upper tick", uniswapv3.ErrInvalidInput)
	ErrNetOutOfBounds = fmt.Errorf("%w: liquidity net exceeds int128", uniswapv3.ErrOverflow)

	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Builder maintains tick state while positions are minted and burned, mirroring how the pool
// updates its ticks. It is not safe for concurrent use; call Build to obtain an immutable provider.
type Builder struct {
	tickSpacing int64
	bitmap      *tickbitmap.Bitmap
	ticks       map[int64]uniswapv3.TickInfo
}

// NewBuilder returns an empty builder for the given spacing.
func NewBuilder(tickSpacing int64) (*Builder, error) {
	if tickSpacing <= 0 {
		return nil, ErrInvalidTickSpacing
	}
	return &Builder{
		tickSpacing: tickSpacing,
		bitmap:      tickbitmap.New(),
		ticks:       make(map[int64]uniswapv3.TickInfo),
	}, nil
}

// Update applies a signed liquidity delta to tick. upper is true when tick is the upper bound of the
// position, in which case liquidityNet moves opposite to the delta. It reports whether the tick
// flipped between initialized and uninitialized. Ticks whose gross liquidity returns to zero are removed.
func (b *Builder) Update(tick int64, liquidityDelta *big.Int, upper bool) (flipped bool, err error) {
	if err := checkTick(tick, b.tickSpacing); err != nil {
		return false, err
	}
	if liquidityDelta == nil {
		return false, ErrMissingLiquidity
	}

	info, exists := b.ticks[tick]
	grossBefore := new(uint256.Int)
	netBefore := new(big.Int)
	if exists {
		grossBefore.SetFromBig(info.LiquidityGross)
		netBefore.Set(info.LiquidityNet)
	}

	grossAfter := new(uint256.Int)
	if err := liquiditymath.AddDelta(grossAfter, grossBefore, liquidityDelta); err != nil {
		return false, fmt.Errorf("tick %d: %w", tick, err)
	}

	netAfter := new(big.Int)
	if upper {
		netAfter.Sub(netBefore, liquidityDelta)
	} else {
		netAfter.Add(netBefore, liquidityDelta)
	}
	if netAfter.Cmp(maxInt128) > 0 || netAfter.Cmp(minInt128) < 0 {
		return false, fmt.Errorf("tick %d: %w", tick, ErrNetOutOfBounds)
	}

	flipped = grossAfter.IsZero() != grossBefore.IsZero()
	if flipped {
		if err := b.bitmap.FlipTick(tick, b.tickSpacing); err != nil {
			return false, err
		}
	}

	if grossAfter.IsZero() {
		delete(b.ticks, tick)
		return flipped, nil
	}

	info.Index = tick
	info.LiquidityGross = grossAfter.ToBig()
	info.LiquidityNet = netAfter
	b.ticks[tick] = info
	return flipped, nil
}

// AddPosition applies liquidity to both bounds of [tickLower, tickUpper).
// A negative liquidity removes a previously added position.
func (b *Builder) AddPosition(tickLower, tickUpper int64, liquidity *big.Int) error {
	if tickLower >= tickUpper {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, tickLower, tickUpper)
	}
	// validate both ends before touching state so a failure leaves the builder unchanged
	if err := checkTick(tickLower, b.tickSpacing); err != nil {
		return err
	}
	if err := checkTick(tickUpper, b.tickSpacing); err != nil {
		return err
	}

	snapshot := b.snapshot(tickLower, tickUpper)
	if _, err := b.Update(tickLower, liquidity, false); err != nil {
		return err
	}
	if _, err := b.Update(tickUpper, liquidity, true); err != nil {
		if rerr := b.restore(snapshot); rerr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return err
	}
	return nil
}

type tickSnapshot struct {
	index  int64
	info   uniswapv3.TickInfo
	exists bool
}

func (b *Builder) snapshot(ticks ...int64) []tickSnapshot {
	out := make([]tickSnapshot, len(ticks))
	for i, tick := range ticks {
		info, ok := b.ticks[tick]
		out[i] = tickSnapshot{index: tick, info: info, exists: ok}
	}
	return out
}

// restore puts the ticks in snapshot back the way they were, bitmap included.
func (b *Builder) restore(snapshot []tickSnapshot) error {
	for _, s := range snapshot {
		_, now := b.ticks[s.index]
		if now != s.exists {
			if err := b.bitmap.FlipTick(s.index, b.tickSpacing); err != nil {
				return err
			}
		}
		if s.exists {
			b.ticks[s.index] = s.info
		} else {
			delete(b.ticks, s.index)
		}
	}
	return nil
}

// Len returns the number of initialized ticks.
func (b *Builder) Len() int {
	return len(b.ticks)
}

// Build freezes the current state into an immutable provider. The builder may keep being used.
func (b *Builder) Build() *Bitmap {
	ticks := make(map[int64]uniswapv3.TickInfo, len(b.ticks))
	for index, info := range b.ticks {
		ticks[index] = uniswapv3.CopyTickInfo(info)
	}
	return &Bitmap{
		bitmap:      b.bitmap.Clone(),
		ticks:       ticks,
		tickSpacing: b.tickSpacing,
	}
}
