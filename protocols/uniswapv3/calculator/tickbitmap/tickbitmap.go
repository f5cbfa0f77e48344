package tickbitmap

import (
	"fmt"
	"math/bits"
	"sort"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/bitmath"
	"github.com/holiman/uint256"
)

var (
	ErrInvalidTickSpacing = fmt.Errorf("%w: tick spacing must be positive", uniswapv3.ErrInvalidInput)
	ErrTickNotSpaced      = fmt.Errorf("%w: tick is not a multiple of the tick spacing", uniswapv3.ErrInvalidInput)
)

// Bitmap is a packed map of initialized ticks. Each word holds 256 compressed ticks,
// where a compressed tick is the tick divided by the pool's tick spacing.
// The zero value is not usable; call New.
type Bitmap struct {
	words map[int16]uint256.Int
}

// New returns an empty bitmap.
func New() *Bitmap {
	return &Bitmap{words: make(map[int16]uint256.Int)}
}

// Position computes the word and bit position of a compressed tick.
func Position(compressed int64) (wordPos int16, bitPos uint8) {
	return int16(compressed >> 8), uint8(compressed & 0xff)
}

// compress divides tick by tickSpacing, rounding towards negative infinity.
func compress(tick, tickSpacing int64) int64 {
	compressed := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		compressed--
	}
	return compressed
}

// FlipTick flips the initialized state of tick.
func (b *Bitmap) FlipTick(tick, tickSpacing int64) error {
	if tickSpacing <= 0 {
		return ErrInvalidTickSpacing
	}
	if tick%tickSpacing != 0 {
		return fmt.Errorf("%w: tick %d, spacing %d", ErrTickNotSpaced, tick, tickSpacing)
	}

	wordPos, bitPos := Position(tick / tickSpacing)
	var mask uint256.Int
	mask.Lsh(uint256.NewInt(1), uint(bitPos))

	word := b.words[wordPos]
	word.Xor(&word, &mask)
	if word.IsZero() {
		delete(b.words, wordPos)
	} else {
		b.words[wordPos] = word
	}
	return nil
}

// IsInitialized reports whether tick is flipped on.
func (b *Bitmap) IsInitialized(tick, tickSpacing int64) bool {
	if tickSpacing <= 0 || tick%tickSpacing != 0 {
		return false
	}
	wordPos, bitPos := Position(tick / tickSpacing)
	word, ok := b.words[wordPos]
	if !ok {
		return false
	}
	var bit uint256.Int
	bit.Rsh(&word, uint(bitPos))
	return bit.Uint64()&1 == 1
}

// NextInitializedTickWithinOneWord returns the next initialized tick contained in the same word
// (or adjacent word) as the tick that is either to the left (less than or equal to) or right
// (greater than) of the given tick. When no tick is initialized in that word, it returns the word
// boundary with initialized set to false, so callers never scan more than 256 compressed ticks.
func (b *Bitmap) NextInitializedTickWithinOneWord(tick, tickSpacing int64, lte bool) (next int64, initialized bool, err error) {
	if tickSpacing <= 0 {
		return 0, false, ErrInvalidTickSpacing
	}
	compressed := compress(tick, tickSpacing)

	var mask, masked uint256.Int
	if lte {
		wordPos, bitPos := Position(compressed)
		// all the 1s at or to the right of the current bitPos
		one := uint256.NewInt(1)
		mask.Lsh(one, uint(bitPos))
		mask.Add(&mask, new(uint256.Int).SubUint64(&mask, 1))

		word := b.words[wordPos]
		masked.And(&word, &mask)

		if masked.IsZero() {
			return (compressed - int64(bitPos)) * tickSpacing, false, nil
		}
		msb, err := bitmath.MostSignificantBit(&masked)
		if err != nil {
			return 0, false, err
		}
		return (compressed - int64(bitPos-msb)) * tickSpacing, true, nil
	}

	// start from the word of the next tick, since the current tick state doesn't matter
	compressed++
	wordPos, bitPos := Position(compressed)
	// all the 1s at or to the left of the bitPos
	mask.Lsh(uint256.NewInt(1), uint(bitPos))
	mask.SubUint64(&mask, 1)
	mask.Not(&mask)

	word := b.words[wordPos]
	masked.And(&word, &mask)

	if masked.IsZero() {
		return (compressed + int64(255-bitPos)) * tickSpacing, false, nil
	}
	lsb, err := bitmath.LeastSignificantBit(&masked)
	if err != nil {
		return 0, false, err
	}
	return (compressed + int64(lsb-bitPos)) * tickSpacing, true, nil
}

// Ticks returns every initialized tick in ascending order.
func (b *Bitmap) Ticks(tickSpacing int64) []int64 {
	positions := make([]int16, 0, len(b.words))
	for pos := range b.words {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	var ticks []int64
	for _, pos := range positions {
		word := b.words[pos]
		for i := 0; i < 4; i++ {
			limb := word[i]
			for limb != 0 {
				bit := int64(i*64) + int64(bits.TrailingZeros64(limb))
				ticks = append(ticks, (int64(pos)<<8+bit)*tickSpacing)
				limb &= limb - 1
			}
		}
	}
	return ticks
}

// Clone returns an independent copy of the bitmap.
func (b *Bitmap) Clone() *Bitmap {
	words := make(map[int16]uint256.Int, len(b.words))
	for pos, word := range b.words {
		words[pos] = word
	}
	return &Bitmap{words: words}
}

// Len returns the number of non-empty words.
func (b *Bitmap) Len() int {
	return len(b.words)
}
