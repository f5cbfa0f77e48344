// Package bitset provides a fixed-size set of small non-negative integers backed by 64-bit words.
package bitset

import (
	"fmt"
	"math/bits"
)

// BitSet is a fixed-size bit set. The zero value holds no bits.
type BitSet []uint64

// NewBitSet returns a set able to hold the indices [0, size).
func NewBitSet(size uint64) BitSet {
	return make(BitSet, (size+63)/64)
}

func position(index uint64) (word uint64, mask uint64) {
	return index / 64, uint64(1) << (index % 64)
}

// IsSet reports whether index is in the set.
func (b BitSet) IsSet(index uint64) bool {
	word, mask := position(index)
	return b[word]&mask != 0
}

func (b BitSet) Set(index uint64) {
	word, mask := position(index)
	b[word] |= mask
}

func (b BitSet) Unset(index uint64) {
	word, mask := position(index)
	b[word] &^= mask
}

// Clear removes every index.
func (b BitSet) Clear() {
	for i := range b {
		b[i] = 0
	}
}

// SetFrom overwrites b with o. Both sets must have the same size.
func (b BitSet) SetFrom(o BitSet) {
	if len(b) != len(o) {
		panic(fmt.Sprintf("bitsets must be same size: got %d vs %d", len(b), len(o)))
	}
	copy(b, o)
}

// Clone returns an independent copy of b.
func (b BitSet) Clone() BitSet {
	c := make(BitSet, len(b))
	copy(c, b)
	return c
}

// Count returns the number of indices in the set.
func (b BitSet) Count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// Indices returns the indices in the set in ascending order.
func (b BitSet) Indices() []uint64 {
	out := make([]uint64, 0, b.Count())
	for i, w := range b {
		for w != 0 {
			out = append(out, uint64(i)*64+uint64(bits.TrailingZeros64(w)))
			w &= w - 1
		}
	}
	return out
}
