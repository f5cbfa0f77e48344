package bitmath

import (
	"fmt"
	"math/bits"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/holiman/uint256"
)

var (
	// ErrInputIsZero is returned when a function requires a non-zero input but receives zero.
	ErrInputIsZero = fmt.Errorf("%w: input must be greater than zero", uniswapv3.ErrInvalidInput)
	// ErrInputIsNil is returned when a function receives a nil pointer.
	ErrInputIsNil = fmt.Errorf("%w: input cannot be nil", uniswapv3.ErrInvalidInput)
)

// MostSignificantBit returns the index of the most significant bit of the number,
// where the least significant bit is at index 0.
// This function is the Go equivalent of the Solidity BitMath.mostSignificantBit function.
//
// The function satisfies the property: x >= 2**msb(x) and x < 2**(msb(x)+1)
func MostSignificantBit(x *uint256.Int) (uint8, error) {
	if x == nil {
		return 0, ErrInputIsNil
	}
	if x.IsZero() {
		return 0, ErrInputIsZero
	}
	return uint8(x.BitLen() - 1), nil
}

// LeastSignificantBit returns the index of the least significant bit of the number,
// where the least significant bit is at index 0.
//
// The function satisfies the property: (x & 2**lsb(x)) != 0
func LeastSignificantBit(x *uint256.Int) (uint8, error) {
	if x == nil {
		return 0, ErrInputIsNil
	}
	// uint256.Int is four little-endian uint64 words.
	for i, word := range x {
		if word != 0 {
			return uint8(i*64 + bits.TrailingZeros64(word)), nil
		}
	}
	return 0, ErrInputIsZero
}
