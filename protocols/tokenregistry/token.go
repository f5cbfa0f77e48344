package tokenregistry

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a safe, structured representation of a token's data for external use.
// Two tokens are the same token when their addresses match.
type Token struct {
	ID       uint64         `json:"id"`
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

// Equals reports whether t and other share an address.
func (t Token) Equals(other Token) bool {
	return t.Address == other.Address
}

// SortsBefore reports whether t is token0 of a pool holding t and other.
func (t Token) SortsBefore(other Token) bool {
	return bytes.Compare(t.Address.Bytes(), other.Address.Bytes()) < 0
}

func (t Token) String() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address.Hex()
}

// Validate checks the fields a price computation relies on.
func (t Token) Validate() error {
	if t.Address == (common.Address{}) {
		return fmt.Errorf("token %d: zero address", t.ID)
	}
	if t.Decimals > 77 {
		// 10^78 exceeds 256 bits
		return fmt.Errorf("token %s: %d decimals", t, t.Decimals)
	}
	return nil
}
