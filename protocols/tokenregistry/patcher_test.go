package tokenregistry

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestToken returns a token whose address sorts by ID.
func newTestToken(id uint64, symbol string, decimals uint8) Token {
	return Token{
		ID:       id,
		Address:  common.HexToAddress(fmt.Sprintf("0x%040x", id)),
		Name:     symbol + " token",
		Symbol:   symbol,
		Decimals: decimals,
	}
}

func symbols(tokens []Token) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Symbol)
	}
	return out
}

func TestPatcher(t *testing.T) {
	weth := newTestToken(1, "WETH", 18)
	usdc := newTestToken(2, "USDC", 6)
	dai := newTestToken(3, "DAI", 18)

	testCases := []struct {
		name     string
		prev     []Token
		diff     TokenDiff
		expected []string
	}{
		{
			name:     "addition",
			prev:     []Token{weth, usdc, dai},
			diff:     TokenDiff{Additions: []Token{newTestToken(4, "WBTC", 8)}},
			expected: []string{"WETH", "USDC", "DAI", "WBTC"},
		},
		{
			name:     "deletion",
			prev:     []Token{weth, usdc, dai},
			diff:     TokenDiff{Deletions: []uint64{2}},
			expected: []string{"WETH", "DAI"},
		},
		{
			name:     "update",
			prev:     []Token{weth, usdc, dai},
			diff:     TokenDiff{Updates: []Token{newTestToken(1, "WETH9", 8)}},
			expected: []string{"WETH9", "USDC", "DAI"},
		},
		{
			name: "mixed",
			prev: []Token{weth, usdc, dai},
			diff: TokenDiff{
				Additions: []Token{newTestToken(4, "WBTC", 8)},
				Updates:   []Token{newTestToken(2, "USDC.e", 6)},
				Deletions: []uint64{3},
			},
			expected: []string{"WETH", "USDC.e", "WBTC"},
		},
		{
			name:     "empty diff",
			prev:     []Token{weth, usdc, dai},
			expected: []string{"WETH", "USDC", "DAI"},
		},
		{
			name:     "orders by id",
			prev:     []Token{dai, weth},
			diff:     TokenDiff{Additions: []Token{usdc}},
			expected: []string{"WETH", "USDC", "DAI"},
		},
		{
			name:     "from nothing",
			diff:     TokenDiff{Additions: []Token{dai, weth}},
			expected: []string{"WETH", "DAI"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Patcher(tc.prev, tc.diff)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, symbols(next))
		})
	}

	t.Run("round trip", func(t *testing.T) {
		prev := []Token{weth, usdc, dai}
		target := []Token{newTestToken(1, "WETH9", 18), dai, newTestToken(5, "LINK", 18)}
		next, err := Patcher(prev, Differ(prev, target))
		require.NoError(t, err)
		assert.True(t, Differ(next, target).IsEmpty())
		assert.Equal(t, []string{"WETH", "USDC", "DAI"}, symbols(prev), "the previous list is untouched")
	})
}

func TestPatcher_Conflicts(t *testing.T) {
	prev := []Token{newTestToken(1, "WETH", 18), newTestToken(2, "USDC", 6)}

	testCases := []struct {
		name string
		diff TokenDiff
	}{
		{"delete missing", TokenDiff{Deletions: []uint64{9}}},
		{"update missing", TokenDiff{Updates: []Token{newTestToken(9, "X", 1)}}},
		{"add present", TokenDiff{Additions: []Token{newTestToken(2, "USDC", 6)}}},
		{"update deleted", TokenDiff{Deletions: []uint64{1}, Updates: []Token{newTestToken(1, "WETH", 18)}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Patcher(prev, tc.diff)
			assert.ErrorIs(t, err, ErrPatchConflict)
		})
	}
}
