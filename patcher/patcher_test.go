package patcher

import (
	"math/big"
	"testing"

	"github.com/defistate/v3sim-go/differ"
	"github.com/defistate/v3sim-go/protocols/tokenregistry"
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/snapshot"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA = common.HexToAddress("0x01")
	addrB = common.HexToAddress("0x02")
	addrC = common.HexToAddress("0x03")
)

func pool(id uint64, token0, token1 common.Address, liquidity int64) uniswapv3.Pool {
	return uniswapv3.Pool{
		PoolViewMinimal: uniswapv3.PoolViewMinimal{
			ID:           id,
			Token0:       token0,
			Token1:       token1,
			Fee:          3000,
			TickSpacing:  60,
			Liquidity:    big.NewInt(liquidity),
			SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96),
		},
		Ticks: []uniswapv3.TickInfo{
			{Index: -60, LiquidityGross: big.NewInt(liquidity), LiquidityNet: big.NewInt(liquidity)},
			{Index: 60, LiquidityGross: big.NewInt(liquidity), LiquidityNet: big.NewInt(-liquidity)},
		},
	}
}

func makeState(block uint64) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		ChainID: 1,
		Block:   block,
		Tokens: []tokenregistry.Token{
			{ID: 1, Address: addrA, Symbol: "AAA", Decimals: 18},
			{ID: 2, Address: addrB, Symbol: "BBB", Decimals: 18},
		},
		Pools: []uniswapv3.Pool{pool(1, addrA, addrB, 1000)},
	}
}

func TestPatch_HappyPath(t *testing.T) {
	old := makeState(100)

	diff := &differ.StateDiff{
		Timestamp: 42,
		ChainID:   1,
		FromBlock: 100,
		ToBlock:   101,
		Tokens: tokenregistry.TokenDiff{
			Additions: []tokenregistry.Token{{ID: 3, Address: addrC, Symbol: "CCC", Decimals: 6}},
		},
		Pools: uniswapv3.SnapshotDiff{
			Additions: []uniswapv3.Pool{pool(2, addrB, addrC, 500)},
			Updates:   []uniswapv3.Pool{pool(1, addrA, addrB, 2000)},
		},
	}

	next, err := Patch(old, diff)
	require.NoError(t, err)

	assert.Equal(t, uint64(101), next.Block)
	assert.Equal(t, uint64(42), next.Timestamp)
	require.Len(t, next.Tokens, 3)
	require.Len(t, next.Pools, 2)
	assert.Equal(t, "2000", next.Pools[0].Liquidity.String())
	assert.Equal(t, uint64(2), next.Pools[1].ID)

	// the old state is untouched and shares nothing with the new one
	assert.Equal(t, "1000", old.Pools[0].Liquidity.String())
	assert.Equal(t, uint64(100), old.Block)
	next.Pools[0].Ticks[0].LiquidityNet.SetInt64(7)
	assert.Equal(t, "1000", old.Pools[0].Ticks[0].LiquidityNet.String())
}

func TestPatch_Deletion(t *testing.T) {
	old := makeState(5)
	next, err := Patch(old, &differ.StateDiff{
		ChainID:   1,
		FromBlock: 5,
		ToBlock:   6,
		Pools:     uniswapv3.SnapshotDiff{Deletions: []uint64{1}},
	})
	require.NoError(t, err)
	assert.Empty(t, next.Pools)
	assert.Len(t, next.Tokens, 2)
}

func TestPatch_Errors(t *testing.T) {
	testCases := []struct {
		name string
		diff *differ.StateDiff
	}{
		{
			name: "block mismatch",
			diff: &differ.StateDiff{ChainID: 1, FromBlock: 99, ToBlock: 101},
		},
		{
			name: "chain mismatch",
			diff: &differ.StateDiff{ChainID: 2, FromBlock: 100, ToBlock: 101},
		},
		{
			name: "pool references a deleted token",
			diff: &differ.StateDiff{
				ChainID:   1,
				FromBlock: 100,
				ToBlock:   101,
				Tokens:    tokenregistry.TokenDiff{Deletions: []uint64{2}},
			},
		},
		{
			name: "diff computed against another state",
			diff: &differ.StateDiff{
				ChainID:   1,
				FromBlock: 100,
				ToBlock:   101,
				Pools:     uniswapv3.SnapshotDiff{Updates: []uniswapv3.Pool{pool(9, addrA, addrB, 1)}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Patch(makeState(100), tc.diff)
			assert.Error(t, err)
		})
	}
}
