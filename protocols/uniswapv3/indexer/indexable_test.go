package indexer

import (
	"math/big"
	"testing"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/tickdata"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenA = common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0x0000000000000000000000000000000000000002")
	tokenC = common.HexToAddress("0x0000000000000000000000000000000000000003")
	tokenD = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

// testPool returns a pool priced at 1:1 with liquidity on [-60, 60].
func testPool(id uint64, token0, token1 common.Address) uniswapv3.Pool {
	l := big.NewInt(1_000_000_000_000_000_000)
	return uniswapv3.Pool{
		PoolViewMinimal: uniswapv3.PoolViewMinimal{
			ID:           id,
			Token0:       token0,
			Token1:       token1,
			Fee:          3000,
			TickSpacing:  60,
			Tick:         0,
			Liquidity:    l,
			SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96),
		},
		Ticks: []uniswapv3.TickInfo{
			{Index: -60, LiquidityGross: l, LiquidityNet: l},
			{Index: 60, LiquidityGross: l, LiquidityNet: new(big.Int).Neg(l)},
		},
	}
}

func TestIndexableUniswapV3System(t *testing.T) {
	testPools := []uniswapv3.Pool{
		testPool(203, tokenA, tokenC),
		testPool(201, tokenA, tokenB),
		testPool(202, tokenC, tokenD),
	}

	idx, err := NewIndexableUniswapV3System(testPools, 2)
	require.NoError(t, err)

	t.Run("Successful Lookups", func(t *testing.T) {
		pool, found := idx.GetByID(201)
		assert.True(t, found, "Pool should be found by ID 201")
		assert.Equal(t, tokenA, pool.Token0)
		require.Len(t, pool.Ticks, 2)
		assert.Equal(t, int64(-60), pool.Ticks[0].Index)
	})

	t.Run("Not Found Lookups", func(t *testing.T) {
		_, found := idx.GetByID(999)
		assert.False(t, found)

		_, err := idx.Pool(999)
		assert.ErrorIs(t, err, ErrPoolNotFound)
		assert.ErrorIs(t, err, uniswapv3.ErrInvalidInput)
	})

	t.Run("All Method", func(t *testing.T) {
		allPools := idx.All()
		require.Len(t, allPools, 3)

		allPools[0].Tick = -1
		original, _ := idx.GetByID(203)
		assert.Equal(t, int64(0), original.Tick, "modifying the returned slice should not affect the index")
	})

	t.Run("ByToken", func(t *testing.T) {
		ids := func(pools []uniswapv3.Pool) []uint64 {
			out := make([]uint64, 0, len(pools))
			for _, p := range pools {
				out = append(out, p.ID)
			}
			return out
		}
		assert.Equal(t, []uint64{201, 203}, ids(idx.ByToken(tokenA)))
		assert.Equal(t, []uint64{202, 203}, ids(idx.ByToken(tokenC)))
		assert.Equal(t, []uint64{202}, ids(idx.ByToken(tokenD)))
		assert.Empty(t, idx.ByToken(common.HexToAddress("0xdead")))
	})

	t.Run("Pool caches tick providers", func(t *testing.T) {
		before, missesBefore := idx.CacheStats()

		p1, err := idx.Pool(201)
		require.NoError(t, err)
		p2, err := idx.Pool(201)
		require.NoError(t, err)

		hits, misses := idx.CacheStats()
		assert.Equal(t, before+1, hits)
		assert.Equal(t, missesBefore+1, misses)
		assert.Same(t, p1.Ticks, p2.Ticks, "the provider should be shared")

		_, ok := p1.Ticks.(*tickdata.Bitmap)
		assert.True(t, ok)

		res, err := p1.SimulateSwap(true, big.NewInt(1_000_000), nil)
		require.NoError(t, err)
		assert.True(t, res.Filled())
	})

	t.Run("Pool evicts beyond cache size", func(t *testing.T) {
		for _, id := range []uint64{201, 202, 203} {
			_, err := idx.Pool(id)
			require.NoError(t, err)
		}
		_, missesBefore := idx.CacheStats()
		// 201 was evicted by 202 and 203
		_, err := idx.Pool(201)
		require.NoError(t, err)
		_, misses := idx.CacheStats()
		assert.Equal(t, missesBefore+1, misses)
	})

	t.Run("Pools", func(t *testing.T) {
		pools, err := idx.Pools()
		require.NoError(t, err)
		require.Len(t, pools, 3)
		assert.Equal(t, uint64(203), pools[0].ID)
	})

	t.Run("Edge Case - Empty Slice", func(t *testing.T) {
		empty, err := NewIndexableUniswapV3System([]uniswapv3.Pool{}, 0)
		require.NoError(t, err)
		assert.Empty(t, empty.All())
		pools, err := empty.Pools()
		require.NoError(t, err)
		assert.Empty(t, pools)
	})
}

func TestIndexableUniswapV3System_Errors(t *testing.T) {
	t.Run("duplicate id", func(t *testing.T) {
		_, err := NewIndexableUniswapV3System([]uniswapv3.Pool{
			testPool(1, tokenA, tokenB),
			testPool(1, tokenA, tokenC),
		}, 0)
		assert.ErrorIs(t, err, ErrDuplicatePool)
	})

	t.Run("bad ticks are not cached", func(t *testing.T) {
		bad := testPool(5, tokenA, tokenB)
		bad.Ticks = []uniswapv3.TickInfo{{Index: 7, LiquidityGross: big.NewInt(1), LiquidityNet: big.NewInt(1)}}
		idx, err := NewIndexableUniswapV3System([]uniswapv3.Pool{bad}, 0)
		require.NoError(t, err)

		_, err = idx.Pool(5)
		require.Error(t, err)
		_, err = idx.Pool(5)
		require.Error(t, err)
		_, misses := idx.CacheStats()
		assert.Equal(t, uint64(2), misses)

		_, err = idx.Pools()
		assert.Error(t, err)
	})
}

func TestIndexer(t *testing.T) {
	indexer := New(0)
	assert.Equal(t, DefaultCacheSize, indexer.cacheSize)

	system, err := indexer.Index([]uniswapv3.Pool{testPool(1, tokenA, tokenB)})
	require.NoError(t, err)
	assert.Len(t, system.All(), 1)

	pool, err := system.Pool(1)
	require.NoError(t, err)
	assert.True(t, pool.InvolvesToken(tokenB))
}
