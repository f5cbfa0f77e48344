package indexer

import (
	"fmt"
	"sort"
	"sync/atomic"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/tickdata"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of tick providers kept when no size is configured.
const DefaultCacheSize = 256

var (
	ErrPoolNotFound  = fmt.Errorf("%w: pool not found", uniswapv3.ErrInvalidInput)
	ErrDuplicatePool = fmt.Errorf("%w: duplicate pool id", uniswapv3.ErrInvalidInput)
)

// Indexer builds IndexedUniswapV3 views from pool snapshots.
type Indexer struct {
	cacheSize int
}

// New creates a new Indexer. A non-positive cacheSize selects DefaultCacheSize.
func New(cacheSize int) *Indexer {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Indexer{cacheSize: cacheSize}
}

// Index creates an indexed system from a raw slice of pools.
func (i *Indexer) Index(pools []uniswapv3.Pool) (IndexedUniswapV3, error) {
	return NewIndexableUniswapV3System(pools, i.cacheSize)
}

// IndexableUniswapV3System provides fast, indexed access to Uniswap V3 pool data.
// It is safe for concurrent use.
type IndexableUniswapV3System struct {
	byID    map[uint64]uniswapv3.Pool
	byToken map[common.Address][]uint64
	all     []uniswapv3.Pool

	// tick providers are built lazily, keyed by pool ID
	providers *lru.Cache[uint64, *tickdata.Bitmap]
	hits      atomic.Uint64
	misses    atomic.Uint64
}

// NewIndexableUniswapV3System indexes pools by ID and by token.
func NewIndexableUniswapV3System(pools []uniswapv3.Pool, cacheSize int) (*IndexableUniswapV3System, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	providers, err := lru.New[uint64, *tickdata.Bitmap](cacheSize)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]uniswapv3.Pool, len(pools))
	byToken := make(map[common.Address][]uint64)
	for _, p := range pools {
		if _, ok := byID[p.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePool, p.ID)
		}
		byID[p.ID] = p
		byToken[p.Token0] = append(byToken[p.Token0], p.ID)
		if p.Token1 != p.Token0 {
			byToken[p.Token1] = append(byToken[p.Token1], p.ID)
		}
	}
	for _, ids := range byToken {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	all := make([]uniswapv3.Pool, len(pools))
	copy(all, pools)

	return &IndexableUniswapV3System{
		byID:      byID,
		byToken:   byToken,
		all:       all,
		providers: providers,
	}, nil
}

// GetByID retrieves a pool by its unique ID.
func (ius *IndexableUniswapV3System) GetByID(id uint64) (uniswapv3.Pool, bool) {
	p, ok := ius.byID[id]
	return p, ok
}

// All returns a defensive copy of the slice of all pools.
func (ius *IndexableUniswapV3System) All() []uniswapv3.Pool {
	allCopy := make([]uniswapv3.Pool, len(ius.all))
	copy(allCopy, ius.all)
	return allCopy
}

// ByToken returns the pools holding token, ordered by ID.
func (ius *IndexableUniswapV3System) ByToken(token common.Address) []uniswapv3.Pool {
	ids := ius.byToken[token]
	pools := make([]uniswapv3.Pool, 0, len(ids))
	for _, id := range ids {
		pools = append(pools, ius.byID[id])
	}
	return pools
}

// Pool returns the pool ready for simulation. Its tick data is built on first use and cached.
func (ius *IndexableUniswapV3System) Pool(id uint64) (calculator.Pool, error) {
	p, ok := ius.byID[id]
	if !ok {
		return calculator.Pool{}, fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}

	provider, ok := ius.providers.Get(id)
	if ok {
		ius.hits.Add(1)
	} else {
		ius.misses.Add(1)
		var err error
		provider, err = tickdata.NewBitmap(p.Ticks, int64(p.TickSpacing))
		if err != nil {
			return calculator.Pool{}, fmt.Errorf("pool %d: %w", id, err)
		}
		ius.providers.Add(id, provider)
	}
	return calculator.NewPool(p.PoolViewMinimal, provider)
}

// Pools returns simulation-ready pools for every pool in the snapshot, skipping none.
// The first pool that fails validation aborts the call.
func (ius *IndexableUniswapV3System) Pools() ([]calculator.Pool, error) {
	pools := make([]calculator.Pool, 0, len(ius.all))
	for _, p := range ius.all {
		pool, err := ius.Pool(p.ID)
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// CacheStats returns the tick provider cache hits and misses so far.
func (ius *IndexableUniswapV3System) CacheStats() (hits, misses uint64) {
	return ius.hits.Load(), ius.misses.Load()
}
