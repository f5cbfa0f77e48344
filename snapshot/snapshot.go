// Package snapshot holds a point-in-time copy of the tokens and Uniswap V3 pools of one chain,
// reads and writes it as JSON, and commits simulated trades into a successor snapshot.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"

	"github.com/defistate/v3sim-go/protocols/tokenregistry"
	tokenindexer "github.com/defistate/v3sim-go/protocols/tokenregistry/indexer"
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/route"
)

var (
	ErrInvalidSnapshot = fmt.Errorf("%w: invalid snapshot", uniswapv3.ErrInvalidInput)
	ErrUnknownPool     = fmt.Errorf("%w: pool is not in the snapshot", uniswapv3.ErrInvalidInput)
)

// Snapshot is the state a simulation runs against.
type Snapshot struct {
	ChainID uint64 `json:"chainId"`
	// Block is the block the pool data was synced at.
	Block     uint64 `json:"block"`
	Timestamp uint64 `json:"timestamp"`

	Tokens []tokenregistry.Token `json:"tokens"`
	Pools  []uniswapv3.Pool      `json:"pools"`
}

// Validate checks that tokens are unique and well formed, pool IDs are unique, and every pool
// references known tokens.
func (s *Snapshot) Validate() error {
	tokens, err := tokenindexer.NewIndexableTokenSystem(s.Tokens)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	seen := make(map[uint64]struct{}, len(s.Pools))
	for _, p := range s.Pools {
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("%w: duplicate pool %d", ErrInvalidSnapshot, p.ID)
		}
		seen[p.ID] = struct{}{}

		if p.Token0 == p.Token1 {
			return fmt.Errorf("%w: pool %d trades %s against itself", ErrInvalidSnapshot, p.ID, p.Token0.Hex())
		}
		if _, ok := tokens.GetByAddress(p.Token0); !ok {
			return fmt.Errorf("%w: pool %d token0 %s is unknown", ErrInvalidSnapshot, p.ID, p.Token0.Hex())
		}
		if _, ok := tokens.GetByAddress(p.Token1); !ok {
			return fmt.Errorf("%w: pool %d token1 %s is unknown", ErrInvalidSnapshot, p.ID, p.Token1.Hex())
		}
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		ChainID:   s.ChainID,
		Block:     s.Block,
		Timestamp: s.Timestamp,
		Tokens:    append([]tokenregistry.Token(nil), s.Tokens...),
		Pools:     make([]uniswapv3.Pool, len(s.Pools)),
	}
	for i, p := range s.Pools {
		c.Pools[i] = uniswapv3.CopyPool(p)
	}
	return c
}

// Commit returns the snapshot as it would be after trade executed. Every pool on the route gets
// its post-swap price, tick, liquidity and fee growth, and the crossed ticks have their fee
// growth outside flipped. The trade must have been priced against s. s is not modified.
func (s *Snapshot) Commit(trade *route.Trade) (*Snapshot, error) {
	results, err := trade.SwapResults()
	if err != nil {
		return nil, err
	}

	next := s.Clone()
	index := make(map[uint64]int, len(next.Pools))
	for i, p := range next.Pools {
		index[p.ID] = i
	}

	touched := make(map[uint64]struct{}, len(results))
	for hop, res := range results {
		id := trade.Route.Pools[hop].ID
		i, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownPool, id)
		}
		if _, ok := touched[id]; ok {
			return nil, fmt.Errorf("%w: pool %d is used twice", uniswapv3.ErrInvalidInput, id)
		}
		touched[id] = struct{}{}
		if !samePoolState(trade.Route.Pools[hop].PoolViewMinimal, next.Pools[i].PoolViewMinimal) {
			return nil, fmt.Errorf("%w: trade was priced against another state of pool %d", ErrInvalidSnapshot, id)
		}
		next.Pools[i] = res.ApplyTo(next.Pools[i])
	}
	return next, nil
}

func samePoolState(a, b uniswapv3.PoolViewMinimal) bool {
	return a.Tick == b.Tick && sameBig(a.SqrtPriceX96, b.SqrtPriceX96) && sameBig(a.Liquidity, b.Liquidity)
}

func sameBig(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}

// Decode reads a JSON snapshot from r and validates it. Pools are ordered by ID.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sort.Slice(s.Pools, func(i, j int) bool { return s.Pools[i].ID < s.Pools[j].ID })
	return &s, nil
}

// Encode writes s to w as indented JSON.
func (s *Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// ReadFile loads a snapshot from path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile stores s at path, replacing any existing file.
func (s *Snapshot) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
