// Package patcher reconstructs a snapshot from its predecessor and a diff.
package patcher

import (
	"fmt"

	"github.com/defistate/v3sim-go/differ"
	"github.com/defistate/v3sim-go/protocols/tokenregistry"
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/snapshot"
)

// Patch creates a new snapshot by applying diff to old. old is not modified and the result shares
// no memory with it. The patched snapshot is validated before it is returned.
func Patch(old *snapshot.Snapshot, diff *differ.StateDiff) (*snapshot.Snapshot, error) {
	// 1. Integrity check
	if old.ChainID != diff.ChainID {
		return nil, fmt.Errorf("patcher: mismatch chain (state=%d, diff=%d)", old.ChainID, diff.ChainID)
	}
	if old.Block != diff.FromBlock {
		return nil, fmt.Errorf("patcher: mismatch fromBlock (state=%d, diff=%d)", old.Block, diff.FromBlock)
	}

	// 2. Apply both change sets
	tokens, err := tokenregistry.Patcher(old.Tokens, diff.Tokens)
	if err != nil {
		return nil, fmt.Errorf("patcher: failed to patch tokens: %w", err)
	}
	pools, err := uniswapv3.Patcher(old.Pools, diff.Pools)
	if err != nil {
		return nil, fmt.Errorf("patcher: failed to patch pools: %w", err)
	}

	next := &snapshot.Snapshot{
		ChainID:   old.ChainID,
		Block:     diff.ToBlock,
		Timestamp: diff.Timestamp,
		Tokens:    tokens,
		Pools:     pools,
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("patcher: %w", err)
	}
	return next, nil
}
