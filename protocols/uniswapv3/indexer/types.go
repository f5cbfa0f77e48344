package indexer

import (
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator"
	"github.com/ethereum/go-ethereum/common"
)

// IndexedUniswapV3 provides a read-only, indexed view of a pool snapshot. Besides raw lookups it
// hands out simulation-ready pools whose tick data is built once and shared between callers.
type IndexedUniswapV3 interface {
	GetByID(id uint64) (uniswapv3.Pool, bool)
	All() []uniswapv3.Pool
	ByToken(token common.Address) []uniswapv3.Pool
	Pool(id uint64) (calculator.Pool, error)
}
