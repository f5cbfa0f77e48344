package differ

import (
	"github.com/defistate/v3sim-go/protocols/tokenregistry"
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StateDiff is a summary of changes FromBlock to ToBlock. Applying it to the snapshot at FromBlock
// reproduces the snapshot at ToBlock.
type StateDiff struct {
	Timestamp uint64 `json:"timestamp"`
	ChainID   uint64 `json:"chainId"`
	FromBlock uint64 `json:"fromBlock"`
	ToBlock   uint64 `json:"toBlock"`

	Tokens tokenregistry.TokenDiff `json:"tokens"`
	Pools  uniswapv3.SnapshotDiff  `json:"pools"`
}

// IsEmpty reports whether the diff carries no token or pool change.
func (d *StateDiff) IsEmpty() bool {
	return d.Tokens.IsEmpty() && d.Pools.IsEmpty()
}
