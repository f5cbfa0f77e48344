// Package differ computes the change set between two snapshots of the same chain.
package differ

import (
	"errors"
	"fmt"
	"time"

	"github.com/defistate/v3sim-go/protocols/tokenregistry"
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/snapshot"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrChainMismatch = errors.New("differ: snapshots belong to different chains")
	ErrBlockOrder    = errors.New("differ: new snapshot precedes old snapshot")
)

// StateDifferConfig holds the differ's dependencies.
type StateDifferConfig struct {
	Registry prometheus.Registerer
	Logger   Logger
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *StateDifferConfig) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// StateDiffer diffs snapshots, recording metrics for every diff.
type StateDiffer struct {
	metrics *Metrics
	logger  Logger
}

// NewStateDiffer constructs a new differ from a configuration, returning an error if the config is invalid.
func NewStateDiffer(cfg *StateDifferConfig) (*StateDiffer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &StateDiffer{
		metrics: NewMetrics(cfg.Registry),
		logger:  cfg.Logger,
	}, nil
}

// Diff returns the changes from old to new. Both snapshots must be of the same chain and new
// must not precede old.
func (d *StateDiffer) Diff(old, new *snapshot.Snapshot) (*StateDiff, error) {
	timer := prometheus.NewTimer(d.metrics.diffDuration.WithLabelValues())
	defer timer.ObserveDuration()

	if old.ChainID != new.ChainID {
		return nil, fmt.Errorf("%w: %d and %d", ErrChainMismatch, old.ChainID, new.ChainID)
	}
	if new.Block < old.Block {
		return nil, fmt.Errorf("%w: block %d before %d", ErrBlockOrder, new.Block, old.Block)
	}

	diff := &StateDiff{
		Timestamp: uint64(time.Now().UnixNano()),
		ChainID:   new.ChainID,
		FromBlock: old.Block,
		ToBlock:   new.Block,
		Tokens:    tokenregistry.Differ(old.Tokens, new.Tokens),
		Pools:     uniswapv3.Differ(old.Pools, new.Pools),
	}
	d.metrics.observe(diff)

	d.logger.Debug("diffed snapshots",
		"from_block", diff.FromBlock,
		"to_block", diff.ToBlock,
		"pools_added", len(diff.Pools.Additions),
		"pools_updated", len(diff.Pools.Updates),
		"pools_deleted", len(diff.Pools.Deletions),
		"tokens_changed", len(diff.Tokens.Additions)+len(diff.Tokens.Updates)+len(diff.Tokens.Deletions),
	)
	return diff, nil
}
