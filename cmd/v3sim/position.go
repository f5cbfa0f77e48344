package main

import (
	"fmt"
	"math/big"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/indexer"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/position"
	"github.com/defistate/v3sim-go/snapshot"
	"github.com/spf13/cobra"
)

type positionFlags struct {
	snapshot string
	poolID   uint64
	lower    int64
	upper    int64
	amount0  string
	amount1  string
}

func newPositionCmd(a *app) *cobra.Command {
	var f positionFlags

	cmd := &cobra.Command{
		Use:   "position",
		Short: "Size a liquidity position from token amounts",
		Long: `position computes the most liquidity the given amounts can provide in [lower, upper)
of a snapshot pool, and prints what minting it costs and what burning it returns.
With only one amount the other side is unbounded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPosition(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "snapshot file (defaults to the configured snapshot)")
	cmd.Flags().Uint64Var(&f.poolID, "pool", 0, "pool ID")
	cmd.Flags().Int64Var(&f.lower, "lower", 0, "lower tick")
	cmd.Flags().Int64Var(&f.upper, "upper", 0, "upper tick")
	cmd.Flags().StringVar(&f.amount0, "amount0", "", "token0 amount")
	cmd.Flags().StringVar(&f.amount1, "amount1", "", "token1 amount")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

func parseAmount(name, s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s %q", uniswapv3.ErrInvalidInput, name, s)
	}
	return amount, nil
}

func (a *app) runPosition(cmd *cobra.Command, f positionFlags) error {
	path := f.snapshot
	if path == "" {
		path = a.cfg.Snapshot
	}
	snap, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}
	pools, err := indexer.NewIndexableUniswapV3System(snap.Pools, a.cfg.Quoter.CacheSize)
	if err != nil {
		return err
	}
	pool, err := pools.Pool(f.poolID)
	if err != nil {
		return err
	}

	amount0, err := parseAmount("amount0", f.amount0)
	if err != nil {
		return err
	}
	amount1, err := parseAmount("amount1", f.amount1)
	if err != nil {
		return err
	}

	var pos position.Position
	switch {
	case amount0 != nil && amount1 != nil:
		pos, err = position.FromAmounts(pool, f.lower, f.upper, amount0, amount1, true)
	case amount0 != nil:
		pos, err = position.FromAmount0(pool, f.lower, f.upper, amount0, true)
	case amount1 != nil:
		pos, err = position.FromAmount1(pool, f.lower, f.upper, amount1)
	default:
		return fmt.Errorf("%w: amount0 or amount1 is required", uniswapv3.ErrInvalidInput)
	}
	if err != nil {
		return err
	}

	mint0, mint1, err := pos.MintAmounts()
	if err != nil {
		return err
	}
	burn0, err := pos.Amount0()
	if err != nil {
		return err
	}
	burn1, err := pos.Amount1()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "liquidity: %s\n", pos.Liquidity)
	fmt.Fprintf(w, "in range:  %t\n", pos.InRange())
	fmt.Fprintf(w, "mint:      %s token0, %s token1\n", mint0, mint1)
	fmt.Fprintf(w, "burn:      %s token0, %s token1\n", burn0, burn1)
	return nil
}
