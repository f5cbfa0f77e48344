package main

import (
	"fmt"
	"math/big"

	tokenindexer "github.com/defistate/v3sim-go/protocols/tokenregistry/indexer"
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/fraction"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/route"
	"github.com/defistate/v3sim-go/quoter"
	"github.com/defistate/v3sim-go/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type quoteFlags struct {
	snapshot     string
	tokenIn      string
	tokenOut     string
	amount       string
	exactOutput  bool
	slippageBips int64
	commit       string
}

func newQuoteCmd(a *app) *cobra.Command {
	var f quoteFlags

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Find the best trade between two tokens of a snapshot",
		Long: `quote searches the snapshot for the route giving the most output for an exact input
amount (or needing the least input for an exact output amount) and prints the trade with its
slippage bounds. Tokens are given by address, ID or symbol. With --commit the snapshot after the
trade is written to the given path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runQuote(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "snapshot file (defaults to the configured snapshot)")
	cmd.Flags().StringVar(&f.tokenIn, "in", "", "input token")
	cmd.Flags().StringVar(&f.tokenOut, "out", "", "output token")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount in the token's smallest unit")
	cmd.Flags().BoolVar(&f.exactOutput, "exact-output", false, "treat amount as the exact output")
	cmd.Flags().Int64Var(&f.slippageBips, "slippage-bips", -1, "slippage tolerance in basis points (defaults to the configured value)")
	cmd.Flags().StringVar(&f.commit, "commit", "", "write the post-trade snapshot to this path")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) runQuote(cmd *cobra.Command, f quoteFlags) error {
	path := f.snapshot
	if path == "" {
		path = a.cfg.Snapshot
	}
	snap, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}

	amount, ok := new(big.Int).SetString(f.amount, 10)
	if !ok {
		return fmt.Errorf("%w: amount %q", uniswapv3.ErrInvalidInput, f.amount)
	}
	bips := f.slippageBips
	if bips < 0 {
		bips = a.cfg.SlippageBips
	}
	slippage := fraction.PercentFromBips(bips)

	tokens, err := tokenindexer.NewIndexableTokenSystem(snap.Tokens)
	if err != nil {
		return err
	}
	in, ok := tokens.Resolve(f.tokenIn)
	if !ok {
		return fmt.Errorf("%w: %q", quoter.ErrUnknownToken, f.tokenIn)
	}
	out, ok := tokens.Resolve(f.tokenOut)
	if !ok {
		return fmt.Errorf("%w: %q", quoter.ErrUnknownToken, f.tokenOut)
	}

	q, err := quoter.New(snap, &quoter.Config{
		Logger:      a.logger.With("component", "quoter"),
		Registry:    prometheus.NewRegistry(),
		Concurrency: a.cfg.Quoter.Concurrency,
		CacheSize:   a.cfg.Quoter.CacheSize,
		Search: route.BestTradeOptions{
			MaxHops:    a.cfg.Quoter.MaxHops,
			MaxResults: a.cfg.Quoter.MaxResults,
		},
	})
	if err != nil {
		return err
	}

	req := quoter.Request{TokenIn: in.Address, TokenOut: out.Address, Amount: amount, TradeType: route.ExactInput}
	if f.exactOutput {
		req.TradeType = route.ExactOutput
	}
	trade, err := q.Quote(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := printTrade(cmd, trade, slippage); err != nil {
		return err
	}

	if f.commit == "" {
		return nil
	}
	next, err := snap.Commit(trade)
	if err != nil {
		return err
	}
	if err := next.WriteFile(f.commit); err != nil {
		return err
	}
	a.logger.Info("committed trade", "path", f.commit, "pools", trade.Route.Hops())
	return nil
}

func printTrade(cmd *cobra.Command, trade *route.Trade, slippage fraction.Percent) error {
	execution, err := trade.ExecutionPrice()
	if err != nil {
		return err
	}
	mid, err := trade.Route.MidPrice()
	if err != nil {
		return err
	}
	impact, err := trade.PriceImpact()
	if err != nil {
		return err
	}
	minOut, err := trade.MinimumAmountOut(slippage)
	if err != nil {
		return err
	}
	maxIn, err := trade.MaximumAmountIn(slippage)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "route:           %s\n", trade.Route)
	fmt.Fprintf(w, "type:            %s\n", trade.TradeType)
	fmt.Fprintf(w, "input:           %s\n", trade.InputAmount)
	fmt.Fprintf(w, "output:          %s\n", trade.OutputAmount)
	fmt.Fprintf(w, "mid price:       %s\n", mid)
	fmt.Fprintf(w, "execution price: %s\n", execution)
	fmt.Fprintf(w, "price impact:    %s\n", impact)
	fmt.Fprintf(w, "slippage:        %s\n", slippage)
	fmt.Fprintf(w, "minimum output:  %s\n", minOut)
	fmt.Fprintf(w, "maximum input:   %s\n", maxIn)
	return nil
}
