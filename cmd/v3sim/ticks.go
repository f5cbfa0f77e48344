package main

import (
	"fmt"
	"strconv"

	"github.com/defistate/v3sim-go/protocols/tokenregistry"
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/tickmath"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/fraction"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

// pairPrice renders the price of token0 in token1 for a sqrt price.
func pairPrice(sqrtPriceX96 *uint256.Int, decimals0, decimals1 uint8) (fraction.Price, error) {
	sqrt := sqrtPriceX96.ToBig()
	raw, err := fraction.New(sqrt.Mul(sqrt, sqrt), new(uint256.Int).Lsh(uint256.NewInt(1), 192).ToBig())
	if err != nil {
		return fraction.Price{}, err
	}
	base := tokenregistry.Token{Symbol: "token0", Decimals: decimals0}
	quote := tokenregistry.Token{Symbol: "token1", Decimals: decimals1}
	return fraction.PriceFromFraction(base, quote, raw), nil
}

func newTickToPriceCmd() *cobra.Command {
	var decimals0, decimals1 uint8

	cmd := &cobra.Command{
		Use:   "tick-to-price <tick>",
		Short: "Print the sqrt price and the token0 price at a tick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tick, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: tick %q", uniswapv3.ErrInvalidInput, args[0])
			}
			var sqrtPriceX96 uint256.Int
			if err := tickmath.GetSqrtRatioAtTick(&sqrtPriceX96, tick); err != nil {
				return err
			}
			price, err := pairPrice(&sqrtPriceX96, decimals0, decimals1)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "tick:         %d\n", tick)
			fmt.Fprintf(w, "sqrtPriceX96: %s\n", sqrtPriceX96.Dec())
			fmt.Fprintf(w, "price:        %s\n", price)
			return nil
		},
	}
	cmd.Flags().Uint8Var(&decimals0, "decimals0", 18, "token0 decimals")
	cmd.Flags().Uint8Var(&decimals1, "decimals1", 18, "token1 decimals")
	return cmd
}

func newPriceToTickCmd() *cobra.Command {
	var tickSpacing int64

	cmd := &cobra.Command{
		Use:   "price-to-tick <sqrtPriceX96>",
		Short: "Print the greatest tick whose sqrt price does not exceed sqrtPriceX96",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sqrtPriceX96, err := uint256.FromDecimal(args[0])
			if err != nil {
				return fmt.Errorf("%w: sqrt price %q", uniswapv3.ErrInvalidInput, args[0])
			}
			tick, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tick: %d\n", tick)
			if tickSpacing > 0 {
				usable, err := tickmath.NearestUsableTick(tick, tickSpacing)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "nearest usable tick: %d\n", usable)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&tickSpacing, "spacing", 0, "also print the nearest tick usable with this spacing")
	return cmd
}
