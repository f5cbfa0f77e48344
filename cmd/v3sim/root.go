package main

import (
	"fmt"
	"log/slog"

	"github.com/defistate/v3sim-go/cmd/v3sim/config"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

// app carries what every command needs once the configuration is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "v3sim",
		Short: "Off-chain Uniswap V3 swap simulation",
		Long: `v3sim converts between ticks and prices and simulates swaps, multi-hop trades
and their slippage bounds against a JSON snapshot of Uniswap V3 pools.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cfg.NewLogger(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "configuration file path")

	root.AddCommand(
		newTickToPriceCmd(),
		newPriceToTickCmd(),
		newQuoteCmd(a),
		newDiffCmd(a),
		newPatchCmd(a),
		newPositionCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "v3sim", version)
		},
	}
}
