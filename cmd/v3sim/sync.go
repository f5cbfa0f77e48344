package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/defistate/v3sim-go/differ"
	"github.com/defistate/v3sim-go/patcher"
	"github.com/defistate/v3sim-go/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old-snapshot> <new-snapshot>",
		Short: "Print the changes between two snapshots as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, err := snapshot.ReadFile(args[0])
			if err != nil {
				return err
			}
			next, err := snapshot.ReadFile(args[1])
			if err != nil {
				return err
			}

			d, err := differ.NewStateDiffer(&differ.StateDifferConfig{
				Registry: prometheus.NewRegistry(),
				Logger:   a.logger.With("component", "differ"),
			})
			if err != nil {
				return err
			}
			diff, err := d.Diff(old, next)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(diff)
		},
	}
}

func newPatchCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "patch <snapshot> <diff>",
		Short: "Apply a diff to a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, err := snapshot.ReadFile(args[0])
			if err != nil {
				return err
			}
			diff, err := readDiff(args[1])
			if err != nil {
				return err
			}

			next, err := patcher.Patch(old, diff)
			if err != nil {
				return err
			}
			a.logger.Info("patched snapshot", "from_block", diff.FromBlock, "to_block", diff.ToBlock, "pools", len(next.Pools))

			if out == "" {
				return next.Encode(cmd.OutOrStdout())
			}
			return next.WriteFile(out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the patched snapshot here instead of stdout")
	return cmd
}

func readDiff(path string) (*differ.StateDiff, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var diff differ.StateDiff
	if err := json.Unmarshal(data, &diff); err != nil {
		return nil, fmt.Errorf("decode diff %s: %w", path, err)
	}
	return &diff, nil
}
