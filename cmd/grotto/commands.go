package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/grotto-neuro/grotto/pkg/materialize"
)

func parseIDs(args []string) ([]uint64, error) {
	ids := make([]uint64, len(args))
	for i, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids[i] = id
	}
	return ids, nil
}

func newRootIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "root <supervoxel-id>...",
		Short: "Resolve current root IDs for supervoxels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			c, err := newClient(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			roots, err := c.GetRootsBatch(cmd.Context(), ids)
			if err != nil {
				return err
			}

			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\n", id, roots[id])
			}
			return nil
		},
	}
}

func newLeavesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaves <root-id>...",
		Short: "List supervoxels under roots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			c, err := newClient(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			rows, err := c.GetLeavesBatch(cmd.Context(), ids)
			if err != nil {
				return err
			}

			for _, row := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\n", row.Item, row.Record)
			}
			return nil
		},
	}
}

func newL2DataCmd() *cobra.Command {
	var attributes []string

	cmd := &cobra.Command{
		Use:   "l2data <l2-id>...",
		Short: "Fetch level-2 chunk attributes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			c, err := newClient(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			data, err := c.GetL2DataBatch(cmd.Context(), ids, attributes)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		},
	}

	cmd.Flags().StringSliceVar(&attributes, "attributes", nil, "attributes to fetch (default all)")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var (
		version        int
		limit          int
		splitPositions bool
	)

	cmd := &cobra.Command{
		Use:   "query <table>...",
		Short: "Query materialized annotation tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			params := materialize.QueryParams{
				Version:        version,
				Limit:          limit,
				SplitPositions: splitPositions,
			}

			frames, err := c.QueryTablesBatch(cmd.Context(), args, params)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for i, frame := range frames {
				out := map[string]any{
					"table":   args[i],
					"columns": frame.Columns(),
					"rows":    frame.Rows(),
				}
				if err := enc.Encode(out); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "materialization version (default latest)")
	cmd.Flags().IntVar(&limit, "limit", 0, "row limit per table")
	cmd.Flags().BoolVar(&splitPositions, "split-positions", false, "split position columns into x/y/z")
	return cmd
}
