package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/odds-cli/internal/export"
)

var (
	matchesCompetition string
	matchesOut         string
	matchesLimit       int
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Work with reconciled matches",
}

var matchesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a competition's reconciled matches to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := st.ListMatches(ctx, matchesCompetition, matchesLimit)
		if err != nil {
			return eris.Wrap(err, "list matches")
		}

		out := matchesOut
		if out == "" {
			out = matchesCompetition + ".xlsx"
		}
		if err := export.WriteMatchesXLSX(out, matchesCompetition, records); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d matches to %s\n", len(records), out)
		return nil
	},
}

func init() {
	matchesExportCmd.Flags().StringVar(&matchesCompetition, "competition", "", "competition name (required)")
	_ = matchesExportCmd.MarkFlagRequired("competition")
	matchesExportCmd.Flags().StringVar(&matchesOut, "out", "", "output workbook (default <competition>.xlsx)")
	matchesExportCmd.Flags().IntVar(&matchesLimit, "limit", 0, "maximum matches, newest first (0 uses the store default)")

	matchesCmd.AddCommand(matchesExportCmd)
	rootCmd.AddCommand(matchesCmd)
}
