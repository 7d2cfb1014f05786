package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/odds-cli/internal/pipeline"
)

var (
	reconcileCompetition string
	reconcileLoop        bool
	reconcileForce       bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run reconciliation cycles for configured competitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initReconcile(ctx, reconcileForce)
		if err != nil {
			return err
		}
		defer env.Close()

		if reconcileLoop {
			return env.Pipeline.Loop(ctx, cfg.Reconcile.LoopInterval)
		}

		competitions := cfg.CompetitionNames()
		if reconcileCompetition != "" {
			competitions = []string{reconcileCompetition}
		}
		results := env.Pipeline.RunAll(ctx, competitions, cfg.Fetch.Skip)
		printResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func printResults(out io.Writer, results []*pipeline.Result) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPETITION\tSTATUS\tCLEAN\tNOISY\tCREATED\tMAPPED\tDROPPED\tPERSISTED")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.Competition, r.Status, r.Clean, r.Noisy,
			r.Resolution.Created, r.Resolution.Mapped, r.Substitution.Dropped, r.Persisted)
	}
	_ = tw.Flush()
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileCompetition, "competition", "", "reconcile a single competition")
	reconcileCmd.Flags().BoolVar(&reconcileLoop, "loop", false, "repeat every reconcile.loop_interval until interrupted")
	reconcileCmd.Flags().BoolVar(&reconcileForce, "force", false, "bypass the clean page cache")
	rootCmd.AddCommand(reconcileCmd)
}
