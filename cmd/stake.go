package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/odds-cli/internal/kelly"
	"github.com/sells-group/odds-cli/internal/model"
)

var (
	stakeCompetition string
	stakeForce       bool
	stakeOdds        float64
	stakeCleanA      float64
	stakeCleanB      float64
)

var stakeCmd = &cobra.Command{
	Use:   "stake",
	Short: "Size Kelly stakes from reconciled odds against the clean market",
	Long: `With --competition, prices every stored match that is still listed on the
clean site. With --odds, --clean-a and --clean-b, sizes a single bet on side A.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		calc := kelly.NewCalculator(cfg.Kelly)
		if stakeCompetition == "" {
			if stakeOdds <= 0 {
				return eris.New("either --competition or --odds with --clean-a and --clean-b is required")
			}
			s, err := adhocStake(calc, stakeOdds, stakeCleanA, stakeCleanB)
			if err != nil {
				return err
			}
			printStakes(cmd.OutOrStdout(), []kelly.Stake{s})
			return nil
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rdb, err := connectRedis(ctx)
		if err != nil {
			return err
		}
		if rdb != nil {
			defer rdb.Close() //nolint:errcheck
		}
		client, closeClient, err := newCleanClient(rdb)
		if err != nil {
			return err
		}
		defer closeClient() //nolint:errcheck

		comp, ok := cfg.Competition(stakeCompetition)
		if !ok {
			return eris.Errorf("competition %q is not configured", stakeCompetition)
		}
		clean, err := client.FetchCompetition(ctx, comp.Name, comp.URLs, stakeForce)
		if err != nil {
			return eris.Wrap(err, "fetch clean odds")
		}
		records, err := st.ListMatches(ctx, comp.Name, 0)
		if err != nil {
			return eris.Wrap(err, "list matches")
		}
		printStakes(cmd.OutOrStdout(), stakesFor(calc, records, clean))
		return nil
	},
}

// stakesFor prices each record that has a clean listing under the same id.
func stakesFor(calc *kelly.Calculator, records []model.MatchRecord, clean []model.CleanObservation) []kelly.Stake {
	byID := make(map[string]model.CleanObservation, len(clean))
	for _, c := range clean {
		byID[c.MatchID] = c
	}
	var out []kelly.Stake
	for _, r := range records {
		c, ok := byID[r.MatchID]
		if !ok {
			continue
		}
		out = append(out, calc.Evaluate(r, c)...)
	}
	return out
}

func adhocStake(calc *kelly.Calculator, odds, cleanA, cleanB float64) (kelly.Stake, error) {
	rec := model.MatchRecord{MatchID: "adhoc", TeamA: "A", TeamB: "B", OddsA: odds, OddsB: cleanB}
	stakes := calc.Evaluate(rec, model.CleanObservation{MatchID: "adhoc", TeamA: "A", TeamB: "B", OddsA: cleanA, OddsB: cleanB})
	if len(stakes) == 0 {
		return kelly.Stake{}, eris.New("clean odds must both be positive")
	}
	return stakes[0], nil
}

func printStakes(out io.Writer, stakes []kelly.Stake) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH\tTEAM\tODDS\tPROB\tFRACTION\tCOINS")
	for _, s := range stakes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			s.MatchID, s.Team, s.Odds.StringFixed(2), s.Probability.StringFixed(4),
			s.Fraction.Round(4).String(), s.Coins)
	}
	_ = tw.Flush()
}

func init() {
	stakeCmd.Flags().StringVar(&stakeCompetition, "competition", "", "price stored matches for this competition")
	stakeCmd.Flags().BoolVar(&stakeForce, "force", false, "bypass the clean page cache")
	stakeCmd.Flags().Float64Var(&stakeOdds, "odds", 0, "offered decimal odds for side A")
	stakeCmd.Flags().Float64Var(&stakeCleanA, "clean-a", 0, "clean decimal odds for side A")
	stakeCmd.Flags().Float64Var(&stakeCleanB, "clean-b", 0, "clean decimal odds for side B")
	rootCmd.AddCommand(stakeCmd)
}
