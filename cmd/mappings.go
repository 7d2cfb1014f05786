package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/export"
	"github.com/sells-group/odds-cli/internal/model"
	"github.com/sells-group/odds-cli/internal/store"
)

var (
	mappingsCompetition string
	mappingsKind        string
	mappingsOut         string
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Inspect and edit noisy-to-clean name mappings",
}

var mappingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mappings for a competition",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return listMappings(ctx, cmd.OutOrStdout(), st, mappingsCompetition, model.MappingKind(mappingsKind))
	},
}

var mappingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a competition's mappings as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out := cmd.OutOrStdout()
		if mappingsOut != "" {
			f, err := os.Create(mappingsOut)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		return exportMappings(ctx, out, st, mappingsCompetition, time.Now().UTC())
	},
}

var mappingsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Upsert mappings from a YAML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "open mappings file")
		}
		defer f.Close() //nolint:errcheck

		n, err := importMappings(ctx, f, st, mappingsCompetition, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d mappings\n", n)
		return nil
	},
}

func listMappings(ctx context.Context, out io.Writer, st store.Store, competition string, kind model.MappingKind) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush() //nolint:errcheck

	if kind == "" || kind == model.MappingKindMatch {
		matches, err := st.ListMatchMappings(ctx, competition)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "KIND\tNOISY\tCLEAN\tUPDATED")
		for _, m := range matches {
			fmt.Fprintf(tw, "match\t%s\t%s\t%s\n", m.NoisyMatchName, m.CleanMatchName, m.LastUpdated.Format(model.TimeLayout))
		}
		if kind == model.MappingKindMatch {
			return nil
		}
	}
	if kind != "" && kind != model.MappingKindTeam {
		return eris.Errorf("unknown mapping kind %q (want team or match)", kind)
	}

	teams, err := st.ListTeamMappings(ctx, competition)
	if err != nil {
		return err
	}
	if kind == model.MappingKindTeam {
		fmt.Fprintln(tw, "KIND\tNOISY\tCLEAN\tUPDATED")
	}
	for _, m := range teams {
		fmt.Fprintf(tw, "team\t%s\t%s\t%s\n", m.NoisyTeam, m.CleanTeam, m.LastUpdated.Format(model.TimeLayout))
	}
	return nil
}

func exportMappings(ctx context.Context, out io.Writer, st store.Store, competition string, now time.Time) error {
	matches, err := st.ListMatchMappings(ctx, competition)
	if err != nil {
		return err
	}
	teams, err := st.ListTeamMappings(ctx, competition)
	if err != nil {
		return err
	}
	return export.WriteMappings(out, export.MappingsDocument{
		Competition: competition,
		ExportedAt:  now,
		Matches:     matches,
		Teams:       teams,
	})
}

// importMappings upserts every entry of the document. An explicit import is
// the one way an established mapping is replaced. When competition is set
// it must agree with the document.
func importMappings(ctx context.Context, in io.Reader, st store.Store, competition string, now time.Time) (int, error) {
	doc, err := export.ReadMappings(in)
	if err != nil {
		return 0, err
	}
	if competition != "" && competition != doc.Competition {
		return 0, eris.Errorf("document is for %q, not %q", doc.Competition, competition)
	}

	stamp := func(t time.Time) time.Time {
		if t.IsZero() {
			return now
		}
		return t
	}

	var n int
	for _, m := range doc.Matches {
		if err := st.PutMatchMapping(ctx, m.NoisyMatchName, m.CleanMatchName, doc.Competition, stamp(m.LastUpdated)); err != nil {
			return n, err
		}
		n++
	}
	for _, m := range doc.Teams {
		if err := st.PutTeamMapping(ctx, m.NoisyTeam, m.CleanTeam, doc.Competition, stamp(m.LastUpdated)); err != nil {
			return n, err
		}
		n++
	}
	zap.L().Info("imported mappings", zap.String("competition", doc.Competition), zap.Int("count", n))
	return n, nil
}

func init() {
	for _, c := range []*cobra.Command{mappingsListCmd, mappingsExportCmd} {
		c.Flags().StringVar(&mappingsCompetition, "competition", "", "competition name (required)")
		_ = c.MarkFlagRequired("competition")
	}
	mappingsImportCmd.Flags().StringVar(&mappingsCompetition, "competition", "", "expected competition of the document")
	mappingsListCmd.Flags().StringVar(&mappingsKind, "kind", "", "team or match (default both)")
	mappingsExportCmd.Flags().StringVar(&mappingsOut, "out", "", "output file (default stdout)")

	mappingsCmd.AddCommand(mappingsListCmd, mappingsExportCmd, mappingsImportCmd)
	rootCmd.AddCommand(mappingsCmd)
}
