package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the mapping and match tables for every configured competition",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// SQLite keeps one file per competition; open each so it is created.
		if reg, ok := st.(*store.SQLiteRegistry); ok {
			for _, comp := range cfg.CompetitionNames() {
				if _, err := reg.For(ctx, comp); err != nil {
					return err
				}
				zap.L().Info("competition store ready", zap.String("competition", comp), zap.String("path", reg.Path(comp)))
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "migrated %s store for %d competitions\n", cfg.Store.Driver, len(cfg.CompetitionNames()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
