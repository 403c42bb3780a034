package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/emissions-dashboard/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the companies and emissions schema",
	Long:  "Creates the companies and emissions tables and their indexes. Safe to run repeatedly.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		return runMigrate(cmd.Context())
	},
}

// runMigrate applies the schema through a short-lived, unprepared store.
func runMigrate(ctx context.Context) error {
	if cfg.Store.Driver == config.DriverMemory {
		zap.L().Debug("memory store needs no migration")
		return nil
	}

	st, err := initStore(ctx, false)
	if err != nil {
		return eris.Wrap(err, "migrate: init store")
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate")
	}

	zap.L().Info("schema applied", zap.String("driver", cfg.Store.Driver))
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
