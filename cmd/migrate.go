package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Apply the schema to the configured database. Safe to run repeatedly.

Example:
  DATABASE_DRIVER=postgres DATABASE_URL=postgres://... portfolio migrate`,
	RunE: runMigrate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Opening the store applies the schema.
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("database schema is up to date", slog.String("driver", a.cfg.Database.Driver))
	return nil
}
