package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mridungeorge/portfolio/internal/auth"
	"github.com/mridungeorge/portfolio/internal/tracking"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired sessions and old visitor records",
	Long: `Delete visitor records older than the tracking retention window (12 months
by default) and sign-in sessions that have expired.`,
	RunE: runCleanup,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	visits, err := tracking.Cleanup(ctx, a.store, a.cfg.Tracking.Retention, time.Now())
	if err != nil {
		return err
	}
	sessions, err := auth.NewService(a.store, auth.WithLogger(a.logger)).PurgeExpired(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d visitor records and %d expired sessions\n", visits, sessions)
	return nil
}
