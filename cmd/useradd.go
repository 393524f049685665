package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mridungeorge/portfolio/internal/auth"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	useraddEmail    string
	useraddPassword string
	useraddUsername string
	useraddFullName string
)

//nolint:gochecknoglobals // Cobra boilerplate
var useraddCmd = &cobra.Command{
	Use:   "useradd",
	Short: "Create a dashboard account",
	Long: `Create an account that can sign in to the dashboard. Works even when
public sign-up is disabled.

Example:
  portfolio useradd --email me@example.com --password 's3cret!' --username me`,
	RunE: runUseradd,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(useraddCmd)
	useraddCmd.Flags().StringVar(&useraddEmail, "email", "", "Account email (required)")
	useraddCmd.Flags().StringVar(&useraddPassword, "password", "", "Account password (required)")
	useraddCmd.Flags().StringVar(&useraddUsername, "username", "", "Username shown on the dashboard")
	useraddCmd.Flags().StringVar(&useraddFullName, "full-name", "", "Full name shown on the dashboard")
	_ = useraddCmd.MarkFlagRequired("email")
	_ = useraddCmd.MarkFlagRequired("password")
}

func runUseradd(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := auth.NewService(a.store, auth.WithSignUp(true), auth.WithLogger(a.logger))
	user, err := svc.SignUp(ctx, useraddEmail, useraddPassword, auth.Metadata{
		Username: useraddUsername,
		FullName: useraddFullName,
	})
	if err != nil {
		err = errors.Wrap(err, "failed to create account")
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", user.Email, user.ID)
	return nil
}
