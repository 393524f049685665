package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mridungeorge/portfolio/internal/terminal"
)

//nolint:gochecknoglobals // Cobra boilerplate
var terminalCmd = &cobra.Command{
	Use:   "terminal",
	Short: "Open the portfolio terminal in your shell",
	Long: `Run the same command set as the site's terminal widget on stdin/stdout.

Type 'help' for commands, 'clear' to reset and 'exit' to leave.`,
	RunE: runTerminal,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(terminalCmd)
}

func runTerminal(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(context.Background(), false)
	if err != nil {
		return err
	}

	h := terminal.NewHistory(terminal.NewCommands(a.site), terminal.GreetingEntry(a.site))
	return terminal.REPL(cmd.InOrStdin(), cmd.OutOrStdout(), h, a.site.Terminal.Welcome)
}
