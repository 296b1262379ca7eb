package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsageCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show today's estimated quota use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fraction, used := app.meter.DailyUsageFraction(cmd.Context(), app.dailyLimit)
			fmt.Fprintf(cmd.OutOrStdout(), "Today: %d / %d units (%.1f%%)\n", used, app.dailyLimit, fraction*100)
			return nil
		},
	}
}
