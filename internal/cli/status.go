package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// StatusCmd returns the status command.
func StatusCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the campaign's disposition breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, "")
			if err != nil {
				return err
			}
			defer a.close()

			summary, err := a.ctrl.Summary(ctx)
			if err != nil {
				return err
			}
			summary.Render(os.Stdout)

			if runID != "" {
				events, err := a.events.ListByRun(ctx, runID)
				if err != nil {
					return err
				}
				fmt.Printf("\nRun %s events:\n", runID)
				for _, e := range events {
					fmt.Printf("  %s  %-12s %-8s %s %s\n",
						e.CreatedAt.Format("15:04:05"), e.Action, e.Status, e.UniqueRecordID, e.Detail)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "also list the event trail for this run id")
	return cmd
}
