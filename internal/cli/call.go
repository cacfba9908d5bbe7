package cli

import (
	"fmt"
	"time"

	"dialout/internal/scheduler"

	"github.com/spf13/cobra"
)

// CallCmd returns the call command.
func CallCmd() *cobra.Command {
	var continuous bool
	var maxHours float64
	var pollInterval time.Duration
	var suppressionPath string

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Place calls to pending candidates",
		Long: `Place calls to pending candidates.

By default one throttled batch is placed and the command exits. With
--continuous the scheduler keeps draining pending records, waiting out the
calling window when necessary, until nothing is left to call, --max-hours
elapses, or the process is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, suppressionPath)
			if err != nil {
				return err
			}
			defer a.close()

			if !continuous {
				runID, stats, err := a.ctrl.RunBatch(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Run %s: placed=%d skipped_window=%d skipped_throttle=%d errors=%d\n",
					runID, stats.Placed, stats.SkippedWindow, stats.SkippedThrottle, stats.Errors)
				return nil
			}

			opts := scheduler.RunOptions{}
			if maxHours > 0 {
				opts.MaxRuntime = time.Duration(maxHours * float64(time.Hour))
			}
			if pollInterval > 0 {
				opts.PollInterval = pollInterval
			}

			runID, stats, err := a.ctrl.RunContinuous(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Run %s: batches=%d placed=%d skipped_window=%d skipped_throttle=%d errors=%d\n",
				runID, stats.Batches, stats.Placed, stats.SkippedWindow, stats.SkippedThrottle, stats.Errors)
			return nil
		},
	}

	cmd.Flags().BoolVar(&continuous, "continuous", false, "keep calling until the pending set drains")
	cmd.Flags().Float64Var(&maxHours, "max-hours", 0, "runtime ceiling for --continuous (default 12)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "pause between empty batches in --continuous mode")
	cmd.Flags().StringVar(&suppressionPath, "suppression", "", "path to a do-not-call list")
	return cmd
}
