package cli

import (
	"fmt"
	"os"

	"dialout/internal/export"

	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command.
func IngestCmd() *cobra.Command {
	var suppressionPath string
	var rejectedOut string

	cmd := &cobra.Command{
		Use:   "ingest <candidates.csv>",
		Short: "Load a candidate CSV into the campaign",
		Long: `Load a candidate CSV into the campaign.

The file must contain unique_record_id and phone columns (header matching is
case-insensitive). Phone numbers are normalized to E.164; rows that fail
validation, duplicate an earlier row, or match the suppression list are
rejected and reported. Re-ingesting a known unique_record_id refreshes its
contact fields without resetting its call history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, suppressionPath)
			if err != nil {
				return err
			}
			defer a.close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := a.ctrl.IngestCandidates(ctx, f)
			if err != nil {
				return err
			}

			fmt.Printf("Ingested %d candidates (%d rejected), run %s\n", res.Valid, len(res.Rejected), res.RunID)
			for _, rej := range res.Rejected {
				fmt.Printf("  row %d: %s\n", rej.RowNumber, rej.Reason)
			}
			if rejectedOut != "" {
				if err := export.WriteRejectedFile(rejectedOut, res.Rejected); err != nil {
					return fmt.Errorf("writing rejected rows: %w", err)
				}
				if len(res.Rejected) > 0 {
					fmt.Printf("Rejected rows written to %s\n", rejectedOut)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&suppressionPath, "suppression", "", "path to a do-not-call list (one number per line)")
	cmd.Flags().StringVar(&rejectedOut, "rejected-out", "", "write rejected rows to this CSV")
	return cmd
}
