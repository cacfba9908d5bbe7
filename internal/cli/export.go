package cli

import (
	"fmt"
	"os"

	"dialout/internal/export"

	"github.com/spf13/cobra"
)

// ExportCmd returns the export command.
func ExportCmd() *cobra.Command {
	var outPath string
	var includeTranscript bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write campaign results to a CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, "")
			if err != nil {
				return err
			}
			defer a.close()

			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			summary, err := a.ctrl.ExportResults(ctx, f, export.Options{IncludeTranscript: includeTranscript})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %d records to %s\n", summary.Total, outPath)
			summary.Render(os.Stdout)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "results.csv", "output CSV path")
	cmd.Flags().BoolVar(&includeTranscript, "include-transcript", false, "append the full transcript column")
	return cmd
}
