package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass in the foreground and print its report",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.ingestService().RunPass(cmd.Context())
		if err != nil {
			return fmt.Errorf("ingestion pass %s: %w", report.ID, err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pass %s: fetched=%d inserted=%d updated=%d failed=%d in %s\n",
			report.ID, report.Fetched, report.Inserted, report.Updated, len(report.Failures), report.Duration)
		for _, f := range report.Failures {
			fmt.Fprintf(out, "  failed %q: %v\n", f.Title, f.Err)
		}
		return nil
	},
}
