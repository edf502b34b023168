package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	Iservices "shop-assistant/internal/domain/interfaces/services"
)

func newMigrateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [conversation-id...]",
		Short: "Rewrite stored contexts at the current schema version",
		Long: `Rewrite every stored context blob that was written with an older schema
version. Unreadable blobs are reported and left untouched. With no arguments
every stored conversation is visited.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			report, err := a.Maintenance.Migrate(cmd.Context(), args)
			printReport(cmd, "migrate", report)
			return err
		},
	}
}

func newReanalyzeCommand(rt *runtime) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "reanalyze [conversation-id...]",
		Short: "Rerun context extraction over stored conversations",
		Long: `Rerun the context pipeline for the given conversations, or for every
stored conversation when none are given. Conversations are processed in
parallel up to --concurrency at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency > 0 {
				rt.cfg.Engine.ReanalyzeConcurrency = concurrency
			}
			a, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			report, err := a.Maintenance.Reanalyze(cmd.Context(), args)
			printReport(cmd, "reanalyze", report)
			return err
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Conversations processed in parallel (overrides REANALYZE_CONCURRENCY)")
	return cmd
}

func printReport(cmd *cobra.Command, name string, report Iservices.BatchReport) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: processed=%d changed=%d skipped=%d failed=%d\n",
		name, report.Processed, report.Changed, report.Skipped, report.Failed)
}
