package commands

import (
	"github.com/spf13/cobra"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/output"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/repository"
)

var reportsOutput string

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect stored incident reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports in insertion order",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkOutput(reportsOutput); err != nil {
			return err
		}
		logger := stderrLogger()
		// Listing never seeds; only the intake writes the seed collection.
		store := repository.NewFileReportStore(cfg.Reports.Path, false, logger.Logger)
		reports, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		return output.Reports(cmd.OutOrStdout(), reportsOutput, reports)
	},
}

func init() {
	outputFlag(reportsListCmd, &reportsOutput)
	reportsCmd.AddCommand(reportsListCmd)
	rootCmd.AddCommand(reportsCmd)
}
