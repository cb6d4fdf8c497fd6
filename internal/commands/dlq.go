package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/dlq"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/output"
)

var (
	dlqOutput string
	dlqLimit  int
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect records dropped because storage failed",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead letter records, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkOutput(dlqOutput); err != nil {
			return err
		}
		backend, err := openDLQ(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		records, err := backend.List(cmd.Context(), dlqLimit)
		if err != nil {
			return err
		}
		return output.FailedRecords(cmd.OutOrStdout(), dlqOutput, records)
	},
}

var dlqPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every dead letter record",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openDLQ(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		n, err := backend.Purge(cmd.Context())
		if err != nil {
			return err
		}
		output.Success(cmd.OutOrStdout(), "purged %d records", n)
		return nil
	},
}

var dlqStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many records the dead letter queue holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkOutput(dlqOutput); err != nil {
			return err
		}
		backend, err := openDLQ(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		return output.DLQStats(cmd.OutOrStdout(), dlqOutput, backend.Stats(cmd.Context()))
	},
}

func openDLQ(cmd *cobra.Command) (dlq.Backend, error) {
	if !cfg.DLQ.Enabled {
		return nil, fmt.Errorf("dlq is disabled (set dlq.enabled)")
	}
	return dlq.Open(cmd.Context(), cfg.DLQ, stderrLogger().Logger)
}

func init() {
	outputFlag(dlqListCmd, &dlqOutput)
	dlqListCmd.Flags().IntVar(&dlqLimit, "limit", 100, "maximum records to show (0 for all, file backend only)")
	outputFlag(dlqStatsCmd, &dlqOutput)
	dlqCmd.AddCommand(dlqListCmd, dlqStatsCmd, dlqPurgeCmd)
	rootCmd.AddCommand(dlqCmd)
}
