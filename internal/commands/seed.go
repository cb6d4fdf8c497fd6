package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/output"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/seeder"
)

var (
	seedCount      int
	seedSeed       int64
	seedFile       string
	seedAlertRatio float64
	seedMalformed  int
	seedInterval   time.Duration
	seedURL        string
	seedWrap       bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate test data",
	Long:  "Generate fake Suricata eve.json lines or incident reports for local testing.",
}

var seedAlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Append generated eve.json lines to a file",
	Long: `Append generated eve.json lines to a file.

Examples:
  # 100 lines, half of them alerts, into the followed file
  sentry seed alerts --count 100 --alert-ratio 0.5

  # a slow trickle with a truncated line every 10 lines
  sentry seed alerts --interval 500ms --malformed-every 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := seedFile
		if path == "" {
			path = cfg.Tail.Path
		}
		n, err := seeder.New(seedSeed).AppendEve(cmd.Context(), path, seeder.AlertOptions{
			Count:          seedCount,
			AlertRatio:     seedAlertRatio,
			MalformedEvery: seedMalformed,
			Interval:       seedInterval,
		})
		if err != nil {
			return err
		}
		output.Success(cmd.OutOrStdout(), "wrote %d lines to %s", n, path)
		return nil
	},
}

var seedReportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Post generated reports to a running intake",
	RunE: func(cmd *cobra.Command, args []string) error {
		poster := &seeder.ReportPoster{
			URL:    seedURL,
			Wrap:   seedWrap,
			Logger: stderrLogger().Logger,
		}
		accepted, err := poster.Post(cmd.Context(), seeder.New(seedSeed), seedCount)
		if err != nil {
			return err
		}
		output.Success(cmd.OutOrStdout(), "%d of %d reports accepted", accepted, seedCount)
		return nil
	},
}

func init() {
	seedCmd.PersistentFlags().IntVarP(&seedCount, "count", "n", 10, "number of records to generate")
	seedCmd.PersistentFlags().Int64Var(&seedSeed, "seed", 0, "random seed (0 picks one)")

	seedAlertsCmd.Flags().StringVar(&seedFile, "file", "", "eve.json to append to (default: tail.path)")
	seedAlertsCmd.Flags().Float64Var(&seedAlertRatio, "alert-ratio", 0.7, "share of lines with event_type alert")
	seedAlertsCmd.Flags().IntVar(&seedMalformed, "malformed-every", 0, "write a truncated line every N lines")
	seedAlertsCmd.Flags().DurationVar(&seedInterval, "interval", 0, "pause between lines")

	seedReportsCmd.Flags().StringVar(&seedURL, "url", "http://localhost:5000/api/reports", "report intake URL")
	seedReportsCmd.Flags().BoolVar(&seedWrap, "wrap", false, "wrap each report in {\"body\":{\"log\":...}}")

	seedCmd.AddCommand(seedAlertsCmd, seedReportsCmd)
	rootCmd.AddCommand(seedCmd)
}
