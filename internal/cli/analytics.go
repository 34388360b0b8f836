package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitsift/gitsift/internal/analytics"
	"github.com/gitsift/gitsift/internal/db"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Query invocation statistics",
}

func withAnalyticsDB(run func(cmd *cobra.Command, database *db.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, cleanup, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		return run(cmd, database)
	}
}

var analyticsSubcommandsCmd = &cobra.Command{
	Use:   "subcommands",
	Short: "Invocation counts and error rates per git subcommand",
	RunE: withAnalyticsDB(func(cmd *cobra.Command, database *db.DB) error {
		since, _ := cmd.Flags().GetString("since")
		stats, err := analytics.QuerySubcommandStats(database, since)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			data, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-14s %-7s %-7s %-10s %-10s\n", "SUBCOMMAND", "COUNT", "ERRS", "ERR RATE", "AVG LINES")
		for _, s := range stats {
			fmt.Fprintf(w, "%-14s %-7d %-7d %-10.1f%% %-10.1f\n",
				s.Subcommand, s.Count, s.ErrorCount, s.ErrorRate*100, s.AvgRawLines)
		}
		return nil
	}),
}

var analyticsErrorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Most frequent error messages",
	RunE: withAnalyticsDB(func(cmd *cobra.Command, database *db.DB) error {
		limit, _ := cmd.Flags().GetInt("limit")
		errs, err := analytics.QueryTopErrors(database, limit)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			data, _ := json.MarshalIndent(errs, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-7s %-14s %s\n", "COUNT", "SUBCOMMAND", "MESSAGE")
		for _, e := range errs {
			fmt.Fprintf(w, "%-7d %-14s %s\n", e.Count, e.Subcommand, e.Message)
		}
		return nil
	}),
}

var analyticsWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Invocation volume per week",
	RunE: withAnalyticsDB(func(cmd *cobra.Command, database *db.DB) error {
		since, _ := cmd.Flags().GetString("since")
		weeks, err := analytics.QueryWeeklyVolume(database, since)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			data, _ := json.MarshalIndent(weeks, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-10s %-7s %s\n", "WEEK", "COUNT", "WITH ERRORS")
		for _, wk := range weeks {
			fmt.Fprintf(w, "%-10s %-7d %d\n", wk.Week, wk.Count, wk.ErrorCount)
		}
		return nil
	}),
}

func init() {
	analyticsSubcommandsCmd.Flags().String("since", "", "Only count invocations started at or after this timestamp")
	analyticsSubcommandsCmd.Flags().String("format", "text", "Output format: text or json")
	analyticsErrorsCmd.Flags().Int("limit", 10, "Maximum distinct errors to list (0 = all)")
	analyticsErrorsCmd.Flags().String("format", "text", "Output format: text or json")
	analyticsWeeklyCmd.Flags().String("since", "", "Only count invocations started at or after this timestamp")
	analyticsWeeklyCmd.Flags().String("format", "text", "Output format: text or json")

	analyticsCmd.AddCommand(analyticsSubcommandsCmd)
	analyticsCmd.AddCommand(analyticsErrorsCmd)
	analyticsCmd.AddCommand(analyticsWeeklyCmd)
}
