package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded invocations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded invocations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, cleanup, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		subcommand, _ := cmd.Flags().GetString("subcommand")
		limit, _ := cmd.Flags().GetInt("limit")
		rows, err := database.ListInvocations(subcommand, limit)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			data, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No invocations recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-36s %-20s %-6s %-5s %-5s %s\n", "ID", "STARTED", "LINES", "RECS", "ERRS", "COMMAND")
		for _, r := range rows {
			command := r.Command
			if len(command) > 50 {
				command = command[:47] + "..."
			}
			fmt.Fprintf(w, "%-36s %-20s %-6d %-5d %-5d %s\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"),
				r.RawLineCount, r.RecordCount, r.ErrorCount, command)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <invocation-id>",
	Short: "Show one invocation with its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, cleanup, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		entry, err := entryFromDB(database, args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			data, _ := json.MarshalIndent(entry, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Invocation: %s\n", entry.Key.InvocationID)
		fmt.Fprintf(w, "Command:    %s\n", entry.Command)
		if entry.WorkingRoot != "" {
			fmt.Fprintf(w, "Root:       %s\n", entry.WorkingRoot)
		}
		fmt.Fprintf(w, "Started:    %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Records:    %d\n", len(entry.Records))
		for _, rec := range entry.Records {
			fmt.Fprintf(w, "  [%s] %s\n", strings.Join(rec.Tags, " "), rec.Raw)
		}
		return nil
	},
}

var historyRawCmd = &cobra.Command{
	Use:   "raw <invocation-id>",
	Short: "Print the raw output lines of one invocation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, cleanup, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := database.GetInvocation(args[0]); err != nil {
			return err
		}
		lines, err := database.RawLines(args[0])
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <invocation-id>",
	Short: "Export one invocation to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, cleanup, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		entry, err := entryFromDB(database, args[0])
		if err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.History.ExportDir
		}
		if dir == "" {
			dir = "."
		}
		path, err := entry.Export(dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
		return nil
	},
}

func init() {
	historyListCmd.Flags().String("subcommand", "", "Filter by git subcommand")
	historyListCmd.Flags().Int("limit", 20, "Maximum invocations to list (0 = all)")
	historyListCmd.Flags().String("format", "text", "Output format: text or json")
	historyShowCmd.Flags().String("format", "text", "Output format: text or json")
	historyExportCmd.Flags().String("dir", "", "Directory to export into (default from config, else .)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyRawCmd)
	historyCmd.AddCommand(historyExportCmd)
}
