package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var configFile string

var rootCmd = &cobra.Command{
	Use:   "gitsift",
	Short: "gitsift — classify and record git output",
	Long: `gitsift runs git commands and turns their raw output into typed,
tagged records. Matching extensions refine the stream per command,
and every completed invocation is recorded for later inspection.

History is stored in ~/.gitsift/ (SQLite). The serve command exposes
it over a JSON API with live WebSocket updates.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(extensionsCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}
