package cli

import (
	"github.com/spf13/cobra"

	"github.com/gitsift/gitsift/internal/history"
	"github.com/gitsift/gitsift/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the history API server",
	Long: `Start a read-only JSON API over the recorded history, with live
WebSocket updates at /ws for invocations recorded by this process.`,
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

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Serve.Addr
		}

		return web.NewServer(history.NewRecorder(), database, addr).Start()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
}
