package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitsift/gitsift/internal/classify"
	"github.com/gitsift/gitsift/internal/db"
	"github.com/gitsift/gitsift/internal/extension"
	"github.com/gitsift/gitsift/internal/history"
	"github.com/gitsift/gitsift/internal/orchestrator"
	"github.com/gitsift/gitsift/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <git arguments>",
	Short: "Run a git command through the classification pipeline",
	Long: `Run git with the given arguments, classify every output line, apply
matching extensions, and record the invocation. Classified records are
printed as the stream produces them.

The command's exit status follows git's own.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		registry, err := newRegistry(cfg)
		if err != nil {
			return err
		}

		reporter := newReporter(cfg)
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			reporter.Verbose = true
		}

		recorder := history.NewRecorder()
		noSave, _ := cmd.Flags().GetBool("no-save")
		if !noSave {
			database, cleanup, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			recorder.Subscribe(db.NewSink(database, reporter))
		}

		gitBinary, _ := cmd.Flags().GetString("git")
		orch := orchestrator.New(
			runner.ExecGit{Binary: gitBinary},
			extension.NewResolver(registry, reporter),
			classify.New(cfg.Pipeline.MaxLineLength, cfg.Pipeline.Sentinel, reporter),
			recorder,
			reporter,
		)

		root, _ := cmd.Flags().GetString("root")
		format, _ := cmd.Flags().GetString("format")

		out := cmd.OutOrStdout()
		emit := func(o classify.Outcome) {
			if format == "json" {
				return
			}
			switch o.Kind {
			case classify.KindRecord:
				fmt.Fprintln(out, o.Record.Raw)
			case classify.KindWarning:
				fmt.Fprintf(out, "hint: %s\n", o.Warning)
			case classify.KindError:
				fmt.Fprintf(out, "error: %s\n", o.Error.Message)
			}
		}

		result, err := orch.Run(cmd.Context(), orchestrator.RunOpts{
			Args:        args,
			WorkingRoot: root,
		}, emit)
		if err != nil {
			return err
		}

		if format == "json" {
			data, err := json.MarshalIndent(runSummary(result), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal result: %w", err)
			}
			fmt.Fprintln(out, string(data))
		}

		if result.ExitCode != 0 {
			return fmt.Errorf("git exited with status %d", result.ExitCode)
		}
		return nil
	},
}

func runSummary(r *orchestrator.RunResult) map[string]interface{} {
	errors := make([]map[string]interface{}, 0, len(r.Errors))
	for _, e := range r.Errors {
		errors = append(errors, map[string]interface{}{
			"message": e.Message,
			"raw":     e.Raw,
			"tags":    e.Tags,
		})
	}
	return map[string]interface{}{
		"invocation_id": r.Invocation.ID,
		"command":       r.Invocation.CommandLine(),
		"exit_code":     r.ExitCode,
		"raw_lines":     r.RawLines,
		"records":       r.Records,
		"errors":        errors,
		"warnings":      r.Warnings,
	}
}

func init() {
	runCmd.Flags().String("root", "", "Working directory for the git command")
	runCmd.Flags().String("format", "text", "Output format: text or json")
	runCmd.Flags().String("git", "", "Path to the git binary (default \"git\")")
	runCmd.Flags().Bool("no-save", false, "Do not persist the invocation to the history database")
	runCmd.Flags().Bool("verbose", false, "Report extension match traces")
}
