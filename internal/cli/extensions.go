package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitsift/gitsift/internal/extension"
	"github.com/gitsift/gitsift/internal/invoke"
)

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "Inspect registered extensions",
}

var extensionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List builtin extensions and their enabled state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		disabled := make(map[string]bool)
		for _, name := range cfg.Extensions.Disabled {
			disabled[name] = true
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-20s %s\n", "NAME", "STATE")
		for _, d := range extension.Builtins() {
			state := "enabled"
			if disabled[d.Name] {
				state = "disabled"
			}
			fmt.Fprintf(w, "%-20s %s\n", d.Name, state)
		}
		return nil
	},
}

var extensionsMatchCmd = &cobra.Command{
	Use:   "match -- <git arguments>",
	Short: "Show which extensions would run for a command",
	Long: `Resolve the extension set for a command signature without running
anything. The signature is the space-joined git command line, the same
form the run command resolves against.`,
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
		resolver := extension.NewResolver(registry, reporter)

		signature := invoke.SignatureOf(args)
		matched := resolver.Resolve(signature)

		w := cmd.OutOrStdout()
		if len(matched) == 0 {
			fmt.Fprintf(w, "No extensions match %q.\n", signature)
			return nil
		}
		names := make([]string, len(matched))
		for i, d := range matched {
			names[i] = d.Name
		}
		fmt.Fprintf(w, "%s: %s\n", signature, strings.Join(names, ", "))
		return nil
	},
}

func init() {
	extensionsCmd.AddCommand(extensionsListCmd)
	extensionsCmd.AddCommand(extensionsMatchCmd)
}
