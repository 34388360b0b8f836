package cli

import (
	"bytes"
	"strings"
	"testing"
)

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedSubcommands := []string{
		"run", "history", "extensions", "analytics",
		"db", "serve", "config", "version",
	}
	for _, sub := range expectedSubcommands {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestHistorySubcommands(t *testing.T) {
	subcmds := []string{"list", "show", "raw", "export"}
	for _, sub := range subcmds {
		out, err := executeCommand("history", sub, "--help")
		if err != nil {
			t.Errorf("history %s --help failed: %v", sub, err)
		}
		if out == "" {
			t.Errorf("history %s --help produced no output", sub)
		}
	}
}

func TestExtensionsList(t *testing.T) {
	out, err := executeCommand("extensions", "list")
	if err != nil {
		t.Fatalf("extensions list: %v", err)
	}
	for _, name := range []string{"status-porcelain", "transfer-progress", "push-summary"} {
		if !strings.Contains(out, name) {
			t.Errorf("extensions list missing %q:\n%s", name, out)
		}
	}
}

func TestExtensionsMatch(t *testing.T) {
	out, err := executeCommand("extensions", "match", "--", "push", "origin", "main")
	if err != nil {
		t.Fatalf("extensions match: %v", err)
	}
	if !strings.Contains(out, "push-summary") {
		t.Errorf("expected push-summary to match, got: %s", out)
	}

	out, err = executeCommand("extensions", "match", "--", "stash")
	if err != nil {
		t.Fatalf("extensions match: %v", err)
	}
	if !strings.Contains(out, "No extensions match") {
		t.Errorf("expected no matches for stash, got: %s", out)
	}
}

func TestRunStreamsClassifiedOutput(t *testing.T) {
	// sh stands in for git so the test does not shell out to a real repo.
	out, err := executeCommand("run", "--no-save", "--git", "sh", "--",
		"-c", "echo one; echo 'hint: try --force'")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "one") {
		t.Errorf("expected raw record line in output, got: %s", out)
	}
	if !strings.Contains(out, "hint: try --force") {
		t.Errorf("expected hint line in output, got: %s", out)
	}
}

func TestRunPropagatesExitStatus(t *testing.T) {
	_, err := executeCommand("run", "--no-save", "--git", "sh", "--", "-c", "exit 4")
	if err == nil || !strings.Contains(err.Error(), "status 4") {
		t.Errorf("expected exit status error, got: %v", err)
	}
}

func TestDBResetRequiresForce(t *testing.T) {
	_, err := executeCommand("db", "reset")
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("expected reset to demand --force, got: %v", err)
	}
}
