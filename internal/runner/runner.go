// Package runner launches git and streams its merged stdout/stderr as an
// ordered sequence of raw lines. The classification core consumes lines
// through the GitRunner interface and never depends on this package.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/gitsift/gitsift/internal/invoke"
)

// LineHandler consumes one raw output line. Handlers are called in
// stream order from the reading goroutine's own loop; the pull blocks
// until the next line is available.
type LineHandler func(line string)

// maxLineBytes bounds the scanner's token size. The classifier applies
// its own, smaller safety limit.
const maxLineBytes = 1 << 20

// GitRunner abstracts git execution for testing.
type GitRunner interface {
	Run(ctx context.Context, dir string, args []string, handle LineHandler) (exitCode int, err error)
}

// ExecGit implements GitRunner with os/exec. Stdout and stderr share one
// pipe so the merged line ordering matches what a terminal would show.
type ExecGit struct {
	// Binary overrides the executable; empty means git.
	Binary string
}

func (e ExecGit) Run(ctx context.Context, dir string, args []string, handle LineHandler) (int, error) {
	bin := e.Binary
	if bin == "" {
		bin = invoke.Tool
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return -1, fmt.Errorf("create pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return -1, fmt.Errorf("start %s: %w", bin, err)
	}
	// The child holds its own copy of the write end; close ours so the
	// scanner sees EOF when the child exits.
	pw.Close()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		handle(scanner.Text())
	}
	scanErr := scanner.Err()
	pr.Close()

	waitErr := cmd.Wait()
	if scanErr != nil {
		return -1, fmt.Errorf("read output: %w", scanErr)
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("wait for %s: %w", bin, waitErr)
	}
	return 0, nil
}
