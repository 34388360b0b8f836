// Package orchestrator composes the runner, resolver, classifier, stage
// coordinator, and history recorder into one end-to-end invocation.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gitsift/gitsift/internal/classify"
	"github.com/gitsift/gitsift/internal/diag"
	"github.com/gitsift/gitsift/internal/extension"
	"github.com/gitsift/gitsift/internal/history"
	"github.com/gitsift/gitsift/internal/invoke"
	"github.com/gitsift/gitsift/internal/pipeline"
	"github.com/gitsift/gitsift/internal/runner"
)

// Emit receives classified outcomes as the stream produces them. It is
// called from the orchestrator's own loop, one outcome at a time.
type Emit func(classify.Outcome)

// Orchestrator runs invocations through the classification pipeline.
// Create one per process; the resolver cache and history live as long as
// the orchestrator does.
type Orchestrator struct {
	git        runner.GitRunner
	resolver   *extension.Resolver
	classifier *classify.Classifier
	history    *history.Recorder
	diag       *diag.Reporter
}

// New creates an Orchestrator.
func New(
	git runner.GitRunner,
	resolver *extension.Resolver,
	classifier *classify.Classifier,
	recorder *history.Recorder,
	d *diag.Reporter,
) *Orchestrator {
	return &Orchestrator{
		git:        git,
		resolver:   resolver,
		classifier: classifier,
		history:    recorder,
		diag:       d,
	}
}

// History exposes the orchestrator's recorder for subscribers and review.
func (o *Orchestrator) History() *history.Recorder {
	return o.history
}

// RunOpts configures one invocation.
type RunOpts struct {
	Args        []string
	WorkingRoot string
}

// RunResult summarises one completed invocation.
type RunResult struct {
	Invocation invoke.Invocation
	ExitCode   int
	Records    []*classify.Record
	Errors     []*classify.ToolError
	Warnings   []string
	RawLines   int
}

// Run executes git once and streams every classified outcome to emit.
// The stream itself survives tool-reported errors: an error cancels the
// remaining extension stages but consumption continues to end of output.
func (o *Orchestrator) Run(ctx context.Context, opts RunOpts, emit Emit) (*RunResult, error) {
	inv := invoke.Invocation{
		ID:          uuid.NewString(),
		Arguments:   opts.Args,
		WorkingRoot: opts.WorkingRoot,
		Timestamp:   time.Now().UTC(),
	}
	if emit == nil {
		emit = func(classify.Outcome) {}
	}

	exts := o.resolver.Resolve(inv.Signature())
	coord := pipeline.New(inv, exts, o.diag)

	result := &RunResult{Invocation: inv}
	var raw []string

	collect := func(recs []*classify.Record) {
		for _, r := range recs {
			result.Records = append(result.Records, r)
			emit(classify.Outcome{Kind: classify.KindRecord, Record: r})
		}
	}

	collect(coord.Begin())

	lineNo := 0
	exitCode, runErr := o.git.Run(ctx, opts.WorkingRoot, opts.Args, func(line string) {
		lineNo++
		out := o.classifier.Classify(line, lineNo, inv)
		if !(out.Kind == classify.KindSkip && out.Sentinel) {
			raw = append(raw, line)
		}
		switch out.Kind {
		case classify.KindRecord:
			collect(coord.Process(out.Record))
		case classify.KindError:
			result.Errors = append(result.Errors, out.Error)
			emit(out)
			coord.CancelAll("git reported: " + out.Error.Message)
		case classify.KindWarning:
			result.Warnings = append(result.Warnings, out.Warning)
			emit(out)
		}
	})

	collect(coord.End())

	result.ExitCode = exitCode
	result.RawLines = len(raw)
	o.history.Record(inv, result.Records, raw)

	if runErr != nil {
		return result, fmt.Errorf("run %s: %w", inv.CommandLine(), runErr)
	}
	return result, nil
}
