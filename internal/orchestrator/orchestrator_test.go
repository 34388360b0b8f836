package orchestrator

import (
	"context"
	"reflect"
	"testing"

	"github.com/gitsift/gitsift/internal/classify"
	"github.com/gitsift/gitsift/internal/extension"
	"github.com/gitsift/gitsift/internal/history"
	"github.com/gitsift/gitsift/internal/invoke"
	"github.com/gitsift/gitsift/internal/runner"
)

// fakeGit replays scripted lines instead of launching git.
type fakeGit struct {
	lines    []string
	exitCode int
	args     []string
	dir      string
}

func (f *fakeGit) Run(ctx context.Context, dir string, args []string, handle runner.LineHandler) (int, error) {
	f.args = args
	f.dir = dir
	for _, l := range f.lines {
		handle(l)
	}
	return f.exitCode, nil
}

// taggingTransform marks every record it sees so tests can tell whether
// the extension pipeline touched it.
type taggingTransform struct {
	begun, ended bool
	processed    int
}

func (t *taggingTransform) Begin(invoke.Invocation) (extension.Result, error) {
	t.begun = true
	return extension.Result{}, nil
}

func (t *taggingTransform) Process(rec *classify.Record) (extension.Result, error) {
	t.processed++
	rec.Attach("touched", "yes")
	return extension.Emit(rec), nil
}

func (t *taggingTransform) End() (extension.Result, error) {
	t.ended = true
	return extension.Result{}, nil
}

func buildOrchestrator(t *testing.T, git runner.GitRunner, exts ...extension.Descriptor) *Orchestrator {
	t.Helper()
	reg := extension.NewRegistry()
	for _, e := range exts {
		if err := reg.Register(e); err != nil {
			t.Fatal(err)
		}
	}
	return New(
		git,
		extension.NewResolver(reg, nil),
		classify.New(0, "<sentinel>", nil),
		history.NewRecorder(),
		nil,
	)
}

func alwaysDesc(name string, tr extension.Transform) extension.Descriptor {
	return extension.Descriptor{
		Name:      name,
		Match:     func(string) (bool, error) { return true, nil },
		Transform: func() extension.Transform { return tr },
	}
}

func TestRunClassifiesAndRecords(t *testing.T) {
	git := &fakeGit{lines: []string{"line one", "line two"}}
	tr := &taggingTransform{}
	o := buildOrchestrator(t, git, alwaysDesc("tagger", tr))

	var emitted []classify.Outcome
	res, err := o.Run(context.Background(), RunOpts{Args: []string{"status"}, WorkingRoot: "/repo"}, func(out classify.Outcome) {
		emitted = append(emitted, out)
	})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(git.args, []string{"status"}) || git.dir != "/repo" {
		t.Errorf("git invoked with %v in %q", git.args, git.dir)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	if !tr.begun || !tr.ended || tr.processed != 2 {
		t.Errorf("stage lifecycle: begun=%v processed=%d ended=%v", tr.begun, tr.processed, tr.ended)
	}
	for _, r := range res.Records {
		if r.Field("touched") != "yes" {
			t.Errorf("record %q not processed by extension", r.Raw)
		}
	}
	if len(emitted) != 2 {
		t.Errorf("emitted %d outcomes, want 2", len(emitted))
	}
	if res.Invocation.ID == "" {
		t.Error("invocation id not assigned")
	}
	if o.History().Len() != 1 {
		t.Errorf("history entries = %d, want 1", o.History().Len())
	}
}

func TestRunErrorCancelsPipelineButNotStream(t *testing.T) {
	git := &fakeGit{lines: []string{
		"Cloning into 'repo'...",
		"fatal: repository not found",
		"trailing output",
	}}
	tr := &taggingTransform{}
	o := buildOrchestrator(t, git, alwaysDesc("tagger", tr))

	res, err := o.Run(context.Background(), RunOpts{Args: []string{"clone", "repo"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(res.Errors))
	}
	if res.Errors[0].Message != "repository not found" {
		t.Errorf("error message = %q", res.Errors[0].Message)
	}
	wantTags := []string{"git.clone.error", "git.error"}
	if !reflect.DeepEqual(res.Errors[0].Tags, wantTags) {
		t.Errorf("error tags = %v, want %v", res.Errors[0].Tags, wantTags)
	}

	// Only the pre-error line went through the extension; the trailing
	// line passed through with the pipeline cancelled.
	if tr.processed != 1 {
		t.Errorf("extension processed %d lines, want 1", tr.processed)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	if res.Records[1].Field("touched") != "" {
		t.Errorf("post-error record should bypass extensions")
	}
	if tr.ended {
		t.Errorf("cancelled stage should not receive end call")
	}
	// All three raw lines were still consumed.
	if res.RawLines != 3 {
		t.Errorf("raw lines = %d, want 3", res.RawLines)
	}
}

func TestRunHintBypassesPipeline(t *testing.T) {
	git := &fakeGit{lines: []string{"hint: try --force", "normal"}}
	tr := &taggingTransform{}
	o := buildOrchestrator(t, git, alwaysDesc("tagger", tr))

	res, err := o.Run(context.Background(), RunOpts{Args: []string{"push"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != "try --force" {
		t.Errorf("warnings = %v", res.Warnings)
	}
	if tr.processed != 1 {
		t.Errorf("extension saw %d records, hint lines must never reach stages", tr.processed)
	}
}

func TestRunExcludesSentinelFromRawLines(t *testing.T) {
	git := &fakeGit{lines: []string{"<sentinel>", "real"}}
	o := buildOrchestrator(t, git)

	res, err := o.Run(context.Background(), RunOpts{Args: []string{"status"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.RawLines != 1 {
		t.Errorf("raw lines = %d, sentinel must be excluded", res.RawLines)
	}
	if got := o.History().LastRawLines(); !reflect.DeepEqual(got, []string{"real"}) {
		t.Errorf("history raw lines = %v", got)
	}
}

func TestRunPropagatesExitCode(t *testing.T) {
	git := &fakeGit{exitCode: 128}
	o := buildOrchestrator(t, git)

	res, err := o.Run(context.Background(), RunOpts{Args: []string{"status"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 128 {
		t.Errorf("exit code = %d, want 128", res.ExitCode)
	}
}

func TestRunNoExtensionsPassThrough(t *testing.T) {
	git := &fakeGit{lines: []string{"plain"}}
	o := buildOrchestrator(t, git)

	res, err := o.Run(context.Background(), RunOpts{Args: []string{"log"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 || res.Records[0].Raw != "plain" {
		t.Errorf("records = %v", res.Records)
	}
}
