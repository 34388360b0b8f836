package extension

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gitsift/gitsift/internal/classify"
	"github.com/gitsift/gitsift/internal/invoke"
)

// Builtins returns the extensions shipped with gitsift, in registration
// order. They ride the same descriptor interface as third-party
// extensions; callers may drop entries by name before registering.
func Builtins() []Descriptor {
	return []Descriptor{
		{
			Name:      "status-porcelain",
			Match:     MatchPattern(`^git status\b`),
			Transform: func() Transform { return &statusTransform{} },
		},
		{
			Name:      "transfer-progress",
			Match:     MatchPattern(`^git (clone|fetch|pull)\b`),
			Transform: func() Transform { return &progressTransform{} },
		},
		{
			Name:      "push-summary",
			Match:     MatchPattern(`^git push\b`),
			Transform: func() Transform { return &pushTransform{} },
		},
	}
}

// --- status-porcelain ---

// porcelain v1 short-format entry: two status columns and a path.
var porcelainEntry = regexp.MustCompile(`^([ MADRCU?!])([ MADRCU?!]) (.+)$`)

// branch header emitted by status --branch: "## main...origin/main".
var branchHeader = regexp.MustCompile(`^## (\S+)`)

// statusTransform annotates git status porcelain entries with parsed
// index/worktree state and path fields. Non-porcelain lines pass through
// untouched.
type statusTransform struct{}

func (t *statusTransform) Begin(inv invoke.Invocation) (Result, error) {
	return Result{}, nil
}

func (t *statusTransform) Process(rec *classify.Record) (Result, error) {
	if m := branchHeader.FindStringSubmatch(rec.Raw); m != nil {
		rec.Attach("branch", m[1])
		return Emit(rec), nil
	}
	if m := porcelainEntry.FindStringSubmatch(rec.Raw); m != nil {
		rec.Attach("status_index", m[1])
		rec.Attach("status_worktree", m[2])
		rec.Attach("path", m[3])
	}
	return Emit(rec), nil
}

func (t *statusTransform) End() (Result, error) {
	return Result{}, nil
}

// --- transfer-progress ---

// progressLine matches object-transfer progress counters. Intermediate
// updates (no trailing ", done.") are collapsed; only the final line of
// each phase reaches the output, plus a summary at end of stream.
var progressLine = regexp.MustCompile(`^(remote: )?(Counting|Compressing|Receiving|Resolving|Enumerating|Writing) (objects|deltas):\s+(\d+)%`)

type progressTransform struct {
	inv       invoke.Invocation
	collapsed int
}

func (t *progressTransform) Begin(inv invoke.Invocation) (Result, error) {
	t.inv = inv
	return Result{}, nil
}

func (t *progressTransform) Process(rec *classify.Record) (Result, error) {
	m := progressLine.FindStringSubmatch(rec.Raw)
	if m == nil {
		return Emit(rec), nil
	}
	if strings.Contains(rec.Raw, ", done") {
		rec.Attach("transfer_phase", strings.ToLower(m[2]))
		return Emit(rec), nil
	}
	t.collapsed++
	return Result{}, nil
}

func (t *progressTransform) End() (Result, error) {
	if t.collapsed == 0 {
		return Result{}, nil
	}
	summary := fmt.Sprintf("collapsed %d progress updates", t.collapsed)
	return Emit(t.newRecord(summary)), nil
}

func (t *progressTransform) newRecord(line string) *classify.Record {
	return &classify.Record{
		Raw:  line,
		Tags: classify.Tags(t.inv.Arguments),
		Fields: map[string]string{
			classify.FieldRawLine: line,
			classify.FieldCommand: t.inv.CommandLine(),
		},
	}
}

// --- push-summary ---

// pushDest matches the destination header git push prints: "To <url>".
var pushDest = regexp.MustCompile(`^To (\S+)`)

type pushTransform struct {
	inv  invoke.Invocation
	dest string
	refs int
}

func (t *pushTransform) Begin(inv invoke.Invocation) (Result, error) {
	t.inv = inv
	return Result{}, nil
}

func (t *pushTransform) Process(rec *classify.Record) (Result, error) {
	if m := pushDest.FindStringSubmatch(rec.Raw); m != nil {
		t.dest = m[1]
		rec.Attach("push_dest", m[1])
	} else if strings.Contains(rec.Raw, "->") {
		t.refs++
		if t.dest != "" {
			rec.Attach("push_dest", t.dest)
		}
	}
	return Emit(rec), nil
}

func (t *pushTransform) End() (Result, error) {
	if t.dest == "" || t.refs == 0 {
		return Result{}, nil
	}
	line := fmt.Sprintf("pushed %d ref(s) to %s", t.refs, t.dest)
	rec := &classify.Record{
		Raw:  line,
		Tags: classify.Tags(t.inv.Arguments),
		Fields: map[string]string{
			classify.FieldRawLine: line,
			classify.FieldCommand: t.inv.CommandLine(),
		},
	}
	return Emit(rec), nil
}
