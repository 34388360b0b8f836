package extension

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gitsift/gitsift/internal/classify"
	"github.com/gitsift/gitsift/internal/diag"
	"github.com/gitsift/gitsift/internal/invoke"
)

// nopTransform satisfies Transform for descriptors under test.
type nopTransform struct{}

func (nopTransform) Begin(invoke.Invocation) (Result, error)  { return Result{}, nil }
func (nopTransform) Process(*classify.Record) (Result, error) { return Result{}, nil }
func (nopTransform) End() (Result, error)                     { return Result{}, nil }

func newNop() Transform { return nopTransform{} }

func TestResolveDiscoveryOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"c-ext", "a-ext", "b-ext"} {
		if err := reg.Register(Descriptor{Name: name, Match: MatchPattern(`^git clone\b`), Transform: newNop}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	r := NewResolver(reg, nil)
	got := r.Resolve("git clone repo")
	if len(got) != 3 {
		t.Fatalf("resolved %d extensions, want 3", len(got))
	}
	// Stable discovery order, not sorted by name or specificity.
	for i, want := range []string{"c-ext", "a-ext", "b-ext"} {
		if got[i].Name != want {
			t.Errorf("resolved[%d] = %s, want %s", i, got[i].Name, want)
		}
	}
}

func TestResolveCacheSkipsReevaluation(t *testing.T) {
	evals := 0
	reg := NewRegistry()
	if err := reg.Register(Descriptor{
		Name: "counting",
		Match: func(sig string) (bool, error) {
			evals++
			return true, nil
		},
		Transform: newNop,
	}); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(reg, nil)
	first := r.Resolve("git status")
	second := r.Resolve("git status")
	if evals != 1 {
		t.Errorf("predicate evaluated %d times, want 1", evals)
	}
	if len(first) != 1 || len(second) != 1 || second[0].Name != "counting" {
		t.Errorf("cached resolution differs: %v vs %v", first, second)
	}
}

func TestResolveCachesEmptyResult(t *testing.T) {
	evals := 0
	reg := NewRegistry()
	_ = reg.Register(Descriptor{
		Name: "never",
		Match: func(string) (bool, error) {
			evals++
			return false, nil
		},
		Transform: newNop,
	})

	r := NewResolver(reg, nil)
	if got := r.Resolve("git log"); len(got) != 0 {
		t.Fatalf("resolved %d, want 0", len(got))
	}
	if !r.Cached("git log") {
		t.Error("empty result should be cached")
	}
	r.Resolve("git log")
	if evals != 1 {
		t.Errorf("predicate evaluated %d times, want 1", evals)
	}
}

func TestResolvePredicateFailureExcludesExtension(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry()
	_ = reg.Register(Descriptor{Name: "broken", Match: MatchPattern(`(unclosed`), Transform: newNop})
	_ = reg.Register(Descriptor{Name: "healthy", Match: MatchPattern(`^git`), Transform: newNop})

	r := NewResolver(reg, &diag.Reporter{W: &buf})
	got := r.Resolve("git fetch")
	if len(got) != 1 || got[0].Name != "healthy" {
		t.Fatalf("resolved %v, want only healthy", got)
	}
	if !strings.Contains(buf.String(), "broken") {
		t.Errorf("diagnostic should name the failing extension, got %q", buf.String())
	}
}

func TestVerboseDiagnosticsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry()
	_ = reg.Register(Descriptor{Name: "match", Match: MatchPattern(`^git`), Transform: newNop})

	r := NewResolver(reg, &diag.Reporter{W: &buf, Verbose: false})
	r.Resolve("git log")
	if buf.Len() != 0 {
		t.Errorf("non-verbose resolution should emit nothing, got %q", buf.String())
	}

	verbose := NewResolver(reg, &diag.Reporter{W: &buf, Verbose: true})
	verbose.Resolve("git log")
	if !strings.Contains(buf.String(), "match") {
		t.Errorf("verbose resolution should trace matches, got %q", buf.String())
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	d := Descriptor{Name: "dup", Match: MatchPattern(`.`), Transform: newNop}
	if err := reg.Register(d); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(d); err == nil {
		t.Error("duplicate registration should fail")
	}
}
