// Package extension defines the capability shape third-party extensions
// expose to the classification pipeline and resolves which extensions
// apply to a given command signature.
//
// An extension is registered as a Descriptor: an applicability predicate
// over the canonical command signature plus a factory producing a fresh
// staged transform per invocation. The core places no constraint on how
// descriptors are discovered or loaded.
package extension

import (
	"fmt"
	"regexp"

	"github.com/gitsift/gitsift/internal/classify"
	"github.com/gitsift/gitsift/internal/invoke"
)

// Signal is the explicit early-termination result of a phase call.
type Signal int

const (
	// Continue keeps the stage active.
	Continue Signal = iota
	// SkipSelf excludes only this stage for the rest of the invocation.
	SkipSelf
	// CancelForward excludes this stage and every stage after it in
	// resolution order for the rest of the invocation.
	CancelForward
)

func (s Signal) String() string {
	switch s {
	case SkipSelf:
		return "skip-self"
	case CancelForward:
		return "cancel-forward"
	default:
		return "continue"
	}
}

// Result is returned by every phase call of a staged transform. Records
// are emitted downstream; Reason annotates a CancelForward.
type Result struct {
	Signal  Signal
	Reason  string
	Records []*classify.Record
}

// Emit is shorthand for a Continue result carrying records.
func Emit(recs ...*classify.Record) Result {
	return Result{Records: recs}
}

// Transform is one extension's begin/process/end lifecycle over a single
// invocation's record stream. The coordinator owns the instance for the
// duration of the invocation and discards it at end of stream. Calls are
// synchronous and strictly ordered; a returned error is reported as a
// recoverable diagnostic and never halts sibling stages.
type Transform interface {
	Begin(inv invoke.Invocation) (Result, error)
	Process(rec *classify.Record) (Result, error)
	End() (Result, error)
}

// Descriptor registers one extension.
type Descriptor struct {
	Name      string
	Match     func(signature string) (bool, error)
	Transform func() Transform
}

// MatchPattern returns an applicability predicate matching signatures
// against a regular expression. The pattern is compiled on first use so a
// malformed pattern surfaces as a predicate failure the resolver can
// report and exclude, rather than a registration panic.
func MatchPattern(pattern string) func(string) (bool, error) {
	var re *regexp.Regexp
	var compileErr error
	compiled := false
	return func(sig string) (bool, error) {
		if !compiled {
			re, compileErr = regexp.Compile(pattern)
			compiled = true
		}
		if compileErr != nil {
			return false, fmt.Errorf("pattern %q: %w", pattern, compileErr)
		}
		return re.MatchString(sig), nil
	}
}
