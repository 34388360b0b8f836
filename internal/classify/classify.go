// Package classify converts raw git output lines into typed records with
// a hierarchy of classification tags derived from the argument list.
package classify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gitsift/gitsift/internal/diag"
	"github.com/gitsift/gitsift/internal/invoke"
)

// DefaultMaxLineLength bounds the size of a single classified line.
// Longer lines are rejected by the safety check and skipped.
const DefaultMaxLineLength = 16384

// DefaultSentinel is the transport placeholder a hosting transport emits
// when the native command produced no real output. Sentinel lines are
// silently skipped and never recorded.
const DefaultSentinel = "__gitsift_no_output__"

// Line prefixes recognised by the core. Anything richer is left to
// extensions.
const (
	errorPrefix = "error:"
	fatalPrefix = "fatal:"
	hintPrefix  = "hint:"
)

// Kind discriminates classification outcomes.
type Kind int

const (
	KindRecord Kind = iota
	KindError
	KindWarning
	KindSkip
)

// Outcome is the result of classifying one raw line. Exactly one of
// Record, Error, Warning is set, matching Kind; Sentinel marks a skip
// caused by the transport placeholder rather than a rejected line.
type Outcome struct {
	Kind     Kind
	Record   *Record
	Error    *ToolError
	Warning  string
	Sentinel bool
}

// ToolError is a git-reported error line (error: or fatal: prefix). It is
// fatal to the remainder of the invocation's extension pipeline, not to
// the stream itself.
type ToolError struct {
	Message string
	Raw     string
	Tags    []string // error-variant tags: "output" suffix replaced by "error"
}

func (e *ToolError) Error() string { return e.Message }

// shallow-clone special case: git prints a bare "shallow info: <n>" when
// --shallow-since matches no commits, which reads like a protocol dump.
var shallowInfoPattern = regexp.MustCompile(`^shallow info: \d+\s*$`)
var shallowSincePattern = regexp.MustCompile(`--shallow-since=(\S+)`)

// Classifier wraps raw lines into records for one process configuration.
// It is pure per line; identical input always classifies identically.
type Classifier struct {
	maxLineLength int
	sentinel      string
	diag          *diag.Reporter
}

// New creates a Classifier. Zero maxLineLength selects the default;
// empty sentinel selects the default placeholder.
func New(maxLineLength int, sentinel string, d *diag.Reporter) *Classifier {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	return &Classifier{maxLineLength: maxLineLength, sentinel: sentinel, diag: d}
}

// Classify classifies the index-th (1-based) raw line of an invocation.
func (c *Classifier) Classify(raw string, index int, inv invoke.Invocation) Outcome {
	if raw == c.sentinel {
		return Outcome{Kind: KindSkip, Sentinel: true}
	}
	if err := c.checkLine(raw); err != nil {
		c.diag.Warnf("line %d: %v", index, err)
		return Outcome{Kind: KindSkip}
	}

	tags := Tags(inv.Arguments)

	if msg, ok := stripPrefix(raw, errorPrefix, fatalPrefix); ok {
		return Outcome{Kind: KindError, Error: &ToolError{
			Message: c.rewriteShallowError(msg, inv),
			Raw:     raw,
			Tags:    ErrorTags(tags),
		}}
	}

	if msg, ok := stripPrefix(raw, hintPrefix); ok {
		return Outcome{Kind: KindWarning, Warning: msg}
	}

	rec := &Record{
		Raw:  raw,
		Tags: tags,
		Fields: map[string]string{
			FieldRawLine: raw,
			FieldCommand: inv.CommandLine(),
		},
	}
	return Outcome{Kind: KindRecord, Record: rec}
}

// checkLine applies the safety checks a line must pass before wrapping.
func (c *Classifier) checkLine(raw string) error {
	if len(raw) > c.maxLineLength {
		return fmt.Errorf("line exceeds %d bytes, skipping", c.maxLineLength)
	}
	if !utf8.ValidString(raw) {
		return fmt.Errorf("line is not valid UTF-8, skipping")
	}
	return nil
}

// rewriteShallowError rewrites git's confusing "shallow info: <n>" error
// into a readable message when the command used --shallow-since.
func (c *Classifier) rewriteShallowError(msg string, inv invoke.Invocation) string {
	if !shallowInfoPattern.MatchString(msg) {
		return msg
	}
	m := shallowSincePattern.FindStringSubmatch(inv.CommandLine())
	if m == nil {
		return msg
	}
	return fmt.Sprintf("No commits found -Since %s", m[1])
}

// Tags derives the type-tag hierarchy for an argument list: one tag per
// argument-list prefix, most specific first, always ending with the
// generic "git.output" tag regardless of argument count.
func Tags(args []string) []string {
	var tags []string
	for n := len(args) - 2; n >= 0; n-- {
		tags = append(tags, invoke.Tool+"."+strings.Join(args[:n+1], ".")+".output")
	}
	return append(tags, invoke.Tool+".output")
}

// ErrorTags derives the error-variant tags by substituting the "output"
// suffix with "error" in every entry.
func ErrorTags(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = strings.TrimSuffix(t, "output") + "error"
	}
	return out
}

// ErrorMessage returns the message portion of an error: or fatal: line,
// with the prefix and following spaces removed.
func ErrorMessage(raw string) (string, bool) {
	return stripPrefix(raw, errorPrefix, fatalPrefix)
}

// HintMessage returns the message portion of a hint: line.
func HintMessage(raw string) (string, bool) {
	return stripPrefix(raw, hintPrefix)
}

// stripPrefix returns the line with the first matching prefix and any
// following spaces removed. Prefixes are case-sensitive and anchored at
// the start of the line.
func stripPrefix(raw string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(raw, p) {
			return strings.TrimLeft(strings.TrimPrefix(raw, p), " "), true
		}
	}
	return "", false
}
