// Package invoke defines the invocation handed to the classification
// pipeline and the canonical command signature derived from it.
package invoke

import (
	"strings"
	"time"
)

// Tool is the external tool every invocation wraps.
const Tool = "git"

// Invocation is one execution of git with a fixed argument list and
// working root. It is immutable once the pipeline starts.
type Invocation struct {
	ID          string // session-scoped invocation id
	Arguments   []string
	WorkingRoot string // empty when run outside a repository
	Timestamp   time.Time
}

// SignatureOf builds the canonical command signature for an argument
// list: the tool name and arguments joined by single spaces. Identical
// argument sequences always produce identical signatures; order matters.
// The signature is both the resolver cache key and the match target for
// extension applicability.
func SignatureOf(args []string) string {
	if len(args) == 0 {
		return Tool
	}
	return Tool + " " + strings.Join(args, " ")
}

// Signature returns the invocation's canonical command signature.
func (inv Invocation) Signature() string {
	return SignatureOf(inv.Arguments)
}

// CommandLine returns the fully reconstructed command string attached to
// every output record. It uses the same joining rule as the signature.
func (inv Invocation) CommandLine() string {
	return SignatureOf(inv.Arguments)
}
