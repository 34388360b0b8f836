// Package diag surfaces recoverable diagnostics from the classification
// pipeline. Nothing reported through it is fatal; every caller degrades to
// "report and continue".
package diag

import (
	"fmt"
	"io"
)

// Reporter writes diagnostics to W. A nil Reporter or nil W silences
// everything. Verbose-only messages are not even formatted unless Verbose
// is set.
type Reporter struct {
	W       io.Writer
	Verbose bool
}

// Warnf reports a recoverable problem.
func (r *Reporter) Warnf(format string, args ...interface{}) {
	if r == nil || r.W == nil {
		return
	}
	fmt.Fprintf(r.W, "warning: "+format+"\n", args...)
}

// Debugf reports a verbose-only trace message.
func (r *Reporter) Debugf(format string, args ...interface{}) {
	if r == nil || r.W == nil || !r.Verbose {
		return
	}
	fmt.Fprintf(r.W, format+"\n", args...)
}
