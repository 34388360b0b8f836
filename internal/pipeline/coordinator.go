// Package pipeline coordinates the begin/process/end lifecycle of every
// extension stage that applies to one invocation.
//
// Dispatch is synchronous and strictly ordered: each phase call completes
// (or fails) before the next stage or the next line is touched. The only
// short-circuiting is the explicit skip-self and cancel-forward signalling
// defined in the extension package.
package pipeline

import (
	"github.com/gitsift/gitsift/internal/classify"
	"github.com/gitsift/gitsift/internal/diag"
	"github.com/gitsift/gitsift/internal/extension"
	"github.com/gitsift/gitsift/internal/invoke"
)

// State is a stage's lifecycle position.
type State int

const (
	Idle State = iota
	Active
	Skipped
	Cancelled
	Ended
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Skipped:
		return "skipped"
	case Cancelled:
		return "cancelled"
	case Ended:
		return "ended"
	default:
		return "idle"
	}
}

// stage wraps one extension's transform for a single invocation.
type stage struct {
	name  string
	tr    extension.Transform
	state State
}

// Coordinator runs the resolved stages for a single invocation. Create
// one at stream start and discard it at end of stream; it is not safe to
// reuse across invocations.
type Coordinator struct {
	inv    invoke.Invocation
	stages []*stage
	diag   *diag.Reporter
}

// New creates a Coordinator, instantiating a fresh transform per
// descriptor in resolution order.
func New(inv invoke.Invocation, exts []extension.Descriptor, d *diag.Reporter) *Coordinator {
	c := &Coordinator{inv: inv, diag: d}
	for _, e := range exts {
		c.stages = append(c.stages, &stage{name: e.Name, tr: e.Transform()})
	}
	return c
}

// Begin starts every stage in resolution order, returning records the
// begin phase emitted. A begin-phase error excludes that stage and is
// reported; it never halts the remaining stages. SkipSelf excludes only
// the signalling stage; CancelForward prevents every later stage from
// beginning at all.
func (c *Coordinator) Begin() []*classify.Record {
	var out []*classify.Record
	for i, st := range c.stages {
		res, err := st.tr.Begin(c.inv)
		if err != nil {
			c.diag.Warnf("extension %s: begin failed for %q: %v", st.name, c.inv.CommandLine(), err)
			st.state = Skipped
			continue
		}
		out = append(out, res.Records...)
		switch res.Signal {
		case extension.SkipSelf:
			st.state = Skipped
		case extension.CancelForward:
			st.state = Cancelled
			c.cancelFrom(i+1, res.Reason)
			return out
		default:
			st.state = Active
		}
	}
	return out
}

// Process feeds one classified record through the active stages in
// resolution order. Records emitted by a stage become the input of the
// next stage; with no active stages the record passes through unmodified.
func (c *Coordinator) Process(rec *classify.Record) []*classify.Record {
	recs := []*classify.Record{rec}
	for i, st := range c.stages {
		if st.state != Active {
			continue
		}
		next, halted := c.processStage(i, st, recs)
		recs = next
		if halted {
			break
		}
	}
	return recs
}

// processStage feeds recs through one stage. It returns the records that
// flow onward and whether a cancel-forward ended the pass: the in-flight
// record still reaches the final output alongside whatever the signalling
// stage already produced.
func (c *Coordinator) processStage(idx int, st *stage, recs []*classify.Record) ([]*classify.Record, bool) {
	var next []*classify.Record
	for j, r := range recs {
		res, err := st.tr.Process(r)
		if err != nil {
			c.diag.Warnf("extension %s: process failed for %q: %v", st.name, c.inv.CommandLine(), err)
			next = append(next, r)
			continue
		}
		switch res.Signal {
		case extension.SkipSelf:
			st.state = Skipped
			next = append(next, res.Records...)
			next = append(next, r)
			next = append(next, recs[j+1:]...)
			return next, false
		case extension.CancelForward:
			st.state = Cancelled
			c.cancelFrom(idx+1, res.Reason)
			next = append(next, res.Records...)
			next = append(next, r)
			next = append(next, recs[j+1:]...)
			return next, true
		default:
			next = append(next, res.Records...)
		}
	}
	return next, false
}

// CancelAll excludes every remaining stage for the rest of the
// invocation. The orchestrator calls this when git reports a fatal error;
// subsequent records pass through without extension processing.
func (c *Coordinator) CancelAll(reason string) {
	c.cancelFrom(0, reason)
}

func (c *Coordinator) cancelFrom(idx int, reason string) {
	for _, st := range c.stages[idx:] {
		if st.state == Idle || st.state == Active {
			st.state = Cancelled
		}
	}
	if reason != "" {
		c.diag.Debugf("pipeline cancelled for %q: %s", c.inv.CommandLine(), reason)
	}
}

// End closes every still-active stage in resolution order, returning the
// records the end phase emitted; they are appended to the invocation's
// processed output exactly like process-phase records. End-phase failures
// are reported and never prevent ending the remaining stages; end-phase
// signals carry no meaning and are ignored.
func (c *Coordinator) End() []*classify.Record {
	var out []*classify.Record
	for _, st := range c.stages {
		if st.state != Active {
			continue
		}
		res, err := st.tr.End()
		st.state = Ended
		if err != nil {
			c.diag.Warnf("extension %s: end failed for %q: %v", st.name, c.inv.CommandLine(), err)
			continue
		}
		out = append(out, res.Records...)
	}
	return out
}

// ActiveCount reports how many stages remain active.
func (c *Coordinator) ActiveCount() int {
	n := 0
	for _, st := range c.stages {
		if st.state == Active {
			n++
		}
	}
	return n
}

// States returns the lifecycle state per stage name, in resolution order.
// Used by tests and verbose diagnostics.
func (c *Coordinator) States() map[string]State {
	m := make(map[string]State, len(c.stages))
	for _, st := range c.stages {
		m[st.name] = st.state
	}
	return m
}
