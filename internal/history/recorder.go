// Package history accumulates each invocation's raw lines and processed
// records into process-wide state and notifies external subscribers when
// a stream completes.
package history

import (
	"strings"
	"sync"
	"time"

	"github.com/gitsift/gitsift/internal/classify"
	"github.com/gitsift/gitsift/internal/invoke"
)

// EventKey is the fixed identifier invocation-complete notifications are
// published under. Every invocation is additionally published under
// EventKey + " " + the argument list joined by spaces, so subscribers can
// listen for one specific command shape.
const EventKey = "gitsift.command.complete"

// Key identifies one invocation in the process-wide history map.
// Arguments are space-joined because slices cannot be map keys; the
// joining rule matches the canonical signature.
type Key struct {
	InvocationID string
	WorkingRoot  string
	Arguments    string
}

// Entry is the recorded history of one invocation.
type Entry struct {
	Key         Key                `json:"key"`
	Arguments   []string           `json:"arguments"`
	Command     string             `json:"command"`
	WorkingRoot string             `json:"working_root,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Records     []*classify.Record `json:"records"`
	RawLines    []string           `json:"raw_lines"`
}

// Message is the payload delivered to observers. Both notification events
// of an invocation carry the same message.
type Message struct {
	InvocationID string             `json:"invocation_id"`
	Records      []*classify.Record `json:"records"`
	RawLines     []string           `json:"raw_lines"`
	Arguments    []string           `json:"arguments"`
	Command      string             `json:"command"`
	WorkingRoot  string             `json:"working_root,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

// Observer receives invocation-complete notifications. Notify is called
// twice per invocation: once with EventKey and once with the
// argument-qualified key.
type Observer interface {
	Notify(key string, msg Message)
}

// Recorder owns the process-wide history state: the entry map, the
// most-recent-raw-lines slot, and the observer list. Create one at
// process start; the core never clears it, and retention is an external
// concern. When the hosting environment runs invocations concurrently,
// the raw-lines slot and colliding entries are last-writer-wins; the
// mutex prevents data races, not interleaving.
type Recorder struct {
	mu        sync.Mutex
	entries   map[Key]*Entry
	order     []Key
	lastRaw   []string
	observers []Observer
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{entries: make(map[Key]*Entry)}
}

// Subscribe registers an observer for invocation-complete notifications.
func (r *Recorder) Subscribe(o Observer) {
	r.mu.Lock()
	r.observers = append(r.observers, o)
	r.mu.Unlock()
}

// Record stores the completed invocation, overwrites the raw-lines slot,
// and publishes the two notification events. It returns the stored entry.
func (r *Recorder) Record(inv invoke.Invocation, records []*classify.Record, rawLines []string) *Entry {
	key := Key{
		InvocationID: inv.ID,
		WorkingRoot:  inv.WorkingRoot,
		Arguments:    strings.Join(inv.Arguments, " "),
	}
	entry := &Entry{
		Key:         key,
		Arguments:   inv.Arguments,
		Command:     inv.CommandLine(),
		WorkingRoot: inv.WorkingRoot,
		Timestamp:   inv.Timestamp,
		Records:     records,
		RawLines:    rawLines,
	}

	r.mu.Lock()
	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = entry
	r.lastRaw = rawLines
	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	msg := Message{
		InvocationID: inv.ID,
		Records:      records,
		RawLines:     rawLines,
		Arguments:    inv.Arguments,
		Command:      inv.CommandLine(),
		WorkingRoot:  inv.WorkingRoot,
		Timestamp:    inv.Timestamp,
	}
	qualified := EventKey
	if len(inv.Arguments) > 0 {
		qualified = EventKey + " " + strings.Join(inv.Arguments, " ")
	}
	for _, o := range observers {
		o.Notify(EventKey, msg)
		o.Notify(qualified, msg)
	}
	return entry
}

// LastRawLines returns the raw lines of the most recently completed
// invocation. Overwritten per invocation, never merged.
func (r *Recorder) LastRawLines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRaw
}

// Get returns the entry stored under key.
func (r *Recorder) Get(key Key) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	return e, ok
}

// Entries returns all stored entries in completion order.
func (r *Recorder) Entries() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.entries[k])
	}
	return out
}

// Len reports how many invocations are recorded.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
