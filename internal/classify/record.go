package classify

// Field names attached to every record at creation.
const (
	FieldRawLine = "raw_line"
	FieldCommand = "command"
)

// Record is one classified output line. Tags and the two fixed fields are
// set at creation and read-only thereafter; extensions may attach further
// fields via Attach but must not remove the generic tag.
type Record struct {
	Raw    string
	Tags   []string // most specific first, generic "git.output" last
	Fields map[string]string
}

// Attach adds a field to the record. The fixed raw-line and command
// fields cannot be overwritten.
func (r *Record) Attach(key, value string) {
	if key == FieldRawLine || key == FieldCommand {
		return
	}
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[key] = value
}

// Field returns the named attached field, or "".
func (r *Record) Field(key string) string {
	return r.Fields[key]
}
