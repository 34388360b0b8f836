package db

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gitsift/gitsift/internal/classify"
	"github.com/gitsift/gitsift/internal/diag"
	"github.com/gitsift/gitsift/internal/history"
)

// Sink persists completed invocations. It subscribes to the history
// recorder and reacts only to the fixed event key; the argument-qualified
// duplicate of each notification is ignored so every invocation is
// written once.
type Sink struct {
	db   *DB
	diag *diag.Reporter
}

// NewSink creates a Sink writing to db. Persistence failures are reported
// through d and never interrupt the invocation that triggered them.
func NewSink(db *DB, d *diag.Reporter) *Sink {
	return &Sink{db: db, diag: d}
}

// Notify implements history.Observer.
func (s *Sink) Notify(key string, msg history.Message) {
	if key != history.EventKey {
		return
	}
	if err := s.persist(msg); err != nil {
		s.diag.Warnf("persist invocation %s: %v", msg.InvocationID, err)
	}
}

func (s *Sink) persist(msg history.Message) error {
	var errorCount, warningCount int
	for _, line := range msg.RawLines {
		if _, ok := classify.ErrorMessage(line); ok {
			errorCount++
		} else if _, ok := classify.HintMessage(line); ok {
			warningCount++
		}
	}

	tx, err := s.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	subcommand := ""
	if len(msg.Arguments) > 0 {
		subcommand = msg.Arguments[0]
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO invocations
	                  (id, working_root, arguments, command, subcommand, started_at,
	                   raw_line_count, record_count, error_count, warning_count)
	                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.InvocationID, msg.WorkingRoot, strings.Join(msg.Arguments, " "),
		msg.Command, subcommand, msg.Timestamp.Format(time.RFC3339Nano),
		len(msg.RawLines), len(msg.Records), errorCount, warningCount)
	if err != nil {
		return err
	}
	// Replays of the same invocation replace its detail rows wholesale.
	for _, table := range []string{"output_records", "raw_lines"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE invocation_id = ?", msg.InvocationID); err != nil {
			return err
		}
	}

	for i, rec := range msg.Records {
		fields, err := json.Marshal(rec.Fields)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO output_records
		                  (invocation_id, position, kind, raw_line, message, tags, fields)
		                  VALUES (?, ?, 'record', ?, '', ?, ?)`,
			msg.InvocationID, i, rec.Raw, strings.Join(rec.Tags, " "), string(fields))
		if err != nil {
			return err
		}
	}

	errTags := strings.Join(classify.ErrorTags(classify.Tags(msg.Arguments)), " ")
	errPos := 0
	for _, line := range msg.RawLines {
		if message, ok := classify.ErrorMessage(line); ok {
			_, err = tx.Exec(`INSERT INTO output_records
			                  (invocation_id, position, kind, raw_line, message, tags, fields)
			                  VALUES (?, ?, 'error', ?, ?, ?, NULL)`,
				msg.InvocationID, errPos, line, message, errTags)
			if err != nil {
				return err
			}
			errPos++
		}
	}

	for i, line := range msg.RawLines {
		_, err = tx.Exec(`INSERT INTO raw_lines (invocation_id, position, line)
		                  VALUES (?, ?, ?)`, msg.InvocationID, i, line)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
