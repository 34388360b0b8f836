package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// InvocationRow is one persisted invocation summary.
type InvocationRow struct {
	ID           string
	WorkingRoot  string
	Arguments    []string
	Command      string
	Subcommand   string
	StartedAt    time.Time
	RawLineCount int
	RecordCount  int
	ErrorCount   int
	WarningCount int
}

// RecordRow is one persisted output record or tool error.
type RecordRow struct {
	Position int
	Kind     string
	RawLine  string
	Message  string
	Tags     []string
	Fields   map[string]string
}

// ListInvocations returns the most recent invocations, newest first.
// subcommand filters to one git subcommand when non-empty; limit <= 0
// means no limit.
func (d *DB) ListInvocations(subcommand string, limit int) ([]InvocationRow, error) {
	query := `SELECT id, working_root, arguments, command, subcommand, started_at,
	                 raw_line_count, record_count, error_count, warning_count
	          FROM invocations`
	var args []interface{}
	if subcommand != "" {
		query += " WHERE subcommand = ?"
		args = append(args, subcommand)
	}
	query += " ORDER BY started_at DESC, recorded_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invocations: %w", err)
	}
	defer rows.Close()

	var out []InvocationRow
	for rows.Next() {
		r, err := scanInvocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetInvocation returns one invocation by ID.
func (d *DB) GetInvocation(id string) (*InvocationRow, error) {
	row := d.conn.QueryRow(`SELECT id, working_root, arguments, command, subcommand, started_at,
	                               raw_line_count, record_count, error_count, warning_count
	                        FROM invocations WHERE id = ?`, id)
	r, err := scanInvocation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invocation %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Records returns the persisted records of one invocation in order,
// records first, then tool errors.
func (d *DB) Records(invocationID string) ([]RecordRow, error) {
	rows, err := d.conn.Query(`SELECT position, kind, raw_line, message, tags, fields
	                           FROM output_records
	                           WHERE invocation_id = ?
	                           ORDER BY kind DESC, position`, invocationID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []RecordRow
	for rows.Next() {
		var r RecordRow
		var tags string
		var fields sql.NullString
		if err := rows.Scan(&r.Position, &r.Kind, &r.RawLine, &r.Message, &tags, &fields); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if tags != "" {
			r.Tags = strings.Split(tags, " ")
		}
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &r.Fields); err != nil {
				return nil, fmt.Errorf("decode record fields: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RawLines returns the raw output lines of one invocation in stream order.
func (d *DB) RawLines(invocationID string) ([]string, error) {
	rows, err := d.conn.Query(`SELECT line FROM raw_lines
	                           WHERE invocation_id = ?
	                           ORDER BY position`, invocationID)
	if err != nil {
		return nil, fmt.Errorf("query raw lines: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan raw line: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// DeleteInvocation removes one invocation and its records and raw lines.
func (d *DB) DeleteInvocation(id string) error {
	res, err := d.conn.Exec("DELETE FROM invocations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete invocation: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("invocation %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvocation(s rowScanner) (InvocationRow, error) {
	var r InvocationRow
	var arguments, startedAt string
	err := s.Scan(&r.ID, &r.WorkingRoot, &arguments, &r.Command, &r.Subcommand, &startedAt,
		&r.RawLineCount, &r.RecordCount, &r.ErrorCount, &r.WarningCount)
	if err != nil {
		return r, err
	}
	if arguments != "" {
		r.Arguments = strings.Split(arguments, " ")
	}
	if t, perr := time.Parse(time.RFC3339Nano, startedAt); perr == nil {
		r.StartedAt = t
	}
	return r, nil
}
