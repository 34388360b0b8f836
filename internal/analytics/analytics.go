// Package analytics computes summary statistics over persisted
// invocations.
package analytics

import (
	"database/sql"
	"fmt"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
}

// SubcommandStats holds per-subcommand invocation statistics.
type SubcommandStats struct {
	Subcommand   string  `json:"subcommand"`
	Count        int     `json:"count"`
	ErrorCount   int     `json:"error_count"`
	ErrorRate    float64 `json:"error_rate"`
	AvgRawLines  float64 `json:"avg_raw_lines"`
	AvgRecords   float64 `json:"avg_records"`
	WarningCount int     `json:"warning_count"`
}

// ErrorStats holds frequency of one distinct error message.
type ErrorStats struct {
	Message    string `json:"message"`
	Count      int    `json:"count"`
	Subcommand string `json:"subcommand"`
	LastSeen   string `json:"last_seen"`
}

// WeeklyVolume holds invocation counts per ISO week.
type WeeklyVolume struct {
	Week       string `json:"week"`
	Count      int    `json:"count"`
	ErrorCount int    `json:"error_count"`
}

// QuerySubcommandStats returns per-subcommand invocation counts and error
// rates, highest volume first. since filters to invocations started at or
// after the given timestamp when non-empty.
func QuerySubcommandStats(database DB, since string) ([]SubcommandStats, error) {
	query := `
		SELECT subcommand,
		       COUNT(*),
		       SUM(error_count),
		       SUM(warning_count),
		       AVG(raw_line_count),
		       AVG(record_count),
		       AVG(CASE WHEN error_count > 0 THEN 1.0 ELSE 0.0 END)
		FROM invocations
		WHERE subcommand != ''`

	args := []interface{}{}
	if since != "" {
		query += ` AND started_at >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY subcommand ORDER BY COUNT(*) DESC, subcommand`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subcommand stats: %w", err)
	}
	defer rows.Close()

	var out []SubcommandStats
	for rows.Next() {
		var s SubcommandStats
		if err := rows.Scan(&s.Subcommand, &s.Count, &s.ErrorCount, &s.WarningCount,
			&s.AvgRawLines, &s.AvgRecords, &s.ErrorRate); err != nil {
			return nil, fmt.Errorf("scan subcommand stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// QueryTopErrors returns the most frequent distinct error messages across
// all persisted invocations, most frequent first. limit <= 0 means all.
func QueryTopErrors(database DB, limit int) ([]ErrorStats, error) {
	query := `
		SELECT r.message,
		       COUNT(*),
		       MAX(i.subcommand),
		       MAX(i.started_at)
		FROM output_records r
		JOIN invocations i ON i.id = r.invocation_id
		WHERE r.kind = 'error'
		GROUP BY r.message
		ORDER BY COUNT(*) DESC, r.message`

	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top errors: %w", err)
	}
	defer rows.Close()

	var out []ErrorStats
	for rows.Next() {
		var e ErrorStats
		if err := rows.Scan(&e.Message, &e.Count, &e.Subcommand, &e.LastSeen); err != nil {
			return nil, fmt.Errorf("scan error stats: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// QueryWeeklyVolume returns invocation counts per ISO week, oldest first.
func QueryWeeklyVolume(database DB, since string) ([]WeeklyVolume, error) {
	query := `
		SELECT strftime('%Y-W%W', started_at),
		       COUNT(*),
		       SUM(CASE WHEN error_count > 0 THEN 1 ELSE 0 END)
		FROM invocations`

	args := []interface{}{}
	if since != "" {
		query += ` WHERE started_at >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY strftime('%Y-W%W', started_at) ORDER BY 1`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query weekly volume: %w", err)
	}
	defer rows.Close()

	var out []WeeklyVolume
	for rows.Next() {
		var w WeeklyVolume
		if err := rows.Scan(&w.Week, &w.Count, &w.ErrorCount); err != nil {
			return nil, fmt.Errorf("scan weekly volume: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
