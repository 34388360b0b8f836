package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gitsift/gitsift/internal/classify"
	"github.com/gitsift/gitsift/internal/history"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return d
}

func testMessage(id string, args []string, rawLines []string, records []*classify.Record) history.Message {
	command := "git"
	for _, a := range args {
		command += " " + a
	}
	return history.Message{
		InvocationID: id,
		Arguments:    args,
		Command:      command,
		WorkingRoot:  "/repo",
		Timestamp:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		RawLines:     rawLines,
		Records:      records,
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d := openTestDB(t)
	if err := d.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestSinkPersistsOnFixedKeyOnly(t *testing.T) {
	d := openTestDB(t)
	sink := NewSink(d, nil)

	msg := testMessage("inv-1", []string{"status"}, []string{"On branch main"}, []*classify.Record{
		{Raw: "On branch main", Tags: []string{"git.status.output", "git.output"}},
	})
	sink.Notify(history.EventKey, msg)
	sink.Notify(history.EventKey+" status", msg)

	rows, err := d.ListInvocations("", 0)
	if err != nil {
		t.Fatalf("ListInvocations: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(rows))
	}
	if rows[0].ID != "inv-1" || rows[0].Subcommand != "status" {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestSinkRoundTrip(t *testing.T) {
	d := openTestDB(t)
	sink := NewSink(d, nil)

	records := []*classify.Record{
		{
			Raw:    "Cloning into 'repo'...",
			Tags:   []string{"git.clone.output", "git.output"},
			Fields: map[string]string{"raw_line": "Cloning into 'repo'...", "command": "git clone repo"},
		},
	}
	raw := []string{
		"Cloning into 'repo'...",
		"fatal: repository not found",
		"hint: check the URL",
	}
	sink.Notify(history.EventKey, testMessage("inv-2", []string{"clone", "repo"}, raw, records))

	inv, err := d.GetInvocation("inv-2")
	if err != nil {
		t.Fatalf("GetInvocation: %v", err)
	}
	if inv.RawLineCount != 3 || inv.RecordCount != 1 || inv.ErrorCount != 1 || inv.WarningCount != 1 {
		t.Errorf("unexpected counts: %+v", inv)
	}
	if got := inv.Arguments; len(got) != 2 || got[0] != "clone" || got[1] != "repo" {
		t.Errorf("unexpected arguments: %v", got)
	}
	if !inv.StartedAt.Equal(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected started_at: %v", inv.StartedAt)
	}

	recs, err := d.Records("inv-2")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 record rows, got %d", len(recs))
	}
	if recs[0].Kind != "record" || recs[0].RawLine != "Cloning into 'repo'..." {
		t.Errorf("unexpected first row: %+v", recs[0])
	}
	if recs[0].Fields["command"] != "git clone repo" {
		t.Errorf("fields not preserved: %v", recs[0].Fields)
	}
	if recs[1].Kind != "error" || recs[1].Message != "repository not found" {
		t.Errorf("unexpected error row: %+v", recs[1])
	}
	if len(recs[1].Tags) == 0 || recs[1].Tags[0] != "git.clone.error" {
		t.Errorf("unexpected error tags: %v", recs[1].Tags)
	}

	lines, err := d.RawLines("inv-2")
	if err != nil {
		t.Fatalf("RawLines: %v", err)
	}
	if len(lines) != 3 || lines[1] != "fatal: repository not found" {
		t.Errorf("unexpected raw lines: %v", lines)
	}
}

func TestSinkReplayReplaces(t *testing.T) {
	d := openTestDB(t)
	sink := NewSink(d, nil)

	sink.Notify(history.EventKey, testMessage("inv-3", []string{"status"},
		[]string{"one", "two"}, nil))
	sink.Notify(history.EventKey, testMessage("inv-3", []string{"status"},
		[]string{"three"}, nil))

	inv, err := d.GetInvocation("inv-3")
	if err != nil {
		t.Fatalf("GetInvocation: %v", err)
	}
	if inv.RawLineCount != 1 {
		t.Errorf("expected replayed count 1, got %d", inv.RawLineCount)
	}
	lines, err := d.RawLines("inv-3")
	if err != nil {
		t.Fatalf("RawLines: %v", err)
	}
	if len(lines) != 1 || lines[0] != "three" {
		t.Errorf("expected replaced raw lines, got %v", lines)
	}
}

func TestListInvocationsFilterAndLimit(t *testing.T) {
	d := openTestDB(t)
	sink := NewSink(d, nil)

	for i, args := range [][]string{{"status"}, {"clone", "a"}, {"clone", "b"}} {
		msg := testMessage("inv-"+string(rune('a'+i)), args, nil, nil)
		msg.Timestamp = msg.Timestamp.Add(time.Duration(i) * time.Minute)
		sink.Notify(history.EventKey, msg)
	}

	clones, err := d.ListInvocations("clone", 0)
	if err != nil {
		t.Fatalf("ListInvocations: %v", err)
	}
	if len(clones) != 2 {
		t.Fatalf("expected 2 clone invocations, got %d", len(clones))
	}
	if clones[0].ID != "inv-c" {
		t.Errorf("expected newest first, got %s", clones[0].ID)
	}

	limited, err := d.ListInvocations("", 1)
	if err != nil {
		t.Fatalf("ListInvocations limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 row with limit, got %d", len(limited))
	}
}

func TestDeleteInvocation(t *testing.T) {
	d := openTestDB(t)
	sink := NewSink(d, nil)
	sink.Notify(history.EventKey, testMessage("inv-del", []string{"status"},
		[]string{"line"}, nil))

	if err := d.DeleteInvocation("inv-del"); err != nil {
		t.Fatalf("DeleteInvocation: %v", err)
	}
	if _, err := d.GetInvocation("inv-del"); err == nil {
		t.Error("expected not-found after delete")
	}
	lines, err := d.RawLines("inv-del")
	if err != nil {
		t.Fatalf("RawLines: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected raw lines cascade-deleted, got %v", lines)
	}
	if err := d.DeleteInvocation("inv-del"); err == nil {
		t.Error("expected error deleting missing invocation")
	}
}

func TestReset(t *testing.T) {
	d := openTestDB(t)
	sink := NewSink(d, nil)
	sink.Notify(history.EventKey, testMessage("inv-r", []string{"status"}, nil, nil))

	if err := d.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	rows, err := d.ListInvocations("", 0)
	if err != nil {
		t.Fatalf("ListInvocations after reset: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty table after reset, got %d rows", len(rows))
	}
}
