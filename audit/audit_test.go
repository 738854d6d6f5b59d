package audit

import (
	"context"
	"testing"

	"github.com/hazyhaar/convd/dbopen"

	_ "modernc.org/sqlite"
)

func TestRecorder_Init(t *testing.T) {
	db := dbopen.OpenMemory(t)
	rec := NewRecorder(db)

	if err := rec.Init(); err != nil {
		t.Fatal(err)
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='conversion_log'`).Scan(&count)
	if count != 1 {
		t.Fatal("conversion_log table not created")
	}
}

func TestRecorder_Record(t *testing.T) {
	// WHAT: Record inserts one row and fills the entry ID.
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	rec := NewRecorder(db)

	rec.Record(context.Background(), Entry{
		RequestID:   "req_x",
		InputName:   "report.docx",
		OutputName:  "report.pdf",
		OutputBytes: 1234,
		Outcome:     "ok",
		DurationMs:  87,
	})

	var outcome string
	var bytes int64
	err := db.QueryRow(`SELECT outcome, output_bytes FROM conversion_log WHERE request_id = 'req_x'`).
		Scan(&outcome, &bytes)
	if err != nil {
		t.Fatalf("row not written: %v", err)
	}
	if outcome != "ok" || bytes != 1234 {
		t.Fatalf("got outcome=%q bytes=%d", outcome, bytes)
	}
}

func TestRecorder_RecordSwallowsFailure(t *testing.T) {
	// WHAT: Recording against a missing table logs but does not panic.
	// WHY: A broken audit store must never change a conversion's outcome.
	db := dbopen.OpenMemory(t)
	rec := NewRecorder(db)

	rec.Record(context.Background(), Entry{RequestID: "req_y", Outcome: "ok"})
}

func TestCleanup(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	db.Exec(`INSERT INTO conversion_log (entry_id, request_id, outcome, created_at) VALUES ('old', 'r1', 'ok', 0)`)
	db.Exec(`INSERT INTO conversion_log (entry_id, request_id, outcome, created_at) VALUES ('new', 'r2', 'ok', strftime('%s','now'))`)

	if err := Cleanup(context.Background(), db, 30); err != nil {
		t.Fatal(err)
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM conversion_log`).Scan(&count)
	if count != 1 {
		t.Fatalf("expected 1 surviving row, got %d", count)
	}
}
