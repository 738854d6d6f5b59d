// Package audit records a conversion trail in SQLite: one row per request
// with names, sizes, outcome and timing. Document bytes are never stored.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/convd/idgen"
)

// Schema creates the audit table. Pass to dbopen.WithSchema or call Init.
const Schema = `
CREATE TABLE IF NOT EXISTS conversion_log (
	entry_id     TEXT PRIMARY KEY,
	request_id   TEXT NOT NULL,
	input_name   TEXT NOT NULL DEFAULT '',
	output_name  TEXT NOT NULL DEFAULT '',
	output_bytes INTEGER NOT NULL DEFAULT 0,
	outcome      TEXT NOT NULL,
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversion_log_created ON conversion_log(created_at);
`

// Entry is one conversion attempt. Outcome is "ok" or a failure class.
type Entry struct {
	EntryID     string
	RequestID   string
	InputName   string
	OutputName  string
	OutputBytes int64
	Outcome     string
	DurationMs  int64
}

// Recorder writes entries to the audit database.
type Recorder struct {
	db    *sql.DB
	newID idgen.Generator
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithIDGenerator sets a custom generator for entry IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(r *Recorder) { r.newID = gen }
}

// NewRecorder creates a Recorder backed by db.
func NewRecorder(db *sql.DB, opts ...Option) *Recorder {
	r := &Recorder{
		db:    db,
		newID: idgen.Prefixed("aud_", idgen.Default),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Init creates the audit table if it does not exist.
func (r *Recorder) Init() error {
	if _, err := r.db.Exec(Schema); err != nil {
		return fmt.Errorf("audit init: %w", err)
	}
	return nil
}

// Record writes one entry. Non-blocking policy: errors are logged via slog
// but do not propagate, so a failing audit store never fails a conversion.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.EntryID == "" {
		e.EntryID = r.newID()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversion_log (
			entry_id, request_id, input_name, output_name,
			output_bytes, outcome, duration_ms, created_at
		) VALUES (?,?,?,?,?,?,?,?)`,
		e.EntryID, e.RequestID, e.InputName, e.OutputName,
		e.OutputBytes, e.Outcome, e.DurationMs, time.Now().Unix())
	if err != nil {
		slog.Error("audit record failed", "error", err, "request_id", e.RequestID, "outcome", e.Outcome)
	}
}

// Cleanup deletes entries older than the retention window. Zero days
// disables cleanup.
func Cleanup(ctx context.Context, db *sql.DB, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(days)*86400
	if _, err := db.ExecContext(ctx, `DELETE FROM conversion_log WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("audit cleanup: %w", err)
	}
	return nil
}
