package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/helioforge/fswatcher/internal/db"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id            TEXT PRIMARY KEY,
	action        TEXT NOT NULL,
	source_key    TEXT NOT NULL,
	dest_key      TEXT NOT NULL,
	source_bucket TEXT NOT NULL,
	dest_bucket   TEXT NOT NULL,
	ts_millis     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_ts ON audit_log(ts_millis);
CREATE INDEX IF NOT EXISTS idx_audit_log_key ON audit_log(dest_key);
`

const auditInsert = `
INSERT INTO audit_log (id, action, source_key, dest_key, source_bucket, dest_bucket, ts_millis)
VALUES (:id, :action, :source_key, :dest_key, :source_bucket, :dest_bucket, :ts_millis)`

// SqliteRecorder persists audit records in a local SQLite database.
type SqliteRecorder struct {
	db *sqlx.DB
}

func NewSqliteRecorder(path string) (*SqliteRecorder, error) {
	database, err := db.NewSqliteDb(db.WithPath(path), db.WithMaxOpenConns(1))
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	return NewSqliteRecorderFromDB(database)
}

func NewSqliteRecorderFromDB(database *sqlx.DB) (*SqliteRecorder, error) {
	if _, err := database.Exec(auditSchema); err != nil {
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &SqliteRecorder{db: database}, nil
}

func (r *SqliteRecorder) Record(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, err := r.db.NamedExecContext(ctx, auditInsert, rec); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. Used for inspection.
func (r *SqliteRecorder) Recent(ctx context.Context, limit int) ([]*Record, error) {
	var records []*Record
	err := r.db.SelectContext(ctx, &records,
		`SELECT * FROM audit_log ORDER BY ts_millis DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	return records, nil
}

func (r *SqliteRecorder) Close() error {
	return r.db.Close()
}

var _ Recorder = (*SqliteRecorder)(nil)
