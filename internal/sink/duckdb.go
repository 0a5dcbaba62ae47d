// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	// DuckDB driver registration
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"

	"github.com/tomtom215/auditstream/internal/audit"
	"github.com/tomtom215/auditstream/internal/logging"
)

const duckdbSchema = `
	CREATE TABLE IF NOT EXISTS audit_events (
		uuid TEXT PRIMARY KEY,
		audit_id TEXT NOT NULL,
		serial UBIGINT NOT NULL,
		event_time TIMESTAMPTZ NOT NULL,
		first_seen TIMESTAMPTZ NOT NULL,
		last_seen TIMESTAMPTZ NOT NULL,
		reason TEXT NOT NULL,
		complete BOOLEAN NOT NULL,
		record_count INTEGER NOT NULL,
		primary_type TEXT,
		node TEXT,
		record_types JSON,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS audit_records (
		event_uuid TEXT NOT NULL,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		type_code USMALLINT,
		fields JSON NOT NULL,
		raw TEXT,
		PRIMARY KEY (event_uuid, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_time ON audit_events(event_time);
	CREATE INDEX IF NOT EXISTS idx_audit_events_serial ON audit_events(serial);
	CREATE INDEX IF NOT EXISTS idx_audit_events_reason ON audit_events(reason);
	CREATE INDEX IF NOT EXISTS idx_audit_records_type ON audit_records(type);
`

const (
	insertEventQuery = `
		INSERT INTO audit_events (
			uuid, audit_id, serial, event_time, first_seen, last_seen,
			reason, complete, record_count, primary_type, node, record_types
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (uuid) DO NOTHING`

	insertRecordQuery = `
		INSERT INTO audit_records (event_uuid, seq, type, type_code, fields, raw)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_uuid, seq) DO NOTHING`
)

// DuckDBSink stores events in an embedded DuckDB database: one row per
// event in audit_events and one per record in audit_records. Inserts are
// idempotent on the event UUID, so redelivered events are not duplicated.
type DuckDBSink struct {
	db *sql.DB
	mu sync.Mutex

	closed bool
}

// NewDuckDBSink opens (or creates) the database at path and ensures the
// schema. An empty path opens an in-memory database.
func NewDuckDBSink(ctx context.Context, path string) (*DuckDBSink, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create duckdb directory: %w", err)
		}
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", path, err)
	}
	// DuckDB allows one writer; serialise through a single connection.
	db.SetMaxOpenConns(1)

	s := &DuckDBSink{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *DuckDBSink) createTables(ctx context.Context) error {
	for _, stmt := range strings.Split(duckdbSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	logging.Debug().Msg("DuckDB audit tables created/verified")
	return nil
}

// Name implements Sink.
func (s *DuckDBSink) Name() string { return "duckdb" }

// Write inserts ev and its records in one transaction.
func (s *DuckDBSink) Write(ctx context.Context, ev *audit.Event) error {
	if ev == nil {
		return ErrNilEvent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertEventQuery, eventParams(ev)...); err != nil {
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	for i, rec := range ev.Records {
		fields, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("marshal fields of record %d: %w", i, err)
		}
		var code any
		if rec.Type.Code != 0 {
			code = rec.Type.Code
		}
		if _, err := tx.ExecContext(ctx, insertRecordQuery,
			ev.UUID, i, rec.Type.String(), code, string(fields), nullString(rec.Raw),
		); err != nil {
			return fmt.Errorf("insert record %d of event %s: %w", i, ev.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event %s: %w", ev.ID, err)
	}
	return nil
}

func eventParams(ev *audit.Event) []any {
	var primaryType, node any
	if p := ev.Primary(); p != nil {
		primaryType = p.Type.String()
		node = nullString(p.Node)
	}
	types, err := json.Marshal(ev.Types())
	if err != nil {
		types = []byte("[]")
	}
	return []any{
		ev.UUID,
		ev.ID.String(),
		ev.ID.Serial,
		ev.Timestamp(),
		ev.FirstSeen.UTC(),
		ev.LastSeen.UTC(),
		string(ev.Reason),
		ev.Complete,
		ev.Len(),
		primaryType,
		node,
		string(types),
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CountByReason returns stored event counts keyed by finalization reason.
func (s *DuckDBSink) CountByReason(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT reason, COUNT(*) FROM audit_events GROUP BY reason")
	if err != nil {
		return nil, fmt.Errorf("failed to get reason counts: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan reason count: %w", err)
		}
		result[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reason counts: %w", err)
	}
	return result, nil
}

// StoredRecord is one row of audit_records.
type StoredRecord struct {
	Seq    int
	Type   string
	Fields audit.Fields
}

// Records returns the stored records of one event in arrival order.
func (s *DuckDBSink) Records(ctx context.Context, eventUUID string) ([]StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, type, CAST(fields AS VARCHAR) FROM audit_records WHERE event_uuid = ? ORDER BY seq",
		eventUUID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		var r StoredRecord
		var fields string
		if err := rows.Scan(&r.Seq, &r.Type, &fields); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(fields), &r.Fields); err != nil {
			return nil, fmt.Errorf("decode record fields: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *DuckDBSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	start := time.Now()
	err := s.db.Close()
	logging.Debug().Dur("duration", time.Since(start)).Msg("DuckDB sink closed")
	return err
}
