package repository

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/tracker/internal/adapters/repository/migrations"
	"github.com/okian/tracker/internal/domain/model"
	"github.com/okian/tracker/pkg/metrics"
)

// dsnParams are appended to the database path when opening SQLite.
const dsnParams = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// SQLiteStore keeps one row per event in an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	closed atomic.Bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the event database inside dir and applies embedded
// migrations.
func NewSQLiteStore(ctx context.Context, dir string, opts ...Option) (*SQLiteStore, error) {
	cfg := newSettings(opts)
	if err := ensureWritableDir(dir); err != nil {
		return nil, err
	}
	path := filepath.Join(filepath.Clean(dir), cfg.dbFile)

	db, err := sql.Open("sqlite", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows one writer; a single connection keeps appends serialised.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the location of the database file.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Append inserts e as a new row.
func (s *SQLiteStore) Append(ctx context.Context, e model.Event) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	start := time.Now()

	payload := e.Payload
	if payload == nil {
		payload = model.Payload{}
	}
	blob, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO events (ts, ip, ua, event, device_id, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		e.TS, nullable(e.IP), nullable(e.UA), e.Kind, e.DeviceID, string(blob),
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	metrics.RecordStoreAppendLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	return nil
}

// LoadAll returns every row in insertion order. Rows whose payload blob does
// not decode to an object are skipped.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]model.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	start := time.Now()

	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, ip, ua, event, device_id, payload FROM events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	corrupt := 0
	for rows.Next() {
		var (
			e      model.Event
			ip, ua sql.NullString
			blob   string
		)
		if err := rows.Scan(&e.TS, &ip, &ua, &e.Kind, &e.DeviceID, &blob); err != nil {
			corrupt++
			continue
		}
		if err := json.Unmarshal([]byte(blob), &e.Payload); err != nil {
			corrupt++
			continue
		}
		if e.Payload == nil {
			e.Payload = model.Payload{}
		}
		e.IP = fromNullable(ip)
		e.UA = fromNullable(ua)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	metrics.RecordStoreCorruptRecords(corrupt)
	metrics.RecordStoreLoad(float64(time.Since(start).Nanoseconds())/1e6, len(events))
	return events, nil
}

// Clear deletes every row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	metrics.RecordStoreClear()
	return nil
}

// Export renders every readable row as one JSON line, in the same format as
// LogStore.
func (s *SQLiteStore) Export(ctx context.Context) ([]byte, error) {
	events, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrEmpty
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("encode event: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Count returns the number of rows.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
