// Package eventlog persists Drowsy transitions to an append-only SQLite table.
package eventlog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/teslashibe/go-drowsy/internal/log"
)

// TimeLayout is the second-precision timestamp format stored in the table.
const TimeLayout = "2006-01-02 15:04:05"

//go:embed migrations/*.sql
var migrations embed.FS

var (
	// ErrClosed is returned when the store is used after Close.
	ErrClosed = errors.New("eventlog: store closed")

	// ErrWrite wraps failures to append a record.
	ErrWrite = errors.New("eventlog: write failed")
)

// Record is one row of the events table.
type Record struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// Time parses the stored timestamp in the local time zone.
func (r Record) Time() (time.Time, error) {
	return time.ParseInLocation(TimeLayout, r.Timestamp, time.Local)
}

// Store is safe for concurrent use from any goroutine. Appends are
// serialized and committed before returning.
type Store struct {
	db   *sql.DB
	path string

	// Now is the clock used for timestamps.
	Now func() time.Time

	// writeMu serializes appends; SQLite allows a single writer.
	writeMu sync.Mutex

	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=FULL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}

	s := &Store{db: db, path: path, Now: time.Now}
	if err := s.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("event log ready", "path", path)
	return s, nil
}

// Initialize creates the events table if it is missing. It never drops data
// and may be called any number of times.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	for _, r := range results {
		log.Debug("schema migration applied", "source", r.Source.Path, "duration", r.Duration)
	}
	return nil
}

// RecordEvent appends a row stamped with the current time.
func (s *Store) RecordEvent(ctx context.Context, status string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec := Record{
		Timestamp: s.Now().Format(TimeLayout),
		Status:    status,
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO events (timestamp, status) VALUES (?, ?)",
		rec.Timestamp, rec.Status,
	)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("%w: last insert id: %w", ErrWrite, err)
	}
	return rec, nil
}

// Recent returns up to limit rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, COALESCE(timestamp, ''), COALESCE(status, '') FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Status); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle. Other methods return ErrClosed afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
