// SPDX-License-Identifier: MIT
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"eeg/internal/errors"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
const CurrentSchemaVersion = 1

// FileName is the database file created inside the data directory.
const FileName = "summaries.db"

// Record is the persisted outcome of one analyzed upload. Raw samples are
// never stored.
type Record struct {
	ID            string    `json:"id"`
	DominantBand  string    `json:"dominantBand"`
	InferredState string    `json:"inferredState"`
	AvgPower      float64   `json:"avgPower"`
	FileName      string    `json:"fileName"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store persists session summaries in sqlite.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// Open initialises the database at dataDir/summaries.db.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(dbPath, 0o600)

	return &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert assigns an id and creation time to rec and stores it.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	now := s.now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	s.mu.Unlock()
	if err != nil {
		return errors.NewInternal(fmt.Errorf("generate id: %w", err))
	}

	query := `
		INSERT INTO summaries (id, dominant_band, inferred_state, avg_power, file_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		id.String(), rec.DominantBand, rec.InferredState, rec.AvgPower, rec.FileName, now.UnixMilli(),
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	rec.ID = id.String()
	rec.CreatedAt = time.UnixMilli(now.UnixMilli()).UTC()
	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, dominant_band, inferred_state, avg_power, file_name, created_at
		FROM summaries
		WHERE id = ?
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rec, nil
}

// List returns records newest first. A non-positive limit returns every record.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, dominant_band, inferred_state, avg_power, file_name, created_at
		FROM summaries
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM summaries").Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec     Record
		created int64
	)
	if err := row.Scan(&rec.ID, &rec.DominantBand, &rec.InferredState, &rec.AvgPower, &rec.FileName, &created); err != nil {
		return nil, err
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return &rec, nil
}
