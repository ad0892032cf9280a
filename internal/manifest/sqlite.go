// Package manifest records pipeline progress in SQLite: runs, completed
// batches and the universe listing checkpoint.
package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/elvin-stowell/csds-312-final-project/internal/provider/polygon"
)

// Compile-time interface check.
var _ polygon.Checkpoint = (*Store)(nil)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// BatchRecord is one finished batch.
type BatchRecord struct {
	ID               int
	RunID            string
	Symbols          int
	PriceRows        int
	FundamentalsRows int
	PricePath        string // empty when no price artifact was written
	FundamentalsPath string // empty when no fundamentals artifact was written
	Format           string
	CompletedAt      time.Time
}

// Store is the SQLite-backed manifest. One process writes it at a time.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the manifest database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Debug("manifest opened", "path", path)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			symbols     INTEGER NOT NULL,
			status      TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS batches (
			batch_id          INTEGER PRIMARY KEY,
			run_id            TEXT NOT NULL,
			symbols           INTEGER NOT NULL,
			price_rows        INTEGER NOT NULL,
			fundamentals_rows INTEGER NOT NULL,
			price_path        TEXT,
			fundamentals_path TEXT,
			format            TEXT NOT NULL,
			completed_at      INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS universe_pages (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbols     TEXT NOT NULL,
			next_cursor TEXT NOT NULL,
			saved_at    INTEGER NOT NULL
		)`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("exec %q: %w", st[:40], err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records a new run and returns its id.
func (s *Store) StartRun(ctx context.Context, symbols int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, symbols, status) VALUES (?, ?, ?, ?)`,
		id, time.Now().Unix(), symbols, StatusRunning)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the end of a run with its final status.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now().Unix(), status, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// RecordBatch marks a batch complete. Re-recording an id replaces it.
func (s *Store) RecordBatch(ctx context.Context, b BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.CompletedAt.IsZero() {
		b.CompletedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO batches
			(batch_id, run_id, symbols, price_rows, fundamentals_rows, price_path, fundamentals_path, format, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.RunID, b.Symbols, b.PriceRows, b.FundamentalsRows,
		nullString(b.PricePath), nullString(b.FundamentalsPath), b.Format, b.CompletedAt.Unix())
	if err != nil {
		return fmt.Errorf("record batch %d: %w", b.ID, err)
	}
	return nil
}

// IsCompleted reports whether batch id has been recorded.
func (s *Store) IsCompleted(ctx context.Context, id int) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches WHERE batch_id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup batch %d: %w", id, err)
	}
	return n > 0, nil
}

// Batches lists recorded batches with from <= id <= to in id order.
func (s *Store) Batches(ctx context.Context, from, to int) ([]BatchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, run_id, symbols, price_rows, fundamentals_rows,
		        COALESCE(price_path, ''), COALESCE(fundamentals_path, ''), format, completed_at
		   FROM batches WHERE batch_id BETWEEN ? AND ? ORDER BY batch_id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []BatchRecord
	for rows.Next() {
		var b BatchRecord
		var completed int64
		if err := rows.Scan(&b.ID, &b.RunID, &b.Symbols, &b.PriceRows, &b.FundamentalsRows,
			&b.PricePath, &b.FundamentalsPath, &b.Format, &completed); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.CompletedAt = time.Unix(completed, 0)
		out = append(out, b)
	}
	return out, rows.Err()
}

// LastBatchID returns the highest recorded batch id, or 0 when none.
func (s *Store) LastBatchID(ctx context.Context) (int, error) {
	var id sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(batch_id) FROM batches`).Scan(&id); err != nil {
		return 0, fmt.Errorf("last batch: %w", err)
	}
	return int(id.Int64), nil
}

// Resume implements polygon.Checkpoint.
func (s *Store) Resume(ctx context.Context) ([]string, string, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbols, next_cursor FROM universe_pages ORDER BY seq`)
	if err != nil {
		return nil, "", false, fmt.Errorf("load universe pages: %w", err)
	}
	defer rows.Close()

	var (
		symbols []string
		next    string
		pages   int
	)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw, &next); err != nil {
			return nil, "", false, fmt.Errorf("scan universe page: %w", err)
		}
		var page []string
		if err := json.Unmarshal([]byte(raw), &page); err != nil {
			return nil, "", false, fmt.Errorf("decode universe page %d: %w", pages+1, err)
		}
		symbols = append(symbols, page...)
		pages++
	}
	if err := rows.Err(); err != nil {
		return nil, "", false, err
	}
	if pages == 0 {
		return nil, "", false, nil
	}
	return symbols, next, true, nil
}

// SavePage implements polygon.Checkpoint.
func (s *Store) SavePage(ctx context.Context, symbols []string, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if symbols == nil {
		symbols = []string{}
	}
	data, err := json.Marshal(symbols)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO universe_pages (symbols, next_cursor, saved_at) VALUES (?, ?, ?)`,
		string(data), next, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save universe page: %w", err)
	}
	return nil
}

// Clear implements polygon.Checkpoint.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM universe_pages`); err != nil {
		return fmt.Errorf("clear universe pages: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
