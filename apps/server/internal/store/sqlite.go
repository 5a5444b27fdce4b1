package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "blackjack_rounds.db"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStoreFromEnv() (*SQLiteStore, error) {
	return NewSQLiteStore(localDatabasePathFromEnv())
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS rounds (
    round_id TEXT PRIMARY KEY,
    state BLOB NOT NULL,
    status TEXT NOT NULL,
    version INTEGER NOT NULL,
    created_at_ms INTEGER NOT NULL,
    updated_at_ms INTEGER NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, roundID string, state []byte, status string) (Record, error) {
	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return Record{}, fmt.Errorf("empty round id")
	}
	now := time.Now().UTC().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO rounds (round_id, state, status, version, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, 1, ?, ?)
`, roundID, state, status, now, now)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return Record{}, ErrRoundExists
		}
		return Record{}, err
	}
	return Record{
		RoundID:     roundID,
		State:       append([]byte(nil), state...),
		Status:      status,
		Version:     1,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, roundID string) (Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx, `
SELECT round_id, state, status, version, created_at_ms, updated_at_ms
FROM rounds WHERE round_id = ?
`, roundID).Scan(&rec.RoundID, &rec.State, &rec.Status, &rec.Version, &rec.CreatedAtMs, &rec.UpdatedAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) Save(ctx context.Context, roundID string, state []byte, status string, expectedVersion uint64) (uint64, error) {
	now := time.Now().UTC().UnixMilli()
	res, err := s.db.ExecContext(ctx, `
UPDATE rounds
SET state = ?, status = ?, version = version + 1, updated_at_ms = ?
WHERE round_id = ? AND version = ?
`, state, status, now, roundID, expectedVersion)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM rounds WHERE round_id = ?)`, roundID).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, ErrVersionConflict
	}
	return expectedVersion + 1, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, roundID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rounds WHERE round_id = ?`, roundID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// modernc.org/sqlite does not expose a typed constraint error, so match the message.
func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}

func localDatabasePathFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("STORE_SQLITE_PATH")); v != "" {
		return v
	}
	return filepath.Join("data", defaultLocalDBName)
}
