package ledger

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

const defaultLocalDBName = "blackjack_local.db"

type SQLiteService struct {
	db *sql.DB
}

func NewSQLiteServiceFromEnv() (*SQLiteService, error) {
	return NewSQLiteService(localDatabasePathFromEnv())
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
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
CREATE TABLE IF NOT EXISTS chip_balances (
    user_id TEXT PRIMARY KEY,
    balance INTEGER NOT NULL,
    updated_at_ms INTEGER NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{db: db}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) Balance(ctx context.Context, userID string, fallback int64) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, fmt.Errorf("empty user id")
	}
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM chip_balances WHERE user_id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.ExecContext(ctx, `
INSERT INTO chip_balances (user_id, balance, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT (user_id) DO NOTHING
`, userID, fallback, time.Now().UTC().UnixMilli()); err != nil {
			return 0, err
		}
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *SQLiteService) SetBalance(ctx context.Context, userID string, balance int64) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("empty user id")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO chip_balances (user_id, balance, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    balance = excluded.balance,
    updated_at_ms = excluded.updated_at_ms
`, userID, balance, time.Now().UTC().UnixMilli())
	return err
}

func localDatabasePathFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("LEDGER_SQLITE_PATH")); v != "" {
		return v
	}
	return filepath.Join("data", defaultLocalDBName)
}
