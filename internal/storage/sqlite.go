package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"rent-reclaim-bot-go/internal/tracking"
)

// SQLiteStore keeps accounts keyed by address and history in insertion order.
// Rows hold the same JSON bodies the file backend writes.
type SQLiteStore struct {
	db *sql.DB
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path and creates the schema
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tracked_accounts (
			address TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reclaim_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			address TEXT NOT NULL,
			reclaimed_at INTEGER NOT NULL,
			body TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reclaim_history_address ON reclaim_history(address)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) LoadAccounts(ctx context.Context) (tracking.AccountSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM tracked_accounts ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracked accounts: %w", err)
	}
	defer rows.Close()

	accounts := tracking.AccountSet{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var acc tracking.TrackedAccount
		if err := json.Unmarshal([]byte(body), &acc); err != nil {
			return nil, fmt.Errorf("failed to decode tracked account: %w", err)
		}
		accounts[acc.Address] = &acc
	}

	return accounts, rows.Err()
}

// SaveAccounts upserts every account in one transaction. Accounts are never
// deleted, so the table always equals the latest snapshot.
func (s *SQLiteStore) SaveAccounts(ctx context.Context, accounts tracking.AccountSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracked_accounts (address, category, status, body) VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			category = excluded.category,
			status = excluded.status,
			body = excluded.body`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, acc := range accounts.Sorted() {
		body, err := json.Marshal(acc)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, acc.Address, string(acc.Category), string(acc.Metadata.Status), string(body)); err != nil {
			return fmt.Errorf("failed to save tracked account %s: %w", acc.Address, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadHistory(ctx context.Context) ([]tracking.ReclaimRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM reclaim_history ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load reclaim history: %w", err)
	}
	defer rows.Close()

	history := []tracking.ReclaimRecord{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var rec tracking.ReclaimRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode reclaim record: %w", err)
		}
		history = append(history, rec)
	}

	return history, rows.Err()
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, records ...tracking.ReclaimRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reclaim_history (address, reclaimed_at, body) VALUES (?, ?, ?)`,
			rec.Address, rec.ReclaimedAt.Unix(), string(body),
		); err != nil {
			return fmt.Errorf("failed to append reclaim record: %w", err)
		}
	}

	return tx.Commit()
}
