package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"rent-reclaim-bot-go/internal/tracking"
)

// FileStore keeps each document in its own JSON file
type FileStore struct {
	accountsPath string
	historyPath  string
}

var _ Repository = (*FileStore)(nil)

func NewFileStore(accountsPath, historyPath string) *FileStore {
	return &FileStore{accountsPath: accountsPath, historyPath: historyPath}
}

func (s *FileStore) LoadAccounts(ctx context.Context) (tracking.AccountSet, error) {
	accounts := tracking.AccountSet{}
	if err := readJSON(s.accountsPath, &accounts); err != nil {
		return nil, fmt.Errorf("failed to load tracked accounts: %w", err)
	}
	// A null document or null entries load as an empty set.
	if accounts == nil {
		accounts = tracking.AccountSet{}
	}
	for address, acc := range accounts {
		if acc == nil {
			delete(accounts, address)
		}
	}
	return accounts, nil
}

func (s *FileStore) SaveAccounts(ctx context.Context, accounts tracking.AccountSet) error {
	if accounts == nil {
		accounts = tracking.AccountSet{}
	}
	if err := writeJSON(s.accountsPath, accounts); err != nil {
		return fmt.Errorf("failed to save tracked accounts: %w", err)
	}
	return nil
}

func (s *FileStore) LoadHistory(ctx context.Context) ([]tracking.ReclaimRecord, error) {
	history := []tracking.ReclaimRecord{}
	if err := readJSON(s.historyPath, &history); err != nil {
		return nil, fmt.Errorf("failed to load reclaim history: %w", err)
	}
	return history, nil
}

func (s *FileStore) AppendHistory(ctx context.Context, records ...tracking.ReclaimRecord) error {
	history, err := s.LoadHistory(ctx)
	if err != nil {
		return err
	}
	history = append(history, records...)
	if err := writeJSON(s.historyPath, history); err != nil {
		return fmt.Errorf("failed to save reclaim history: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// readJSON leaves v untouched when the file does not exist
func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// writeJSON replaces path atomically through a temp file in the same directory
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
