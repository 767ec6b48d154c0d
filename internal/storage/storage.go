// Package storage persists the tracked-account document and the reclaim history.
package storage

import (
	"context"
	"errors"
	"fmt"

	"rent-reclaim-bot-go/internal/config"
	"rent-reclaim-bot-go/internal/tracking"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Repository is a whole-document store. Every save replaces the previous snapshot.
type Repository interface {
	// LoadAccounts returns an empty set when nothing has been saved yet.
	LoadAccounts(ctx context.Context) (tracking.AccountSet, error)
	SaveAccounts(ctx context.Context, accounts tracking.AccountSet) error
	LoadHistory(ctx context.Context) ([]tracking.ReclaimRecord, error)
	AppendHistory(ctx context.Context, records ...tracking.ReclaimRecord) error
	Close() error
}

// NewRepository opens the backend selected in cfg
func NewRepository(cfg *config.Config) (Repository, error) {
	switch cfg.Storage.Backend {
	case "", BackendJSON:
		return NewFileStore(cfg.AccountsPath(), cfg.HistoryPath()), nil
	case BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Storage.Backend)
	}
}
