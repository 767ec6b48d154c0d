package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-reclaim-bot-go/internal/config"
	"rent-reclaim-bot-go/internal/ledger/ledgertest"
	"rent-reclaim-bot-go/internal/tracking"
)

var testNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func openBackends(t *testing.T) map[string]Repository {
	t.Helper()

	dir := t.TempDir()
	file := NewFileStore(filepath.Join(dir, "json", "tracked-accounts.json"), filepath.Join(dir, "json", "reclaim-history.json"))

	sqlite, err := NewSQLiteStore(filepath.Join(dir, "sqlite", "reclaimbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Repository{BackendJSON: file, BackendSQLite: sqlite}
}

func sampleAccount(i int, owner string) *tracking.TrackedAccount {
	return tracking.NewTrackedAccount(tracking.Discovery{
		Address:   ledgertest.NewAddress(i),
		Mint:      ledgertest.NewAddress(100 + i),
		Owner:     owner,
		Signature: ledgertest.NewSignature(i),
		IsNew:     true,
	}, ledgertest.NewAddress(0), testNow)
}

func TestRepository_EmptyStore(t *testing.T) {
	for name, repo := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			accounts, err := repo.LoadAccounts(ctx)
			require.NoError(t, err)
			assert.NotNil(t, accounts)
			assert.Empty(t, accounts)

			history, err := repo.LoadHistory(ctx)
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestRepository_AccountsSnapshot(t *testing.T) {
	for name, repo := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			operator := ledgertest.NewAddress(0)

			set := tracking.AccountSet{}
			set.Insert(sampleAccount(1, operator))
			set.Insert(sampleAccount(2, ledgertest.NewAddress(50)))
			require.NoError(t, repo.SaveAccounts(ctx, set))

			set[ledgertest.NewAddress(1)].Observe(&tracking.Observation{Lamports: 2_039_280}, 2_000_000, testNow)
			set.Insert(sampleAccount(3, operator))
			require.NoError(t, repo.SaveAccounts(ctx, set))

			loaded, err := repo.LoadAccounts(ctx)
			require.NoError(t, err)
			require.Len(t, loaded, 3)

			first := loaded[ledgertest.NewAddress(1)]
			require.NotNil(t, first)
			assert.Equal(t, tracking.CategoryOperatorOwned, first.Category)
			assert.True(t, first.Reclaimable)
			assert.Equal(t, tracking.StatusEligible, first.Metadata.Status)
			assert.Equal(t, uint64(2_039_280), first.Metadata.Lamports)
			require.NotNil(t, first.Metadata.CheckedAt)
			assert.True(t, testNow.Equal(*first.Metadata.CheckedAt))

			second := loaded[ledgertest.NewAddress(2)]
			require.NotNil(t, second)
			assert.Equal(t, tracking.CategoryUserOwned, second.Category)
			assert.False(t, second.Reclaimable)
		})
	}
}

func TestRepository_AppendHistoryKeepsOrder(t *testing.T) {
	for name, repo := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			acc := sampleAccount(1, ledgertest.NewAddress(0))

			require.NoError(t, repo.AppendHistory(ctx, tracking.NewDryRunRecord(acc.Address, acc, testNow)))
			require.NoError(t, repo.AppendHistory(ctx,
				tracking.NewReclaimRecord(acc.Address, acc, 2_039_280, ledgertest.NewSignature(9), testNow.Add(time.Minute)),
			))

			history, err := repo.LoadHistory(ctx)
			require.NoError(t, err)
			require.Len(t, history, 2)

			assert.True(t, history[0].DryRun)
			assert.Nil(t, history[0].LamportsRecovered)
			assert.Equal(t, tracking.DryRunNote, history[0].Note)

			assert.False(t, history[1].DryRun)
			require.NotNil(t, history[1].LamportsRecovered)
			assert.Equal(t, uint64(2_039_280), *history[1].LamportsRecovered)
			assert.Equal(t, ledgertest.NewSignature(9), history[1].Signature)
			assert.Equal(t, acc.Metadata.Mint, history[1].TokenMint)
		})
	}
}

func TestFileStore_WritesAddressKeyedDocument(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "data", "tracked-accounts.json"), filepath.Join(dir, "data", "reclaim-history.json"))

	set := tracking.AccountSet{}
	set.Insert(sampleAccount(1, ledgertest.NewAddress(0)))
	require.NoError(t, store.SaveAccounts(context.Background(), set))

	data, err := os.ReadFile(filepath.Join(dir, "data", "tracked-accounts.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"`+ledgertest.NewAddress(1)+`": {`)
	assert.Contains(t, string(data), `"createdInTx"`)

	entries, err := os.ReadDir(filepath.Join(dir, "data"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must not be left behind")
}

func TestFileStore_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracked-accounts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path, filepath.Join(dir, "h.json")).LoadAccounts(context.Background())
	require.Error(t, err)
}

func TestFileStore_NullDocumentLoadsEmpty(t *testing.T) {
	tracked := sampleAccount(1, ledgertest.NewAddress(0))

	for name, doc := range map[string]string{
		"null document": "null\n",
		"null entry":    `{"` + tracked.Address + `": null}`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "tracked-accounts.json")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
			store := NewFileStore(path, filepath.Join(dir, "reclaim-history.json"))

			accounts, err := store.LoadAccounts(context.Background())
			require.NoError(t, err)
			require.NotNil(t, accounts)
			assert.Empty(t, accounts)

			assert.True(t, accounts.Insert(tracked))
			require.NoError(t, store.SaveAccounts(context.Background(), accounts))

			reloaded, err := store.LoadAccounts(context.Background())
			require.NoError(t, err)
			assert.Len(t, reloaded, 1)
		})
	}
}

func TestNewRepository(t *testing.T) {
	dir := t.TempDir()

	repo, err := NewRepository(&config.Config{Storage: config.StorageConfig{Backend: BackendJSON, DataDir: dir}})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, repo)

	repo, err = NewRepository(&config.Config{Storage: config.StorageConfig{Backend: BackendSQLite, DataDir: dir}})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, repo)
	require.NoError(t, repo.Close())
	assert.FileExists(t, filepath.Join(dir, "reclaimbot.db"))

	_, err = NewRepository(&config.Config{Storage: config.StorageConfig{Backend: "redis"}})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
