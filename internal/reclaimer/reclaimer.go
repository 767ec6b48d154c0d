// Package reclaimer closes empty operator-owned token accounts and records the recovered rent.
package reclaimer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"rent-reclaim-bot-go/internal/config"
	"rent-reclaim-bot-go/internal/ledger"
	"rent-reclaim-bot-go/internal/logger"
	"rent-reclaim-bot-go/internal/notifier"
	"rent-reclaim-bot-go/internal/storage"
	"rent-reclaim-bot-go/internal/tracking"
)

// Closer submits a close-account transaction signed by the operator and waits for confirmation
type Closer interface {
	CloseTokenAccount(ctx context.Context, account, recipient string) (string, error)
}

type Settings struct {
	Operator  string
	Network   string
	DryRun    bool
	BatchSize int
	Whitelist []string
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Operator:  cfg.Operator.Address,
		Network:   cfg.Network,
		DryRun:    cfg.Reclaimer.DryRun,
		BatchSize: cfg.Reclaimer.BatchSize,
		Whitelist: cfg.Reclaimer.Whitelist,
	}
}

// Outcome is the result of one account in a batch
type Outcome struct {
	Address string
	Record  *tracking.ReclaimRecord
	Err     error
}

type Reclaimer struct {
	fetcher   ledger.AccountFetcher
	closer    Closer
	repo      storage.Repository
	notifier  notifier.Notifier
	settings  Settings
	whitelist map[string]struct{}
	logger    *logger.Logger
	now       func() time.Time
}

// NewReclaimer creates a reclaimer. closer may be nil when no signing credential is configured.
func NewReclaimer(fetcher ledger.AccountFetcher, closer Closer, repo storage.Repository, n notifier.Notifier, settings Settings, log *logger.Logger) *Reclaimer {
	if settings.BatchSize <= 0 {
		settings.BatchSize = config.DefaultReclaimBatchSize
	}
	if n == nil {
		n = notifier.Nop{}
	}

	whitelist := make(map[string]struct{}, len(settings.Whitelist))
	for _, address := range settings.Whitelist {
		whitelist[address] = struct{}{}
	}

	return &Reclaimer{
		fetcher:   fetcher,
		closer:    closer,
		repo:      repo,
		notifier:  n,
		settings:  settings,
		whitelist: whitelist,
		logger:    log,
		now:       time.Now,
	}
}

func (r *Reclaimer) DryRun() bool {
	return r.settings.DryRun
}

// Reclaim recovers the rent of one account, or records what would happen in dry run
func (r *Reclaimer) Reclaim(ctx context.Context, address string) (*tracking.ReclaimRecord, error) {
	log := r.logger.WithAccount(address)
	log.Info("Attempting reclaim")

	accounts, err := r.repo.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	acc := accounts[address]

	if err := r.guard(address, acc); err != nil {
		log.WithError(err).Warn("Reclaim refused")
		return nil, err
	}

	if r.settings.DryRun {
		// Only the live path can check ownership on chain.
		if acc == nil {
			log.WithError(ErrNotTracked).Warn("Reclaim refused")
			return nil, ErrNotTracked
		}
		record := tracking.NewDryRunRecord(address, acc, r.now())
		if err := r.repo.AppendHistory(ctx, record); err != nil {
			return nil, err
		}
		r.logger.LogReclaimDryRun(address)
		return &record, nil
	}

	return r.reclaimLive(ctx, address, acc, accounts)
}

// guard runs the checks that need only the store
func (r *Reclaimer) guard(address string, acc *tracking.TrackedAccount) error {
	if _, ok := r.whitelist[address]; ok {
		return ErrWhitelisted
	}
	if acc == nil {
		return nil
	}
	if acc.Category != tracking.CategoryOperatorOwned {
		return ErrNotOperatorOwned
	}
	if acc.WasReclaimed() {
		return ErrAlreadyReclaimed
	}
	if acc.Metadata.Status == tracking.StatusClosed {
		return ErrAccountClosed
	}
	return nil
}

func (r *Reclaimer) reclaimLive(ctx context.Context, address string, acc *tracking.TrackedAccount, accounts tracking.AccountSet) (*tracking.ReclaimRecord, error) {
	if r.closer == nil {
		return nil, ErrMissingSigner
	}

	info, err := r.fetcher.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account %s: %w", address, err)
	}
	if info == nil {
		return nil, ErrAccountClosed
	}
	if !info.IsTokenAccount() {
		return nil, ErrNotTokenAccount
	}
	tokenAccount, err := ledger.DecodeTokenAccount(info.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotTokenAccount, err)
	}
	if tokenAccount.Owner != r.settings.Operator {
		return nil, fmt.Errorf("%w: owner is %s", ErrNotOperatorOwned, tokenAccount.Owner)
	}

	lamportsBefore := info.Lamports

	signature, err := r.closer.CloseTokenAccount(ctx, address, r.settings.Operator)
	if err != nil {
		r.logger.LogError("reclaimer", "close_account", err, logrus.Fields{"account": address})
		return nil, fmt.Errorf("failed to close account %s: %w", address, err)
	}

	now := r.now()
	record := tracking.NewReclaimRecord(address, acc, lamportsBefore, signature, now)
	if err := r.repo.AppendHistory(ctx, record); err != nil {
		return nil, err
	}
	if acc != nil {
		acc.MarkReclaimed(lamportsBefore, signature, now)
		// Close is already confirmed on chain, so a failed save is only logged.
		if err := r.repo.SaveAccounts(ctx, accounts); err != nil {
			r.logger.LogError("reclaimer", "save_accounts", err, logrus.Fields{"account": address, "signature": signature})
		}
	}

	r.logger.LogReclaimSuccess(address, signature, lamportsBefore)
	notifier.Send(ctx, r.notifier, r.logger.Logger,
		notifier.FormatReclaim(address, lamportsBefore, signature, r.settings.Network, now))

	return &record, nil
}

// ReclaimEligible reclaims up to limit eligible accounts in address order. A
// failure is recorded in its outcome and does not stop the batch.
func (r *Reclaimer) ReclaimEligible(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = r.settings.BatchSize
	}

	accounts, err := r.repo.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}

	eligible := accounts.Eligible()
	if len(eligible) == 0 {
		r.logger.Info("No accounts are eligible for reclaim")
		return nil, nil
	}
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	r.logger.Infof("Reclaiming %d eligible accounts (dry run: %v)", len(eligible), r.settings.DryRun)

	outcomes := make([]Outcome, 0, len(eligible))
	for _, acc := range eligible {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		record, err := r.Reclaim(ctx, acc.Address)
		outcomes = append(outcomes, Outcome{Address: acc.Address, Record: record, Err: err})
	}

	return outcomes, nil
}
