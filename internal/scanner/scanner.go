// Package scanner walks the operator's transaction history and records every
// token account that appears in a post-token balance.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"rent-reclaim-bot-go/internal/config"
	"rent-reclaim-bot-go/internal/ledger"
	"rent-reclaim-bot-go/internal/logger"
	"rent-reclaim-bot-go/internal/storage"
	"rent-reclaim-bot-go/internal/tracking"
)

// Settings are the fixed scan parameters, usually taken from config
type Settings struct {
	Operator      string
	BatchSize     int
	MaxSignatures int
	PageDelay     time.Duration
	Until         string // stop before this signature, exclusive
}

// SettingsFromConfig maps the scanner section of cfg
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Operator:      cfg.Operator.Address,
		BatchSize:     cfg.Scanner.BatchSize,
		MaxSignatures: cfg.Scanner.MaxSignatures,
		PageDelay:     cfg.GetPageDelay(),
		Until:         cfg.Scanner.UntilSignature,
	}
}

// Options are per-run overrides
type Options struct {
	Before        string // resume cursor, exclusive
	MaxSignatures int    // zero keeps the configured limit
}

// Result summarises one scan pass
type Result struct {
	TotalScanned     int
	NewAccountsFound int
	TotalTracked     int
	LastSignature    string // pass as Options.Before to continue further back
}

// Scanner discovers sponsored token accounts
type Scanner struct {
	client   ledger.Client
	repo     storage.Repository
	settings Settings
	logger   *logger.Logger
	now      func() time.Time
}

// NewScanner creates a new scanner
func NewScanner(client ledger.Client, repo storage.Repository, settings Settings, log *logger.Logger) *Scanner {
	if settings.BatchSize <= 0 {
		settings.BatchSize = config.DefaultScanBatchSize
	}
	if settings.MaxSignatures <= 0 {
		settings.MaxSignatures = config.DefaultMaxSignatures
	}
	return &Scanner{
		client:   client,
		repo:     repo,
		settings: settings,
		logger:   log,
		now:      time.Now,
	}
}

// Scan pages backward through the operator history. On a page fetch error the
// pages already saved are kept and the partial result is returned with the error.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	s.logger.Section("SCANNING OPERATOR TRANSACTIONS")

	accounts, err := s.repo.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		s.logger.Infof("Loaded %d existing tracked accounts", len(accounts))
	}

	maxSignatures := s.settings.MaxSignatures
	if opts.MaxSignatures > 0 {
		maxSignatures = opts.MaxSignatures
	}

	s.logger.WithFields(logrus.Fields{
		"operator":       s.settings.Operator,
		"max_signatures": maxSignatures,
		"before":         opts.Before,
		"until":          s.settings.Until,
	}).Info("Scanning transactions for operator")

	result := &Result{}
	before := opts.Before

	for result.TotalScanned < maxSignatures {
		if err := ctx.Err(); err != nil {
			result.TotalTracked = len(accounts)
			return result, err
		}

		limit := s.settings.BatchSize
		if remaining := maxSignatures - result.TotalScanned; remaining < limit {
			limit = remaining
		}

		s.logger.Debugf("Fetching signatures batch (%d/%d)", result.TotalScanned, maxSignatures)
		page, err := s.client.GetSignaturesForAddress(ctx, s.settings.Operator, ledger.SignaturesOptions{
			Limit:  limit,
			Before: before,
			Until:  s.settings.Until,
		})
		if err != nil {
			result.TotalTracked = len(accounts)
			return result, fmt.Errorf("failed to fetch signatures: %w", err)
		}
		if len(page) == 0 {
			s.logger.Info("No more signatures to fetch")
			break
		}

		s.logger.Infof("Found %d signatures in batch", len(page))

		for _, sig := range page {
			if sig.Failed {
				continue
			}
			result.NewAccountsFound += s.processSignature(ctx, sig.Signature, accounts)
		}

		result.TotalScanned += len(page)
		before = page[len(page)-1].Signature
		result.LastSignature = before

		if err := s.repo.SaveAccounts(ctx, accounts); err != nil {
			result.TotalTracked = len(accounts)
			return result, err
		}

		if result.TotalScanned < maxSignatures {
			if err := sleep(ctx, s.settings.PageDelay); err != nil {
				result.TotalTracked = len(accounts)
				return result, err
			}
		}
	}

	result.TotalTracked = len(accounts)

	s.logger.Section("SCAN COMPLETE")
	s.logger.WithFields(logrus.Fields{
		"total_scanned":  result.TotalScanned,
		"new_accounts":   result.NewAccountsFound,
		"total_tracked":  result.TotalTracked,
		"last_signature": result.LastSignature,
	}).Info("✅ Scan finished")

	return result, nil
}

// processSignature inserts the accounts found in one transaction and returns how many were new
func (s *Scanner) processSignature(ctx context.Context, signature string, accounts tracking.AccountSet) int {
	tx, err := s.client.GetTransaction(ctx, signature)
	if err != nil {
		s.logger.LogError("scanner", "get_transaction", err, logrus.Fields{"signature": signature})
		return 0
	}
	if tx == nil {
		s.logger.WithField("signature", signature).Warn("No transaction data found")
		return 0
	}

	now := s.now()
	added := 0
	for _, d := range Discover(tx) {
		acc := tracking.NewTrackedAccount(d, s.settings.Operator, now)
		if !accounts.Insert(acc) {
			continue
		}
		added++
		s.logger.LogAccountDiscovered(acc.Address, acc.Metadata.Mint, acc.Metadata.Owner, string(acc.Category), signature)
	}
	return added
}

// Discover lists the token accounts in tx's post balances that carry an
// address, a mint and an owner. An account is new when its index is absent
// from the pre balances.
func Discover(tx *ledger.Transaction) []tracking.Discovery {
	pre := make(map[int]struct{}, len(tx.PreTokenBalances))
	for _, b := range tx.PreTokenBalances {
		pre[b.AccountIndex] = struct{}{}
	}

	var out []tracking.Discovery
	for _, b := range tx.PostTokenBalances {
		if b.Account == "" || b.Mint == "" || b.Owner == "" {
			continue
		}
		_, existed := pre[b.AccountIndex]
		out = append(out, tracking.Discovery{
			Address:   b.Account,
			Mint:      b.Mint,
			Owner:     b.Owner,
			Signature: tx.Signature,
			BlockTime: tx.BlockTime,
			IsNew:     !existed,
		})
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
